package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/service"
)

// ============================================================
// Messages: /v1/messages
// ============================================================

func createMessageHandler(svc *service.MessageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/messages")
		defer span.End()

		var req domain.CreateMessageRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		msg, err := svc.CreateMessage(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// listMessagesHandler serves GET /v1/messages with optional
// ?start_date=&end_date= or ?product_ids=a,b filters.
func listMessagesHandler(svc *service.MessageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/messages")
		defer span.End()

		q := r.URL.Query()
		var (
			msgs []domain.Message
			err  error
		)
		switch {
		case q.Has("start_date") || q.Has("end_date"):
			msgs, err = svc.ListMessagesByDateRange(ctx, q.Get("start_date"), q.Get("end_date"))
		case q.Has("product_ids"):
			msgs, err = svc.ListMessagesByProductIDs(ctx, splitList(q.Get("product_ids")))
		default:
			msgs, err = svc.ListMessages(ctx)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func getMessageHandler(svc *service.MessageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/messages/{messageId}")
		defer span.End()

		msg, err := svc.GetMessage(ctx, chi.URLParam(r, "messageId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func deleteMessageHandler(svc *service.MessageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/messages/{messageId}")
		defer span.End()

		id := chi.URLParam(r, "messageId")
		if err := svc.DeleteMessage(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "message deleted", ID: id})
	}
}
