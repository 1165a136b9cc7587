package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/service"
)

// ============================================================
// Leads: /v1/leads
// ============================================================

func createLeadHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		var req domain.CreateLeadRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		lead, err := svc.CreateLead(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

// listLeadsHandler serves GET /v1/leads and GET /v1/leads?status=new.
func listLeadsHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		var (
			leads []domain.Lead
			err   error
		)
		if status := r.URL.Query().Get("status"); status != "" {
			span.SetAttributes(attribute.String("lead.status", status))
			leads, err = svc.ListLeadsByStatus(ctx, domain.LeadStatus(status))
		} else {
			leads, err = svc.ListLeads(ctx)
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, leads)
	}
}

func getLeadHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}")
		defer span.End()

		leadID := chi.URLParam(r, "leadId")
		span.SetAttributes(attribute.String("lead.id", leadID))

		lead, err := svc.GetLead(ctx, leadID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func deleteLeadHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/leads/{leadId}")
		defer span.End()

		leadID := chi.URLParam(r, "leadId")
		if err := svc.DeleteLead(ctx, leadID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "lead deleted", ID: leadID})
	}
}

func updateLeadStatusHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/leads/{leadId}/status")
		defer span.End()

		var req domain.UpdateLeadStatusRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		lead, err := svc.UpdateLeadStatus(ctx, chi.URLParam(r, "leadId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

func updateLeadContactHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/leads/{leadId}/contact")
		defer span.End()

		var req domain.ContactUpdate
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		lead, err := svc.UpdateLeadContact(ctx, chi.URLParam(r, "leadId"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}

type linkMessageRequest struct {
	MessageID string `json:"message_id"`
}

func linkLeadMessageHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/messages")
		defer span.End()

		var req linkMessageRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		leadID := chi.URLParam(r, "leadId")
		if err := svc.LinkMessage(ctx, leadID, req.MessageID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "message linked", ID: req.MessageID})
	}
}

func leadMessagesHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}/messages")
		defer span.End()

		out, err := svc.GetLeadWithMessages(ctx, chi.URLParam(r, "leadId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func leadConversationHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}/conversation")
		defer span.End()

		out, err := svc.GetConversationHistory(ctx, chi.URLParam(r, "leadId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func leadAnalyticsHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}/analytics")
		defer span.End()

		out, err := svc.GetLeadAnalytics(ctx, chi.URLParam(r, "leadId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
