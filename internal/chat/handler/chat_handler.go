// Package handler: chat_handler.go implementa o handler da rota
// POST /v1/ai/ask: a entrada do chat de vendas.
//
// O handler é fino: decodifica o body, delega pro ChatService e mapeia
// os erros. Toda a lógica (classificação do turno, IA, análise de
// interesse, captura de lead) fica no service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/chat/domain"
	"github.com/boddenberg/shop-advisor-go/internal/chat/service"
	maindomain "github.com/boddenberg/shop-advisor-go/internal/domain"
)

// tracer é o tracer OpenTelemetry para o módulo chat/handler.
var tracer = otel.Tracer("chat/handler")

// ============================================================
// AskHandler: POST /v1/ai/ask
// ============================================================

// AskHandler retorna o http.HandlerFunc para a rota POST /v1/ai/ask.
//
// Request:
//
//	Content-Type: application/json
//	Body: {"question": "Je cherche un ordinateur portable", "email": "...", "lead_id": "..."}
//
// Response (200 OK): TurnResult
//
//	{"turn_kind": "NEW_QUESTION", "answer": "...", "products": [...], "message_id": "...", ...}
//
// Erros:
//
//	400 {"error": "..."}                  → body inválido ou question vazia
//	500 {"message": "AI response failed"} → qualquer falha do turno (sem detalhe interno)
func AskHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/ai/ask")
		defer span.End()

		// Decodifica o body: esperamos {"question": "..."}
		var req domain.TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: expected {\"question\": \"your message\"}")
			return
		}
		span.SetAttributes(attribute.Bool("request.has_lead_id", req.LeadID != ""))

		resp, err := chatSvc.HandleTurn(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Helpers: funções utilitárias do chat handler
// ============================================================

// writeJSON serializa data como JSON e escreve na response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError escreve uma resposta de erro padronizada.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError mapeia erros do ChatService para HTTP status codes.
// O ChatService só devolve ErrValidation ou ErrTurnFailed; qualquer outro
// erro também vira a falha genérica.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var ve *maindomain.ErrValidation
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrTurnFailed):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": service.ErrTurnFailed.Error()})
	default:
		logger.Error("unexpected error in chat handler", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": service.ErrTurnFailed.Error()})
	}
}
