// Package port: chat_port.go define as interfaces (ports) que o
// ChatService usa para falar com a IA e com as regras de captura de lead.
//
// Seguindo a arquitetura hexagonal, as strategies dependem dessas interfaces
// e NÃO das implementações concretas. Isso facilita testes e troca de
// implementação (ex: extrator por regex ou por IA).
package port

import (
	"context"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

// Advisor responde perguntas com base no catálogo.
// O AiService (internal/service) implementa essa interface.
type Advisor interface {
	// Ask devolve a resposta e os produtos recomendados.
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// Acknowledge devolve a mensagem de cortesia para um turno de contato.
	Acknowledge(ctx context.Context, reply string) (string, error)
}

// InterestScorer pontua a intenção de compra de um turno.
type InterestScorer interface {
	AnalyzeInterestLevel(ctx context.Context, question, answer string, products []string) domain.InterestAnalysisResult
	DetectSeriousInterest(message string) bool
	GenerateLeadCaptureMessage(analysis domain.InterestAnalysisResult, userMessage string) (string, bool)
}

// ContactReader extrai dados de contato de um texto livre.
// Pode ser o extrator por regex ou o extrator com IA.
type ContactReader interface {
	ExtractContactInfo(ctx context.Context, text string) domain.ContactExtractionResult
}

// ContactDetector decide se um texto é uma resposta com dados de contato
// e monta a mensagem de follow-up. Sempre determinístico (regex).
type ContactDetector interface {
	IsContactInfoResponse(text string) bool
	GenerateFollowUpMessage(r domain.ContactExtractionResult) string
}

// TurnMetrics registra as métricas de negócio do chat.
type TurnMetrics interface {
	IncrTurn(kind, status string)
	IncrInterestLevel(level string)
	IncrLead(event string)
}
