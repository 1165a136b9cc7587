// Package domain: chat.go define os tipos usados pela rota POST /v1/ai/ask.
//
// Essa rota é a "porta de entrada" do chat de vendas. Cada chamada é um
// turno independente: o cliente manda uma pergunta (ou uma resposta com os
// dados de contato) e o advisor devolve a resposta da IA, os produtos
// recomendados e, quando faz sentido, um pedido de contato para virar lead.
//
// O fluxo completo:
//  1. Cliente manda {"question": "...", "email": "...", "lead_id": "..."}
//  2. ChatService classifica o turno (NEW_QUESTION ou CONTACT_REPLY)
//  3. A Strategy correspondente chama a IA, persiste a mensagem e analisa o interesse
//  4. Se houver interesse de compra, um Lead é criado ou atualizado
//  5. O advisor devolve o TurnResult completo
package domain

import (
	maindomain "github.com/boddenberg/shop-advisor-go/internal/domain"
)

// ============================================================
// TurnKind: estados da máquina de estados por turno
// ============================================================

// TurnKind identifica o tipo de turno detectado pelo ChatService.
type TurnKind string

const (
	// TurnNewQuestion é uma pergunta normal sobre produtos.
	TurnNewQuestion TurnKind = "NEW_QUESTION"

	// TurnContactReply é a resposta do cliente ao pedido de contato.
	// Só acontece quando a mensagem parece conter dados de contato
	// E o chamador informou um lead_id.
	TurnContactReply TurnKind = "CONTACT_REPLY"
)

// ============================================================
// TurnRequest / TurnResult: contrato da rota POST /v1/ai/ask
// ============================================================

// TurnRequest é o body que o chamador envia.
type TurnRequest struct {
	// Question é o texto do cliente: campo obrigatório
	Question string `json:"question"`

	// Email é opcional: quando já existe um lead com esse email,
	// a mensagem é vinculada a ele em vez de criar um lead duplicado.
	Email string `json:"email,omitempty"`

	// LeadID é o lead devolvido num turno anterior (preliminary_lead_id).
	LeadID string `json:"lead_id,omitempty"`
}

// TurnResult é o que o advisor devolve pro chamador.
//
// Falhas de persistência NÃO abortam o turno: elas aparecem como flags
// (lead_created=false, lead_updated=false, message_id vazio).
type TurnResult struct {
	Kind     TurnKind             `json:"turn_kind"`
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
	Products []maindomain.Product `json:"products"`

	// MessageID é o id da mensagem persistida ("" se a gravação falhou)
	MessageID string `json:"message_id,omitempty"`

	InterestAnalysis  *maindomain.InterestAnalysisResult  `json:"interest_analysis,omitempty"`
	ShouldCaptureLead bool                                `json:"should_capture_lead"`
	ContactExtraction *maindomain.ContactExtractionResult `json:"contact_extraction,omitempty"`

	// LeadCaptureMessage é o pedido de nome/email/telefone (vazio quando
	// não há interesse ou o cliente já mandou os dados).
	LeadCaptureMessage string `json:"lead_capture_message,omitempty"`

	// PreliminaryLeadID é o lead criado neste turno. O chamador deve
	// devolvê-lo como lead_id na próxima mensagem.
	PreliminaryLeadID string `json:"preliminary_lead_id,omitempty"`
	LeadCreated       bool   `json:"lead_created"`

	// LinkedLeadID é o lead existente ao qual a mensagem foi vinculada.
	LinkedLeadID string `json:"linked_lead_id,omitempty"`

	// Campos do turno CONTACT_REPLY
	LeadUpdated     bool   `json:"lead_updated"`
	FollowUpMessage string `json:"follow_up_message,omitempty"`
}

// ============================================================
// Strategy Context: o que cada strategy recebe
// ============================================================

// TurnContext encapsula tudo que uma Strategy precisa para processar
// um turno. É montado pelo ChatService antes de delegar.
type TurnContext struct {
	// Kind é o tipo de turno detectado
	Kind TurnKind

	// Request é o body original, já normalizado (trim)
	Request TurnRequest
}
