// Package models defines the persistent domain entities.
package models

import (
	"time"
)

// Stage is a lead's position in the sales funnel.
type Stage string

// Funnel stages, ordered roughly by progression.
const (
	StageInitialContact    Stage = "INITIAL_CONTACT"
	StageIdentification    Stage = "IDENTIFICATION"
	StageQualification     Stage = "QUALIFICATION"
	StageDiscovery         Stage = "DISCOVERY"
	StagePresentation      Stage = "PRESENTATION"
	StageObjectionHandling Stage = "OBJECTION_HANDLING"
	StageScheduling        Stage = "SCHEDULING"
	StageFollowUp          Stage = "FOLLOW_UP"
	StageQualified         Stage = "QUALIFIED"
	StageDisqualified      Stage = "DISQUALIFIED"
)

// Metadata keys for qualification facts collected during the conversation.
// Keys follow the CRM's Brazilian Portuguese field names.
const (
	MetaBillValue          = "valor_conta"
	MetaPropertyType       = "tipo_imovel"
	MetaIsDecisionMaker    = "e_decisor"
	MetaHasOwnPlant        = "tem_usina_propria"
	MetaHasActiveContract  = "tem_contrato_vigente"
	MetaMeetingAvailable   = "disponibilidade_reuniao"
	MetaSolutionInterest   = "solucao_interesse"
	MetaMeetingScheduled   = "meeting_scheduled"
	MetaHasObjections      = "has_objections"
	MetaObjectionsHandled  = "objections_handled"
	MetaObjections         = "objections"
	MetaAdditionalPhones   = "additional_phones"
	MetaAdditionalEmails   = "additional_emails"
	MetaWillBringDecision  = "vai_trazer_decisor"
	MetaDocumentsProvided  = "documentos_enviados"
)

// Metadata is the open key/value bag on a lead.
type Metadata map[string]any

// Bool reads a boolean fact; absent or non-bool values return (false, false).
func (m Metadata) Bool(key string) (value, ok bool) {
	v, present := m[key]
	if !present {
		return false, false
	}
	b, isBool := v.(bool)
	return b, isBool
}

// Float reads a numeric fact, accepting float64 and int (JSON numbers decode
// as float64).
func (m Metadata) Float(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// String reads a string fact.
func (m Metadata) String(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Has reports whether a key is present with a non-nil value.
func (m Metadata) Has(key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// Lead is a prospective customer. Created on first inbound message and never
// destroyed by the engine.
type Lead struct {
	ID            string    `json:"id"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Stage         Stage     `json:"stage"`
	Score         int       `json:"score"`
	Metadata      Metadata  `json:"metadata"`
	ExternalCRMID string    `json:"external_crm_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
