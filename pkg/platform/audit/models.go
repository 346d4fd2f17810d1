package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose so stores
// can apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers verdicts with regulatory significance. These
	// require durable storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted by the screening service to record what was decided and
// why. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	Subject    string // instrument symbol
	Action     string
	Decision   string // final verdict
	Confidence string
	Reason     string
	AuditID    string // ties the event to the persisted ScreeningResult
	RequestID  string
}

type AuditEvent string

const (
	EventScreeningCompleted AuditEvent = "screening_completed"
	EventBasketScreened     AuditEvent = "basket_screened"
	EventSymbolUnresolved   AuditEvent = "symbol_unresolved"
	EventScreeningRejected  AuditEvent = "screening_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventScreeningCompleted: CategoryCompliance,
	EventBasketScreened:     CategoryCompliance,
	EventSymbolUnresolved:   CategoryOperations,
	EventScreeningRejected:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
