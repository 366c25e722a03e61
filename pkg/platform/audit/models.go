package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers user decisions that must be retained, such as
	// granted or denied consent.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// failed sign-ins and rejected tickets.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine flow activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the authorization flow to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	UserID    string        `json:"user_id,omitempty"`
	ClientID  string        `json:"client_id,omitempty"`
	Action    string        `json:"action"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// Host and UserAgent are captured when the ticket is issued.
	Host      string `json:"host,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Device    Device `json:"device"`
}

type AuditEvent string

const (
	EventTicketIssued   AuditEvent = "ticket_issued"
	EventTicketRejected AuditEvent = "ticket_rejected"
	EventAuthFailed     AuditEvent = "auth_failed"
	EventConsentGranted AuditEvent = "consent_granted"
	EventConsentDenied  AuditEvent = "consent_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventConsentGranted: CategoryCompliance,
	EventConsentDenied:  CategoryCompliance,

	EventAuthFailed:     CategorySecurity,
	EventTicketRejected: CategorySecurity,

	EventTicketIssued: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
