package events

import (
	"time"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIngested  EventType = "ticket_ingested"
	EventTicketAssigned  EventType = "ticket_assigned"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketNoteAdded EventType = "ticket_note_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID              string      `json:"id"`
	Type            EventType   `json:"type"`
	TicketID        string      `json:"ticket_id"`
	HubspotTicketID string      `json:"hubspot_ticket_id"`
	Timestamp       time.Time   `json:"timestamp"`
	Payload         interface{} `json:"payload"`
}

// TicketIngestedPayload payload.
type TicketIngestedPayload struct {
	Title      string              `json:"title"`
	Status     domain.TicketStatus `json:"status"`
	OwnerID    string              `json:"owner_id,omitempty"`
	Candidates int                 `json:"candidates"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	EmployeeID string `json:"employee_id"`
	ActiveLoad int    `json:"active_load"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	HubspotNoteID string  `json:"hubspot_note_id"`
	AttachmentURL string  `json:"attachment_url,omitempty"`
	AddedBy       *string `json:"added_by,omitempty"`
}
