package domain

import "time"

// Ticket is the local record of a HubSpot support ticket. Exactly one Ticket
// exists per HubSpot ticket id; the uniqueness is constraint-backed.
type Ticket struct {
	ID              string
	Title           string
	Description     string
	Status          TicketStatus
	AssignedTo      *string
	HubspotTicketID string
	Attachments     []Attachment
	Notes           []Note
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Attachment records a file pushed to the HubSpot file manager for a ticket.
// Attachments are owned by their ticket and have no independent lifecycle.
type Attachment struct {
	ID            string
	TicketID      string
	HubspotFileID string
	URL           string
	FileName      string
	UploadedAt    time.Time
}

// Note is an append-only annotation mirrored to a HubSpot note object.
type Note struct {
	ID            string
	TicketID      string
	HubspotNoteID string
	Message       string
	AttachmentURL string
	AddedBy       *string
	AddedAt       time.Time
}
