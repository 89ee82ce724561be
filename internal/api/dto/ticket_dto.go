package dto

import (
	"time"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/hubspot"
)

// TicketSummary is the listing shape.
type TicketSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          int       `json:"status"`
	StatusLabel     string    `json:"status_label"`
	AssignedTo      *string   `json:"assigned_to,omitempty"`
	HubspotTicketID string    `json:"hubspot_ticket_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TicketDetailResponse provides the full ticket document.
type TicketDetailResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Status          int                  `json:"status"`
	StatusLabel     string               `json:"status_label"`
	Assignee        *EmployeeResponse    `json:"assignee,omitempty"`
	HubspotTicketID string               `json:"hubspot_ticket_id"`
	Attachments     []AttachmentResponse `json:"attachments"`
	Notes           []NoteResponse       `json:"notes"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID            string    `json:"id"`
	HubspotFileID string    `json:"hubspot_file_id"`
	URL           string    `json:"url"`
	FileName      string    `json:"file_name"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// NoteResponse represents one ticket note.
type NoteResponse struct {
	ID            string    `json:"id"`
	HubspotNoteID string    `json:"hubspot_note_id,omitempty"`
	Message       string    `json:"message"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	AddedBy       *string   `json:"added_by,omitempty"`
	AddedAt       time.Time `json:"added_at"`
}

// IngestionResponse is the ingest-and-assign payload.
type IngestionResponse struct {
	Message   string               `json:"message"`
	Hubspot   *hubspot.Ticket      `json:"hubspot"`
	Employees []EmployeeResponse   `json:"employees"`
	Ticket    TicketDetailResponse `json:"ticket"`
}

// Pagination envelope for listing endpoints.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:              ticket.ID,
		Title:           ticket.Title,
		Status:          int(ticket.Status),
		StatusLabel:     ticket.Status.Label(),
		AssignedTo:      ticket.AssignedTo,
		HubspotTicketID: ticket.HubspotTicketID,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

// NewTicketDetail maps a domain ticket with its children and assignee.
func NewTicketDetail(ticket *domain.Ticket, assignee *domain.Employee) TicketDetailResponse {
	attachments := make([]AttachmentResponse, 0, len(ticket.Attachments))
	for _, attachment := range ticket.Attachments {
		attachments = append(attachments, AttachmentResponse{
			ID:            attachment.ID,
			HubspotFileID: attachment.HubspotFileID,
			URL:           attachment.URL,
			FileName:      attachment.FileName,
			UploadedAt:    attachment.UploadedAt,
		})
	}
	notes := make([]NoteResponse, 0, len(ticket.Notes))
	for _, note := range ticket.Notes {
		notes = append(notes, NoteResponse{
			ID:            note.ID,
			HubspotNoteID: note.HubspotNoteID,
			Message:       note.Message,
			AttachmentURL: note.AttachmentURL,
			AddedBy:       note.AddedBy,
			AddedAt:       note.AddedAt,
		})
	}

	detail := TicketDetailResponse{
		ID:              ticket.ID,
		Title:           ticket.Title,
		Description:     ticket.Description,
		Status:          int(ticket.Status),
		StatusLabel:     ticket.Status.Label(),
		HubspotTicketID: ticket.HubspotTicketID,
		Attachments:     attachments,
		Notes:           notes,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
	if assignee != nil {
		resp := NewEmployeeResponse(assignee)
		detail.Assignee = &resp
	}
	return detail
}
