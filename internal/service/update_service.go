package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/events"
	"github.com/spec-kit/hubspot-ticket-sync/internal/hubspot"
	"github.com/spec-kit/hubspot-ticket-sync/internal/repository"
	apperrors "github.com/spec-kit/hubspot-ticket-sync/pkg/util"
)

// fallbackNoteMessage is used when a file is attached without a message.
const fallbackNoteMessage = "File attached"

// UpdateService applies status changes and note/attachment appends to a
// local ticket, mirroring each change to HubSpot first.
type UpdateService struct {
	hubspot    hubspot.API
	tickets    repository.TicketRepository
	txm        repository.TxManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// UpdateDependencies bundles collaborators.
type UpdateDependencies struct {
	HubSpot    hubspot.API
	TicketRepo repository.TicketRepository
	TxManager  repository.TxManager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewUpdateService creates the service.
func NewUpdateService(deps UpdateDependencies) *UpdateService {
	return &UpdateService{
		hubspot:    deps.HubSpot,
		tickets:    deps.TicketRepo,
		txm:        deps.TxManager,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// FileUpload is an in-memory file received with an update request.
type FileUpload struct {
	Name    string
	Content []byte
}

// UpdateInput describes a composable update request.
type UpdateInput struct {
	Status      *domain.TicketStatus
	NoteMessage string
	File        *FileUpload
	EmployeeID  *string
}

func (in UpdateInput) empty() bool {
	return in.Status == nil && strings.TrimSpace(in.NoteMessage) == "" && in.File == nil
}

// ApplyUpdate pushes the requested changes to HubSpot and, only once every
// external call has succeeded, persists the whole ticket document in a single
// transaction. A failed HubSpot call therefore leaves the local ticket
// untouched. If local persistence fails after an external note was created,
// the orphaned note id is logged for manual reconciliation; there is no
// automatic compensation.
func (s *UpdateService) ApplyUpdate(ctx context.Context, ticketID string, input UpdateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewValidationError("ticket id required", nil)
	}
	if input.empty() {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": int(*input.Status)})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceError("load ticket", err)
	}

	oldStatus := ticket.Status
	if input.Status != nil {
		if err := s.hubspot.UpdateTicketStage(ctx, ticket.HubspotTicketID, input.Status.Stage()); err != nil {
			return nil, apperrors.NewUpstream("update hubspot ticket stage", err)
		}
		ticket.Status = *input.Status
	}

	noteMessage := strings.TrimSpace(input.NoteMessage)
	var appendedNote *domain.Note

	switch {
	case input.Status != nil && *input.Status == domain.StatusClosed && input.File != nil:
		note, err := s.appendNoteWithFile(ctx, ticket, noteMessage, input.File, input.EmployeeID)
		if err != nil {
			return nil, err
		}
		appendedNote = note
	case noteMessage != "":
		note, err := s.appendNote(ctx, ticket, noteMessage, input.EmployeeID)
		if err != nil {
			return nil, err
		}
		appendedNote = note
	}

	err = s.txm.WithinTx(ctx, func(r repository.Repositories) error {
		return r.Tickets.Save(ctx, ticket)
	})
	if err != nil {
		if appendedNote != nil {
			// The HubSpot note exists but the local record does not. Known
			// partial-effect window; surfaced for manual reconciliation.
			s.logger.Warn("hubspot note created but local save failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("hubspot_note_id", appendedNote.HubspotNoteID),
				zap.Error(err),
			)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceError("save ticket", err)
	}

	if input.Status != nil && oldStatus != ticket.Status {
		publish(ctx, s.dispatcher, events.Event{
			Type:            events.EventTicketUpdated,
			TicketID:        ticket.ID,
			HubspotTicketID: ticket.HubspotTicketID,
			Payload: events.TicketUpdatedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	if appendedNote != nil {
		publish(ctx, s.dispatcher, events.Event{
			Type:            events.EventTicketNoteAdded,
			TicketID:        ticket.ID,
			HubspotTicketID: ticket.HubspotTicketID,
			Payload: events.TicketNoteAddedPayload{
				HubspotNoteID: appendedNote.HubspotNoteID,
				AttachmentURL: appendedNote.AttachmentURL,
				AddedBy:       appendedNote.AddedBy,
			},
		})
	}
	return ticket, nil
}

// appendNoteWithFile uploads the file, creates a HubSpot note referencing it,
// associates the note with the ticket and stages both local child records.
func (s *UpdateService) appendNoteWithFile(ctx context.Context, ticket *domain.Ticket, message string, file *FileUpload, employeeID *string) (*domain.Note, error) {
	uploaded, err := s.hubspot.UploadFile(ctx, file.Content, file.Name)
	if err != nil {
		return nil, apperrors.NewUpstream("upload file to hubspot", err)
	}

	if message == "" {
		message = fallbackNoteMessage
	}
	noteID, err := s.hubspot.CreateNote(ctx, message, uploaded.ID)
	if err != nil {
		return nil, apperrors.NewUpstream("create hubspot note", err)
	}
	if err := s.hubspot.AssociateNoteWithTicket(ctx, noteID, ticket.HubspotTicketID); err != nil {
		return nil, apperrors.NewUpstream("associate hubspot note", err)
	}

	now := time.Now()
	ticket.Attachments = append(ticket.Attachments, domain.Attachment{
		HubspotFileID: uploaded.ID,
		URL:           uploaded.URL,
		FileName:      file.Name,
		UploadedAt:    now,
	})
	note := domain.Note{
		HubspotNoteID: noteID,
		Message:       message,
		AttachmentURL: uploaded.URL,
		AddedBy:       employeeID,
		AddedAt:       now,
	}
	ticket.Notes = append(ticket.Notes, note)
	return &ticket.Notes[len(ticket.Notes)-1], nil
}

func (s *UpdateService) appendNote(ctx context.Context, ticket *domain.Ticket, message string, employeeID *string) (*domain.Note, error) {
	noteID, err := s.hubspot.CreateNote(ctx, message, "")
	if err != nil {
		return nil, apperrors.NewUpstream("create hubspot note", err)
	}
	if err := s.hubspot.AssociateNoteWithTicket(ctx, noteID, ticket.HubspotTicketID); err != nil {
		return nil, apperrors.NewUpstream("associate hubspot note", err)
	}

	note := domain.Note{
		HubspotNoteID: noteID,
		Message:       message,
		AddedBy:       employeeID,
		AddedAt:       time.Now(),
	}
	ticket.Notes = append(ticket.Notes, note)
	return &ticket.Notes[len(ticket.Notes)-1], nil
}
