package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Save(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByHubspotID(ctx context.Context, hubspotTicketID string) (*domain.Ticket, error)
	CountActive(ctx context.Context, employeeIDs []string, statuses []domain.TicketStatus) (map[string]int, error)
	ListByAssignee(ctx context.Context, employeeID string, limit, offset int) ([]domain.Ticket, error)
	CountByAssignee(ctx context.Context, employeeID string) (int, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, assigned_employee_id, hubspot_ticket_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		int16(ticket.Status),
		ticket.AssignedTo,
		ticket.HubspotTicketID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("hubspot ticket %s: %w", ticket.HubspotTicketID, ErrDuplicateTicket)
		}
		return err
	}
	return nil
}

// Save persists the whole ticket document: the ticket row plus any notes and
// attachments appended since the last load (children without an id).
func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, assigned_employee_id=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		int16(ticket.Status),
		ticket.AssignedTo,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	for i := range ticket.Attachments {
		if ticket.Attachments[i].ID != "" {
			continue
		}
		if err := r.insertAttachment(ctx, ticket.ID, &ticket.Attachments[i]); err != nil {
			return err
		}
	}
	for i := range ticket.Notes {
		if ticket.Notes[i].ID != "" {
			continue
		}
		if err := r.insertNote(ctx, ticket.ID, &ticket.Notes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) insertAttachment(ctx context.Context, ticketID string, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, hubspot_file_id, url, file_name)
        VALUES ($1,$2,$3,$4)
        RETURNING id, uploaded_at`
	attachment.TicketID = ticketID
	return r.db.QueryRow(ctx, query,
		ticketID,
		attachment.HubspotFileID,
		attachment.URL,
		attachment.FileName,
	).Scan(&attachment.ID, &attachment.UploadedAt)
}

func (r *ticketRepository) insertNote(ctx context.Context, ticketID string, note *domain.Note) error {
	const query = `
        INSERT INTO ticket_notes (ticket_id, hubspot_note_id, message, attachment_url, added_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, added_at`
	note.TicketID = ticketID
	return r.db.QueryRow(ctx, query,
		ticketID,
		note.HubspotNoteID,
		note.Message,
		note.AttachmentURL,
		note.AddedBy,
	).Scan(&note.ID, &note.AddedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, assigned_employee_id, hubspot_ticket_id, created_at, updated_at
        FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByHubspotID(ctx context.Context, hubspotTicketID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, assigned_employee_id, hubspot_ticket_id, created_at, updated_at
        FROM tickets WHERE hubspot_ticket_id=$1`
	return r.fetchSingle(ctx, query, hubspotTicketID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) loadChildren(ctx context.Context, ticket *domain.Ticket) error {
	const attachmentQuery = `
        SELECT id, ticket_id, hubspot_file_id, url, file_name, uploaded_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.db.Query(ctx, attachmentQuery, ticket.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.HubspotFileID,
			&attachment.URL,
			&attachment.FileName,
			&attachment.UploadedAt,
		); err != nil {
			return err
		}
		ticket.Attachments = append(ticket.Attachments, attachment)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const noteQuery = `
        SELECT id, ticket_id, hubspot_note_id, message, attachment_url, added_by, added_at
        FROM ticket_notes WHERE ticket_id=$1 ORDER BY added_at ASC, id ASC`
	noteRows, err := r.db.Query(ctx, noteQuery, ticket.ID)
	if err != nil {
		return err
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var note domain.Note
		if err := noteRows.Scan(
			&note.ID,
			&note.TicketID,
			&note.HubspotNoteID,
			&note.Message,
			&note.AttachmentURL,
			&note.AddedBy,
			&note.AddedAt,
		); err != nil {
			return err
		}
		ticket.Notes = append(ticket.Notes, note)
	}
	return noteRows.Err()
}

// CountActive returns, per employee, how many tickets in the given statuses
// are currently assigned to them. Employees with no matches are present with
// a zero count.
func (r *ticketRepository) CountActive(ctx context.Context, employeeIDs []string, statuses []domain.TicketStatus) (map[string]int, error) {
	counts := make(map[string]int, len(employeeIDs))
	for _, id := range employeeIDs {
		counts[id] = 0
	}
	if len(employeeIDs) == 0 || len(statuses) == 0 {
		return counts, nil
	}

	statusArgs := make([]int16, 0, len(statuses))
	for _, status := range statuses {
		statusArgs = append(statusArgs, int16(status))
	}

	const query = `
        SELECT assigned_employee_id, COUNT(*)
        FROM tickets
        WHERE assigned_employee_id = ANY($1::uuid[]) AND status = ANY($2::smallint[])
        GROUP BY assigned_employee_id`
	rows, err := r.db.Query(ctx, query, employeeIDs, statusArgs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var employeeID string
		var count int
		if err := rows.Scan(&employeeID, &count); err != nil {
			return nil, err
		}
		counts[employeeID] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) ListByAssignee(ctx context.Context, employeeID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, title, description, status, assigned_employee_id, hubspot_ticket_id, created_at, updated_at
        FROM tickets WHERE assigned_employee_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByAssignee(ctx context.Context, employeeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE assigned_employee_id=$1`
	var count int
	if err := r.db.QueryRow(ctx, query, employeeID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var status int16
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&status,
		&ticket.AssignedTo,
		&ticket.HubspotTicketID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}
