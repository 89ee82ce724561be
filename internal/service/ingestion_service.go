package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/events"
	"github.com/spec-kit/hubspot-ticket-sync/internal/hubspot"
	"github.com/spec-kit/hubspot-ticket-sync/internal/repository"
	apperrors "github.com/spec-kit/hubspot-ticket-sync/pkg/util"
)

// Ordered fallback property names per logical ticket attribute. The HubSpot
// payload is a loose property bag; these lists are applied first-match-wins.
var (
	ownerProperties       = []string{"hubspot_owner_id", "ownerId", "owner"}
	titleProperties       = []string{"subject", "title"}
	descriptionProperties = []string{"content", "description"}
	stageProperties       = []string{"hs_pipeline_stage"}
)

const defaultDescription = "No description provided"

// IngestionService materializes local tickets from HubSpot tickets and
// assigns them using the least-busy policy.
type IngestionService struct {
	hubspot    hubspot.API
	tickets    repository.TicketRepository
	employees  repository.EmployeeRepository
	txm        repository.TxManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// IngestionDependencies bundles collaborators.
type IngestionDependencies struct {
	HubSpot      hubspot.API
	TicketRepo   repository.TicketRepository
	EmployeeRepo repository.EmployeeRepository
	TxManager    repository.TxManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewIngestionService creates the service.
func NewIngestionService(deps IngestionDependencies) *IngestionService {
	return &IngestionService{
		hubspot:    deps.HubSpot,
		tickets:    deps.TicketRepo,
		employees:  deps.EmployeeRepo,
		txm:        deps.TxManager,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// IngestionResult is the outcome of an ingest-and-assign request.
type IngestionResult struct {
	Ticket        *domain.Ticket
	Assignee      *domain.Employee
	HubspotTicket *hubspot.Ticket
	Candidates    []domain.Employee
	Created       bool
}

// IngestAndAssign fetches the HubSpot ticket, resolves candidate employees by
// owner id and returns the local ticket for it, creating and assigning one if
// this is the first sight of the HubSpot ticket id. Candidate resolution, the
// idempotency check, load counting and the insert run in a single
// serializable transaction, so concurrent requests for the same unseen id
// produce exactly one local ticket.
func (s *IngestionService) IngestAndAssign(ctx context.Context, hubspotTicketID string) (*IngestionResult, error) {
	hubspotTicketID = strings.TrimSpace(hubspotTicketID)
	if hubspotTicketID == "" {
		return nil, apperrors.NewValidationError("hubspot ticket id required", nil)
	}

	hsTicket, err := s.hubspot.GetTicket(ctx, hubspotTicketID)
	if err != nil {
		if errors.Is(err, hubspot.ErrTicketNotFound) {
			return nil, apperrors.NewNotFound("hubspot ticket", map[string]any{"hubspot_ticket_id": hubspotTicketID})
		}
		return nil, apperrors.NewUpstream("fetch hubspot ticket", err)
	}

	fields := extractTicketFields(hsTicket)
	result := &IngestionResult{HubspotTicket: hsTicket}

	err = s.txm.WithinSerializable(ctx, func(r repository.Repositories) error {
		candidates := []domain.Employee{}
		if fields.OwnerID != "" {
			found, err := r.Employees.ListByOwnerID(ctx, fields.OwnerID)
			if err != nil {
				return err
			}
			candidates = found
		}
		result.Candidates = candidates

		existing, err := r.Tickets.GetByHubspotID(ctx, hsTicket.ID)
		if err == nil {
			result.Ticket = existing
			result.Created = false
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		ticket := &domain.Ticket{
			Title:           fields.Title,
			Description:     fields.Description,
			Status:          fields.Status,
			HubspotTicketID: hsTicket.ID,
		}
		if len(candidates) > 0 {
			assignee, err := s.selectLeastBusy(ctx, r.Tickets, candidates)
			if err != nil {
				return err
			}
			ticket.AssignedTo = &assignee.ID
		}
		if err := r.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		result.Ticket = ticket
		result.Created = true
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTicket) {
			// A concurrent request created the ticket between our fetch and
			// commit; treat it as the idempotent fast path.
			existing, readErr := s.tickets.GetByHubspotID(ctx, hsTicket.ID)
			if readErr != nil {
				return nil, apperrors.NewPersistenceError("load existing ticket", readErr)
			}
			result.Ticket = existing
			result.Created = false
		} else {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return nil, err
			}
			return nil, apperrors.NewPersistenceError("ingest ticket", err)
		}
	}

	if result.Ticket.AssignedTo != nil {
		assignee, err := s.employees.GetByID(ctx, *result.Ticket.AssignedTo)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewPersistenceError("load assignee", err)
		}
		result.Assignee = assignee
	}

	if result.Created {
		s.logger.Info("local ticket created",
			zap.String("ticket_id", result.Ticket.ID),
			zap.String("hubspot_ticket_id", hsTicket.ID),
			zap.Int("candidates", len(result.Candidates)),
		)
		publish(ctx, s.dispatcher, events.Event{
			Type:            events.EventTicketIngested,
			TicketID:        result.Ticket.ID,
			HubspotTicketID: hsTicket.ID,
			Payload: events.TicketIngestedPayload{
				Title:      result.Ticket.Title,
				Status:     result.Ticket.Status,
				OwnerID:    fields.OwnerID,
				Candidates: len(result.Candidates),
			},
		})
		if result.Ticket.AssignedTo != nil {
			publish(ctx, s.dispatcher, events.Event{
				Type:            events.EventTicketAssigned,
				TicketID:        result.Ticket.ID,
				HubspotTicketID: hsTicket.ID,
				Payload: events.TicketAssignedPayload{
					EmployeeID: *result.Ticket.AssignedTo,
				},
			})
		}
	}

	return result, nil
}

// selectLeastBusy picks the candidate with the fewest active tickets, ties
// broken by earliest employee creation time.
func (s *IngestionService) selectLeastBusy(ctx context.Context, tickets repository.TicketRepository, candidates []domain.Employee) (*domain.Employee, error) {
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.ID)
	}
	counts, err := tickets.CountActive(ctx, ids, domain.ActiveStatuses())
	if err != nil {
		return nil, err
	}

	sorted := make([]domain.Employee, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		loadI, loadJ := counts[sorted[i].ID], counts[sorted[j].ID]
		if loadI != loadJ {
			return loadI < loadJ
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return &sorted[0], nil
}

// ticketFields is the extraction of a HubSpot property bag into local ticket
// attributes, defaults applied.
type ticketFields struct {
	OwnerID     string
	Title       string
	Description string
	Status      domain.TicketStatus
}

func extractTicketFields(hsTicket *hubspot.Ticket) ticketFields {
	fields := ticketFields{
		OwnerID:     hsTicket.Property(ownerProperties...),
		Title:       hsTicket.Property(titleProperties...),
		Description: hsTicket.Property(descriptionProperties...),
		Status:      domain.DefaultStatus,
	}
	if fields.Title == "" {
		fields.Title = fmt.Sprintf("Ticket %s", hsTicket.ID)
	}
	if fields.Description == "" {
		fields.Description = defaultDescription
	}
	if status, ok := domain.ParseStatus(hsTicket.Property(stageProperties...)); ok {
		fields.Status = status
	}
	return fields
}
