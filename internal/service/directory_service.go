package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/hubspot"
	"github.com/spec-kit/hubspot-ticket-sync/internal/repository"
	apperrors "github.com/spec-kit/hubspot-ticket-sync/pkg/util"
)

const stageCacheKey = "hubspot:ticket:stages"

// DirectoryService serves the read-only paths: employee listing, per-employee
// ticket pages, ticket detail and the pipeline stage list.
type DirectoryService struct {
	employees repository.EmployeeRepository
	tickets   repository.TicketRepository
	hubspot   hubspot.API
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// DirectoryDependencies bundles collaborators.
type DirectoryDependencies struct {
	EmployeeRepo repository.EmployeeRepository
	TicketRepo   repository.TicketRepository
	HubSpot      hubspot.API
	Cache        *redis.Client
	CacheTTL     time.Duration
	Logger       *zap.Logger
}

// NewDirectoryService creates the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		employees: deps.EmployeeRepo,
		tickets:   deps.TicketRepo,
		hubspot:   deps.HubSpot,
		cache:     deps.Cache,
		cacheTTL:  deps.CacheTTL,
		logger:    deps.Logger,
	}
}

// ListEmployees returns all employees. Password hashes are never loaded on
// this path.
func (s *DirectoryService) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	employees, err := s.employees.List(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("list employees", err)
	}
	return employees, nil
}

// TicketsForEmployee returns one page of an employee's tickets, newest first,
// plus the total count for pagination.
func (s *DirectoryService) TicketsForEmployee(ctx context.Context, employeeID string, page, limit int) ([]domain.Ticket, int, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, 0, apperrors.NewValidationError("employee id required", nil)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	total, err := s.tickets.CountByAssignee(ctx, employeeID)
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("count tickets", err)
	}
	tickets, err := s.tickets.ListByAssignee(ctx, employeeID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, apperrors.NewPersistenceError("list tickets", err)
	}
	return tickets, total, nil
}

// GetTicket returns the full ticket document and its assignee, if any.
func (s *DirectoryService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, *domain.Employee, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, nil, apperrors.NewValidationError("ticket id required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.NewPersistenceError("load ticket", err)
	}

	var assignee *domain.Employee
	if ticket.AssignedTo != nil {
		assignee, err = s.employees.GetByID(ctx, *ticket.AssignedTo)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewPersistenceError("load assignee", err)
		}
	}
	return ticket, assignee, nil
}

// PipelineStages returns the stages of the default HubSpot ticket pipeline,
// served from Redis when a cached copy is fresh.
func (s *DirectoryService) PipelineStages(ctx context.Context) ([]hubspot.PipelineStage, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, stageCacheKey).Result(); err == nil {
			var cached []hubspot.PipelineStage
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
			// fall through on a corrupt cache entry
		}
	}

	stages, err := s.hubspot.ListPipelineStages(ctx)
	if err != nil {
		return nil, apperrors.NewUpstream("fetch pipeline stages", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stages); err == nil {
			if err := s.cache.Set(ctx, stageCacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("unable to cache pipeline stages", zap.Error(err))
			}
		}
	}
	return stages, nil
}
