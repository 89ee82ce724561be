package handlers

import (
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubspot-ticket-sync/internal/api/dto"
	"github.com/spec-kit/hubspot-ticket-sync/internal/auth"
	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/service"
	apperrors "github.com/spec-kit/hubspot-ticket-sync/pkg/util"
)

// TicketsHandler manages ticket read and update endpoints.
type TicketsHandler struct {
	directory *service.DirectoryService
	updates   *service.UpdateService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(directory *service.DirectoryService, updates *service.UpdateService) *TicketsHandler {
	return &TicketsHandler{directory: directory, updates: updates}
}

// StatusList GET /api/tickets/status-list.
func (h *TicketsHandler) StatusList(c *fiber.Ctx) error {
	stages, err := h.directory.PipelineStages(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stages})
}

// ListByEmployee GET /api/tickets/employee/:employeeId.
func (h *TicketsHandler) ListByEmployee(c *fiber.Ctx) error {
	page := parseIntQuery(c.Query("page"), 1)
	limit := parseIntQuery(c.Query("limit"), 10)

	tickets, total, err := h.directory.TicketsForEmployee(c.UserContext(), c.Params("employeeId"), page, limit)
	if err != nil {
		return err
	}

	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return c.JSON(fiber.Map{
		"data": items,
		"pagination": dto.Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	})
}

// GetTicket GET /api/tickets/:ticketId.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, assignee, err := h.directory.GetTicket(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket, assignee)})
}

// UpdateTicket POST /api/tickets/:ticketId/update. Multipart form with
// optional status, noteMessage, employeeId fields and an optional file.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	input := service.UpdateInput{
		NoteMessage: c.FormValue("noteMessage"),
	}

	if statusValue := strings.TrimSpace(c.FormValue("status")); statusValue != "" {
		status, ok := domain.ParseStatus(statusValue)
		if !ok {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": statusValue})
		}
		input.Status = &status
	}

	if employeeID := strings.TrimSpace(c.FormValue("employeeId")); employeeID != "" {
		input.EmployeeID = &employeeID
	} else if employee, ok := auth.EmployeeFromContext(c); ok {
		input.EmployeeID = &employee.ID
	}

	if header, err := c.FormFile("file"); err == nil && header != nil {
		file, err := header.Open()
		if err != nil {
			return apperrors.NewValidationError("unable to read uploaded file", nil)
		}
		content, err := io.ReadAll(file)
		closeErr := file.Close()
		if err != nil || closeErr != nil {
			return apperrors.NewValidationError("unable to read uploaded file", nil)
		}
		input.File = &service.FileUpload{Name: header.Filename, Content: content}
	}

	ticket, err := h.updates.ApplyUpdate(c.UserContext(), c.Params("ticketId"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Ticket updated successfully",
		"data":    dto.NewTicketDetail(ticket, nil),
	})
}

func parseIntQuery(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
