package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubspot-ticket-sync/internal/api/dto"
	"github.com/spec-kit/hubspot-ticket-sync/internal/service"
)

// HubSpotHandler exposes the ingestion endpoint.
type HubSpotHandler struct {
	ingestion *service.IngestionService
}

// NewHubSpotHandler constructs handler.
func NewHubSpotHandler(ingestion *service.IngestionService) *HubSpotHandler {
	return &HubSpotHandler{ingestion: ingestion}
}

// IngestTicket POST /api/hubspot/ticket-assign-employee/:ticketId.
func (h *HubSpotHandler) IngestTicket(c *fiber.Ctx) error {
	result, err := h.ingestion.IngestAndAssign(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}

	message := "Local ticket already exists"
	status := http.StatusOK
	if result.Created {
		message = "Local ticket created and assigned (if employees found)"
		status = http.StatusCreated
	}

	return c.Status(status).JSON(dto.IngestionResponse{
		Message:   message,
		Hubspot:   result.HubspotTicket,
		Employees: dto.NewEmployeeResponses(result.Candidates),
		Ticket:    dto.NewTicketDetail(result.Ticket, result.Assignee),
	})
}
