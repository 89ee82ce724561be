package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubspot-ticket-sync/internal/api/dto"
	"github.com/spec-kit/hubspot-ticket-sync/internal/service"
)

// EmployeesHandler exposes the employee directory.
type EmployeesHandler struct {
	directory *service.DirectoryService
}

// NewEmployeesHandler constructs handler.
func NewEmployeesHandler(directory *service.DirectoryService) *EmployeesHandler {
	return &EmployeesHandler{directory: directory}
}

// ListEmployees GET /api/employees.
func (h *EmployeesHandler) ListEmployees(c *fiber.Ctx) error {
	employees, err := h.directory.ListEmployees(c.UserContext())
	if err != nil {
		return err
	}
	items := dto.NewEmployeeResponses(employees)
	return c.JSON(fiber.Map{
		"count": len(items),
		"data":  items,
	})
}
