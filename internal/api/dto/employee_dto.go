package dto

import (
	"time"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
)

// EmployeeResponse is the outward employee shape. It deliberately has no
// password field; no read path exposes credentials.
type EmployeeResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse payload.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Employee  EmployeeResponse `json:"employee"`
}

// NewEmployeeResponse maps a domain employee.
func NewEmployeeResponse(employee *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:        employee.ID,
		Name:      employee.Name,
		Email:     employee.Email,
		Role:      employee.Role,
		OwnerID:   employee.OwnerID,
		CreatedAt: employee.CreatedAt,
	}
}

// NewEmployeeResponses maps a slice of domain employees.
func NewEmployeeResponses(employees []domain.Employee) []EmployeeResponse {
	result := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		result = append(result, NewEmployeeResponse(&employees[i]))
	}
	return result
}
