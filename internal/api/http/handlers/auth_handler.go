package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hubspot-ticket-sync/internal/api/dto"
	"github.com/spec-kit/hubspot-ticket-sync/internal/service"
	apperrors "github.com/spec-kit/hubspot-ticket-sync/pkg/util"
)

// AuthHandler exposes employee login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Employee:  dto.NewEmployeeResponse(result.Employee),
	})
}
