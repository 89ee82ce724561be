package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hubspot-ticket-sync/internal/auth"
	"github.com/spec-kit/hubspot-ticket-sync/internal/config"
	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/repository"
	apperrors "github.com/spec-kit/hubspot-ticket-sync/pkg/util"
)

// AuthService authenticates employees and issues tokens.
type AuthService struct {
	employees repository.EmployeeRepository
	tokens    *auth.TokenManager
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, employees repository.EmployeeRepository) *AuthService {
	return &AuthService{
		employees: employees,
		tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries a signed token and the authenticated employee.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Employee  *domain.Employee
}

// Login verifies credentials and issues a JWT. The employee in the result has
// its password hash cleared.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	employee, err := s.employees.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewPersistenceError("load employee", err)
	}
	if err := auth.ComparePassword(employee.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(employee.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	employee.PasswordHash = ""
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Employee: employee}, nil
}
