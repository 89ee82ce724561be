package hubspot

import (
	"errors"
	"fmt"
)

// ErrTicketNotFound indicates HubSpot reports no ticket for the given id.
var ErrTicketNotFound = errors.New("hubspot ticket not found")

// APIError carries the response of a failed HubSpot call.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("hubspot %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("hubspot %s: status %d", e.Operation, e.StatusCode)
}
