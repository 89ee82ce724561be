package domain

import "time"

// Employee models an assignable support worker. OwnerID links the employee to
// a HubSpot owner; candidate resolution during ingestion filters on it.
// PasswordHash is populated only on the login path and must never be exposed
// by any read path.
type Employee struct {
	ID           string
	Name         string
	Email        string
	Role         string
	OwnerID      string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
