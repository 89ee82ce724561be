package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
)

// EmployeeRepository handles persistence for employees. Only GetByEmail loads
// the password hash; every other read path leaves it empty.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *domain.Employee) error
	Upsert(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
}

type employeeRepository struct {
	db DBTX
}

// NewEmployeeRepository instantiates the repository.
func NewEmployeeRepository(db DBTX) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	const query = `
        INSERT INTO employees (name, email, role, password_hash, hubspot_owner_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		employee.Name,
		employee.Email,
		employee.Role,
		employee.PasswordHash,
		employee.OwnerID,
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
}

// Upsert inserts the employee or refreshes an existing row keyed by email.
// Used by the seeding command.
func (r *employeeRepository) Upsert(ctx context.Context, employee *domain.Employee) error {
	const query = `
        INSERT INTO employees (name, email, role, password_hash, hubspot_owner_id)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (email) DO UPDATE
        SET name=EXCLUDED.name, role=EXCLUDED.role, password_hash=EXCLUDED.password_hash,
            hubspot_owner_id=EXCLUDED.hubspot_owner_id, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		employee.Name,
		employee.Email,
		employee.Role,
		employee.PasswordHash,
		employee.OwnerID,
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
}

func (r *employeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	const query = `
        SELECT id, name, email, role, hubspot_owner_id, created_at, updated_at
        FROM employees WHERE id=$1`
	var employee domain.Employee
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.Role,
		&employee.OwnerID,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &employee, nil
}

// GetByEmail is the login lookup; it is the only query that selects the
// password hash.
func (r *employeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	const query = `
        SELECT id, name, email, role, password_hash, hubspot_owner_id, created_at, updated_at
        FROM employees WHERE email=$1`
	var employee domain.Employee
	if err := r.db.QueryRow(ctx, query, email).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.Role,
		&employee.PasswordHash,
		&employee.OwnerID,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &employee, nil
}

// ListByOwnerID returns assignment candidates for a HubSpot owner, ordered by
// creation time so the least-busy tie-break is stable.
func (r *employeeRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]domain.Employee, error) {
	const query = `
        SELECT id, name, email, role, hubspot_owner_id, created_at, updated_at
        FROM employees WHERE hubspot_owner_id=$1
        ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEmployees(rows)
}

func (r *employeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	const query = `
        SELECT id, name, email, role, hubspot_owner_id, created_at, updated_at
        FROM employees ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEmployees(rows)
}

func scanEmployees(rows pgx.Rows) ([]domain.Employee, error) {
	var result []domain.Employee
	for rows.Next() {
		var employee domain.Employee
		if err := rows.Scan(
			&employee.ID,
			&employee.Name,
			&employee.Email,
			&employee.Role,
			&employee.OwnerID,
			&employee.CreatedAt,
			&employee.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, employee)
	}
	return result, rows.Err()
}
