package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateTicket indicates a concurrent insert already created the local
// ticket for the same HubSpot ticket id.
var ErrDuplicateTicket = errors.New("duplicate ticket for hubspot ticket id")

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so the same
// repositories serve both pooled reads and transactional units of work.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles transaction-scoped repositories handed to a TxManager
// closure.
type Repositories struct {
	Tickets   TicketRepository
	Employees EmployeeRepository
}

// TxManager runs closures inside database transactions.
type TxManager interface {
	// WithinSerializable runs fn inside a SERIALIZABLE transaction, retrying
	// a bounded number of times on serialization failures. Any error from fn
	// rolls the transaction back.
	WithinSerializable(ctx context.Context, fn func(r Repositories) error) error
	// WithinTx runs fn inside a default-isolation transaction.
	WithinTx(ctx context.Context, fn func(r Repositories) error) error
}

const serializationRetries = 3

type pgxTxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds a TxManager over a pgx pool.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgxTxManager{pool: pool}
}

func (m *pgxTxManager) WithinSerializable(ctx context.Context, fn func(r Repositories) error) error {
	var lastErr error
	for attempt := 0; attempt <= serializationRetries; attempt++ {
		err := m.runOnce(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("serializable transaction exhausted retries: %w", lastErr)
}

func (m *pgxTxManager) WithinTx(ctx context.Context, fn func(r Repositories) error) error {
	return m.runOnce(ctx, pgx.TxOptions{}, fn)
}

func (m *pgxTxManager) runOnce(ctx context.Context, opts pgx.TxOptions, fn func(r Repositories) error) error {
	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	repos := Repositories{
		Tickets:   NewTicketRepository(tx),
		Employees: NewEmployeeRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
