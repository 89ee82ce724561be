package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/hubspot-ticket-sync/internal/auth"
	"github.com/spec-kit/hubspot-ticket-sync/internal/config"
	"github.com/spec-kit/hubspot-ticket-sync/internal/domain"
	"github.com/spec-kit/hubspot-ticket-sync/internal/observability"
	"github.com/spec-kit/hubspot-ticket-sync/internal/persistence"
	"github.com/spec-kit/hubspot-ticket-sync/internal/repository"
)

type seedEmployee struct {
	name     string
	email    string
	role     string
	ownerID  string
	password string
}

var seedEmployees = []seedEmployee{
	{name: "Ava Thompson", email: "ava.thompson@example.com", role: "support", ownerID: "901234501", password: "changeme-ava"},
	{name: "Noah Patel", email: "noah.patel@example.com", role: "support", ownerID: "901234501", password: "changeme-noah"},
	{name: "Mia Chen", email: "mia.chen@example.com", role: "support", ownerID: "901234502", password: "changeme-mia"},
	{name: "Liam Okafor", email: "liam.okafor@example.com", role: "supervisor", ownerID: "901234502", password: "changeme-liam"},
	{name: "Sofia Ramirez", email: "sofia.ramirez@example.com", role: "support", ownerID: "901234503", password: "changeme-sofia"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	employees := repository.NewEmployeeRepository(pg.PoolHandle())

	for _, seed := range seedEmployees {
		hash, err := auth.HashPassword(seed.password, cfg.Auth.BcryptCost)
		if err != nil {
			logger.Fatal("failed to hash password", zap.String("email", seed.email), zap.Error(err))
		}

		employee := &domain.Employee{
			Name:         seed.name,
			Email:        seed.email,
			Role:         seed.role,
			OwnerID:      seed.ownerID,
			PasswordHash: hash,
		}
		if err := employees.Upsert(ctx, employee); err != nil {
			logger.Fatal("failed to upsert employee", zap.String("email", seed.email), zap.Error(err))
		}
		logger.Info("seeded employee",
			zap.String("id", employee.ID),
			zap.String("email", employee.Email),
			zap.String("hubspot_owner_id", employee.OwnerID),
		)
	}

	logger.Info("seeding complete", zap.Int("count", len(seedEmployees)))
}
