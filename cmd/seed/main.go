package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/wolfman30/docbook-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/internal/doctors"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// seed inserts the demo doctor catalog into the configured doctor store.
func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	var repo doctors.Repository
	switch cfg.ResolvedDoctorStore() {
	case "postgres":
		if pool == nil {
			return errors.New("doctor store postgres requires DATABASE_URL")
		}
		repo = doctors.NewPostgresRepository(pool)
	case "mongo":
		client, db, err := bootstrap.BuildMongoDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if db == nil {
			return errors.New("doctor store mongo requires MONGO_URI")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		mongoRepo := doctors.NewMongoRepository(db)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = mongoRepo
	default:
		logger.Warn("seeding the in-memory doctor store; data is discarded on exit")
		repo = doctors.NewInMemoryRepository()
	}

	result, err := doctors.NewService(repo, nil, logger).Seed(ctx)
	if err != nil {
		return err
	}
	logger.Info(result.Message(), "seeded", result.Seeded, "already_seeded", result.AlreadySeeded)
	return nil
}
