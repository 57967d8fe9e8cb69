package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wolfman30/docbook-ai/internal/appointments"
	"github.com/wolfman30/docbook-ai/internal/chat"
	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/internal/doctors"
	"github.com/wolfman30/docbook-ai/internal/notifications"
	"github.com/wolfman30/docbook-ai/internal/scheduler"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// Stores groups the repositories selected from configuration.
type Stores struct {
	Doctors       doctors.Repository
	Appointments  appointments.Repository
	Notifications notifications.Repository
	Chat          chat.Store
	Backend       string
}

// BuildStores picks repositories for the configured backends. Appointments and
// notifications follow postgres when a pool is present; the doctor directory
// follows DOCTOR_STORE. Chat history lives in Redis when a client is present.
func BuildStores(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, mongoDB *mongo.Database, redisClient *redis.Client, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	stores := &Stores{Backend: cfg.ResolvedDoctorStore()}
	switch stores.Backend {
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: doctor store postgres requires DATABASE_URL")
		}
		stores.Doctors = doctors.NewPostgresRepository(pool)
	case "mongo":
		if mongoDB == nil {
			return nil, fmt.Errorf("bootstrap: doctor store mongo requires MONGO_URI")
		}
		repo := doctors.NewMongoRepository(mongoDB)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: mongo indexes: %w", err)
		}
		stores.Doctors = repo
	default:
		stores.Doctors = doctors.NewInMemoryRepository()
	}

	if pool != nil {
		stores.Appointments = appointments.NewPostgresRepository(pool)
		stores.Notifications = notifications.NewPostgresRepository(pool)
	} else {
		stores.Appointments = appointments.NewInMemoryRepository()
		stores.Notifications = notifications.NewInMemoryRepository()
	}

	if redisClient != nil {
		stores.Chat = chat.NewRedisStore(redisClient)
	} else {
		stores.Chat = chat.NewMemoryStore()
	}

	logger.Info("stores configured",
		"doctors", stores.Backend,
		"ledger_postgres", pool != nil,
		"chat_redis", redisClient != nil,
	)
	return stores, nil
}

// BuildScheduler returns the Redis-backed scheduler when Redis is available,
// otherwise in-process timers. Only the Redis scheduler needs polling.
func BuildScheduler(redisClient *redis.Client, logger *logging.Logger) (scheduler.Scheduler, *scheduler.RedisScheduler) {
	if redisClient != nil {
		rs := scheduler.NewRedisScheduler(redisClient, logger)
		return rs, rs
	}
	return scheduler.NewMemoryScheduler(logger), nil
}
