package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wolfman30/docbook-ai/cmd/mainconfig"
	"github.com/wolfman30/docbook-ai/internal/api/router"
	"github.com/wolfman30/docbook-ai/internal/app/bootstrap"
	"github.com/wolfman30/docbook-ai/internal/appointments"
	"github.com/wolfman30/docbook-ai/internal/chat"
	appconfig "github.com/wolfman30/docbook-ai/internal/config"
	"github.com/wolfman30/docbook-ai/internal/doctors"
	httpmiddleware "github.com/wolfman30/docbook-ai/internal/http/middleware"
	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/internal/notifications"
	"github.com/wolfman30/docbook-ai/internal/observability/metrics"
	"github.com/wolfman30/docbook-ai/internal/realtime"
	"github.com/wolfman30/docbook-ai/internal/scheduler"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

const limiterIdleTTL = 10 * time.Minute

type appMetrics struct {
	booking       *metrics.BookingMetrics
	notifications *metrics.NotificationMetrics
	chat          *metrics.ChatMetrics
}

// setupMetrics registers the application collectors on a private registry and
// returns the /metrics handler serving it.
func setupMetrics() (http.Handler, *appMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := &appMetrics{
		booking:       metrics.NewBookingMetrics(reg),
		notifications: metrics.NewNotificationMetrics(reg),
		chat:          metrics.NewChatMetrics(reg),
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// application is the fully wired API process.
type application struct {
	cfg     *appconfig.Config
	logger  *logging.Logger
	handler http.Handler

	worker      *chat.Worker
	poller      *scheduler.RedisScheduler
	memoryTasks *scheduler.MemoryScheduler
	limiter     *httpmiddleware.RateLimiter

	redis *redis.Client
	pool  *pgxpool.Pool
	mongo *mongo.Client
}

func buildApplication(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger}

	app.redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	app.pool = pool

	var mongoDB *mongo.Database
	if cfg.ResolvedDoctorStore() == "mongo" {
		client, db, err := bootstrap.BuildMongoDatabase(ctx, cfg, logger)
		if err != nil {
			app.close()
			return nil, err
		}
		app.mongo, mongoDB = client, db
	}

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("failed to load AWS config; AWS integrations disabled", "error", err)
		} else {
			awsCfg = &loaded
		}
	}

	stores, err := bootstrap.BuildStores(ctx, cfg, app.pool, mongoDB, app.redis, logger)
	if err != nil {
		app.close()
		return nil, err
	}

	metricsHandler, m := setupMetrics()
	hub := realtime.NewHub(logger)

	doctorSvc := doctors.NewService(stores.Doctors, bootstrap.BuildImageResolver(cfg, awsCfg), logger)

	noteOpts := []notifications.Option{
		notifications.WithPublisher(hub),
		notifications.WithMetrics(m.notifications),
	}
	if sender := bootstrap.BuildEmailSender(cfg, awsCfg, logger); sender != nil {
		noteOpts = append(noteOpts, notifications.WithEmail(sender))
	}
	noteSvc := notifications.NewService(stores.Notifications, logger, noteOpts...)

	sched, poller := bootstrap.BuildScheduler(app.redis, logger)
	app.poller = poller
	if memSched, ok := sched.(*scheduler.MemoryScheduler); ok {
		app.memoryTasks = memSched
	}
	ledger := appointments.NewLedger(stores.Appointments, doctorSvc, doctorSvc.SlotBook(), noteSvc, sched,
		appointments.LedgerConfig{
			ConfirmationDelay: cfg.ConfirmationDelay,
			Policy:            appointments.ParseConfirmPolicy(cfg.ConfirmPolicy),
			Metrics:           m.booking,
		}, logger)

	llm, err := bootstrap.BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	chatOpts := []chat.Option{
		chat.WithEventPublisher(hub),
		chat.WithMetrics(m.chat),
		chat.WithGeneration(cfg.LLMMaxTokens, float32(cfg.LLMTemperature)),
	}
	queue := bootstrap.BuildChatQueue(cfg, awsCfg, logger)
	if queue != nil {
		chatOpts = append(chatOpts, chat.WithEnqueuer(chat.NewPublisher(queue, logger)))
	}
	chatSvc := chat.NewService(stores.Chat, llm, doctorSvc, ledger, logger, chatOpts...)
	if queue != nil {
		app.worker = chat.NewWorker(chatSvc, queue, logger, chat.WithWorkerCount(cfg.WorkerCount))
	}

	var verifier *identity.Verifier
	if strings.TrimSpace(cfg.AuthJWTSecret) != "" {
		verifier = identity.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set; authenticated routes will reject every request")
	}
	if cfg.RateLimitRPS > 0 {
		app.limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	app.handler = router.New(&router.Config{
		Logger:             logger,
		Verifier:           verifier,
		Doctors:            doctors.NewHandler(doctorSvc, logger),
		Appointments:       appointments.NewHandler(ledger, logger),
		Notifications:      notifications.NewHandler(noteSvc, logger),
		Chat:               chat.NewHandler(chatSvc, logger),
		Realtime:           realtime.NewHandler(hub, cfg.CORSAllowedOrigins),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        app.limiter,
	})
	return app, nil
}

// startBackground launches the chat workers, the deferred-job poller and the
// rate limiter sweeper. They stop when ctx is cancelled.
func (a *application) startBackground(ctx context.Context) {
	if a.worker != nil {
		a.worker.Start(ctx)
		a.logger.Info("chat workers started", "count", a.cfg.WorkerCount)
	}
	if a.poller != nil {
		go a.poller.Run(ctx, a.cfg.SchedulerPollInterval)
		a.logger.Info("deferred job poller started", "interval", a.cfg.SchedulerPollInterval.String())
	}
	if a.limiter != nil {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := a.limiter.Evict(limiterIdleTTL); n > 0 {
						a.logger.Debug("rate limiter evicted idle clients", "count", n)
					}
				}
			}
		}()
	}
}

// close waits for workers and releases connections. It is safe on a partially
// built application.
func (a *application) close() {
	if a.worker != nil {
		a.worker.Wait()
	}
	if a.memoryTasks != nil {
		a.memoryTasks.Stop()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", "error", err)
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}
