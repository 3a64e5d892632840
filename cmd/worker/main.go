package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/cityclinic/booking-api/internal/config"
	"github.com/cityclinic/booking-api/internal/email"
	"github.com/cityclinic/booking-api/internal/repository/postgres"
	notificationservice "github.com/cityclinic/booking-api/internal/service/notification"
	"github.com/cityclinic/booking-api/pkg/logger"
	redisbroker "github.com/cityclinic/booking-api/pkg/messaging/redis"
	"github.com/cityclinic/booking-api/pkg/metrics"
	"github.com/cityclinic/booking-api/pkg/worker"
)

// The dispatch worker drains the outbox: for every committed appointment
// event it writes the in-app notifications, emails the patient and publishes
// the live admin feed. It can run alongside the API or on its own host.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	env, err := config.LoadWorkerEnv(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load worker environment")
	}

	appLogger := logger.New(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Logging.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewBroker(cfg.ToBrokerConfig(), appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.New("booking_worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	adminNotificationRepo := postgres.NewAdminNotificationRepository(db)

	sender := email.NewSMTPSender(cfg.SMTP.ToSenderConfig())
	dispatcher := notificationservice.NewService(
		patientRepo, notificationRepo, adminNotificationRepo, sender, broker, appLogger, m)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		dispatcher,
		cfg.Outbox.ToWorkerConfig(),
		appLogger,
		m,
	)
	cleanup := worker.NewOutboxCleanupWorker(
		outboxRepo,
		cfg.Outbox.RetentionDays,
		time.Hour,
		appLogger,
	)

	serveMetrics(env.MetricsPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	go cleanup.Start(ctx)
	processor.Start(ctx)
}

// serveMetrics exposes /metrics plus liveness and readiness endpoints.
func serveMetrics(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		addr := fmt.Sprintf(":%d", port)
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Fatal(err, "metrics server failed")
		}
	}()
}
