package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cityclinic/booking-api/internal/config"
	"github.com/cityclinic/booking-api/internal/email"
	"github.com/cityclinic/booking-api/internal/handler"
	appointmenthandler "github.com/cityclinic/booking-api/internal/handler/appointment"
	authhandler "github.com/cityclinic/booking-api/internal/handler/auth"
	messagehandler "github.com/cityclinic/booking-api/internal/handler/message"
	notificationhandler "github.com/cityclinic/booking-api/internal/handler/notification"
	patienthandler "github.com/cityclinic/booking-api/internal/handler/patient"
	reviewhandler "github.com/cityclinic/booking-api/internal/handler/review"
	slothandler "github.com/cityclinic/booking-api/internal/handler/slot"
	"github.com/cityclinic/booking-api/internal/middleware"
	"github.com/cityclinic/booking-api/internal/repository/postgres"
	"github.com/cityclinic/booking-api/internal/router"
	authservice "github.com/cityclinic/booking-api/internal/service/auth"
	bookingservice "github.com/cityclinic/booking-api/internal/service/booking"
	messageservice "github.com/cityclinic/booking-api/internal/service/message"
	notificationservice "github.com/cityclinic/booking-api/internal/service/notification"
	patientservice "github.com/cityclinic/booking-api/internal/service/patient"
	reviewservice "github.com/cityclinic/booking-api/internal/service/review"
	slotservice "github.com/cityclinic/booking-api/internal/service/slot"
	"github.com/cityclinic/booking-api/pkg/auth"
	"github.com/cityclinic/booking-api/pkg/logger"
	redisbroker "github.com/cityclinic/booking-api/pkg/messaging/redis"
	"github.com/cityclinic/booking-api/pkg/metrics"
	"github.com/cityclinic/booking-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(&logger.Config{
		Level:      parseLevel(cfg.Logging.Level),
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

	m := metrics.New("booking_api")

	// Repositories
	store := postgres.NewStore(db)
	slotRepo := postgres.NewSlotDayRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	adminRepo := postgres.NewAdminRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	adminNotificationRepo := postgres.NewAdminNotificationRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	// Shared infrastructure
	sender := email.NewSMTPSender(cfg.SMTP.ToSenderConfig())
	hasher := security.NewBcryptHasher(0)
	tokens := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	otpStore := authservice.NewRedisOTPStore(broker.Client())

	// Services
	slotSvc := slotservice.NewService(store, slotRepo, m)
	bookingSvc := bookingservice.NewService(store, appointmentRepo, slotSvc, appLogger, m)
	reviewSvc := reviewservice.NewService(store, appointmentRepo, slotSvc, appLogger)
	notificationSvc := notificationservice.NewService(
		patientRepo, notificationRepo, adminNotificationRepo, sender, broker, appLogger, m)
	authSvc := authservice.NewService(patientRepo, adminRepo, hasher, tokens, otpStore, sender, appLogger)
	patientSvc := patientservice.NewService(patientRepo)
	messageSvc := messageservice.NewService(messageRepo)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(tokens, adminRepo)
	h := handler.New(db, broker.Client())
	authHandler := authhandler.NewHandler(authSvc)
	appointmentHandler := appointmenthandler.NewHandler(bookingSvc)
	reviewHandler := reviewhandler.NewHandler(reviewSvc, bookingSvc)
	slotHandler := slothandler.NewHandler(slotSvc)
	notificationHandler := notificationhandler.NewHandler(notificationSvc, broker)
	messageHandler := messagehandler.NewHandler(messageSvc)
	patientHandler := patienthandler.NewHandler(patientSvc)

	r := router.NewRouter(
		authMiddleware,
		h,
		authHandler,
		appointmentHandler,
		reviewHandler,
		slotHandler,
		notificationHandler,
		messageHandler,
		patientHandler,
		router.RouterConfig{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "booking_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
