package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/config"
	"github.com/lapublica/leadflow/internal/infra/cache"
	"github.com/lapublica/leadflow/internal/infra/database"
	"github.com/lapublica/leadflow/internal/infra/http/handlers"
	"github.com/lapublica/leadflow/internal/infra/http/middleware"
	"github.com/lapublica/leadflow/internal/infra/mail"
	"github.com/lapublica/leadflow/internal/infra/queue"
	"github.com/lapublica/leadflow/internal/infra/worker"
	"github.com/lapublica/leadflow/internal/usecase"
)

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func main() {
	cfg, cfgErr := config.Load()
	logger := newLogger(cfg)
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("❌ invalid configuration", zap.Error(cfgErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Postgres
	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("❌ database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("❌ migrations failed", zap.Error(err))
	}

	// 2. Repositories
	leadRepo := database.NewLeadRepository(db)
	activityRepo := database.NewActivityRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	userRepo := database.NewUserRepository(db)

	// 3. Optional infrastructure
	var (
		producer usecase.QueueProducerInterface
		rabbitMQ *queue.RabbitMQ
	)
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("⚠️ rabbitmq unavailable, notifications will not be emailed", zap.Error(err))
		} else {
			defer rabbitMQ.Close()
			producer = queue.NewProducer(rabbitMQ.Ch)
		}
	}

	var (
		runLock      usecase.RunLock
		redisLock    *cache.RedisLock
		writeLimiter middleware.Limiter = middleware.NewRateLimiter(30, time.Minute)
	)
	if cfg.RedisAddr != "" {
		redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		defer redisClient.Close()
		redisLock = cache.NewRedisLock(redisClient)
		runLock = redisLock
		writeLimiter = cache.NewRedisRateLimiter(redisClient, 30, time.Minute)
	}

	// 4. UseCases
	dispatcher := usecase.NewNotificationDispatcher(notificationRepo, producer, logger)
	audience := usecase.NewRoleAudience(userRepo)

	createLeadUC := usecase.NewCreateLeadUseCase(leadRepo, activityRepo, dispatcher, logger, cfg.BaseURL)
	assignLeadUC := usecase.NewAssignLeadUseCase(leadRepo, activityRepo, userRepo, dispatcher, logger, cfg.BaseURL)
	stageUC := usecase.NewLeadStageUseCase(leadRepo, activityRepo, audience, dispatcher, logger, cfg.BaseURL)
	remindersUC := usecase.NewLeadReminderUseCase(leadRepo, dispatcher, audience, runLock, logger, cfg.BaseURL)

	// 5. Workers
	if rabbitMQ != nil && cfg.MailHost != "" {
		mailer := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
		emailWorker := queue.NewWorker(rabbitMQ.Ch, userRepo, mailer, logger)
		go func() {
			if err := emailWorker.Start(ctx, queue.QueueName); err != nil {
				logger.Error("❌ email worker stopped", zap.Error(err))
			}
		}()
	}

	if cfg.ReminderWorkerEnabled {
		reminderWorker := worker.NewLeadReminderWorker(remindersUC, dispatcher, logger, cfg.ReminderInterval)
		go reminderWorker.Start(ctx)
	}

	// 6. Router
	var redisHealth handlers.RedisPinger
	if redisLock != nil {
		redisHealth = redisLock
	}
	health := handlers.NewHealthHandler(db, rabbitConn(rabbitMQ), redisHealth)

	router := handlers.NewRouter(handlers.RouterConfig{
		Leads:         handlers.NewLeadHandler(createLeadUC, assignLeadUC, stageUC, leadRepo, activityRepo, logger),
		Notifications: handlers.NewNotificationHandler(dispatcher, logger),
		Reminders:     handlers.NewReminderHandler(remindersUC),
		Health:        health,
		CORSOrigins:   cfg.CORSOrigins,
		WriteLimiter:  writeLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🔥 leadflow API listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("⚠️ shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ graceful shutdown failed", zap.Error(err))
	}
}

func rabbitConn(r *queue.RabbitMQ) *amqp.Connection {
	if r == nil {
		return nil
	}
	return r.Conn
}
