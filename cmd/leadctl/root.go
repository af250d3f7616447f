package main

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/config"
	"github.com/lapublica/leadflow/internal/infra/cache"
	"github.com/lapublica/leadflow/internal/infra/database"
	"github.com/lapublica/leadflow/internal/infra/queue"
	"github.com/lapublica/leadflow/internal/usecase"
)

// commandContext opens shared resources on first use.
type commandContext struct {
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
	rabbit *queue.RabbitMQ
	redis  redis.UniversalClient
}

func (c *commandContext) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *commandContext) log() *zap.Logger {
	if c.logger == nil {
		if c.verbose {
			c.logger, _ = zap.NewDevelopment()
		}
		if c.logger == nil {
			c.logger = zap.NewNop()
		}
	}
	return c.logger
}

func (c *commandContext) database() (*sql.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.db = db
	return db, nil
}

func (c *commandContext) dispatcher() (*usecase.NotificationDispatcher, error) {
	db, err := c.database()
	if err != nil {
		return nil, err
	}
	cfg, _ := c.config()

	var producer usecase.QueueProducerInterface
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			c.log().Warn("⚠️ rabbitmq unavailable, notifications will not be emailed", zap.Error(err))
		} else {
			c.rabbit = rabbit
			producer = queue.NewProducer(rabbit.Ch)
		}
	}
	return usecase.NewNotificationDispatcher(database.NewNotificationRepository(db), producer, c.log()), nil
}

func (c *commandContext) reminders() (*usecase.LeadReminderUseCase, error) {
	dispatcher, err := c.dispatcher()
	if err != nil {
		return nil, err
	}
	cfg, _ := c.config()

	var lock usecase.RunLock
	if cfg.RedisAddr != "" {
		if c.redis == nil {
			c.redis = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		}
		lock = cache.NewRedisLock(c.redis)
	}
	audience := usecase.NewRoleAudience(database.NewUserRepository(c.db))
	return usecase.NewLeadReminderUseCase(database.NewLeadRepository(c.db), dispatcher, audience, lock, c.log(), cfg.BaseURL), nil
}

func (c *commandContext) close() {
	if c.rabbit != nil {
		c.rabbit.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "leadctl",
		Short:         "Operate the La Pública lead workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newRemindersCommand(ctx))
	rootCmd.AddCommand(newNotificationsCommand(ctx))

	return rootCmd
}
