package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string
	BaseURL     string
	CORSOrigins []string

	RabbitMQURL string

	RedisAddr     string
	RedisPassword string

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	ReminderInterval      time.Duration
	ReminderWorkerEnabled bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads .env when present, then the environment. A missing DATABASE_URL
// comes back as an error next to an otherwise usable Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                   getenv("APP_ENV", "development"),
		ListenAddr:            getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		BaseURL:               strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:3000"), "/"),
		CORSOrigins:           getenvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RabbitMQURL:           os.Getenv("RABBITMQ_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		MailHost:              os.Getenv("MAIL_HOST"),
		MailPort:              getenvInt("MAIL_PORT", 587),
		MailUser:              os.Getenv("MAIL_USER"),
		MailPass:              os.Getenv("MAIL_PASS"),
		MailFrom:              getenv("MAIL_FROM", "no-reply@lapublica.cat"),
		ReminderInterval:      getenvDuration("REMINDER_INTERVAL", time.Hour),
		ReminderWorkerEnabled: getenvBool("REMINDER_WORKER_ENABLED", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.Atoi(v); err == nil {
			return out
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.ParseBool(v); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if out, err := time.ParseDuration(v); err == nil && out > 0 {
			return out
		}
	}
	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
