// Package cli provides the startup helpers shared by cmd/moneymonitor and
// cmd/ingest-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneymonitor/internal/amqp"
	"moneymonitor/internal/backend"
	"moneymonitor/internal/config"
	"moneymonitor/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Unknown values fall back to the
// defaults; Validate reports them.
func NewLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		cfg.Level = level
	}
	if format, err := log.ParseFormat(os.Getenv("LOG_FORMAT")); err == nil {
		cfg.Format = format
	}
	cfg.Component = component

	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend builds the configured document store.
// Returns the store or exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// AMQPConfig maps the application config to the broker client config.
func AMQPConfig(cfg *config.Config) amqp.Config {
	return amqp.Config{
		URL:         cfg.AMQPURL,
		Exchange:    cfg.AMQPExchange,
		EventsQueue: cfg.AMQPEventsQueue,
		SMSQueue:    cfg.AMQPSMSQueue,
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// RunCleanup runs a backend cleanup and logs its failure.
func RunCleanup(logger *log.Logger, result *backend.BackendResult) {
	if result == nil || result.Cleanup == nil {
		return
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", log.FieldError, err)
	}
}
