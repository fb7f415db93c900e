package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneymonitor/internal/amqp"
	"moneymonitor/internal/cli"
	apphttp "moneymonitor/internal/http"
	"moneymonitor/internal/log"
	"moneymonitor/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.NewLogger(log.ComponentApp)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(logger *log.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	result := cli.InitBackend(ctx, logger, cfg)
	defer cli.RunCleanup(logger, result)

	// Event publishing is optional: a nil publisher disables it.
	var publisher services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cli.AMQPConfig(cfg))
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = client
		logger.Info("Expense events enabled", log.FieldQueue, cfg.AMQPEventsQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Expenses:     services.NewExpenseService(result.Store, publisher, logger),
		Reports:      services.NewReportService(result.Store),
		Merchants:    services.NewMerchantDirectory(result.Store),
		Pinger:       result.Store,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.StoreTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting moneymonitor server", log.FieldOperation, log.OpStartup, "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
