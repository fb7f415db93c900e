package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"moneymonitor/internal/amqp"
	"moneymonitor/internal/cli"
	"moneymonitor/internal/core"
	"moneymonitor/internal/log"
	"moneymonitor/internal/services"
	"moneymonitor/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.NewLogger(log.ComponentWorker)

	if err := run(logger); err != nil {
		logger.Error("Ingest worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Ingest worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(logger *log.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required for the ingest worker")
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	result := cli.InitBackend(ctx, logger, cfg)
	defer cli.RunCleanup(logger, result)

	client, err := amqp.NewClient(cli.AMQPConfig(cfg))
	if err != nil {
		return err
	}
	defer client.Close()

	expenses := services.NewExpenseService(result.Store, client, logger)
	directory := services.NewMerchantDirectory(result.Store)
	ingest := worker.NewIngestWorker(expenses, directory, core.ExpenseType(cfg.SMSDefaultType), cfg.StoreTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming SMS expenses", log.FieldOperation, log.OpStartup, log.FieldQueue, cfg.AMQPSMSQueue, log.FieldBackend, cfg.DataBackend)
		err := client.RunSMSConsumer(gctx, ingest.HandleSMSExpense)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return g.Wait()
}
