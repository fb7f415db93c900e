package backend

import (
	"context"
	"fmt"
	"time"

	"moneymonitor/internal/log"
	"moneymonitor/internal/store/memory"
	mongostore "moneymonitor/internal/store/mongo"
	"moneymonitor/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MongoBackend:
		return f.createMongoBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	st, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{Store: st}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := mongostore.NewClient(ctx, mongostore.Config{
		URI:      config.MongoURI,
		Database: config.MongoDBName,
		Timeout:  config.MongoTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}

	repo := mongostore.NewRepository(client.Database())
	if err := repo.EnsureIndexes(ctx); err != nil {
		f.logger.Warn("Failed to ensure MongoDB indexes", log.FieldError, err)
	}

	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDBName)
	cleanup := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Close(ctx)
	}
	return &BackendResult{Store: repo, Cleanup: cleanup}, nil
}
