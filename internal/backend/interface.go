package backend

import (
	"context"

	"moneymonitor/internal/store"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the store and an optional cleanup function.
type BackendResult struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
