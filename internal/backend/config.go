package backend

import (
	"errors"
	"fmt"
	"time"

	"moneymonitor/internal/config"
)

type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// MongoDB
	MongoURI     string
	MongoDBName  string
	MongoTimeout time.Duration

	// Memory backend seed directory
	DataDirectory string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		Type:          BackendType(appConfig.DataBackend),
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		MongoURI:      appConfig.MongoURI,
		MongoDBName:   appConfig.MongoDBName,
		MongoTimeout:  appConfig.MongoTimeout,
		DataDirectory: appConfig.DataDirectory,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (valid: %v)", c.Type, GetBackendTypes())
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case MongoBackend:
		if c.MongoURI == "" {
			return errors.New("MongoDB URI is required for mongo backend")
		}
		if c.MongoDBName == "" {
			return errors.New("MongoDB database name is required for mongo backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, MongoBackend}
}
