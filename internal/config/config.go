package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"moneymonitor/internal/core"
	"moneymonitor/internal/log"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Memory backend seed directory
	DataDirectory string

	// MongoDB
	MongoURI     string
	MongoDBName  string
	MongoTimeout time.Duration

	// Per-request store deadline
	StoreTimeout time.Duration

	// AMQP (optional)
	AMQPURL         string
	AMQPExchange    string
	AMQPEventsQueue string
	AMQPSMSQueue    string

	// Ingestion
	SMSDefaultType string

	// Logging
	LogLevel  string
	LogFormat string
}

var validBackends = []string{"memory", "sqlite", "mongo"}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8000"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/moneymonitor.db"),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		MongoURI:     getEnv("MONGO_URI", ""),
		MongoDBName:  getEnv("MONGO_DB_NAME", "moneymonitor"),
		MongoTimeout: getEnvDuration("MONGO_TIMEOUT", 10*time.Second),

		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 10*time.Second),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "moneymonitor"),
		AMQPEventsQueue: getEnv("AMQP_EVENTS_QUEUE", "expense_events"),
		AMQPSMSQueue:    getEnv("AMQP_SMS_QUEUE", "sms_expenses"),

		SMSDefaultType: getEnv("SMS_DEFAULT_TYPE", string(core.Personal)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns every problem found
// in a single error.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, "MongoDB URI is required when using mongo backend")
		} else if u, err := url.Parse(c.MongoURI); err != nil {
			errs = append(errs, fmt.Sprintf("invalid MongoDB URI: %v", err))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errs = append(errs, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.MongoDBName == "" {
			errs = append(errs, "MongoDB database name cannot be empty when using mongo backend")
		}
		if c.MongoTimeout < time.Second || c.MongoTimeout > 5*time.Minute {
			errs = append(errs, fmt.Sprintf("invalid MongoDB timeout %v: must be between 1s and 5m", c.MongoTimeout))
		}
	}

	if c.StoreTimeout < 100*time.Millisecond || c.StoreTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid store timeout %v: must be between 100ms and 5m", c.StoreTimeout))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPEventsQueue == "" {
			errs = append(errs, "AMQP events queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPSMSQueue == "" {
			errs = append(errs, "AMQP SMS queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := core.ParseExpenseType(c.SMSDefaultType); err != nil {
		errs = append(errs, fmt.Sprintf("invalid SMS default type '%s': must be 'personal' or 'business'", c.SMSDefaultType))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// AMQPEnabled reports whether event publishing and ingestion are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
