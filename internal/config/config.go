package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"budgetwatch/internal/currency"
	"budgetwatch/internal/log"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	PresenterLog      = "log"
	PresenterTerminal = "terminal"
)

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string
	DataDir      string // seed files for the memory backend

	// AMQP, optional: empty URL disables cross-process change messages
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPAlertQueue string

	// Display currency used when no preference is stored
	BaseCurrencyDisplay string

	// Budget monitor
	MonitorInterval       time.Duration
	NotifyCooldown        time.Duration
	NotifyWarnPercent     float64
	NotifyCriticalPercent float64
	NotifyDisplayDuration time.Duration
	NotifyPresenter       string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetwatch.db"),
		DataDir:      getEnv("DATA_DIR", "./data"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "budgetwatch"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "expense_changes"),
		AMQPAlertQueue: getEnv("AMQP_ALERT_QUEUE", "budget_alerts"),

		BaseCurrencyDisplay: getEnv("BASE_CURRENCY_DISPLAY", string(currency.Base)),

		MonitorInterval:       getEnvDuration("MONITOR_INTERVAL", 5*time.Minute),
		NotifyCooldown:        getEnvDuration("NOTIFY_COOLDOWN", 60*time.Second),
		NotifyWarnPercent:     getEnvFloat("NOTIFY_WARN_PERCENT", 80),
		NotifyCriticalPercent: getEnvFloat("NOTIFY_CRITICAL_PERCENT", 100),
		NotifyDisplayDuration: getEnvDuration("NOTIFY_DISPLAY_DURATION", 5*time.Second),
		NotifyPresenter:       getEnv("NOTIFY_PRESENTER", PresenterLog),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// AMQPEnabled reports whether a broker is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue != "" && c.AMQPQueue == c.AMQPAlertQueue {
			errors = append(errors, fmt.Sprintf("AMQP alert queue must differ from change queue '%s'", c.AMQPQueue))
		}
	}

	if _, err := currency.ParseCode(c.BaseCurrencyDisplay); err != nil {
		errors = append(errors, fmt.Sprintf("invalid display currency '%s': %v", c.BaseCurrencyDisplay, err))
	}

	if c.MonitorInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid monitor interval %v: must be at least 1 second", c.MonitorInterval))
	} else if c.MonitorInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid monitor interval %v: must be at most 24 hours", c.MonitorInterval))
	}
	if c.NotifyCooldown < 0 {
		errors = append(errors, fmt.Sprintf("invalid notify cooldown %v: cannot be negative", c.NotifyCooldown))
	}
	if c.NotifyWarnPercent <= 0 {
		errors = append(errors, fmt.Sprintf("invalid warn percent %g: must be positive", c.NotifyWarnPercent))
	}
	if c.NotifyCriticalPercent < c.NotifyWarnPercent {
		errors = append(errors, fmt.Sprintf("invalid critical percent %g: must be at least the warn percent %g", c.NotifyCriticalPercent, c.NotifyWarnPercent))
	}
	if c.NotifyDisplayDuration <= 0 {
		errors = append(errors, fmt.Sprintf("invalid notification display duration %v: must be positive", c.NotifyDisplayDuration))
	}

	switch c.NotifyPresenter {
	case PresenterLog, PresenterTerminal:
	default:
		errors = append(errors, fmt.Sprintf("invalid notification presenter '%s': must be one of [%s %s]", c.NotifyPresenter, PresenterLog, PresenterTerminal))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': %v", c.LogLevel, err))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
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
