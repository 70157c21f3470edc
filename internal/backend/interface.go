package backend

import (
	"context"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/services"
	"budgetwatch/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened repository, the write service on top of
// it and an optional broker client.
type BackendResult struct {
	Repository store.Repository
	Service    *services.ExpenseService
	AMQP       *amqp.Client // nil when no broker is configured or reachable
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	DataDirectory string

	// Display currency applied to a fresh memory store
	DisplayCurrency string

	// Optional broker
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPAlertQueue string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
