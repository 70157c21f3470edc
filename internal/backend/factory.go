package backend

import (
	"context"
	"fmt"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/log"
	"budgetwatch/internal/services"
	"budgetwatch/internal/storage"
	"budgetwatch/internal/store"
	"budgetwatch/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo store.Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = f.createSQLiteRepository(ctx, config)
	case MemoryBackend:
		repo, err = f.createMemoryRepository(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	// Initialize AMQP client (optional)
	var publisher services.ChangePublisher
	amqpClient := f.dialAMQP(ctx, config)
	if amqpClient != nil {
		publisher = amqpClient
	}

	service := services.NewExpenseService(repo, publisher, f.logger.WithComponent(log.ComponentExpense))

	f.logger.InfoContext(ctx, "Initialized backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Repository: repo,
		Service:    service,
		AMQP:       amqpClient,
		Cleanup:    service.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteRepository(ctx context.Context, config Config) (store.Repository, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	sqliteRepo.WithLogger(f.logger.WithComponent(log.ComponentStorage))
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return sqliteRepo, nil
}

func (f *DefaultFactory) createMemoryRepository(ctx context.Context, config Config) (store.Repository, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	s := memory.NewFromFiles(dataDir)
	if config.DisplayCurrency != "" {
		code, err := currency.ParseCode(config.DisplayCurrency)
		if err != nil {
			return nil, fmt.Errorf("display currency: %w", err)
		}
		if err := s.SetCurrency(ctx, code); err != nil {
			return nil, err
		}
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	return s, nil
}

// dialAMQP returns nil when no broker is configured or it cannot be reached;
// the backend keeps working without cross-process messages.
func (f *DefaultFactory) dialAMQP(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.AMQPAlertQueue,
		f.logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change messages",
			log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		log.FieldQueue, config.AMQPQueue)
	return client
}
