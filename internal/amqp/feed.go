package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"budgetwatch/internal/log"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/store"
)

type (
	ExpenseChangeConsumer interface {
		ConsumeExpenseChanges(ctx context.Context, handler func(*ExpenseChangedMessage) error) error
	}

	BudgetAlertPublisher interface {
		PublishBudgetAlert(ctx context.Context, msg *BudgetAlertMessage) error
	}
)

// ChangeFeed turns expense changed messages from the broker into store
// change signals, so a monitor in another process reacts to writes made by
// the CLI.
type ChangeFeed struct {
	store.Signals

	consumer ExpenseChangeConsumer
	logger   *log.Logger
	backoff  func(attempt int) time.Duration
}

var _ store.ChangeNotifier = (*ChangeFeed)(nil)

func NewChangeFeed(consumer ExpenseChangeConsumer, logger *log.Logger) *ChangeFeed {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentAMQP)
	}
	return &ChangeFeed{consumer: consumer, logger: logger, backoff: exponentialBackoff}
}

// Run consumes until ctx is cancelled. Connection failures are retried with
// exponential backoff; any other consumer error ends the feed. A session that
// delivered at least one message resets the backoff.
func (f *ChangeFeed) Run(ctx context.Context) error {
	attempt := 0
	for {
		var delivered atomic.Bool
		err := f.consumer.ConsumeExpenseChanges(ctx, func(msg *ExpenseChangedMessage) error {
			delivered.Store(true)
			return f.handle(msg)
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !isConnectionError(err) && !errors.Is(err, ErrChannelClosed) {
			return err
		}
		if delivered.Load() {
			attempt = 0
		}

		wait := f.backoff(attempt)
		f.logger.WarnContext(ctx, "Expense change consumer stopped, reconnecting",
			log.FieldOperation, log.OpConsume,
			log.FieldError, err,
			"attempt", attempt+1,
			"backoff", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		attempt++
	}
}

func (f *ChangeFeed) handle(msg *ExpenseChangedMessage) error {
	f.ExpenseChanged(store.ChangeOp(msg.Op), msg.ExpenseID)
	return nil
}

// AlertPublisher forwards fired budget alerts to the broker. Its Handle
// method matches the monitor's alert handler signature.
type AlertPublisher struct {
	publisher BudgetAlertPublisher
}

func NewAlertPublisher(p BudgetAlertPublisher) *AlertPublisher {
	return &AlertPublisher{publisher: p}
}

func (p *AlertPublisher) Handle(ctx context.Context, alert notify.BudgetAlert) error {
	return p.publisher.PublishBudgetAlert(ctx, NewBudgetAlertMessage(alert))
}
