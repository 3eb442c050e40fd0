// Package worker holds the background consumers that react to ledger events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// Alert reports a budget whose window spend went over its amount.
type Alert struct {
	Status    core.BudgetStatus
	ExpenseID string
}

// BudgetWatcher checks expense events against the creator's budgets. It only
// reads from the store.
type BudgetWatcher struct {
	store   storage.Store
	logger  *applog.Logger
	onAlert func(context.Context, Alert)

	processed atomic.Int64
	alerts    atomic.Int64
}

// NewBudgetWatcher returns a watcher over store. onAlert may be nil; alerts
// are always logged.
func NewBudgetWatcher(store storage.Store, logger *applog.Logger, onAlert func(context.Context, Alert)) *BudgetWatcher {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &BudgetWatcher{
		store:   store,
		logger:  logger.WithComponent(applog.ComponentWorker),
		onAlert: onAlert,
	}
}

// Run feeds consumer's events to Handle until ctx is cancelled.
func (w *BudgetWatcher) Run(ctx context.Context, consumer events.Consumer) error {
	w.logger.InfoContext(ctx, "Budget watcher started")
	err := consumer.Consume(ctx, w.Handle)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.logger.InfoContext(ctx, "Budget watcher stopped",
		"processed", w.processed.Load(),
		"alerts", w.alerts.Load())
	return err
}

// Handle processes one event. Only expense creations and updates are checked.
func (w *BudgetWatcher) Handle(ctx context.Context, e events.Event) error {
	if e.Type != events.ExpenseCreated && e.Type != events.ExpenseUpdated {
		w.logger.DebugContext(ctx, "Ignoring event", applog.FieldEventType, e.Type)
		return nil
	}
	w.processed.Add(1)
	if e.Category == "" || e.Date == nil {
		return nil
	}

	statuses, err := w.check(ctx, e.ActorID, e.Category, *e.Date)
	if err != nil {
		w.logger.ErrorContext(ctx, "Budget check failed",
			applog.FieldExpenseID, e.ExpenseID,
			applog.FieldUserID, e.ActorID,
			applog.FieldError, err)
		return fmt.Errorf("check budgets for expense %s: %w", e.ExpenseID, err)
	}

	for _, st := range statuses {
		if !st.Exceeded {
			continue
		}
		w.alerts.Add(1)
		w.logger.WarnContext(ctx, "Budget exceeded",
			applog.FieldBudgetID, st.Budget.ID,
			applog.FieldUserID, st.Budget.UserID,
			applog.FieldCategory, st.Budget.Category,
			applog.FieldExpenseID, e.ExpenseID,
			"budget", st.Budget.Amount.String(),
			"spent", st.Spent.String())
		if w.onAlert != nil {
			w.onAlert(ctx, Alert{Status: st, ExpenseID: e.ExpenseID})
		}
	}
	return nil
}

func (w *BudgetWatcher) check(ctx context.Context, userID, category string, at time.Time) ([]core.BudgetStatus, error) {
	var out []core.BudgetStatus
	err := w.store.View(ctx, func(tx storage.Tx) error {
		budgets, err := tx.BudgetsCovering(ctx, userID, category, at)
		if err != nil {
			return err
		}
		for _, b := range budgets {
			spent, err := tx.SumExpenses(ctx, storage.SpendQuery{
				UserID:   userID,
				Category: b.Category,
				From:     b.StartDate,
				To:       b.EndDate,
			})
			if err != nil {
				return err
			}
			out = append(out, core.NewBudgetStatus(b, spent))
		}
		return nil
	})
	return out, err
}

// Stats returns how many expense events were checked and how many alerts fired.
func (w *BudgetWatcher) Stats() (processed, alerts int64) {
	return w.processed.Load(), w.alerts.Load()
}
