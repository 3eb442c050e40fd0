// Package services implements the wallet, expense, goal and budget use cases.
// Every operation runs as one storage unit of work and publishes its events
// only after that unit commits.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/events"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// Options configures the services. Zero values are usable.
type Options struct {
	Publisher events.Publisher
	Now       func() time.Time
}

type base struct {
	store     storage.Store
	ledger    *ledger.Ledger
	publisher events.Publisher
	now       func() time.Time
	component string
}

func newBase(store storage.Store, opts Options, component string) base {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return base{
		store:     store,
		ledger:    ledger.New(now),
		publisher: opts.Publisher,
		now:       now,
		component: component,
	}
}

// stamp is the current time at the precision every backend stores.
func (b base) stamp() time.Time {
	return b.now().UTC().Truncate(time.Millisecond)
}

func (b base) logger(ctx context.Context) *applog.Logger {
	return applog.FromContext(ctx).WithComponent(b.component)
}

// publish delivers committed events. Failures are logged, never returned: the
// change is already durable.
func (b base) publish(ctx context.Context, evs ...events.Event) {
	if b.publisher == nil {
		b.logger(ctx).DebugContext(ctx, "Event publisher not configured, skipping events", "count", len(evs))
		return
	}
	for _, e := range evs {
		if err := b.publisher.Publish(ctx, e); err != nil {
			b.logger(ctx).ErrorContext(ctx, "Failed to publish event",
				applog.FieldEventType, e.Type,
				"event_id", e.ID,
				applog.FieldError, err)
		}
	}
}

func newID() string {
	return uuid.NewString()
}

// truncate normalises a caller-supplied time the way stamp does.
func truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
