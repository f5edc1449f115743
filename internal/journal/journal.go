// Package journal keeps an audit trail of placed orders. Entries are queued
// from the session event loop and written by a background worker, so a slow
// store never blocks the storefront.
package journal

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/workflow"
)

// Entry is one placed order.
type Entry struct {
	ID        string
	Items     []string
	Total     decimal.Decimal
	Payment   order.Payment
	CreatedAt time.Time
}

// FromPlacement builds the entry for an order:placed payload. The total is
// the one the service charged.
func FromPlacement(p workflow.Placement, now time.Time) Entry {
	return Entry{
		ID:        p.Receipt.ID,
		Items:     append([]string(nil), p.Request.Items...),
		Total:     p.Receipt.Total,
		Payment:   p.Request.Payment,
		CreatedAt: now,
	}
}

// Store persists entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
}

// ErrQueueFull is returned by Enqueue when the worker is behind.
var ErrQueueFull = errors.New("journal queue full")

// Recorder queues entries for a Store.
type Recorder struct {
	store   Store
	queue   chan Entry
	timeout time.Duration
	lg      *zap.Logger
	now     func() time.Time
}

// NewRecorder creates a Recorder with room for size pending entries.
func NewRecorder(store Store, size int, lg *zap.Logger) *Recorder {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Recorder{
		store:   store,
		queue:   make(chan Entry, size),
		timeout: 5 * time.Second,
		lg:      lg,
		now:     time.Now,
	}
}

// Enqueue adds an entry without blocking.
func (r *Recorder) Enqueue(e Entry) error {
	select {
	case r.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// OnPlaced is an event handler for workflow.EventOrderPlaced.
func (r *Recorder) OnPlaced(p workflow.Placement) {
	e := FromPlacement(p, r.now())
	if err := r.Enqueue(e); err != nil {
		r.lg.Warn("Order not journaled", zap.String("order_id", e.ID), zap.Error(err))
	}
}

// Run writes queued entries until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.queue:
			r.write(ctx, e)
		case <-ctx.Done():
			r.flush()
			return nil
		}
	}
}

func (r *Recorder) flush() {
	ctx := context.Background()
	for {
		select {
		case e := <-r.queue:
			r.write(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, e Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.Record(ctx, e); err != nil {
		r.lg.Error("Journal write failed", zap.String("order_id", e.ID), zap.Error(err))
		return
	}
	r.lg.Debug("Order journaled", zap.String("order_id", e.ID))
}
