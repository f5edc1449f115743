// Package session runs one storefront session: the event bus, the
// application state, the checkout workflow and the screen it renders to.
// Every entry point is serialized, so the core behaves as a single
// synchronous event loop.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/larek-storefront/internal/catalog"
	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/domain/state"
	"github.com/xenking/larek-storefront/internal/view"
	"github.com/xenking/larek-storefront/internal/workflow"
	"github.com/xenking/larek-storefront/pkg/eventbus"
)

// Options configures a Session. Zero values select defaults.
type Options struct {
	Logger *zap.Logger
	// Validator checks the order after every field input. Nil leaves
	// validation to externally emitted order:validate events.
	Validator      order.Validator
	MaxEmitDepth   int
	SubmitTimeout  time.Duration
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Session is a running storefront session.
type Session struct {
	mu     sync.Mutex
	bus    *eventbus.Bus
	state  *state.State
	seq    *workflow.Sequencer
	screen *view.Screen
	lg     *zap.Logger
}

// New creates and starts a Session. ctx bounds order submissions.
func New(ctx context.Context, submitter order.Submitter, opts Options) (*Session, error) {
	lg := opts.Logger
	if lg == nil {
		lg = zap.NewNop()
	}

	busOpts := []eventbus.Option{eventbus.WithLogger(lg.Named("bus"))}
	if opts.MaxEmitDepth > 0 {
		busOpts = append(busOpts, eventbus.WithMaxDepth(opts.MaxEmitDepth))
	}
	bus := eventbus.New(busOpts...)
	st := state.New(bus)
	screen := view.NewScreen()

	seqOpts := []workflow.Option{workflow.WithLogger(lg.Named("workflow"))}
	if opts.Validator != nil {
		seqOpts = append(seqOpts, workflow.WithValidator(opts.Validator))
	}
	if opts.SubmitTimeout > 0 {
		seqOpts = append(seqOpts, workflow.WithSubmitTimeout(opts.SubmitTimeout))
	}
	if opts.MeterProvider != nil {
		seqOpts = append(seqOpts, workflow.WithMeterProvider(opts.MeterProvider))
	}
	if opts.TracerProvider != nil {
		seqOpts = append(seqOpts, workflow.WithTracerProvider(opts.TracerProvider))
	}
	seq, err := workflow.New(bus, st, screen, submitter, seqOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create workflow")
	}
	seq.Start(ctx)

	return &Session{
		bus:    bus,
		state:  st,
		seq:    seq,
		screen: screen,
		lg:     lg,
	}, nil
}

// Dispatch emits an event on the session bus. Handlers, including any that
// submit the order, complete before Dispatch returns.
func (s *Session) Dispatch(name string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.Emit(name, payload)
}

// DispatchJSON decodes a client intent and dispatches it.
func (s *Session) DispatchJSON(name string, body []byte) error {
	payload, err := DecodeIntent(name, body)
	if err != nil {
		return err
	}
	s.Dispatch(name, payload)
	return nil
}

// LoadCatalog fetches the catalog from src and replaces the current one.
func (s *Session) LoadCatalog(ctx context.Context, src catalog.Source) error {
	items, err := src.Lots(ctx)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetCatalog(items)
	s.lg.Info("Catalog loaded", zap.Int("lots", len(items)))
	return nil
}

// Loaded reports whether a catalog has been loaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loaded()
}

// Step returns the current checkout step.
func (s *Session) Step() workflow.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Step()
}

// Screen returns the screen the session renders to.
func (s *Session) Screen() *view.Screen {
	return s.screen
}

// Subscribe adds a handler to the session bus. Handlers run inside the
// event loop and must not call back into the Session.
func (s *Session) Subscribe(pattern string, h eventbus.Handler) *eventbus.Subscription {
	return s.bus.Subscribe(pattern, h)
}

// Close stops the workflow and drops every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Stop()
	s.bus.OffAll()
}
