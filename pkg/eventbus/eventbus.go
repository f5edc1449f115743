// Package eventbus provides a synchronous publish/subscribe dispatcher.
//
// Handlers are kept in a single ordered registry. Emit walks the registry in
// subscription order and calls every handler whose pattern matches the event
// name, so exact names, glob patterns and regular expressions interleave
// deterministically. Dispatch is synchronous: Emit returns only after every
// matching handler has returned, and a handler that emits recurses in place.
package eventbus

import (
	"fmt"
	"path"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxDepth bounds nested Emit calls.
const DefaultMaxDepth = 32

// Handler receives the payload of a matching event.
type Handler func(payload any)

// Emitter is the publishing side of the bus. Domain entities depend on it
// rather than on *Bus.
type Emitter interface {
	Emit(name string, payload any)
}

// matcher reports whether an event name is selected by a subscription.
type matcher func(name string) bool

// Subscription is a handle to a registered handler.
type Subscription struct {
	id      uint64
	pattern string
	bus     *Bus
}

// Pattern returns the pattern the subscription was registered with.
func (s *Subscription) Pattern() string {
	return s.pattern
}

// Unsubscribe removes the handler from the bus. Calling it more than once is
// a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.Off(s)
}

type entry struct {
	id      uint64
	match   matcher
	handler Handler
}

// Bus is a synchronous event dispatcher.
//
// The registry is guarded by a mutex only so that subscribing from another
// goroutine is safe; dispatch itself happens without the lock held, on the
// caller's goroutine.
type Bus struct {
	mu      sync.Mutex
	entries []entry
	nextID  uint64
	depth   int

	maxDepth int
	lg       *zap.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report dropped emits and payload
// mismatches.
func WithLogger(lg *zap.Logger) Option {
	return func(b *Bus) {
		if lg != nil {
			b.lg = lg
		}
	}
}

// WithMaxDepth bounds how deeply handlers may nest Emit calls.
func WithMaxDepth(depth int) Option {
	return func(b *Bus) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		maxDepth: DefaultMaxDepth,
		lg:       zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers h for events selected by pattern. A pattern without
// glob metacharacters selects exactly one event name; "*" selects every
// event; other globs follow path.Match syntax (e.g. "order.*:change").
func (b *Bus) Subscribe(pattern string, h Handler) *Subscription {
	return b.add(pattern, globMatcher(pattern), h)
}

// SubscribeRegexp registers h for every event name matched by re.
func (b *Bus) SubscribeRegexp(re *regexp.Regexp, h Handler) *Subscription {
	return b.add(re.String(), re.MatchString, h)
}

func (b *Bus) add(pattern string, m matcher, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.entries = append(b.entries, entry{id: b.nextID, match: m, handler: h})
	return &Subscription{id: b.nextID, pattern: pattern, bus: b}
}

// Off removes a subscription. Unknown or already removed subscriptions are
// ignored.
func (b *Bus) Off(s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.id == s.id {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			return
		}
	}
}

// OffAll removes every subscription.
func (b *Bus) OffAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

// Len returns the number of registered subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Emit synchronously calls every handler matching name, in subscription
// order. Emitting an event nobody listens to is a no-op. Emits nested deeper
// than the configured limit are dropped and logged.
func (b *Bus) Emit(name string, payload any) {
	b.mu.Lock()
	if b.depth >= b.maxDepth {
		depth := b.depth
		b.mu.Unlock()
		b.lg.Error("Event dropped: emit depth limit reached",
			zap.String("event", name),
			zap.Int("depth", depth),
		)
		return
	}
	b.depth++
	handlers := make([]Handler, 0, len(b.entries))
	for _, e := range b.entries {
		if e.match(name) {
			handlers = append(handlers, e.handler)
		}
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.depth--
		b.mu.Unlock()
	}()

	for _, h := range handlers {
		h(payload)
	}
}

// On subscribes a typed handler. Payloads of another type are logged and
// skipped.
func On[T any](b *Bus, pattern string, fn func(T)) *Subscription {
	return b.Subscribe(pattern, func(payload any) {
		v, ok := payload.(T)
		if !ok {
			b.lg.Warn("Unexpected event payload",
				zap.String("pattern", pattern),
				zap.String("payload", fmt.Sprintf("%T", payload)),
			)
			return
		}
		fn(v)
	})
}

func globMatcher(pattern string) matcher {
	if pattern == "*" {
		return func(string) bool { return true }
	}
	if !hasMeta(pattern) {
		return func(name string) bool { return name == pattern }
	}
	return func(name string) bool {
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
}

func hasMeta(pattern string) bool {
	for i := range len(pattern) {
		switch pattern[i] {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
