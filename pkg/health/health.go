// Package health serves liveness and readiness probes.
//
// Every check runs in its own goroutine on a fixed interval. A check turns
// unhealthy after failureThreshold consecutive failures and healthy again
// after successThreshold consecutive passes.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Probe is the kind of a check.
type Probe int

const (
	// Liveness checks tell whether the process should be restarted.
	Liveness Probe = iota
	// Readiness checks tell whether the process should receive traffic.
	Readiness
)

const (
	failureThreshold = 3
	successThreshold = 1
)

// check is a registered CheckFunc with its runtime state. run is only called
// from the check goroutine; healthy and lastErr are read by handlers.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (c *check) err() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= successThreshold {
		c.healthy.Store(true)
	}
}

// Health holds the registered checks and the manual readiness flag.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks map[Probe][]*check
	cancel context.CancelFunc
}

// New creates a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{checks: make(map[Probe][]*check)}
}

// Add registers a check. Checks start healthy.
func (h *Health) Add(p Probe, name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	h.checks[p] = append(h.checks[p], c)
}

func (h *Health) list(p Probe) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.checks[p])
}

// Start runs every registered check at interval until Stop or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	var all []*check
	for _, cs := range h.checks {
		all = append(all, cs...)
	}
	h.mu.Unlock()

	for _, c := range all {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop cancels the check goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady sets the manual readiness flag.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the flag is set and every readiness check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.list(Readiness))) == 0
}

// Handler serves the probe: 200 with {"status":"ok"}, or 503 with the failing
// checks.
func (h *Health) Handler(p Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		failed := failures(h.list(p))
		if p == Readiness && !h.ready.Load() {
			failed["_readiness"] = "service is not ready"
		}
		write(w, failed)
	}
}

func failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		if c.healthy.Load() {
			continue
		}
		if err := c.err(); err != nil {
			out[c.name] = err.Error()
		} else {
			out[c.name] = "check is unhealthy"
		}
	}
	return out
}

func write(w http.ResponseWriter, failed map[string]string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status := http.StatusOK
	e.ObjStart()
	e.FieldStart("status")
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failed[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
