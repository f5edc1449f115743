package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passingCheck() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func probe(t *testing.T, h *Health, p Probe) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	h.Handler(p)(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveness_AllPassing(t *testing.T) {
	h := New()
	h.Add(Liveness, "check1", time.Second, passingCheck())
	h.Add(Liveness, "check2", time.Second, passingCheck())

	code, body := probe(t, h, Liveness)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveness_FailingCheck(t *testing.T) {
	h := New()
	h.Add(Liveness, "db", time.Second, failingCheck("connection refused"))
	runN(h.checks[Liveness][0], 3)

	code, body := probe(t, h, Liveness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestLiveness_FailureBelowThreshold(t *testing.T) {
	h := New()
	h.Add(Liveness, "flaky", time.Second, failingCheck("temporary"))
	runN(h.checks[Liveness][0], 2)

	code, _ := probe(t, h, Liveness)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadiness_NotReady(t *testing.T) {
	h := New()
	h.Add(Readiness, "catalog", time.Second, passingCheck())

	code, body := probe(t, h, Readiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")
	assert.False(t, h.IsReady())

	h.SetReady(true)
	code, _ = probe(t, h, Readiness)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestReadiness_OneFailing(t *testing.T) {
	h := New()
	h.Add(Readiness, "db", time.Second, passingCheck())
	h.Add(Readiness, "catalog", time.Second, failingCheck("catalog not ready"))
	h.SetReady(true)
	runN(h.checks[Readiness][1], 3)

	code, body := probe(t, h, Readiness)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "catalog")
	assert.NotContains(t, body.Checks, "db")
	assert.False(t, h.IsReady())
}

func TestReadiness_IgnoresLivenessChecks(t *testing.T) {
	h := New()
	h.Add(Liveness, "broken", time.Second, failingCheck("down"))
	h.SetReady(true)
	runN(h.checks[Liveness][0], 3)

	code, _ := probe(t, h, Readiness)
	assert.Equal(t, http.StatusOK, code)
}

func TestCheckRecovery(t *testing.T) {
	failing := true
	h := New()
	h.Add(Liveness, "flaky", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	c := h.checks[Liveness][0]

	runN(c, 3)
	assert.False(t, c.healthy.Load())

	failing = false
	runN(c, 1)
	assert.True(t, c.healthy.Load())
}

func TestCheckLastErrorStored(t *testing.T) {
	h := New()
	h.Add(Liveness, "db", time.Second, failingCheck("timeout"))
	c := h.checks[Liveness][0]

	assert.Nil(t, c.err())
	runN(c, 1)
	assert.EqualError(t, c.err(), "timeout")
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Add(Liveness, "counter", time.Second, func(_ context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.Add(Liveness, "concurrent", time.Second, failingCheck("err"))
	h.Add(Readiness, "concurrent", time.Second, passingCheck())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				h.Handler(Liveness)(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.Handler(Readiness)(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestFlagCheck(t *testing.T) {
	var loaded atomic.Bool
	check := FlagCheck("catalog", loaded.Load)

	assert.EqualError(t, check(context.Background()), "catalog not ready")

	loaded.Store(true)
	assert.NoError(t, check(context.Background()))
}
