package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck returns a CheckFunc that reports unhealthy when the
// number of goroutines exceeds the given threshold. This is useful as a
// liveness check to detect goroutine leaks, such as screen watchers that
// outlive their websocket.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// FlagCheck returns a CheckFunc that reports "<what> not ready" until done
// returns true. It suits readiness checks on one-off startup work, such as
// the first catalog load.
func FlagCheck(what string, done func() bool) CheckFunc {
	return func(_ context.Context) error {
		if !done() {
			return errors.Errorf("%s not ready", what)
		}
		return nil
	}
}
