package eventbus

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_NoSubscribers(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() {
		b.Emit("nobody:listens", nil)
	})
}

func TestEmit_SubscriptionOrderAcrossPatterns(t *testing.T) {
	b := New()
	var calls []string

	b.Subscribe("order.address:change", func(any) { calls = append(calls, "exact") })
	b.Subscribe("*", func(any) { calls = append(calls, "all") })
	b.Subscribe("order.*:change", func(any) { calls = append(calls, "glob") })
	b.SubscribeRegexp(regexp.MustCompile(`^order\.`), func(any) { calls = append(calls, "regexp") })
	b.Subscribe("contacts.email:change", func(any) { calls = append(calls, "other") })

	b.Emit("order.address:change", nil)

	assert.Equal(t, []string{"exact", "all", "glob", "regexp"}, calls)
}

func TestEmit_PassesPayload(t *testing.T) {
	b := New()
	var got any
	b.Subscribe("x", func(p any) { got = p })

	b.Emit("x", 42)

	assert.Equal(t, 42, got)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	sub := b.Subscribe("x", func(any) { count++ })

	b.Emit("x", nil)
	sub.Unsubscribe()
	sub.Unsubscribe()
	b.Emit("x", nil)

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, b.Len())
}

func TestOffAll(t *testing.T) {
	b := New()
	b.Subscribe("a", func(any) {})
	b.Subscribe("*", func(any) {})

	b.OffAll()

	assert.Equal(t, 0, b.Len())
}

func TestEmit_NestedIsSynchronous(t *testing.T) {
	b := New()
	var calls []string

	b.Subscribe("outer", func(any) {
		calls = append(calls, "outer:start")
		b.Emit("inner", nil)
		calls = append(calls, "outer:end")
	})
	b.Subscribe("inner", func(any) { calls = append(calls, "inner") })

	b.Emit("outer", nil)

	assert.Equal(t, []string{"outer:start", "inner", "outer:end"}, calls)
}

func TestEmit_DepthLimit(t *testing.T) {
	b := New(WithMaxDepth(5))
	count := 0
	b.Subscribe("loop", func(any) {
		count++
		b.Emit("loop", nil)
	})

	require.NotPanics(t, func() {
		b.Emit("loop", nil)
	})
	assert.Equal(t, 5, count)

	// Depth is restored after the chain unwinds.
	count = 0
	b.Emit("loop", nil)
	assert.Equal(t, 5, count)
}

func TestSubscribeDuringDispatch(t *testing.T) {
	b := New()
	late := 0
	b.Subscribe("x", func(any) {
		b.Subscribe("x", func(any) { late++ })
	})

	b.Emit("x", nil)
	assert.Equal(t, 0, late, "handler added during dispatch must wait for the next emit")

	b.Emit("x", nil)
	assert.Equal(t, 1, late)
}

func TestOn_Typed(t *testing.T) {
	type change struct{ Value string }

	b := New()
	var got []string
	On(b, "typed", func(c change) { got = append(got, c.Value) })

	b.Emit("typed", change{Value: "ok"})
	b.Emit("typed", "wrong type")

	assert.Equal(t, []string{"ok"}, got)
}

func TestGlobMatcher(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "anything:at-all", true},
		{"lot:open", "lot:open", true},
		{"lot:open", "lot:opened", false},
		{"order.*:change", "order.payment:change", true},
		{"order.*:change", "contacts.email:change", false},
		{"[", "[", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, globMatcher(tt.pattern)(tt.name))
		})
	}
}
