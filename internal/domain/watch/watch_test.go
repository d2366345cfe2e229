//go:build unit

package watch_test

import (
	"testing"
	"time"

	"marketpulse/internal/domain/watch"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newWatch(priceCents, minDropCents int64, minDropPercent float64) *watch.PriceWatch {
	return watch.New(uuid.New(), uuid.New(), priceCents, minDropCents, minDropPercent, now)
}

func TestEvaluate(t *testing.T) {
	t.Run("drop meeting absolute threshold triggers", func(t *testing.T) {
		w := newWatch(100000, 3000, 0)

		ev := w.Evaluate(95000)

		assert.True(t, ev.Triggered)
		assert.True(t, ev.PriceChanged)
		assert.Equal(t, int64(5000), ev.DropCents)
		assert.InDelta(t, 5.0, ev.DropPercent, 0.001)
	})

	t.Run("drop below both thresholds does not trigger", func(t *testing.T) {
		w := newWatch(100000, 5000, 5)

		ev := w.Evaluate(98000)

		assert.False(t, ev.Triggered)
		assert.True(t, ev.PriceChanged)
		assert.Equal(t, int64(2000), ev.DropCents)
	})

	t.Run("either threshold suffices", func(t *testing.T) {
		cases := []struct {
			name           string
			minDropCents   int64
			minDropPercent float64
			current        int64
			triggered      bool
		}{
			{"absolute only", 3000, 0, 96000, true},
			{"percent only", 0, 3, 96000, true},
			{"absolute met percent not", 3000, 50, 96000, true},
			{"percent met absolute not", 50000, 3, 96000, true},
			{"neither met", 50000, 50, 96000, false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				w := newWatch(100000, tc.minDropCents, tc.minDropPercent)
				assert.Equal(t, tc.triggered, w.Evaluate(tc.current).Triggered)
			})
		}
	})

	t.Run("zero thresholds disable their criterion", func(t *testing.T) {
		w := newWatch(100000, 0, 0)

		ev := w.Evaluate(1)

		assert.False(t, ev.Triggered)
		assert.True(t, ev.PriceChanged)
	})

	t.Run("price rise never triggers", func(t *testing.T) {
		w := newWatch(100000, 1, 0.1)

		ev := w.Evaluate(110000)

		assert.False(t, ev.Triggered)
		assert.True(t, ev.PriceChanged)
		assert.Zero(t, ev.DropCents)
	})

	t.Run("unchanged price reports no change", func(t *testing.T) {
		w := newWatch(100000, 1000, 0)

		ev := w.Evaluate(100000)

		assert.False(t, ev.Triggered)
		assert.False(t, ev.PriceChanged)
	})

	t.Run("evaluate does not mutate the watch", func(t *testing.T) {
		w := newWatch(100000, 1000, 0)
		before := *w

		w.Evaluate(50000)

		assert.Equal(t, before, *w)
	})
}

func TestEvaluateAgainstLastObserved(t *testing.T) {
	// 1000.00 -> 950.00 triggers a 30.00 absolute watch; after observing,
	// 950.00 -> 980.00 is a rise against the new reference, not a drop
	// against the original baseline.
	w := newWatch(100000, 3000, 0)

	ev := w.Evaluate(95000)
	require.True(t, ev.Triggered)
	w.Observe(95000, true, now.Add(time.Hour))

	ev = w.Evaluate(98000)
	assert.False(t, ev.Triggered)
	assert.True(t, ev.PriceChanged)

	assert.Equal(t, int64(100000), w.BaselineCents)
	assert.Equal(t, int64(95000), w.LastObservedCents)
	assert.Equal(t, 1, w.AlertsTriggered)
}

func TestObserve(t *testing.T) {
	t.Run("untriggered observation does not count alerts", func(t *testing.T) {
		w := newWatch(100000, 3000, 0)

		w.Observe(99000, false, now.Add(time.Hour))

		assert.Equal(t, int64(99000), w.LastObservedCents)
		assert.Equal(t, 0, w.AlertsTriggered)
		assert.Equal(t, now.Add(time.Hour), w.LastCheckedAt)
	})
}

func TestReactivate(t *testing.T) {
	w := newWatch(100000, 3000, 0)
	w.Observe(95000, true, now)
	w.Deactivate()
	require.False(t, w.Active)

	w.Reactivate(90000, now.Add(24*time.Hour))

	assert.True(t, w.Active)
	assert.Equal(t, int64(90000), w.BaselineCents)
	assert.Equal(t, int64(90000), w.LastObservedCents)

	// A further small drop is judged against the fresh baseline.
	ev := w.Evaluate(88000)
	assert.False(t, ev.Triggered)
}
