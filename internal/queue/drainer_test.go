//go:build unit

package queue_test

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/errs"
	"marketpulse/internal/queue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory queue.Store with the claim semantics of the
// postgres implementation: priority descending, scheduled time ascending,
// future jobs skipped, attempts incremented on claim.
type memStore struct {
	jobs map[uuid.UUID]*queue.Job
	seq  int
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[uuid.UUID]*queue.Job)}
}

func (s *memStore) Enqueue(_ context.Context, job queue.NewJob) (uuid.UUID, error) {
	id := uuid.New()
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	s.jobs[id] = &queue.Job{
		ID:          id,
		Kind:        job.Kind,
		Priority:    job.Priority,
		Payload:     job.Payload,
		RunAt:       job.RunAt,
		Status:      queue.StatusPending,
		MaxAttempts: maxAttempts,
		UserID:      job.UserID,
	}
	return id, nil
}

func (s *memStore) ClaimBatch(_ context.Context, now time.Time, limit int32) ([]queue.Job, error) {
	var due []*queue.Job
	for _, j := range s.jobs {
		if j.Status == queue.StatusPending && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool {
		if due[i].Priority != due[k].Priority {
			return due[i].Priority > due[k].Priority
		}
		return due[i].RunAt.Before(due[k].RunAt)
	})
	if int32(len(due)) > limit {
		due = due[:limit]
	}

	claimed := make([]queue.Job, 0, len(due))
	for _, j := range due {
		j.Status = queue.StatusRunning
		j.Attempts++
		claimed = append(claimed, *j)
	}
	return claimed, nil
}

func (s *memStore) MarkCompleted(_ context.Context, id uuid.UUID) error {
	s.jobs[id].Status = queue.StatusCompleted
	return nil
}

func (s *memStore) Reschedule(_ context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	j := s.jobs[id]
	j.Status = queue.StatusPending
	j.RunAt = runAt
	j.LastError = &lastError
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	j := s.jobs[id]
	j.Status = queue.StatusFailed
	j.LastError = &lastError
	return nil
}

func (s *memStore) CountByStatus(_ context.Context) (map[queue.Status]int64, error) {
	counts := make(map[queue.Status]int64)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

func (s *memStore) ListFailed(_ context.Context, limit int32) ([]queue.Job, error) {
	var failed []queue.Job
	for _, j := range s.jobs {
		if j.Status == queue.StatusFailed {
			failed = append(failed, *j)
		}
	}
	if int32(len(failed)) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

func (s *memStore) ResetStaleRunning(_ context.Context, _ time.Time) (int64, error) {
	var n int64
	for _, j := range s.jobs {
		if j.Status == queue.StatusRunning {
			j.Status = queue.StatusPending
			n++
		}
	}
	return n, nil
}

func (s *memStore) PurgeCompleted(_ context.Context, _ time.Time) (int64, error) {
	var n int64
	for id, j := range s.jobs {
		if j.Status == queue.StatusCompleted {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

// unorderedStore hands claimed batches back in reverse, the way a database
// may return update results in any row order.
type unorderedStore struct {
	*memStore
}

func (s *unorderedStore) ClaimBatch(ctx context.Context, now time.Time, limit int32) ([]queue.Job, error) {
	claimed, err := s.memStore.ClaimBatch(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(claimed)-1; i < j; i, j = i+1, j-1 {
		claimed[i], claimed[j] = claimed[j], claimed[i]
	}
	return claimed, nil
}

func newDrainer(store queue.Store, clk clock.Clock) *queue.Drainer {
	return queue.NewDrainer(store, clk, slog.Default(), time.Minute, 10, 30*time.Minute)
}

func TestDrainOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("processes jobs in priority then schedule order", func(t *testing.T) {
		store := newMemStore()
		clk := clock.NewMockClock(noon)
		d := newDrainer(store, clk)

		var order []string
		d.Register("test.job", func(_ context.Context, job queue.Job) error {
			order = append(order, string(job.Payload))
			return nil
		})

		_, err := store.Enqueue(ctx, queue.NewJob{Kind: "test.job", Priority: 1, Payload: []byte(`low`), RunAt: noon.Add(-time.Hour)})
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, queue.NewJob{Kind: "test.job", Priority: 9, Payload: []byte(`high-late`), RunAt: noon.Add(-time.Minute)})
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, queue.NewJob{Kind: "test.job", Priority: 9, Payload: []byte(`high-early`), RunAt: noon.Add(-time.Hour)})
		require.NoError(t, err)

		n, err := d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []string{"high-early", "high-late", "low"}, order)
	})

	t.Run("batch order holds even when the store returns rows unordered", func(t *testing.T) {
		store := &unorderedStore{memStore: newMemStore()}
		clk := clock.NewMockClock(noon)
		d := newDrainer(store, clk)

		var order []string
		d.Register("test.job", func(_ context.Context, job queue.Job) error {
			order = append(order, string(job.Payload))
			return nil
		})

		_, err := store.Enqueue(ctx, queue.NewJob{Kind: "test.job", Priority: 1, Payload: []byte(`low`), RunAt: noon.Add(-time.Hour)})
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, queue.NewJob{Kind: "test.job", Priority: 9, Payload: []byte(`high-late`), RunAt: noon.Add(-time.Minute)})
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, queue.NewJob{Kind: "test.job", Priority: 9, Payload: []byte(`high-early`), RunAt: noon.Add(-time.Hour)})
		require.NoError(t, err)

		n, err := d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []string{"high-early", "high-late", "low"}, order)
	})

	t.Run("future jobs are not claimed", func(t *testing.T) {
		store := newMemStore()
		clk := clock.NewMockClock(noon)
		d := newDrainer(store, clk)

		var runs int
		d.Register("test.job", func(_ context.Context, _ queue.Job) error {
			runs++
			return nil
		})

		_, err := store.Enqueue(ctx, queue.NewJob{Kind: "test.job", RunAt: noon.Add(time.Hour)})
		require.NoError(t, err)

		n, err := d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, runs)

		clk.Add(2 * time.Hour)
		n, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, runs)
	})

	t.Run("failed job is rescheduled with backoff until attempts run out", func(t *testing.T) {
		store := newMemStore()
		clk := clock.NewMockClock(noon)
		d := newDrainer(store, clk)

		var runs int
		d.Register("test.job", func(_ context.Context, _ queue.Job) error {
			runs++
			return errs.New("boom")
		})

		id, err := store.Enqueue(ctx, queue.NewJob{Kind: "test.job", RunAt: noon, MaxAttempts: 3})
		require.NoError(t, err)

		// Attempt 1 fails and reschedules 30m out.
		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, runs)
		assert.Equal(t, queue.StatusPending, store.jobs[id].Status)
		assert.Equal(t, noon.Add(30*time.Minute), store.jobs[id].RunAt)

		// Not yet due again.
		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, runs)

		clk.Add(31 * time.Minute)
		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, runs)

		clk.Add(31 * time.Minute)
		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, runs)
		assert.Equal(t, queue.StatusFailed, store.jobs[id].Status)
		require.NotNil(t, store.jobs[id].LastError)
		assert.Contains(t, *store.jobs[id].LastError, "boom")

		// A failed job is never picked up again.
		clk.Add(31 * time.Minute)
		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, runs)
	})

	t.Run("successful job is completed", func(t *testing.T) {
		store := newMemStore()
		d := newDrainer(store, clock.NewMockClock(noon))
		d.Register("test.job", func(_ context.Context, _ queue.Job) error { return nil })

		id, err := store.Enqueue(ctx, queue.NewJob{Kind: "test.job", RunAt: noon})
		require.NoError(t, err)

		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusCompleted, store.jobs[id].Status)
	})

	t.Run("unknown kind fails immediately without retries", func(t *testing.T) {
		store := newMemStore()
		d := newDrainer(store, clock.NewMockClock(noon))

		id, err := store.Enqueue(ctx, queue.NewJob{Kind: "nobody.knows", RunAt: noon})
		require.NoError(t, err)

		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusFailed, store.jobs[id].Status)
		assert.Equal(t, int32(1), store.jobs[id].Attempts)
	})

	t.Run("panicking handler counts as a failed attempt", func(t *testing.T) {
		store := newMemStore()
		d := newDrainer(store, clock.NewMockClock(noon))
		d.Register("test.job", func(_ context.Context, _ queue.Job) error { panic("handler bug") })

		id, err := store.Enqueue(ctx, queue.NewJob{Kind: "test.job", RunAt: noon, MaxAttempts: 1})
		require.NoError(t, err)

		_, err = d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusFailed, store.jobs[id].Status)
		require.NotNil(t, store.jobs[id].LastError)
		assert.Contains(t, *store.jobs[id].LastError, "handler bug")
	})

	t.Run("one bad job does not stop the batch", func(t *testing.T) {
		store := newMemStore()
		d := newDrainer(store, clock.NewMockClock(noon))

		var good int
		d.Register("bad.job", func(_ context.Context, _ queue.Job) error { panic("boom") })
		d.Register("good.job", func(_ context.Context, _ queue.Job) error {
			good++
			return nil
		})

		_, err := store.Enqueue(ctx, queue.NewJob{Kind: "bad.job", Priority: 9, RunAt: noon})
		require.NoError(t, err)
		_, err = store.Enqueue(ctx, queue.NewJob{Kind: "good.job", RunAt: noon})
		require.NoError(t, err)

		n, err := d.DrainOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, good)
	})
}
