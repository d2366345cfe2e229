package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/errs"
)

type Handler func(ctx context.Context, job Job) error

// Drainer processes a bounded batch of due jobs per tick. A single drain is
// in flight at any time; a tick that fires mid-drain is a no-op.
type Drainer struct {
	store      Store
	handlers   map[string]Handler
	clock      clock.Clock
	logger     *slog.Logger
	batchSize  int32
	retryDelay time.Duration
	interval   time.Duration

	draining atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewDrainer(store Store, clk clock.Clock, logger *slog.Logger, interval time.Duration, batchSize int32, retryDelay time.Duration) *Drainer {
	return &Drainer{
		store:      store,
		handlers:   make(map[string]Handler),
		clock:      clk,
		logger:     logger,
		batchSize:  batchSize,
		retryDelay: retryDelay,
		interval:   interval,
	}
}

func (d *Drainer) Register(kind string, h Handler) {
	d.handlers[kind] = h
}

// Start runs the drain tick until Stop is called. Handlers must be
// registered before Start.
func (d *Drainer) Start() {
	if d.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := d.DrainOnce(ctx); err != nil {
					d.logger.Error("queue drain failed", "error", err)
				}
			}
		}
	}()
}

// Stop is idempotent; in-flight job handlers are cancelled via context.
func (d *Drainer) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
}

// DrainOnce claims and processes one batch. Returns the number of jobs
// processed; zero with no error when another drain holds the in-flight flag.
func (d *Drainer) DrainOnce(ctx context.Context) (int, error) {
	if !d.draining.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer d.draining.Store(false)

	jobs, err := d.store.ClaimBatch(ctx, d.clock.Now(), d.batchSize)
	if err != nil {
		return 0, errs.Wrap(err, "failed to claim job batch")
	}

	// The batch runs in priority-then-schedule order whatever row order the
	// store handed back.
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Priority != jobs[j].Priority {
			return jobs[i].Priority > jobs[j].Priority
		}
		return jobs[i].RunAt.Before(jobs[j].RunAt)
	})

	for _, job := range jobs {
		d.process(ctx, job)
	}
	return len(jobs), nil
}

func (d *Drainer) process(ctx context.Context, job Job) {
	handler, ok := d.handlers[job.Kind]
	if !ok {
		// Retrying a kind no handler knows cannot succeed.
		d.logger.Error("unknown job kind", "job_id", job.ID, "kind", job.Kind)
		if err := d.store.MarkFailed(ctx, job.ID, errs.ErrUnknownJobKind.Error()); err != nil {
			d.logger.Error("failed to mark job failed", "job_id", job.ID, "error", err)
		}
		return
	}

	err := d.run(ctx, handler, job)
	if err == nil {
		if mErr := d.store.MarkCompleted(ctx, job.ID); mErr != nil {
			d.logger.Error("failed to mark job completed", "job_id", job.ID, "error", mErr)
		}
		return
	}

	d.logger.Warn("job execution failed",
		"job_id", job.ID, "kind", job.Kind, "attempt", job.Attempts, "error", err)

	if job.Attempts < job.MaxAttempts {
		runAt := d.clock.Now().Add(d.retryDelay)
		if rErr := d.store.Reschedule(ctx, job.ID, runAt, err.Error()); rErr != nil {
			d.logger.Error("failed to reschedule job", "job_id", job.ID, "error", rErr)
		}
		return
	}

	if fErr := d.store.MarkFailed(ctx, job.ID, err.Error()); fErr != nil {
		d.logger.Error("failed to mark job failed", "job_id", job.ID, "error", fErr)
	}
}

// run isolates handler panics so one bad job never stops the drain loop.
func (d *Drainer) run(ctx context.Context, handler Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(fmt.Sprintf("job handler panicked: %v", r))
		}
	}()
	return handler(ctx, job)
}
