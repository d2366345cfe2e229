// Package scheduler drives the campaign processors on cron triggers. Tasks
// are registered once at process start from the static config registry and
// are never deleted, only disabled.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

var (
	ErrTaskDisabled = errs.New("task is disabled")
	ErrNotRunning   = errs.New("scheduler is not running")
)

type TaskFunc func(ctx context.Context) error

// Locker is the optional cross-instance fire guard; nil disables it.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) (bool, error)
}

type TaskStatus struct {
	Name       string     `json:"name"`
	Spec       string     `json:"spec"`
	Enabled    bool       `json:"enabled"`
	InFlight   bool       `json:"in_flight"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	Executions uint64     `json:"executions"`
	Failures   uint64     `json:"failures"`
	LastError  string     `json:"last_error,omitempty"`
}

type task struct {
	name string
	spec string
	fn   TaskFunc

	enabled  atomic.Bool
	inFlight atomic.Bool
	entryID  cron.EntryID

	mu         sync.Mutex
	executions uint64
	failures   uint64
	lastRun    time.Time
	lastError  string
}

type Scheduler struct {
	cron     *cron.Cron
	clock    clock.Clock
	logger   *slog.Logger
	lock     Locker
	leaseTTL time.Duration

	running atomic.Bool
	started atomic.Bool

	mu    sync.RWMutex
	tasks map[string]*task
	order []string
}

func New(loc *time.Location, clk clock.Clock, logger *slog.Logger, lock Locker, leaseTTL time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		clock:    clk,
		logger:   logger,
		lock:     lock,
		leaseTTL: leaseTTL,
		tasks:    make(map[string]*task),
	}
}

// Register adds a named task with a cron spec (minute hour dom month dow).
// Tasks start enabled. Registration after Start is rejected so triggers can
// never be duplicated.
func (s *Scheduler) Register(name, spec string, fn TaskFunc) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return errs.Wrap(err, fmt.Sprintf("invalid cron spec for task %q", name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return errs.New("cannot register tasks after the scheduler has started")
	}
	if _, exists := s.tasks[name]; exists {
		return errs.Mark(errs.New(fmt.Sprintf("task %q already registered", name)), errs.ErrTaskAlreadyExists)
	}

	t := &task{name: name, spec: spec, fn: fn}
	t.enabled.Store(true)
	s.tasks[name] = t
	s.order = append(s.order, name)
	return nil
}

// Start installs the cron entries (exactly once) and begins firing. Calling
// Start again after Stop resumes without duplicating triggers.
func (s *Scheduler) Start() {
	if s.started.CompareAndSwap(false, true) {
		s.mu.Lock()
		for _, name := range s.order {
			t := s.tasks[name]
			entryID, err := s.cron.AddFunc(t.spec, func() { s.fire(t) })
			if err != nil {
				// Specs are validated at registration; this cannot happen.
				s.logger.Error("failed to add cron entry", "task", t.name, "error", err)
				continue
			}
			t.entryID = entryID
		}
		s.mu.Unlock()
		s.cron.Start()
	}
	s.running.Store(true)
	s.logger.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop prevents any further fires from invoking task bodies. In-flight
// executions complete; no new ones start. Idempotent.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// SetEnabled flips a task's enabled flag. The cron entry stays installed;
// the fire gate enforces the flag, so re-enabling never duplicates triggers.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	t, err := s.task(name)
	if err != nil {
		return err
	}
	t.enabled.Store(enabled)
	s.logger.Info("task enabled flag changed", "task", name, "enabled", enabled)
	return nil
}

// TriggerNow fires a task manually, subject to the same running/enabled/
// in-flight gates as a cron fire. The execution is asynchronous.
func (s *Scheduler) TriggerNow(name string) error {
	t, err := s.task(name)
	if err != nil {
		return err
	}
	if !s.running.Load() {
		return ErrNotRunning
	}
	if !t.enabled.Load() {
		return ErrTaskDisabled
	}
	go s.fire(t)
	return nil
}

func (s *Scheduler) Status() (bool, []TaskStatus) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]TaskStatus, 0, len(s.order))
	for _, name := range s.order {
		t := s.tasks[name]
		t.mu.Lock()
		st := TaskStatus{
			Name:       t.name,
			Spec:       t.spec,
			Enabled:    t.enabled.Load(),
			InFlight:   t.inFlight.Load(),
			Executions: t.executions,
			Failures:   t.failures,
			LastError:  t.lastError,
		}
		if !t.lastRun.IsZero() {
			lr := t.lastRun
			st.LastRun = &lr
		}
		t.mu.Unlock()

		if s.started.Load() {
			if next := s.cron.Entry(t.entryID).Next; !next.IsZero() {
				st.NextRun = &next
			}
		}
		statuses = append(statuses, st)
	}
	return s.running.Load(), statuses
}

func (s *Scheduler) task(name string) (*task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[name]
	if !ok {
		return nil, errs.Mark(errs.New(fmt.Sprintf("task %q not found", name)), errs.ErrTaskNotFound)
	}
	return t, nil
}

// fire runs one task invocation behind the gates: scheduler running, task
// enabled, not already in flight, and (when configured) the cross-instance
// lease. A failing or panicking task is counted and logged, never fatal.
func (s *Scheduler) fire(t *task) {
	if !s.running.Load() || !t.enabled.Load() {
		return
	}
	if !t.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("task still running, skipping fire", "task", t.name)
		return
	}
	defer t.inFlight.Store(false)

	ctx := context.Background()

	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, "task:"+t.name, s.leaseTTL)
		if err != nil {
			s.logger.Error("task lease acquire failed", "task", t.name, "error", err)
			return
		}
		if !ok {
			s.logger.Debug("task lease held elsewhere, skipping fire", "task", t.name)
			return
		}
		defer func() {
			if _, err := s.lock.Release(ctx, "task:"+t.name); err != nil {
				s.logger.Warn("task lease release failed", "task", t.name, "error", err)
			}
		}()
	}

	started := s.clock.Now()
	s.logger.Info("task fired", "task", t.name)

	err := s.runTask(ctx, t)

	t.mu.Lock()
	t.lastRun = started
	if err != nil {
		t.failures++
		t.lastError = err.Error()
	} else {
		t.executions++
		t.lastError = ""
	}
	t.mu.Unlock()

	if err != nil {
		s.logger.Error("task failed", "task", t.name, "error", err)
	} else {
		s.logger.Info("task completed", "task", t.name, "duration", s.clock.Now().Sub(started))
	}
}

func (s *Scheduler) runTask(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.New(fmt.Sprintf("task panicked: %v", r))
		}
	}()
	return t.fn(ctx)
}
