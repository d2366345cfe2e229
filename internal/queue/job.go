// Package queue drains the durable job table on a fixed tick. Jobs are
// persisted in postgres so the backlog survives process restarts; only the
// drain loop itself is in-process.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job kinds dispatched by the drain loop.
const (
	KindSendNotification = "notification.send"
	KindGenerateRecs     = "recommendation.generate"
	KindRescoreLead      = "lead.rescore"
	KindContentPost      = "content.post"
)

type Job struct {
	ID          uuid.UUID
	Kind        string
	Priority    int // higher runs first
	Payload     json.RawMessage
	RunAt       time.Time
	Status      Status
	Attempts    int32
	MaxAttempts int32
	UserID      *uuid.UUID
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type NewJob struct {
	Kind        string
	Priority    int
	Payload     json.RawMessage
	RunAt       time.Time // zero means eligible immediately
	MaxAttempts int32     // zero means the store default
	UserID      *uuid.UUID
}

// Store is the durable job table. ClaimBatch must return jobs ordered by
// priority descending then scheduled time ascending, skip jobs scheduled in
// the future, mark claimed jobs running, and increment their attempt count.
type Store interface {
	Enqueue(ctx context.Context, job NewJob) (uuid.UUID, error)
	ClaimBatch(ctx context.Context, now time.Time, limit int32) ([]Job, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	ListFailed(ctx context.Context, limit int32) ([]Job, error)
	ResetStaleRunning(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeCompleted(ctx context.Context, olderThan time.Time) (int64, error)
}
