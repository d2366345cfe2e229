package response

import (
	"time"

	"marketpulse/internal/queue"
	"marketpulse/internal/scheduler"
)

type AutomationStatus struct {
	Running bool                   `json:"running"`
	Tasks   []scheduler.TaskStatus `json:"tasks"`
	Jobs    map[string]int64       `json:"jobs"`
}

type EnqueuedJob struct {
	ID string `json:"id"`
}

type FailedJob struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Attempts  int32     `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewFailedJobs(jobs []queue.Job) []FailedJob {
	out := make([]FailedJob, 0, len(jobs))
	for _, j := range jobs {
		fj := FailedJob{
			ID:        j.ID.String(),
			Kind:      j.Kind,
			Attempts:  j.Attempts,
			UpdatedAt: j.UpdatedAt,
		}
		if j.LastError != nil {
			fj.LastError = *j.LastError
		}
		if j.UserID != nil {
			fj.UserID = j.UserID.String()
		}
		out = append(out, fj)
	}
	return out
}
