package request

import "encoding/json"

type SetTaskEnabled struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type EnqueueJob struct {
	Kind        string          `json:"kind" binding:"required"`
	Priority    int             `json:"priority"`
	Payload     json.RawMessage `json:"payload"`
	RunAt       string          `json:"run_at"` // RFC3339, empty means now
	MaxAttempts int32           `json:"max_attempts"`
	UserID      string          `json:"user_id"` // uuid, optional
}
