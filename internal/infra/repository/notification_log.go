package repository

import (
	"context"
	"time"

	"marketpulse/internal/dispatch"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationLogRepository struct {
	db *pgxpool.Pool
}

func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// SentWithin only considers successful sends: a failed attempt must not hold
// the dedup window closed.
func (r *NotificationLogRepository) SentWithin(ctx context.Context, userID uuid.UUID, category notification.Category, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_log
			WHERE user_id = $1 AND category = $2 AND status = 'sent' AND sent_at >= $3
		)`, userID, category, since).Scan(&exists)
	if err != nil {
		return false, infra.WrapRepoErr("failed to query notification log", err)
	}
	return exists, nil
}

func (r *NotificationLogRepository) Append(ctx context.Context, e notification.Entry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notification_log (id, user_id, automation, category, channel, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Automation, e.Category, e.Channel, e.Status, e.SentAt)
	if err != nil {
		return infra.WrapRepoErr("failed to append notification log entry", err)
	}
	return nil
}

var _ dispatch.LogStore = (*NotificationLogRepository)(nil)
