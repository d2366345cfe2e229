// Package repository implements the campaign, dispatch and queue store ports
// against postgres. All SQL lives here; callers only see the port interfaces.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/domain/lead"
	"marketpulse/internal/infra"
	"marketpulse/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db    *pgxpool.Pool
	quiet config.QuietHoursConfig
}

func NewUserRepository(db *pgxpool.Pool, quiet config.QuietHoursConfig) *UserRepository {
	return &UserRepository{db: db, quiet: quiet}
}

const userColumns = `
	id, created_at, last_activity_at,
	email, phone,
	email_enabled, sms_enabled, quiet_enabled, quiet_start_hour, quiet_end_hour`

// scanUser resolves notification preference defaults at load time: NULL quiet
// hours fall back to the configured defaults, so consumers never null-check.
func (r *UserRepository) scanUser(row pgx.Row) (campaign.UserRow, error) {
	var (
		u            campaign.UserRow
		lastActivity sql.NullTime
		phone        sql.NullString
		quietStart   sql.NullInt32
		quietEnd     sql.NullInt32
	)
	err := row.Scan(
		&u.ID, &u.CreatedAt, &lastActivity,
		&u.Prefs.EmailAddress, &phone,
		&u.Prefs.EmailEnabled, &u.Prefs.SMSEnabled, &u.Prefs.QuietEnabled, &quietStart, &quietEnd,
	)
	if err != nil {
		return campaign.UserRow{}, err
	}

	if lastActivity.Valid {
		u.LastActivityAt = lastActivity.Time
	}
	if phone.Valid {
		u.Prefs.PhoneNumber = phone.String
	}
	u.Prefs.QuietStartHour = r.quiet.DefaultStartHour
	u.Prefs.QuietEndHour = r.quiet.DefaultEndHour
	if quietStart.Valid {
		u.Prefs.QuietStartHour = int(quietStart.Int32)
	}
	if quietEnd.Valid {
		u.Prefs.QuietEndHour = int(quietEnd.Int32)
	}
	return u, nil
}

func (r *UserRepository) ScanUsers(ctx context.Context, limit int32) ([]campaign.UserRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan users", err)
	}
	defer rows.Close()

	var users []campaign.UserRow
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan user row", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate users", err)
	}
	return users, nil
}

func (r *UserRepository) UserByID(ctx context.Context, id uuid.UUID) (campaign.UserRow, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1`, id)

	u, err := r.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return campaign.UserRow{}, infra.WrapRepoErr("user not found", err, infra.KindNotFound)
	}
	if err != nil {
		return campaign.UserRow{}, infra.WrapRepoErr("failed to get user", err)
	}
	return u, nil
}

func (r *UserRepository) InteractionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]lead.Interaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.kind, i.listing_id, COALESCE(l.brand, ''), COALESCE(l.city, ''), COALESCE(l.price_cents, 0), i.occurred_at
		FROM user_interactions i
		LEFT JOIN listings l ON l.id = i.listing_id
		WHERE i.user_id = $1 AND i.occurred_at >= $2
		ORDER BY i.occurred_at`, userID, since)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query interactions", err)
	}
	defer rows.Close()

	var interactions []lead.Interaction
	for rows.Next() {
		var it lead.Interaction
		if err := rows.Scan(&it.Kind, &it.ListingID, &it.Brand, &it.City, &it.PriceCents, &it.OccurredAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan interaction row", err)
		}
		interactions = append(interactions, it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate interactions", err)
	}
	return interactions, nil
}

var _ campaign.UserStore = (*UserRepository)(nil)
