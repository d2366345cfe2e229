package repository

import (
	"context"

	"marketpulse/internal/campaign"
	"marketpulse/internal/domain/watch"
	"marketpulse/internal/infra"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WatchRepository struct {
	db *pgxpool.Pool
}

func NewWatchRepository(db *pgxpool.Pool) *WatchRepository {
	return &WatchRepository{db: db}
}

// ActiveWatches joins each active watch with its listing's current price and
// status so the processor evaluates against live data in one query.
func (r *WatchRepository) ActiveWatches(ctx context.Context, limit int32) ([]campaign.WatchedListing, error) {
	rows, err := r.db.Query(ctx, `
		SELECT
			w.id, w.user_id, w.listing_id,
			w.baseline_cents, w.last_observed_cents,
			w.min_drop_cents, w.min_drop_percent,
			w.active, w.alerts_triggered, w.last_checked_at,
			l.title, l.status, l.price_cents
		FROM price_watches w
		JOIN listings l ON l.id = w.listing_id
		WHERE w.active
		ORDER BY w.last_checked_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query active watches", err)
	}
	defer rows.Close()

	var watched []campaign.WatchedListing
	for rows.Next() {
		var wl campaign.WatchedListing
		w := &wl.Watch
		err := rows.Scan(
			&w.ID, &w.UserID, &w.ListingID,
			&w.BaselineCents, &w.LastObservedCents,
			&w.MinDropCents, &w.MinDropPercent,
			&w.Active, &w.AlertsTriggered, &w.LastCheckedAt,
			&wl.ListingTitle, &wl.ListingStatus, &wl.CurrentPriceCents,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan watch row", err)
		}
		watched = append(watched, wl)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate watches", err)
	}
	return watched, nil
}

func (r *WatchRepository) Update(ctx context.Context, w *watch.PriceWatch) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE price_watches
		SET baseline_cents = $2,
			last_observed_cents = $3,
			min_drop_cents = $4,
			min_drop_percent = $5,
			active = $6,
			alerts_triggered = $7,
			last_checked_at = $8
		WHERE id = $1`,
		w.ID, w.BaselineCents, w.LastObservedCents,
		w.MinDropCents, w.MinDropPercent,
		w.Active, w.AlertsTriggered, w.LastCheckedAt)
	if err != nil {
		return infra.WrapRepoErr("failed to update price watch", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("price watch not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return nil
}

func (r *WatchRepository) DeactivateForTerminalListings(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE price_watches w
		SET active = false
		FROM listings l
		WHERE l.id = w.listing_id
		  AND w.active
		  AND l.status IN ('sold', 'expired', 'removed')`)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to deactivate terminal watches", err)
	}
	return tag.RowsAffected(), nil
}

var _ campaign.WatchStore = (*WatchRepository)(nil)
