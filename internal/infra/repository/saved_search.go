package repository

import (
	"context"
	"database/sql"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SavedSearchRepository struct {
	db *pgxpool.Pool
}

func NewSavedSearchRepository(db *pgxpool.Pool) *SavedSearchRepository {
	return &SavedSearchRepository{db: db}
}

// DueSearches returns active daily and weekly searches whose last run is older
// than their interval. Intervals are slightly short of the nominal period (20h
// daily, 6d20h weekly) so a fixed-time cron never misses a day through drift.
// Instant searches are excluded; they alert at write time.
func (r *SavedSearchRepository) DueSearches(ctx context.Context, now time.Time, limit int32) ([]campaign.SavedSearchRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, keyword, brand, city, min_price_cents, max_price_cents,
		       frequency, active, last_run_at, last_match_at, match_count
		FROM saved_searches
		WHERE active
		  AND (
			(frequency = 'daily'  AND (last_run_at IS NULL OR last_run_at <= $1 - interval '20 hours'))
		 OR (frequency = 'weekly' AND (last_run_at IS NULL OR last_run_at <= $1 - interval '6 days 20 hours'))
		  )
		ORDER BY last_run_at NULLS FIRST
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query due searches", err)
	}
	defer rows.Close()

	var searches []campaign.SavedSearchRow
	for rows.Next() {
		var (
			ss          campaign.SavedSearchRow
			lastRunAt   sql.NullTime
			lastMatchAt sql.NullTime
		)
		err := rows.Scan(
			&ss.ID, &ss.UserID,
			&ss.Criteria.Keyword, &ss.Criteria.Brand, &ss.Criteria.City,
			&ss.Criteria.MinPriceCents, &ss.Criteria.MaxPriceCents,
			&ss.Frequency, &ss.Active, &lastRunAt, &lastMatchAt, &ss.MatchCount,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan saved search row", err)
		}
		if lastRunAt.Valid {
			ss.LastRunAt = lastRunAt.Time
		}
		if lastMatchAt.Valid {
			ss.LastMatchAt = lastMatchAt.Time
		}
		searches = append(searches, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate saved searches", err)
	}
	return searches, nil
}

func (r *SavedSearchRepository) MarkRun(ctx context.Context, id uuid.UUID, ranAt time.Time, matched int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE saved_searches
		SET last_run_at = $2,
			last_match_at = CASE WHEN $3 > 0 THEN $2 ELSE last_match_at END,
			match_count = match_count + $3
		WHERE id = $1`, id, ranAt, matched)
	if err != nil {
		return infra.WrapRepoErr("failed to mark saved search run", err)
	}
	return nil
}

var _ campaign.SavedSearchStore = (*SavedSearchRepository)(nil)
