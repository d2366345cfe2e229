package repository

import (
	"context"
	"errors"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListingRepository struct {
	db *pgxpool.Pool

	// promotionCooldown excludes recently posted listings from candidacy.
	promotionCooldown time.Duration
}

func NewListingRepository(db *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{db: db, promotionCooldown: 7 * 24 * time.Hour}
}

const listingColumns = `
	id, owner_id, title, brand, city, price_cents, status, created_at, expires_at, views, messages`

func scanListing(row pgx.Row) (campaign.ListingRow, error) {
	var l campaign.ListingRow
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Brand, &l.City, &l.PriceCents,
		&l.Status, &l.CreatedAt, &l.ExpiresAt, &l.Views, &l.Messages,
	)
	return l, err
}

func scanListings(rows pgx.Rows) ([]campaign.ListingRow, error) {
	defer rows.Close()
	var listings []campaign.ListingRow
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (r *ListingRepository) ListingByID(ctx context.Context, id uuid.UUID) (campaign.ListingRow, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1`, id)

	l, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return campaign.ListingRow{}, infra.WrapRepoErr("listing not found", err, infra.KindNotFound)
	}
	if err != nil {
		return campaign.ListingRow{}, infra.WrapRepoErr("failed to get listing", err)
	}
	return l, nil
}

// CreatedMatching applies each non-zero criterion; keyword matches the title
// case-insensitively.
func (r *ListingRepository) CreatedMatching(ctx context.Context, c campaign.SearchCriteria, since time.Time, limit int32) ([]campaign.ListingRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE status = 'active'
		  AND created_at >= $1
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR brand = $3)
		  AND ($4 = '' OR city = $4)
		  AND ($5::bigint = 0 OR price_cents >= $5)
		  AND ($6::bigint = 0 OR price_cents <= $6)
		ORDER BY created_at DESC
		LIMIT $7`,
		since, c.Keyword, c.Brand, c.City, c.MinPriceCents, c.MaxPriceCents, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query matching listings", err)
	}

	listings, err := scanListings(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan matching listings", err)
	}
	return listings, nil
}

func (r *ListingRepository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]campaign.ListingRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE status = 'active' AND expires_at >= $1 AND expires_at < $2
		ORDER BY expires_at`, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query expiring listings", err)
	}

	listings, err := scanListings(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan expiring listings", err)
	}
	return listings, nil
}

func (r *ListingRepository) ActiveOlderThan(ctx context.Context, cutoff time.Time, limit int32) ([]campaign.ListingRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE status = 'active' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query aged listings", err)
	}

	listings, err := scanListings(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan aged listings", err)
	}
	return listings, nil
}

// PromotionCandidates ranks active listings by view count, excluding any
// posted to a surface within the cooldown.
func (r *ListingRepository) PromotionCandidates(ctx context.Context, limit int32) ([]campaign.ListingRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings l
		WHERE l.status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM listing_promotions p
			WHERE p.listing_id = l.id AND p.posted_at > now() - $1::interval
		  )
		ORDER BY l.views DESC, l.created_at DESC
		LIMIT $2`, r.promotionCooldown, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query promotion candidates", err)
	}

	listings, err := scanListings(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan promotion candidates", err)
	}
	return listings, nil
}

func (r *ListingRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE listings
		SET status = 'expired'
		WHERE status = 'active' AND expires_at <= $1`, now)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to sweep expired listings", err)
	}
	return tag.RowsAffected(), nil
}

// RecordPost satisfies the promotion recorder used by the content post job.
func (r *ListingRepository) RecordPost(ctx context.Context, listingID uuid.UUID, surface string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO listing_promotions (id, listing_id, surface, posted_at)
		VALUES ($1, $2, $3, $4)`, uuid.New(), listingID, surface, at)
	if err != nil {
		return infra.WrapRepoErr("failed to record promotion post", err)
	}
	return nil
}

var _ campaign.ListingStore = (*ListingRepository)(nil)
