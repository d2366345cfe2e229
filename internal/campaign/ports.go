// Package campaign holds one processor per automation domain. Each processor
// is pure orchestration: it scans candidates from its store ports, consults
// the classifier or watch engine for current state, and hands eligible sends
// to the dispatcher. Failures never cross entity boundaries.
package campaign

import (
	"context"
	"encoding/json"
	"time"

	"marketpulse/internal/dispatch"
	"marketpulse/internal/domain/lead"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/domain/watch"

	"github.com/google/uuid"
)

// Listing lifecycle states. Sold, expired and removed are terminal.
const (
	ListingStatusActive  = "active"
	ListingStatusSold    = "sold"
	ListingStatusExpired = "expired"
	ListingStatusRemoved = "removed"
)

type UserRow struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	LastActivityAt time.Time // zero when the user never interacted
	Prefs          notification.Preferences
}

func (u UserRow) Recipient() dispatch.Recipient {
	return dispatch.Recipient{UserID: u.ID, Prefs: u.Prefs}
}

type ListingRow struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Title      string
	Brand      string
	City       string
	PriceCents int64
	Status     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Views      int64
	Messages   int64
}

type SearchCriteria struct {
	Keyword       string
	Brand         string
	City          string
	MinPriceCents int64
	MaxPriceCents int64
}

// Alert frequencies for saved searches. Instant alerts are handled at write
// time by producers outside this core; the periodic run skips them.
const (
	FrequencyInstant = "instant"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
)

type SavedSearchRow struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Criteria    SearchCriteria
	Frequency   string
	Active      bool
	LastRunAt   time.Time // zero when never run
	LastMatchAt time.Time
	MatchCount  int64
}

type UserStore interface {
	// ScanUsers returns users with resolved notification preferences,
	// oldest id first, for campaign candidate scans.
	ScanUsers(ctx context.Context, limit int32) ([]UserRow, error)
	UserByID(ctx context.Context, id uuid.UUID) (UserRow, error)
	// InteractionsSince returns the user's typed interaction events at or
	// after since, for the classifier.
	InteractionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]lead.Interaction, error)
}

type ListingStore interface {
	ListingByID(ctx context.Context, id uuid.UUID) (ListingRow, error)
	// CreatedMatching returns active listings created at or after since that
	// match the criteria, newest first.
	CreatedMatching(ctx context.Context, c SearchCriteria, since time.Time, limit int32) ([]ListingRow, error)
	// ExpiringBetween returns active listings whose expiry falls in [from, to).
	ExpiringBetween(ctx context.Context, from, to time.Time) ([]ListingRow, error)
	// ActiveOlderThan returns active listings created before cutoff with
	// their view/message counters, for the underperformance scan.
	ActiveOlderThan(ctx context.Context, cutoff time.Time, limit int32) ([]ListingRow, error)
	// PromotionCandidates returns active listings not promoted within the
	// cooldown, best first.
	PromotionCandidates(ctx context.Context, limit int32) ([]ListingRow, error)
	// SweepExpired moves active listings past their expiry into the expired
	// terminal status, returning how many rows changed.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type WatchStore interface {
	// ActiveWatches returns active watches joined with their listing's
	// current price and status.
	ActiveWatches(ctx context.Context, limit int32) ([]WatchedListing, error)
	Update(ctx context.Context, w *watch.PriceWatch) error
	// DeactivateForTerminalListings bulk-deactivates watches whose listing
	// reached a terminal status, returning how many rows changed.
	DeactivateForTerminalListings(ctx context.Context) (int64, error)
}

type WatchedListing struct {
	Watch             watch.PriceWatch
	ListingTitle      string
	ListingStatus     string
	CurrentPriceCents int64
}

type SavedSearchStore interface {
	// DueSearches returns active daily/weekly searches whose last run is
	// older than their frequency interval.
	DueSearches(ctx context.Context, now time.Time, limit int32) ([]SavedSearchRow, error)
	// MarkRun updates last-run and, when matched > 0, the match counter and
	// last-match timestamp.
	MarkRun(ctx context.Context, id uuid.UUID, ranAt time.Time, matched int64) error
}

// Notifier is the dispatch gate (dedup, quiet hours, channel selection).
// Implemented by dispatch.Dispatcher.
type Notifier interface {
	ShouldNotify(ctx context.Context, userID uuid.UUID, category notification.Category) (bool, error)
	Dispatch(ctx context.Context, automation string, rcpt dispatch.Recipient, category notification.Category, msg dispatch.Message) (bool, error)
}

// JobRequest mirrors queue.NewJob without importing the queue package, so
// processors can enqueue ad hoc work through a narrow port.
type JobRequest struct {
	Kind        string
	Priority    int
	Payload     json.RawMessage
	RunAt       time.Time
	MaxAttempts int32
	UserID      *uuid.UUID
}

type Jobs interface {
	Enqueue(ctx context.Context, job JobRequest) (uuid.UUID, error)
}
