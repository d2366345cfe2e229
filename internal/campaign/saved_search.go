package campaign

import (
	"context"
	"log/slog"
	"time"

	"marketpulse/internal/content"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
)

const AutomationSavedSearch = "saved_search"

// SavedSearchProcessor runs due daily/weekly saved searches and sends one
// digest per search with matches. Instant-frequency searches are alerted at
// listing-creation time by the write path, never here.
type SavedSearchProcessor struct {
	searches SavedSearchStore
	listings ListingStore
	users    UserStore
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	batch    int32
}

func NewSavedSearchProcessor(
	searches SavedSearchStore,
	listings ListingStore,
	users UserStore,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.CampaignConfig,
) *SavedSearchProcessor {
	return &SavedSearchProcessor{
		searches: searches,
		listings: listings,
		users:    users,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		batch:    cfg.ScanBatchSize,
	}
}

func (p *SavedSearchProcessor) Run(ctx context.Context) error {
	now := p.clock.Now()

	due, err := p.searches.DueSearches(ctx, now, p.batch)
	if err != nil {
		return err
	}

	var digests int
	for _, ss := range due {
		if err := p.processSearch(ctx, ss, now); err != nil {
			p.logger.Error("saved search run failed",
				"search_id", ss.ID, "user_id", ss.UserID, "error", err)
			continue
		}
		digests++
	}

	p.logger.Info("saved search run complete", "due", len(due), "processed", digests)
	return nil
}

func (p *SavedSearchProcessor) processSearch(ctx context.Context, ss SavedSearchRow, now time.Time) error {
	since := ss.LastRunAt
	if since.IsZero() {
		switch ss.Frequency {
		case FrequencyWeekly:
			since = now.Add(-7 * 24 * time.Hour)
		default:
			since = now.Add(-24 * time.Hour)
		}
	}

	matches, err := p.listings.CreatedMatching(ctx, ss.Criteria, since, p.batch)
	if err != nil {
		return err
	}

	// The search is marked run even when nothing matched or the digest was
	// suppressed, so the next run only covers new listings.
	if len(matches) == 0 {
		return p.searches.MarkRun(ctx, ss.ID, now, 0)
	}

	user, err := p.users.UserByID(ctx, ss.UserID)
	if err != nil {
		return err
	}

	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m.Title)
	}
	msg := content.SavedSearchDigest(titles, int64(len(matches)))

	if _, err := p.notifier.Dispatch(ctx, AutomationSavedSearch, user.Recipient(), notification.CategorySavedSearch, msg); err != nil {
		return err
	}
	return p.searches.MarkRun(ctx, ss.ID, now, int64(len(matches)))
}
