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

const AutomationLifecycle = "lifecycle"

// LifecycleProcessor reminds sellers about listings approaching expiry and
// flags listings that underperform their age.
type LifecycleProcessor struct {
	listings ListingStore
	users    UserStore
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger

	leadDays            []int
	minAgeDays          int
	minViewsPerDay      float64
	minMessageViewRatio float64
	batch               int32
}

func NewLifecycleProcessor(
	listings ListingStore,
	users UserStore,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.CampaignConfig,
) *LifecycleProcessor {
	return &LifecycleProcessor{
		listings:            listings,
		users:               users,
		notifier:            notifier,
		clock:               clk,
		logger:              logger,
		leadDays:            cfg.ExpiryLeadDays,
		minAgeDays:          cfg.MinListingAgeDays,
		minViewsPerDay:      cfg.MinViewsPerDay,
		minMessageViewRatio: cfg.MinMessageViewRatio,
		batch:               cfg.ScanBatchSize,
	}
}

func (p *LifecycleProcessor) Run(ctx context.Context) error {
	now := p.clock.Now()

	reminders := p.runExpiryReminders(ctx, now)
	flagged := p.runUnderperforming(ctx, now)

	p.logger.Info("lifecycle run complete", "expiry_reminders", reminders, "underperforming", flagged)
	return nil
}

// runExpiryReminders scans one 24h window per configured lead day, centred on
// now+L days, so a daily run sees each listing once per lead day.
func (p *LifecycleProcessor) runExpiryReminders(ctx context.Context, now time.Time) int {
	var sent int
	for _, lead := range p.leadDays {
		target := now.Add(time.Duration(lead) * 24 * time.Hour)
		from := target.Add(-12 * time.Hour)
		to := target.Add(12 * time.Hour)

		expiring, err := p.listings.ExpiringBetween(ctx, from, to)
		if err != nil {
			p.logger.Error("expiring listings scan failed", "lead_days", lead, "error", err)
			continue
		}

		for _, l := range expiring {
			category := notification.CategoryExpiryReminder
			if lead <= 1 {
				category = notification.CategoryExpiryFinal
			}

			owner, err := p.users.UserByID(ctx, l.OwnerID)
			if err != nil {
				p.logger.Error("expiry reminder owner lookup failed",
					"listing_id", l.ID, "owner_id", l.OwnerID, "error", err)
				continue
			}

			msg := content.ExpiryReminder(l.Title, lead)
			ok, err := p.notifier.Dispatch(ctx, AutomationLifecycle, owner.Recipient(), category, msg)
			if err != nil {
				p.logger.Error("expiry reminder send failed", "listing_id", l.ID, "error", err)
				continue
			}
			if ok {
				sent++
			}
		}
	}
	return sent
}

func (p *LifecycleProcessor) runUnderperforming(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-time.Duration(p.minAgeDays) * 24 * time.Hour)
	candidates, err := p.listings.ActiveOlderThan(ctx, cutoff, p.batch)
	if err != nil {
		p.logger.Error("underperformance scan failed", "error", err)
		return 0
	}

	var flagged int
	for _, l := range candidates {
		ageDays := now.Sub(l.CreatedAt).Hours() / 24
		if ageDays <= 0 {
			continue
		}
		viewsPerDay := float64(l.Views) / ageDays

		underperforming := viewsPerDay < p.minViewsPerDay
		if !underperforming && l.Views > 0 {
			ratio := float64(l.Messages) / float64(l.Views)
			underperforming = ratio < p.minMessageViewRatio
		}
		if !underperforming {
			continue
		}

		owner, err := p.users.UserByID(ctx, l.OwnerID)
		if err != nil {
			p.logger.Error("underperforming owner lookup failed",
				"listing_id", l.ID, "owner_id", l.OwnerID, "error", err)
			continue
		}

		msg := content.UnderperformingListing(l.Title, viewsPerDay, l.Messages)
		ok, err := p.notifier.Dispatch(ctx, AutomationLifecycle, owner.Recipient(), notification.CategoryUnderperforming, msg)
		if err != nil {
			p.logger.Error("underperforming send failed", "listing_id", l.ID, "error", err)
			continue
		}
		if ok {
			flagged++
		}
	}
	return flagged
}
