package campaign

import (
	"context"
	"log/slog"

	"marketpulse/internal/content"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
)

const AutomationPriceDrop = "price_drop"

// PriceDropProcessor sweeps active price watches, compares each against the
// listing's current price, and alerts on drops past the watch thresholds.
// Drops at or above the configured urgent thresholds use the urgent category,
// which bypasses quiet hours and is SMS-eligible.
type PriceDropProcessor struct {
	watches  WatchStore
	users    UserStore
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger

	urgentDropCents   int64
	urgentDropPercent float64
	batch             int32
}

func NewPriceDropProcessor(
	watches WatchStore,
	users UserStore,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.CampaignConfig,
) *PriceDropProcessor {
	return &PriceDropProcessor{
		watches:           watches,
		users:             users,
		notifier:          notifier,
		clock:             clk,
		logger:            logger,
		urgentDropCents:   cfg.UrgentDropCents,
		urgentDropPercent: cfg.UrgentDropPercent,
		batch:             cfg.ScanBatchSize,
	}
}

func (p *PriceDropProcessor) Run(ctx context.Context) error {
	watched, err := p.watches.ActiveWatches(ctx, p.batch)
	if err != nil {
		return err
	}

	var alerts int
	for _, wl := range watched {
		sent, err := p.processWatch(ctx, wl)
		if err != nil {
			p.logger.Error("price watch check failed",
				"watch_id", wl.Watch.ID, "listing_id", wl.Watch.ListingID, "error", err)
			continue
		}
		if sent {
			alerts++
		}
	}

	p.logger.Info("price drop run complete", "watches", len(watched), "alerts", alerts)
	return nil
}

func (p *PriceDropProcessor) processWatch(ctx context.Context, wl WatchedListing) (bool, error) {
	// Watches on terminal listings are left for the maintenance sweep.
	if wl.ListingStatus != ListingStatusActive {
		return false, nil
	}

	w := wl.Watch
	ev := w.Evaluate(wl.CurrentPriceCents)
	if !ev.PriceChanged {
		return false, nil
	}

	sent := false
	if ev.Triggered {
		user, err := p.users.UserByID(ctx, w.UserID)
		if err != nil {
			return false, err
		}

		category := notification.CategoryPriceDrop
		if ev.DropCents >= p.urgentDropCents || ev.DropPercent >= p.urgentDropPercent {
			category = notification.CategoryPriceDropUrgent
		}

		msg := content.PriceDropAlert(wl.ListingTitle, w.LastObservedCents, wl.CurrentPriceCents, ev.DropCents, ev.DropPercent)
		sent, err = p.notifier.Dispatch(ctx, AutomationPriceDrop, user.Recipient(), category, msg)
		if err != nil {
			return sent, err
		}
	}

	w.Observe(wl.CurrentPriceCents, sent, p.clock.Now())
	if err := p.watches.Update(ctx, &w); err != nil {
		return sent, err
	}
	return sent, nil
}
