//go:build unit

package campaign_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/domain/watch"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func campaignConfig() config.CampaignConfig {
	return config.NewTestConfig().Campaign
}

func watchedListing(userID uuid.UUID, priceCents, minDropCents int64, minDropPercent float64, currentCents int64) campaign.WatchedListing {
	w := watch.New(userID, uuid.New(), priceCents, minDropCents, minDropPercent, noon.Add(-24*time.Hour))
	return campaign.WatchedListing{
		Watch:             *w,
		ListingTitle:      "Vintage road bike",
		ListingStatus:     campaign.ListingStatusActive,
		CurrentPriceCents: currentCents,
	}
}

func TestPriceDropProcessor(t *testing.T) {
	ctx := context.Background()
	user := reachableUser(uuid.New())

	newProcessor := func(users *fakeUserStore, watches *fakeWatchStore, notifier *fakeNotifier) *campaign.PriceDropProcessor {
		return campaign.NewPriceDropProcessor(
			watches, users, notifier, clock.NewMockClock(noon), slog.Default(), campaignConfig())
	}

	t.Run("drop past threshold alerts the watcher", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		watches.add(watchedListing(user.ID, 100000, 3000, 0, 95000))
		notifier := newFakeNotifier()

		require.NoError(t, newProcessor(users, watches, notifier).Run(ctx))

		require.Len(t, notifier.dispatched, 1)
		assert.Equal(t, notification.CategoryPriceDrop, notifier.dispatched[0].Category)
		assert.Equal(t, user.ID, notifier.dispatched[0].UserID)
		assert.Contains(t, notifier.dispatched[0].Message.Subject, "Vintage road bike")
	})

	t.Run("large drop uses the urgent category", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		// 600.00 off 2000.00 exceeds the 500.00 urgent threshold.
		watches.add(watchedListing(user.ID, 200000, 3000, 0, 140000))
		notifier := newFakeNotifier()

		require.NoError(t, newProcessor(users, watches, notifier).Run(ctx))

		require.Len(t, notifier.dispatched, 1)
		assert.Equal(t, notification.CategoryPriceDropUrgent, notifier.dispatched[0].Category)
	})

	t.Run("percent threshold alone can make a drop urgent", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		// 20% off 1000.00 is under the absolute urgent threshold but over 15%.
		watches.add(watchedListing(user.ID, 100000, 1000, 0, 80000))
		notifier := newFakeNotifier()

		require.NoError(t, newProcessor(users, watches, notifier).Run(ctx))

		require.Len(t, notifier.dispatched, 1)
		assert.Equal(t, notification.CategoryPriceDropUrgent, notifier.dispatched[0].Category)
	})

	t.Run("small drop below watch thresholds stays silent but is observed", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		wl := watchedListing(user.ID, 100000, 5000, 5, 98000)
		watches.add(wl)
		notifier := newFakeNotifier()

		require.NoError(t, newProcessor(users, watches, notifier).Run(ctx))

		assert.Empty(t, notifier.dispatched)
		assert.Equal(t, int64(98000), watches.watched[wl.Watch.ID].Watch.LastObservedCents)
	})

	t.Run("unchanged price writes nothing", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		watches.add(watchedListing(user.ID, 100000, 3000, 0, 100000))
		notifier := newFakeNotifier()

		require.NoError(t, newProcessor(users, watches, notifier).Run(ctx))

		assert.Empty(t, notifier.dispatched)
		assert.Zero(t, watches.updates)
	})

	t.Run("watches on terminal listings are skipped", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		wl := watchedListing(user.ID, 100000, 3000, 0, 50000)
		wl.ListingStatus = campaign.ListingStatusSold
		watches.add(wl)
		notifier := newFakeNotifier()

		require.NoError(t, newProcessor(users, watches, notifier).Run(ctx))

		assert.Empty(t, notifier.dispatched)
	})

	t.Run("two consecutive runs on a stable price alert once", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		wl := watchedListing(user.ID, 100000, 3000, 0, 95000)
		watches.add(wl)
		notifier := newFakeNotifier()
		p := newProcessor(users, watches, notifier)

		require.NoError(t, p.Run(ctx))
		require.Len(t, notifier.dispatched, 1)

		// The second run sees the observed price unchanged and stays silent.
		require.NoError(t, p.Run(ctx))
		assert.Len(t, notifier.dispatched, 1)
		assert.Equal(t, 1, watches.watched[wl.Watch.ID].Watch.AlertsTriggered)
	})

	t.Run("alert counter is not bumped when the send was suppressed", func(t *testing.T) {
		users := newFakeUserStore(user)
		watches := newFakeWatchStore()
		wl := watchedListing(user.ID, 100000, 3000, 0, 95000)
		watches.add(wl)
		notifier := newFakeNotifier()
		notifier.seen[notifier.key(user.ID, notification.CategoryPriceDrop)] = true

		require.NoError(t, newProcessor(users, watches, notifier).Run(ctx))

		assert.Empty(t, notifier.dispatched)
		got := watches.watched[wl.Watch.ID].Watch
		assert.Zero(t, got.AlertsTriggered)
		assert.Equal(t, int64(95000), got.LastObservedCents)
	})
}
