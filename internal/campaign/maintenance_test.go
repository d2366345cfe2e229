//go:build unit

package campaign_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
	"marketpulse/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueueMaintenance struct {
	resetErr   error
	resets     int
	purges     int
	resetAfter time.Time
	purgeAfter time.Time
}

func (f *fakeQueueMaintenance) ResetStaleRunning(_ context.Context, olderThan time.Time) (int64, error) {
	if f.resetErr != nil {
		return 0, f.resetErr
	}
	f.resets++
	f.resetAfter = olderThan
	return 2, nil
}

func (f *fakeQueueMaintenance) PurgeCompleted(_ context.Context, olderThan time.Time) (int64, error) {
	f.purges++
	f.purgeAfter = olderThan
	return 5, nil
}

func TestMaintenanceProcessor(t *testing.T) {
	ctx := context.Background()
	queueCfg := config.NewTestConfig().Queue

	t.Run("runs every step with the configured cutoffs", func(t *testing.T) {
		watches := newFakeWatchStore()
		wl := watchedListing(uuid.New(), 100000, 3000, 0, 95000)
		wl.ListingStatus = campaign.ListingStatusSold
		watches.add(wl)
		jobs := &fakeQueueMaintenance{}

		p := campaign.NewMaintenanceProcessor(
			newFakeListingStore(), watches, jobs, clock.NewMockClock(noon), slog.Default(), queueCfg)
		require.NoError(t, p.Run(ctx))

		assert.False(t, watches.watched[wl.Watch.ID].Watch.Active)
		assert.Equal(t, 1, jobs.resets)
		assert.Equal(t, 1, jobs.purges)
		assert.Equal(t, noon.Add(-queueCfg.StaleRunning), jobs.resetAfter)
		assert.Equal(t, noon.Add(-queueCfg.CompletedTTL), jobs.purgeAfter)
	})

	t.Run("a failing step does not stop the others", func(t *testing.T) {
		jobs := &fakeQueueMaintenance{resetErr: errs.New("db down")}

		p := campaign.NewMaintenanceProcessor(
			newFakeListingStore(), newFakeWatchStore(), jobs, clock.NewMockClock(noon), slog.Default(), queueCfg)
		err := p.Run(ctx)

		require.Error(t, err)
		assert.Equal(t, 1, jobs.purges)
	})
}
