//go:build unit

package campaign_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromotionProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("queues one staggered post per surface per candidate", func(t *testing.T) {
		listings := newFakeListingStore()
		listings.candidates = []campaign.ListingRow{
			{ID: uuid.New(), Title: "Road bike", Status: campaign.ListingStatusActive},
			{ID: uuid.New(), Title: "Armchair", Status: campaign.ListingStatusActive},
		}
		jobs := &fakeJobs{}
		p := campaign.NewPromotionProcessor(listings, jobs, clock.NewMockClock(noon), slog.Default(), campaignConfig())

		require.NoError(t, p.Run(ctx))

		// 2 candidates x 3 surfaces
		require.Len(t, jobs.enqueued, 6)
		for _, j := range jobs.enqueued {
			assert.Equal(t, "content.post", j.Kind)
		}

		// Posts for one listing are staggered 15 minutes apart.
		assert.Equal(t, noon, jobs.enqueued[0].RunAt)
		assert.Equal(t, noon.Add(15*time.Minute), jobs.enqueued[1].RunAt)
		assert.Equal(t, noon.Add(30*time.Minute), jobs.enqueued[2].RunAt)

		var payload struct {
			ListingID string `json:"listing_id"`
			Surface   string `json:"surface"`
		}
		require.NoError(t, json.Unmarshal(jobs.enqueued[0].Payload, &payload))
		assert.Equal(t, listings.candidates[0].ID.String(), payload.ListingID)
		assert.Equal(t, "feed", payload.Surface)
	})

	t.Run("no candidates queues nothing", func(t *testing.T) {
		jobs := &fakeJobs{}
		p := campaign.NewPromotionProcessor(newFakeListingStore(), jobs, clock.NewMockClock(noon), slog.Default(), campaignConfig())

		require.NoError(t, p.Run(ctx))

		assert.Empty(t, jobs.enqueued)
	})
}
