package campaign

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
)

const AutomationPromotion = "promotion"

// PromotionProcessor picks the best promotion candidates and queues one
// content post job per surface, staggered so the posts don't land at once.
type PromotionProcessor struct {
	listings ListingStore
	jobs     Jobs
	clock    clock.Clock
	logger   *slog.Logger

	perRun   int
	surfaces []string
	stagger  time.Duration
}

func NewPromotionProcessor(
	listings ListingStore,
	jobs Jobs,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.CampaignConfig,
) *PromotionProcessor {
	return &PromotionProcessor{
		listings: listings,
		jobs:     jobs,
		clock:    clk,
		logger:   logger,
		perRun:   cfg.PromotionPerRun,
		surfaces: cfg.PromotionSurfaces,
		stagger:  cfg.PromotionStagger,
	}
}

type contentPostPayload struct {
	ListingID string `json:"listing_id"`
	Title     string `json:"title"`
	Surface   string `json:"surface"`
}

func (p *PromotionProcessor) Run(ctx context.Context) error {
	now := p.clock.Now()

	candidates, err := p.listings.PromotionCandidates(ctx, int32(p.perRun))
	if err != nil {
		return err
	}

	var queued int
	for _, l := range candidates {
		for i, surface := range p.surfaces {
			payload, _ := json.Marshal(contentPostPayload{
				ListingID: l.ID.String(),
				Title:     l.Title,
				Surface:   surface,
			})
			if _, err := p.jobs.Enqueue(ctx, JobRequest{
				Kind:    "content.post",
				Payload: payload,
				RunAt:   now.Add(time.Duration(i) * p.stagger),
			}); err != nil {
				p.logger.Error("failed to enqueue content post",
					"listing_id", l.ID, "surface", surface, "error", err)
				continue
			}
			queued++
		}
	}

	p.logger.Info("promotion run complete", "candidates", len(candidates), "posts_queued", queued)
	return nil
}
