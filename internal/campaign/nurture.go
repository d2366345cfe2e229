package campaign

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"marketpulse/internal/content"
	"marketpulse/internal/domain/lead"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
)

const AutomationNurture = "nurture"

const interactionWindow = 90 * 24 * time.Hour

// ProfileCache stores the latest classified profile per user for read paths
// outside the automation core. Writes are best effort.
type ProfileCache interface {
	Set(ctx context.Context, p lead.Profile) error
}

// NurtureProcessor classifies every scanned user from their recent
// interactions and sends the campaign matching the resulting segment. Hot
// leads additionally get a personalised recommendation job queued.
type NurtureProcessor struct {
	users    UserStore
	notifier Notifier
	jobs     Jobs
	cache    ProfileCache
	clock    clock.Clock
	logger   *slog.Logger
	batch    int32
}

func NewNurtureProcessor(
	users UserStore,
	notifier Notifier,
	jobs Jobs,
	cache ProfileCache,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.CampaignConfig,
) *NurtureProcessor {
	return &NurtureProcessor{
		users:    users,
		notifier: notifier,
		jobs:     jobs,
		cache:    cache,
		clock:    clk,
		logger:   logger,
		batch:    cfg.ScanBatchSize,
	}
}

func segmentCategory(s lead.Segment) notification.Category {
	switch s {
	case lead.SegmentHot:
		return notification.CategoryHotLead
	case lead.SegmentWarm:
		return notification.CategoryWarmLead
	case lead.SegmentCold:
		return notification.CategoryColdLead
	default:
		return notification.CategoryWinBack
	}
}

func (p *NurtureProcessor) Run(ctx context.Context) error {
	now := p.clock.Now()

	users, err := p.users.ScanUsers(ctx, p.batch)
	if err != nil {
		return err
	}

	var sent int
	for _, u := range users {
		delivered, err := p.processUser(ctx, u, now)
		if err != nil {
			p.logger.Error("nurture processing failed", "user_id", u.ID, "error", err)
			continue
		}
		if delivered {
			sent++
		}
	}

	p.logger.Info("nurture run complete", "scanned", len(users), "sent", sent)
	return nil
}

func (p *NurtureProcessor) processUser(ctx context.Context, u UserRow, now time.Time) (bool, error) {
	interactions, err := p.users.InteractionsSince(ctx, u.ID, now.Add(-interactionWindow))
	if err != nil {
		return false, err
	}

	profile := lead.Classify(u.ID, interactions, now)

	if p.cache != nil {
		if err := p.cache.Set(ctx, profile); err != nil {
			p.logger.Warn("profile cache write failed", "user_id", u.ID, "error", err)
		}
	}

	category := segmentCategory(profile.Segment)
	msg := content.Nurture(profile.Segment, profile.Preferences)

	delivered, err := p.notifier.Dispatch(ctx, AutomationNurture, u.Recipient(), category, msg)
	if err != nil {
		return delivered, err
	}

	if delivered && profile.Segment == lead.SegmentHot {
		payload, _ := json.Marshal(map[string]string{"user_id": u.ID.String()})
		userID := u.ID
		if _, err := p.jobs.Enqueue(ctx, JobRequest{
			Kind:     "recommendation.generate",
			Priority: 5,
			Payload:  payload,
			UserID:   &userID,
		}); err != nil {
			p.logger.Error("failed to enqueue recommendation job", "user_id", u.ID, "error", err)
		}
	}
	return delivered, nil
}
