package campaign

import (
	"context"
	"log/slog"
	"time"

	"marketpulse/internal/content"
	"marketpulse/internal/dispatch"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
)

const AutomationEngagement = "engagement"

// Inactivity bands for the engagement ladder. Users inactive beyond the
// churn horizon are considered lost and receive nothing.
const (
	welcomeMaxAge  = 7 * 24 * time.Hour
	reEngageAfter  = 14 * 24 * time.Hour
	winBackAfter   = 30 * 24 * time.Hour
	churnedHorizon = 90 * 24 * time.Hour
)

// EngagementProcessor walks the user base and sends the message matching each
// user's position on the engagement ladder: welcome for new signups, then
// escalating nudges as inactivity grows.
type EngagementProcessor struct {
	users    UserStore
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	batch    int32
}

func NewEngagementProcessor(
	users UserStore,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.CampaignConfig,
) *EngagementProcessor {
	return &EngagementProcessor{
		users:    users,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		batch:    cfg.ScanBatchSize,
	}
}

func (p *EngagementProcessor) Run(ctx context.Context) error {
	now := p.clock.Now()

	users, err := p.users.ScanUsers(ctx, p.batch)
	if err != nil {
		return err
	}

	var sent int
	for _, u := range users {
		category, msg, ok := p.pick(u, now)
		if !ok {
			continue
		}
		delivered, err := p.notifier.Dispatch(ctx, AutomationEngagement, u.Recipient(), category, msg)
		if err != nil {
			p.logger.Error("engagement send failed", "user_id", u.ID, "category", category, "error", err)
			continue
		}
		if delivered {
			sent++
		}
	}

	p.logger.Info("engagement run complete", "scanned", len(users), "sent", sent)
	return nil
}

// pick chooses the rung for one user. Recent signups get the welcome message
// regardless of activity; after that the inactivity gap decides, and users
// silent past the churn horizon are skipped entirely.
func (p *EngagementProcessor) pick(u UserRow, now time.Time) (notification.Category, dispatch.Message, bool) {
	if now.Sub(u.CreatedAt) <= welcomeMaxAge {
		return notification.CategoryWelcome, content.Welcome(), true
	}

	lastActivity := u.LastActivityAt
	if lastActivity.IsZero() {
		lastActivity = u.CreatedAt
	}
	gap := now.Sub(lastActivity)

	switch {
	case gap <= reEngageAfter:
		return "", dispatch.Message{}, false
	case gap <= winBackAfter:
		return notification.CategoryReEngagement, content.ReEngagement(), true
	case gap <= churnedHorizon:
		return notification.CategoryWinBack, content.WinBack(), true
	default:
		return "", dispatch.Message{}, false
	}
}
