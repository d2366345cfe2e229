package campaign

import (
	"context"
	"log/slog"
	"time"

	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
)

const AutomationMaintenance = "maintenance"

// QueueMaintenance is the janitorial subset of the job store. Satisfied by
// the queue store implementation.
type QueueMaintenance interface {
	ResetStaleRunning(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeCompleted(ctx context.Context, olderThan time.Time) (int64, error)
}

// MaintenanceProcessor is the nightly janitor: expires overdue listings,
// deactivates watches on terminal listings, requeues jobs stuck in running,
// and purges old completed jobs. Each step runs even when an earlier one
// fails.
type MaintenanceProcessor struct {
	listings ListingStore
	watches  WatchStore
	jobs     QueueMaintenance
	clock    clock.Clock
	logger   *slog.Logger

	staleRunning time.Duration
	completedTTL time.Duration
}

func NewMaintenanceProcessor(
	listings ListingStore,
	watches WatchStore,
	jobs QueueMaintenance,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.QueueConfig,
) *MaintenanceProcessor {
	return &MaintenanceProcessor{
		listings:     listings,
		watches:      watches,
		jobs:         jobs,
		clock:        clk,
		logger:       logger,
		staleRunning: cfg.StaleRunning,
		completedTTL: cfg.CompletedTTL,
	}
}

func (p *MaintenanceProcessor) Run(ctx context.Context) error {
	now := p.clock.Now()
	var lastErr error

	expired, err := p.listings.SweepExpired(ctx, now)
	if err != nil {
		p.logger.Error("expired listing sweep failed", "error", err)
		lastErr = err
	}

	deactivated, err := p.watches.DeactivateForTerminalListings(ctx)
	if err != nil {
		p.logger.Error("terminal watch deactivation failed", "error", err)
		lastErr = err
	}

	requeued, err := p.jobs.ResetStaleRunning(ctx, now.Add(-p.staleRunning))
	if err != nil {
		p.logger.Error("stale job reset failed", "error", err)
		lastErr = err
	}

	purged, err := p.jobs.PurgeCompleted(ctx, now.Add(-p.completedTTL))
	if err != nil {
		p.logger.Error("completed job purge failed", "error", err)
		lastErr = err
	}

	p.logger.Info("maintenance run complete",
		"listings_expired", expired,
		"watches_deactivated", deactivated,
		"jobs_requeued", requeued,
		"jobs_purged", purged,
	)
	return lastErr
}
