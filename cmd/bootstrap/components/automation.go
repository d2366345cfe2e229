package components

import (
	"context"
	"log/slog"
	"os"
	"time"

	"marketpulse/internal/cache"
	"marketpulse/internal/campaign"
	"marketpulse/internal/channel"
	"marketpulse/internal/dispatch"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/lock"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/config"
	"marketpulse/internal/queue"
	"marketpulse/internal/queue/handlers"
	"marketpulse/internal/scheduler"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var AutomationModule = fx.Module("automation",
	fx.Provide(
		clock.NewRealClock,
		NewPolicy,
		NewDispatcher,
		NewProfileCache,
		NewScheduler,
		NewDrainer,
		handlers.NewRegistry,
		campaign.NewSavedSearchProcessor,
		campaign.NewPriceDropProcessor,
		campaign.NewLifecycleProcessor,
		campaign.NewEngagementProcessor,
		campaign.NewNurtureProcessor,
		campaign.NewPromotionProcessor,
		NewMaintenanceProcessor,
		NewCampaignConfig,
		NewQueueConfig,
	),
	fx.Invoke(
		RegisterJobHandlers,
		RegisterTasks,
		StartAutomation,
	),
)

func NewCampaignConfig(cfg config.Config) config.CampaignConfig {
	return cfg.Campaign
}

func NewQueueConfig(cfg config.Config) config.QueueConfig {
	return cfg.Queue
}

func NewPolicy(cfg config.Config) *notification.Policy {
	return notification.NewPolicy(map[notification.Category]time.Duration{
		notification.CategoryHotLead:         cfg.Dedup.HotLead,
		notification.CategoryWarmLead:        cfg.Dedup.WarmLead,
		notification.CategoryColdLead:        cfg.Dedup.ColdLead,
		notification.CategoryWinBack:         cfg.Dedup.WinBack,
		notification.CategoryPriceDrop:       cfg.Dedup.PriceDrop,
		notification.CategoryPriceDropUrgent: cfg.Dedup.PriceDropUrgent,
		notification.CategorySavedSearch:     cfg.Dedup.SavedSearch,
		notification.CategoryExpiryReminder:  cfg.Dedup.ExpiryReminder,
		notification.CategoryExpiryFinal:     cfg.Dedup.ExpiryFinal,
		notification.CategoryUnderperforming: cfg.Dedup.Underperforming,
		notification.CategoryWelcome:         cfg.Dedup.Welcome,
		notification.CategoryReEngagement:    cfg.Dedup.ReEngagement,
		notification.CategoryRecommendations: cfg.Dedup.Recommendations,
	})
}

func NewDispatcher(log dispatch.LogStore, policy *notification.Policy, cfg config.Config, clk clock.Clock, logger *slog.Logger) (*dispatch.Dispatcher, campaign.Notifier) {
	d := dispatch.New(
		log,
		policy,
		channel.NewEmailChannel(cfg.Email),
		channel.NewSMSChannel(cfg.SMS),
		clk,
		logger,
	)
	return d, d
}

func NewProfileCache(rdb *redis.Client, cfg config.Config) campaign.ProfileCache {
	return cache.NewProfileCache(rdb, cfg.Campaign.ProfileCacheTTL)
}

func NewScheduler(cfg config.Config, rdb *redis.Client, clk clock.Clock, logger *slog.Logger) (*scheduler.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}

	var locker scheduler.Locker
	if cfg.Scheduler.DistributedLocks {
		hostname, _ := os.Hostname()
		locker = lock.NewManager(rdb, hostname+"-"+uuid.NewString())
	}

	return scheduler.New(loc, clk, logger, locker, cfg.Scheduler.LeaseTTL), nil
}

func NewDrainer(store queue.Store, cfg config.Config, clk clock.Clock, logger *slog.Logger) *queue.Drainer {
	return queue.NewDrainer(store, clk, logger, cfg.Queue.DrainInterval, cfg.Queue.BatchSize, cfg.Queue.RetryDelay)
}

func NewMaintenanceProcessor(listings campaign.ListingStore, watches campaign.WatchStore, store queue.Store, clk clock.Clock, logger *slog.Logger, cfg config.QueueConfig) *campaign.MaintenanceProcessor {
	return campaign.NewMaintenanceProcessor(listings, watches, store, clk, logger, cfg)
}

func RegisterJobHandlers(registry *handlers.Registry, drainer *queue.Drainer) {
	registry.RegisterAll(drainer)
}

// RegisterTasks binds every campaign processor to its cron spec. Task names
// are the stable identifiers the operational API addresses.
func RegisterTasks(
	sched *scheduler.Scheduler,
	cfg config.Config,
	savedSearch *campaign.SavedSearchProcessor,
	priceDrop *campaign.PriceDropProcessor,
	lifecycle *campaign.LifecycleProcessor,
	engagement *campaign.EngagementProcessor,
	nurture *campaign.NurtureProcessor,
	promotion *campaign.PromotionProcessor,
	maintenance *campaign.MaintenanceProcessor,
) error {
	tasks := []struct {
		name string
		spec string
		fn   scheduler.TaskFunc
	}{
		{campaign.AutomationSavedSearch, cfg.Scheduler.SavedSearchSpec, savedSearch.Run},
		{campaign.AutomationPriceDrop, cfg.Scheduler.PriceDropSpec, priceDrop.Run},
		{campaign.AutomationLifecycle, cfg.Scheduler.LifecycleSpec, lifecycle.Run},
		{campaign.AutomationEngagement, cfg.Scheduler.EngagementSpec, engagement.Run},
		{campaign.AutomationNurture, cfg.Scheduler.NurtureSpec, nurture.Run},
		{campaign.AutomationPromotion, cfg.Scheduler.PromotionSpec, promotion.Run},
		{campaign.AutomationMaintenance, cfg.Scheduler.MaintenanceSpec, maintenance.Run},
	}
	for _, t := range tasks {
		if err := sched.Register(t.name, t.spec, t.fn); err != nil {
			return err
		}
	}
	return nil
}

func StartAutomation(lc fx.Lifecycle, sched *scheduler.Scheduler, drainer *queue.Drainer, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sched.Start()
			drainer.Start()
			logger.Info("automation core started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			sched.Stop()
			drainer.Stop()
			logger.Info("automation core stopped")
			return nil
		},
	})
}
