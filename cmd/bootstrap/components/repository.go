package components

import (
	"marketpulse/internal/campaign"
	"marketpulse/internal/dispatch"
	repo_impl "marketpulse/internal/infra/repository"
	"marketpulse/internal/pkg/config"
	"marketpulse/internal/queue"
	"marketpulse/internal/queue/handlers"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewUserRepository,
		fx.Annotate(
			repo_impl.NewListingRepository,
			fx.As(new(campaign.ListingStore)),
			fx.As(new(handlers.PromotionRecorder)),
		),
		fx.Annotate(
			repo_impl.NewWatchRepository,
			fx.As(new(campaign.WatchStore)),
		),
		fx.Annotate(
			repo_impl.NewSavedSearchRepository,
			fx.As(new(campaign.SavedSearchStore)),
		),
		fx.Annotate(
			repo_impl.NewNotificationLogRepository,
			fx.As(new(dispatch.LogStore)),
		),
		fx.Annotate(
			repo_impl.NewJobRepository,
			fx.As(new(queue.Store)),
		),
		fx.Annotate(
			repo_impl.NewCampaignJobs,
			fx.As(new(campaign.Jobs)),
		),
	),
)

func NewUserRepository(pool *pgxpool.Pool, cfg config.Config) campaign.UserStore {
	return repo_impl.NewUserRepository(pool, cfg.Quiet)
}
