package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (timezone, windows, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Log       LogConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Scheduler SchedulerConfig
	Queue     QueueConfig
	Dedup     DedupConfig
	Quiet     QuietHoursConfig
	Campaign  CampaignConfig
	Email     EmailConfig
	SMS       SMSConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
}

type RedisConfig struct {
	URL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type AuthConfig struct {
	// HS256 secret for operator bearer tokens on the ops API.
	OperatorSecret string `envconfig:"OPERATOR_TOKEN_SECRET" required:"true"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PATCH,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Authorization"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"false"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

// SchedulerConfig maps task names to cron specs (minute hour dom month dow),
// all evaluated in Timezone.
type SchedulerConfig struct {
	Timezone         string        `envconfig:"SCHED_TIMEZONE" default:"UTC"`
	SavedSearchSpec  string        `envconfig:"SCHED_SAVED_SEARCH_SPEC" default:"0 8 * * *"`
	PriceDropSpec    string        `envconfig:"SCHED_PRICE_DROP_SPEC" default:"*/15 * * * *"`
	LifecycleSpec    string        `envconfig:"SCHED_LIFECYCLE_SPEC" default:"0 9 * * *"`
	EngagementSpec   string        `envconfig:"SCHED_ENGAGEMENT_SPEC" default:"0 10 * * *"`
	NurtureSpec      string        `envconfig:"SCHED_NURTURE_SPEC" default:"30 10 * * *"`
	PromotionSpec    string        `envconfig:"SCHED_PROMOTION_SPEC" default:"0 */6 * * *"`
	MaintenanceSpec  string        `envconfig:"SCHED_MAINTENANCE_SPEC" default:"30 3 * * *"`
	LeaseTTL         time.Duration `envconfig:"SCHED_LEASE_TTL" default:"5m"`
	DistributedLocks bool          `envconfig:"SCHED_DISTRIBUTED_LOCKS" default:"false"`
}

type QueueConfig struct {
	DrainInterval time.Duration `envconfig:"QUEUE_DRAIN_INTERVAL" default:"1m"`
	BatchSize     int32         `envconfig:"QUEUE_BATCH_SIZE" default:"10"`
	RetryDelay    time.Duration `envconfig:"QUEUE_RETRY_DELAY" default:"30m"`
	StaleRunning  time.Duration `envconfig:"QUEUE_STALE_RUNNING" default:"1h"`
	CompletedTTL  time.Duration `envconfig:"QUEUE_COMPLETED_TTL" default:"168h"`
}

// DedupConfig holds the per-category minimum interval between repeat sends
// to the same user. ExpiryReminder must stay under the 96h gap between the
// 7-day and 3-day expiry rungs, or the 3-day reminder is always deduped away.
type DedupConfig struct {
	HotLead         time.Duration `envconfig:"DEDUP_HOT_LEAD" default:"168h"`
	WarmLead        time.Duration `envconfig:"DEDUP_WARM_LEAD" default:"240h"`
	ColdLead        time.Duration `envconfig:"DEDUP_COLD_LEAD" default:"504h"`
	WinBack         time.Duration `envconfig:"DEDUP_WIN_BACK" default:"1440h"`
	PriceDrop       time.Duration `envconfig:"DEDUP_PRICE_DROP" default:"336h"`
	PriceDropUrgent time.Duration `envconfig:"DEDUP_PRICE_DROP_URGENT" default:"72h"`
	SavedSearch     time.Duration `envconfig:"DEDUP_SAVED_SEARCH" default:"20h"`
	ExpiryReminder  time.Duration `envconfig:"DEDUP_EXPIRY_REMINDER" default:"72h"`
	ExpiryFinal     time.Duration `envconfig:"DEDUP_EXPIRY_FINAL" default:"72h"`
	Underperforming time.Duration `envconfig:"DEDUP_UNDERPERFORMING" default:"336h"`
	Welcome         time.Duration `envconfig:"DEDUP_WELCOME" default:"8760h"`
	ReEngagement    time.Duration `envconfig:"DEDUP_RE_ENGAGEMENT" default:"720h"`
	Recommendations time.Duration `envconfig:"DEDUP_RECOMMENDATIONS" default:"72h"`
}

type QuietHoursConfig struct {
	DefaultStartHour int `envconfig:"QUIET_DEFAULT_START_HOUR" default:"22"`
	DefaultEndHour   int `envconfig:"QUIET_DEFAULT_END_HOUR" default:"8"`
}

type CampaignConfig struct {
	// Price drops at or above either threshold use the urgent category.
	UrgentDropCents   int64   `envconfig:"CAMPAIGN_URGENT_DROP_CENTS" default:"50000"`
	UrgentDropPercent float64 `envconfig:"CAMPAIGN_URGENT_DROP_PERCENT" default:"15"`

	ExpiryLeadDays []int `envconfig:"CAMPAIGN_EXPIRY_LEAD_DAYS" default:"7,3,1"`

	// Underperforming listing thresholds.
	MinListingAgeDays   int     `envconfig:"CAMPAIGN_MIN_LISTING_AGE_DAYS" default:"7"`
	MinViewsPerDay      float64 `envconfig:"CAMPAIGN_MIN_VIEWS_PER_DAY" default:"3"`
	MinMessageViewRatio float64 `envconfig:"CAMPAIGN_MIN_MESSAGE_VIEW_RATIO" default:"0.02"`

	PromotionPerRun   int           `envconfig:"CAMPAIGN_PROMOTION_PER_RUN" default:"3"`
	PromotionSurfaces []string      `envconfig:"CAMPAIGN_PROMOTION_SURFACES" default:"feed,social,newsletter"`
	PromotionStagger  time.Duration `envconfig:"CAMPAIGN_PROMOTION_STAGGER" default:"15m"`

	ScanBatchSize int32 `envconfig:"CAMPAIGN_SCAN_BATCH_SIZE" default:"200"`

	ProfileCacheTTL time.Duration `envconfig:"CAMPAIGN_PROFILE_CACHE_TTL" default:"1h"`
}

type EmailConfig struct {
	SMTPHost string `envconfig:"EMAIL_SMTP_HOST" default:"localhost"`
	SMTPPort string `envconfig:"EMAIL_SMTP_PORT" default:"587"`
	From     string `envconfig:"EMAIL_FROM" default:"noreply@marketpulse.local"`
	Username string `envconfig:"EMAIL_USERNAME" default:""`
	Password string `envconfig:"EMAIL_PASSWORD" default:""`
}

type SMSConfig struct {
	GatewayURL string        `envconfig:"SMS_GATEWAY_URL" default:""`
	APIToken   string        `envconfig:"SMS_API_TOKEN" default:""`
	Timeout    time.Duration `envconfig:"SMS_TIMEOUT" default:"10s"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	cfg := Config{
		Server: ServerConfig{
			Port: "8889", // Test port
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
		},
		Log: LogConfig{
			Level: "error", // Error level only for tests
		},
		Auth: AuthConfig{
			OperatorSecret: "test-operator-secret",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		},
	}
	cfg.Scheduler = SchedulerConfig{
		Timezone:        "UTC",
		SavedSearchSpec: "0 8 * * *",
		PriceDropSpec:   "*/15 * * * *",
		LifecycleSpec:   "0 9 * * *",
		EngagementSpec:  "0 10 * * *",
		NurtureSpec:     "30 10 * * *",
		PromotionSpec:   "0 */6 * * *",
		MaintenanceSpec: "30 3 * * *",
		LeaseTTL:        5 * time.Minute,
	}
	cfg.Queue = QueueConfig{
		DrainInterval: time.Minute,
		BatchSize:     10,
		RetryDelay:    30 * time.Minute,
		StaleRunning:  time.Hour,
		CompletedTTL:  7 * 24 * time.Hour,
	}
	cfg.Dedup = DedupConfig{
		HotLead:         7 * 24 * time.Hour,
		WarmLead:        10 * 24 * time.Hour,
		ColdLead:        21 * 24 * time.Hour,
		WinBack:         60 * 24 * time.Hour,
		PriceDrop:       14 * 24 * time.Hour,
		PriceDropUrgent: 3 * 24 * time.Hour,
		SavedSearch:     20 * time.Hour,
		ExpiryReminder:  72 * time.Hour,
		ExpiryFinal:     3 * 24 * time.Hour,
		Underperforming: 14 * 24 * time.Hour,
		Welcome:         365 * 24 * time.Hour,
		ReEngagement:    30 * 24 * time.Hour,
		Recommendations: 72 * time.Hour,
	}
	cfg.Quiet = QuietHoursConfig{DefaultStartHour: 22, DefaultEndHour: 8}
	cfg.Campaign = CampaignConfig{
		UrgentDropCents:     50000,
		UrgentDropPercent:   15,
		ExpiryLeadDays:      []int{7, 3, 1},
		MinListingAgeDays:   7,
		MinViewsPerDay:      3,
		MinMessageViewRatio: 0.02,
		PromotionPerRun:     3,
		PromotionSurfaces:   []string{"feed", "social", "newsletter"},
		PromotionStagger:    15 * time.Minute,
		ScanBatchSize:       200,
		ProfileCacheTTL:     time.Hour,
	}
	return cfg
}
