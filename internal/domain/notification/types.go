package notification

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryHotLead         Category = "hot_lead"
	CategoryWarmLead        Category = "warm_lead"
	CategoryColdLead        Category = "cold_lead"
	CategoryWinBack         Category = "win_back"
	CategoryPriceDrop       Category = "price_drop"
	CategoryPriceDropUrgent Category = "price_drop_urgent"
	CategorySavedSearch     Category = "saved_search_digest"
	CategoryExpiryReminder  Category = "expiry_reminder"
	CategoryExpiryFinal     Category = "expiry_final_notice"
	CategoryUnderperforming Category = "underperforming_listing"
	CategoryWelcome         Category = "welcome"
	CategoryReEngagement    Category = "re_engagement"
	CategoryRecommendations Category = "recommendations"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Entry is one row of the append-only notification log.
type Entry struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Automation string // which campaign produced the send
	Category   Category
	Channel    Channel
	Status     Status
	SentAt     time.Time
}

// Preferences is a user's notification configuration with all defaults
// resolved at load time; consumers never null-check its fields.
type Preferences struct {
	EmailEnabled   bool
	SMSEnabled     bool
	EmailAddress   string
	PhoneNumber    string
	QuietEnabled   bool
	QuietStartHour int // 0..23
	QuietEndHour   int // 0..23, may be below start (wraps midnight)
}
