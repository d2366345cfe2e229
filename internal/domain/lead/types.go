package lead

import (
	"time"

	"github.com/google/uuid"
)

type Segment string

const (
	SegmentHot     Segment = "hot"
	SegmentWarm    Segment = "warm"
	SegmentCold    Segment = "cold"
	SegmentDormant Segment = "dormant"
)

type InteractionKind string

const (
	KindView     InteractionKind = "view"
	KindFavorite InteractionKind = "favorite"
	KindMessage  InteractionKind = "message"
)

// Value returns the engagement weight of an interaction kind.
func (k InteractionKind) Value() int {
	switch k {
	case KindView:
		return 1
	case KindFavorite:
		return 3
	case KindMessage:
		return 5
	default:
		return 0
	}
}

// HighValueThreshold marks interactions that indicate purchase intent.
const HighValueThreshold = 5

type Interaction struct {
	Kind       InteractionKind
	ListingID  uuid.UUID
	Brand      string
	City       string
	PriceCents int64 // 0 when the listing price is unknown
	OccurredAt time.Time
}

type PriceRange struct {
	MinCents int64
	MaxCents int64
}

type Preferences struct {
	Brands     []string
	Cities     []string
	PriceRange *PriceRange // nil when no priced interactions exist
}

// Profile is recomputed from interaction history on every run; it is never
// persisted as its own record.
type Profile struct {
	UserID                uuid.UUID
	Score                 int // 0..100
	Segment               Segment
	LastActivity          time.Time // zero when no interactions exist
	HighValueCount        int
	ActiveDays            int
	ConversionProbability float64 // 0.0..0.95
	Preferences           Preferences
}
