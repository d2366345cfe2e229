package lead

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// ScoreWindow is the trailing window interactions count toward the score.
	ScoreWindow = 30 * 24 * time.Hour

	maxScore          = 100
	frequencyPerDay   = 2
	maxFrequencyBonus = 20

	hotMinScore  = 50
	warmMinScore = 30

	recentActivityWindow  = 7 * 24 * time.Hour
	dormantActivityWindow = 30 * 24 * time.Hour
)

// Conversion probability base rates per segment, scaled by score/100 with an
// additive bonus per high-value interaction, capped at MaxConversionProbability.
const (
	baseRateHot     = 0.70
	baseRateWarm    = 0.40
	baseRateCold    = 0.15
	baseRateDormant = 0.05

	highValueConversionBonus = 0.05

	MaxConversionProbability = 0.95
)

// Classify computes a lead profile from a user's interaction history. It is
// pure: the same interactions and reference time always yield the same profile.
func Classify(userID uuid.UUID, interactions []Interaction, now time.Time) Profile {
	p := Profile{UserID: userID}

	windowStart := now.Add(-ScoreWindow)
	activeDays := make(map[string]struct{})

	var base int
	for _, in := range interactions {
		if in.OccurredAt.After(p.LastActivity) {
			p.LastActivity = in.OccurredAt
		}
		if in.OccurredAt.Before(windowStart) || in.OccurredAt.After(now) {
			continue
		}
		base += in.Kind.Value()
		if in.Kind.Value() >= HighValueThreshold {
			p.HighValueCount++
		}
		activeDays[in.OccurredAt.Format("2006-01-02")] = struct{}{}
	}
	p.ActiveDays = len(activeDays)

	score := base + recencyBonus(p.LastActivity, now) + frequencyBonus(p.ActiveDays)
	p.Score = clamp(score, 0, maxScore)

	p.Segment = segment(p.Score, p.LastActivity, p.HighValueCount > 0, now)
	p.ConversionProbability = conversionProbability(p.Segment, p.Score, p.HighValueCount)
	p.Preferences = extractPreferences(interactions)

	return p
}

// recencyBonus is tiered: most recent activity counts the most, decaying to
// nothing beyond the score window.
func recencyBonus(lastActivity, now time.Time) int {
	if lastActivity.IsZero() {
		return 0
	}
	age := now.Sub(lastActivity)
	switch {
	case age <= 24*time.Hour:
		return 20
	case age <= 7*24*time.Hour:
		return 10
	case age <= 14*24*time.Hour:
		return 5
	case age <= 30*24*time.Hour:
		return 2
	default:
		return 0
	}
}

func frequencyBonus(activeDays int) int {
	bonus := activeDays * frequencyPerDay
	if bonus > maxFrequencyBonus {
		bonus = maxFrequencyBonus
	}
	return bonus
}

// segment assigns the engagement tier. Precedence: dormant, hot, warm, cold.
func segment(score int, lastActivity time.Time, hasHighValue bool, now time.Time) Segment {
	if lastActivity.IsZero() || now.Sub(lastActivity) > dormantActivityWindow {
		return SegmentDormant
	}
	recentlyActive := now.Sub(lastActivity) <= recentActivityWindow
	if score >= hotMinScore && hasHighValue && recentlyActive {
		return SegmentHot
	}
	if score >= warmMinScore && recentlyActive {
		return SegmentWarm
	}
	return SegmentCold
}

func conversionProbability(seg Segment, score int, highValueCount int) float64 {
	var base float64
	switch seg {
	case SegmentHot:
		base = baseRateHot
	case SegmentWarm:
		base = baseRateWarm
	case SegmentCold:
		base = baseRateCold
	default:
		base = baseRateDormant
	}

	p := base*(float64(score)/100.0) + float64(highValueCount)*highValueConversionBonus
	if p > MaxConversionProbability {
		p = MaxConversionProbability
	}
	if p < 0 {
		p = 0
	}
	return p
}

// extractPreferences aggregates brands and cities from favorites and messages
// (views are too weak a signal), most frequent first, and derives a price
// range of mean observed price ±20%.
func extractPreferences(interactions []Interaction) Preferences {
	var prefs Preferences

	brandCounts := make(map[string]int)
	cityCounts := make(map[string]int)
	var priceSum int64
	var priced int64

	for _, in := range interactions {
		if in.Kind != KindFavorite && in.Kind != KindMessage {
			continue
		}
		if in.Brand != "" {
			brandCounts[in.Brand]++
		}
		if in.City != "" {
			cityCounts[in.City]++
		}
		if in.PriceCents > 0 {
			priceSum += in.PriceCents
			priced++
		}
	}

	prefs.Brands = rankedKeys(brandCounts)
	prefs.Cities = rankedKeys(cityCounts)

	if priced > 0 {
		mean := priceSum / priced
		prefs.PriceRange = &PriceRange{
			MinCents: mean * 80 / 100,
			MaxCents: mean * 120 / 100,
		}
	}

	return prefs
}

func rankedKeys(counts map[string]int) []string {
	if len(counts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
