package notification

import (
	"time"
)

// urgentCategories always bypass quiet hours and are the only categories
// eligible for the short-message channel. One uniform rule, applied by every
// processor through this package.
var urgentCategories = map[Category]bool{
	CategoryPriceDropUrgent: true,
	CategoryExpiryFinal:     true,
}

const defaultWindow = 24 * time.Hour

// Policy answers the rate-limiting and routing questions for one category:
// how long the dedup window is, whether it is urgent, and which channel a
// given user should receive it on.
type Policy struct {
	windows map[Category]time.Duration
}

func NewPolicy(windows map[Category]time.Duration) *Policy {
	w := make(map[Category]time.Duration, len(windows))
	for c, d := range windows {
		w[c] = d
	}
	return &Policy{windows: w}
}

// Window returns the per-category minimum interval between repeat sends to
// the same user.
func (p *Policy) Window(c Category) time.Duration {
	if d, ok := p.windows[c]; ok {
		return d
	}
	return defaultWindow
}

func (p *Policy) IsUrgent(c Category) bool {
	return urgentCategories[c]
}

// InQuietHours reports whether now falls inside the user's quiet window.
// A window may wrap midnight (start 22, end 8). Equal start and end means
// the window is empty.
func InQuietHours(prefs Preferences, now time.Time) bool {
	if !prefs.QuietEnabled || prefs.QuietStartHour == prefs.QuietEndHour {
		return false
	}
	h := now.Hour()
	if prefs.QuietStartHour < prefs.QuietEndHour {
		return h >= prefs.QuietStartHour && h < prefs.QuietEndHour
	}
	return h >= prefs.QuietStartHour || h < prefs.QuietEndHour
}

// SelectChannel picks the outbound channel for a category given the user's
// preferences. Email is the default; the short-message channel is reserved
// for urgent categories when the user opted in and left a phone number.
func (p *Policy) SelectChannel(c Category, prefs Preferences) (Channel, bool) {
	if p.IsUrgent(c) && prefs.SMSEnabled && prefs.PhoneNumber != "" {
		return ChannelSMS, true
	}
	if prefs.EmailEnabled && prefs.EmailAddress != "" {
		return ChannelEmail, true
	}
	return "", false
}

// Suppressed reports whether a send of this category must be withheld at the
// given time because of quiet hours. Urgent categories are never suppressed.
func (p *Policy) Suppressed(c Category, prefs Preferences, now time.Time) bool {
	if p.IsUrgent(c) {
		return false
	}
	return InQuietHours(prefs, now)
}
