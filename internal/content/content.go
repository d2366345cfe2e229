// Package content produces the message copy for every campaign. Templates
// are data: nothing in here touches dedup, scheduling or channel logic, and
// the dispatch core never formats copy itself.
package content

import (
	"fmt"
	"strings"

	"marketpulse/internal/dispatch"
	"marketpulse/internal/domain/lead"
)

func formatPrice(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func PriceDropAlert(title string, oldCents, newCents, dropCents int64, dropPercent float64) dispatch.Message {
	return dispatch.Message{
		Subject: fmt.Sprintf("Price drop: %s is now %s", title, formatPrice(newCents)),
		Body: fmt.Sprintf(
			"Good news! \"%s\" dropped from %s to %s. That's %s (%.1f%%) off the last price you were watching.",
			title, formatPrice(oldCents), formatPrice(newCents), formatPrice(dropCents), dropPercent,
		),
	}
}

func SavedSearchDigest(matchTitles []string, total int64) dispatch.Message {
	shown := matchTitles
	if len(shown) > 5 {
		shown = shown[:5]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your saved search has %d new match(es):\n\n", total)
	for _, t := range shown {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	if int64(len(shown)) < total {
		fmt.Fprintf(&b, "\n...and %d more.", total-int64(len(shown)))
	}
	return dispatch.Message{
		Subject: fmt.Sprintf("%d new listings match your saved search", total),
		Body:    b.String(),
	}
}

func ExpiryReminder(title string, daysLeft int) dispatch.Message {
	if daysLeft <= 1 {
		return dispatch.Message{
			Subject: fmt.Sprintf("Last day: \"%s\" expires tomorrow", title),
			Body: fmt.Sprintf(
				"Your listing \"%s\" expires within 24 hours. Renew it now to keep it visible.", title,
			),
		}
	}
	return dispatch.Message{
		Subject: fmt.Sprintf("\"%s\" expires in %d days", title, daysLeft),
		Body: fmt.Sprintf(
			"Your listing \"%s\" expires in %d days. Renew it to keep it in search results, or refresh the photos and price to attract more buyers before then.",
			title, daysLeft,
		),
	}
}

func UnderperformingListing(title string, viewsPerDay float64, messages int64) dispatch.Message {
	var suggestions []string
	if viewsPerDay < 1 {
		suggestions = append(suggestions, "add more photos and a detailed description")
	}
	suggestions = append(suggestions, "compare your price with similar listings")
	if messages == 0 {
		suggestions = append(suggestions, "enable messaging so buyers can reach you quickly")
	}
	return dispatch.Message{
		Subject: fmt.Sprintf("Tips to get more buyers for \"%s\"", title),
		Body: fmt.Sprintf(
			"Your listing \"%s\" is getting fewer views than similar listings. Suggestions: %s.",
			title, strings.Join(suggestions, "; "),
		),
	}
}

func Welcome() dispatch.Message {
	return dispatch.Message{
		Subject: "Welcome to Marketpulse!",
		Body:    "Thanks for joining. Save a search or favorite a listing and we'll alert you the moment something interesting happens.",
	}
}

func ReEngagement() dispatch.Message {
	return dispatch.Message{
		Subject: "New listings you might have missed",
		Body:    "It's been a while! Fresh listings matching your interests arrive every day. Come take a look.",
	}
}

func WinBack() dispatch.Message {
	return dispatch.Message{
		Subject: "We miss you: here's what's new",
		Body:    "A lot has changed since your last visit: new listings, better search, and price-drop alerts. Come see what's waiting for you.",
	}
}

// Nurture returns the campaign copy for a lead segment, personalised with the
// lead's strongest brand preference when one exists.
func Nurture(segment lead.Segment, prefs lead.Preferences) dispatch.Message {
	brand := ""
	if len(prefs.Brands) > 0 {
		brand = prefs.Brands[0]
	}
	switch segment {
	case lead.SegmentHot:
		subject := "Ready to buy? These listings won't last"
		if brand != "" {
			subject = fmt.Sprintf("Ready to buy? Top %s listings right now", brand)
		}
		return dispatch.Message{
			Subject: subject,
			Body:    "You've been looking closely. The listings you liked are attracting other buyers too. Act soon if you want first pick.",
		}
	case lead.SegmentWarm:
		return dispatch.Message{
			Subject: "Picked for you: listings matching your recent activity",
			Body:    "Based on what you've been viewing and saving, we found a few listings worth a closer look.",
		}
	case lead.SegmentCold:
		return dispatch.Message{
			Subject: "Still searching? Let us do the looking",
			Body:    "Save a search and we'll send matching listings straight to you, no more scrolling.",
		}
	default:
		return WinBack()
	}
}

func Recommendations(titles []string) dispatch.Message {
	var b strings.Builder
	b.WriteString("Fresh picks based on your favorites and messages:\n\n")
	for _, t := range titles {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	return dispatch.Message{
		Subject: "Recommended listings for you",
		Body:    b.String(),
	}
}
