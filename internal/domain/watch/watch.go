package watch

import (
	"time"

	"github.com/google/uuid"
)

// PriceWatch tracks price movement on one listing for one user. At most one
// active watch exists per (user, listing) pair.
type PriceWatch struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	ListingID         uuid.UUID
	BaselineCents     int64
	LastObservedCents int64
	MinDropCents      int64
	MinDropPercent    float64
	Active            bool
	AlertsTriggered   int
	LastCheckedAt     time.Time
}

func New(userID, listingID uuid.UUID, priceCents, minDropCents int64, minDropPercent float64, now time.Time) *PriceWatch {
	return &PriceWatch{
		ID:                uuid.New(),
		UserID:            userID,
		ListingID:         listingID,
		BaselineCents:     priceCents,
		LastObservedCents: priceCents,
		MinDropCents:      minDropCents,
		MinDropPercent:    minDropPercent,
		Active:            true,
		LastCheckedAt:     now,
	}
}

type Evaluation struct {
	Triggered    bool
	PriceChanged bool
	DropCents    int64
	DropPercent  float64
}

// Evaluate compares the current listing price against the last observed price
// (not the original baseline) without mutating the watch. Either threshold
// suffices to trigger; a threshold of zero or below disables that criterion.
func (w *PriceWatch) Evaluate(currentCents int64) Evaluation {
	ev := Evaluation{PriceChanged: currentCents != w.LastObservedCents}

	if currentCents >= w.LastObservedCents {
		return ev
	}

	ev.DropCents = w.LastObservedCents - currentCents
	ev.DropPercent = float64(ev.DropCents) / float64(w.LastObservedCents) * 100

	if w.MinDropCents > 0 && ev.DropCents >= w.MinDropCents {
		ev.Triggered = true
	}
	if w.MinDropPercent > 0 && ev.DropPercent >= w.MinDropPercent {
		ev.Triggered = true
	}
	return ev
}

// Observe records the current price so future comparisons run against the
// latest observation, and counts the alert when one was triggered.
func (w *PriceWatch) Observe(currentCents int64, triggered bool, now time.Time) {
	w.LastObservedCents = currentCents
	w.LastCheckedAt = now
	if triggered {
		w.AlertsTriggered++
	}
}

// Deactivate marks the watch inactive; the row is kept so a re-watch can
// reactivate it instead of inserting a duplicate pair.
func (w *PriceWatch) Deactivate() {
	w.Active = false
}

// Reactivate re-arms an inactive watch against a fresh baseline.
func (w *PriceWatch) Reactivate(priceCents int64, now time.Time) {
	w.Active = true
	w.BaselineCents = priceCents
	w.LastObservedCents = priceCents
	w.LastCheckedAt = now
}
