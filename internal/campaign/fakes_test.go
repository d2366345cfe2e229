//go:build unit

package campaign_test

import (
	"context"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/dispatch"
	"marketpulse/internal/domain/lead"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/domain/watch"
	"marketpulse/internal/pkg/errs"

	"github.com/google/uuid"
)

var noon = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func reachableUser(id uuid.UUID) campaign.UserRow {
	return campaign.UserRow{
		ID:        id,
		CreatedAt: noon.Add(-60 * 24 * time.Hour),
		Prefs: notification.Preferences{
			EmailEnabled: true,
			EmailAddress: "user@example.com",
		},
	}
}

type dispatchRecord struct {
	Automation string
	UserID     uuid.UUID
	Category   notification.Category
	Message    dispatch.Message
}

// fakeNotifier dispatches everything unless a (user, category) pair was
// already dispatched, mimicking the dedup gate.
type fakeNotifier struct {
	dispatched []dispatchRecord
	seen       map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{seen: make(map[string]bool)}
}

func (f *fakeNotifier) key(userID uuid.UUID, category notification.Category) string {
	return userID.String() + "/" + string(category)
}

func (f *fakeNotifier) ShouldNotify(_ context.Context, userID uuid.UUID, category notification.Category) (bool, error) {
	return !f.seen[f.key(userID, category)], nil
}

func (f *fakeNotifier) Dispatch(_ context.Context, automation string, rcpt dispatch.Recipient, category notification.Category, msg dispatch.Message) (bool, error) {
	if f.seen[f.key(rcpt.UserID, category)] {
		return false, nil
	}
	f.seen[f.key(rcpt.UserID, category)] = true
	f.dispatched = append(f.dispatched, dispatchRecord{
		Automation: automation,
		UserID:     rcpt.UserID,
		Category:   category,
		Message:    msg,
	})
	return true, nil
}

func (f *fakeNotifier) categories() []notification.Category {
	out := make([]notification.Category, 0, len(f.dispatched))
	for _, d := range f.dispatched {
		out = append(out, d.Category)
	}
	return out
}

type fakeUserStore struct {
	users        map[uuid.UUID]campaign.UserRow
	interactions map[uuid.UUID][]lead.Interaction
}

func newFakeUserStore(users ...campaign.UserRow) *fakeUserStore {
	s := &fakeUserStore{
		users:        make(map[uuid.UUID]campaign.UserRow),
		interactions: make(map[uuid.UUID][]lead.Interaction),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) ScanUsers(_ context.Context, _ int32) ([]campaign.UserRow, error) {
	out := make([]campaign.UserRow, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeUserStore) UserByID(_ context.Context, id uuid.UUID) (campaign.UserRow, error) {
	u, ok := s.users[id]
	if !ok {
		return campaign.UserRow{}, errs.New("user not found")
	}
	return u, nil
}

func (s *fakeUserStore) InteractionsSince(_ context.Context, userID uuid.UUID, since time.Time) ([]lead.Interaction, error) {
	var out []lead.Interaction
	for _, in := range s.interactions[userID] {
		if !in.OccurredAt.Before(since) {
			out = append(out, in)
		}
	}
	return out, nil
}

type fakeWatchStore struct {
	watched map[uuid.UUID]*campaign.WatchedListing
	updates int
}

func newFakeWatchStore() *fakeWatchStore {
	return &fakeWatchStore{watched: make(map[uuid.UUID]*campaign.WatchedListing)}
}

func (s *fakeWatchStore) add(wl campaign.WatchedListing) {
	s.watched[wl.Watch.ID] = &wl
}

func (s *fakeWatchStore) ActiveWatches(_ context.Context, _ int32) ([]campaign.WatchedListing, error) {
	var out []campaign.WatchedListing
	for _, wl := range s.watched {
		if wl.Watch.Active {
			out = append(out, *wl)
		}
	}
	return out, nil
}

func (s *fakeWatchStore) Update(_ context.Context, w *watch.PriceWatch) error {
	s.watched[w.ID].Watch = *w
	s.updates++
	return nil
}

func (s *fakeWatchStore) DeactivateForTerminalListings(_ context.Context) (int64, error) {
	var n int64
	for _, wl := range s.watched {
		if wl.Watch.Active && wl.ListingStatus != campaign.ListingStatusActive {
			wl.Watch.Active = false
			n++
		}
	}
	return n, nil
}

type fakeListingStore struct {
	listings   map[uuid.UUID]campaign.ListingRow
	candidates []campaign.ListingRow
	matching   []campaign.ListingRow
	swept      int64
}

func newFakeListingStore(listings ...campaign.ListingRow) *fakeListingStore {
	s := &fakeListingStore{listings: make(map[uuid.UUID]campaign.ListingRow)}
	for _, l := range listings {
		s.listings[l.ID] = l
	}
	return s
}

func (s *fakeListingStore) ListingByID(_ context.Context, id uuid.UUID) (campaign.ListingRow, error) {
	l, ok := s.listings[id]
	if !ok {
		return campaign.ListingRow{}, errs.New("listing not found")
	}
	return l, nil
}

func (s *fakeListingStore) CreatedMatching(_ context.Context, _ campaign.SearchCriteria, since time.Time, _ int32) ([]campaign.ListingRow, error) {
	var out []campaign.ListingRow
	for _, l := range s.matching {
		if !l.CreatedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeListingStore) ExpiringBetween(_ context.Context, from, to time.Time) ([]campaign.ListingRow, error) {
	var out []campaign.ListingRow
	for _, l := range s.listings {
		if l.Status == campaign.ListingStatusActive && !l.ExpiresAt.Before(from) && l.ExpiresAt.Before(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeListingStore) ActiveOlderThan(_ context.Context, cutoff time.Time, _ int32) ([]campaign.ListingRow, error) {
	var out []campaign.ListingRow
	for _, l := range s.listings {
		if l.Status == campaign.ListingStatusActive && l.CreatedAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeListingStore) PromotionCandidates(_ context.Context, limit int32) ([]campaign.ListingRow, error) {
	out := s.candidates
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeListingStore) SweepExpired(_ context.Context, _ time.Time) (int64, error) {
	return s.swept, nil
}

type fakeJobs struct {
	enqueued []campaign.JobRequest
}

func (f *fakeJobs) Enqueue(_ context.Context, job campaign.JobRequest) (uuid.UUID, error) {
	f.enqueued = append(f.enqueued, job)
	return uuid.New(), nil
}

type fakeProfileCache struct {
	profiles map[uuid.UUID]lead.Profile
}

func newFakeProfileCache() *fakeProfileCache {
	return &fakeProfileCache{profiles: make(map[uuid.UUID]lead.Profile)}
}

func (f *fakeProfileCache) Set(_ context.Context, p lead.Profile) error {
	f.profiles[p.UserID] = p
	return nil
}

type fakeSavedSearchStore struct {
	due     []campaign.SavedSearchRow
	runs    map[uuid.UUID]int
	matched map[uuid.UUID]int64
}

func newFakeSavedSearchStore(due ...campaign.SavedSearchRow) *fakeSavedSearchStore {
	return &fakeSavedSearchStore{
		due:     due,
		runs:    make(map[uuid.UUID]int),
		matched: make(map[uuid.UUID]int64),
	}
}

func (s *fakeSavedSearchStore) DueSearches(_ context.Context, _ time.Time, _ int32) ([]campaign.SavedSearchRow, error) {
	return s.due, nil
}

func (s *fakeSavedSearchStore) MarkRun(_ context.Context, id uuid.UUID, _ time.Time, matched int64) error {
	s.runs[id]++
	s.matched[id] += matched
	return nil
}
