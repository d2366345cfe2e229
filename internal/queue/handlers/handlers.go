// Package handlers implements the job kinds the drain loop dispatches.
// Handlers return an error to trigger the queue's retry policy, so they never
// swallow failures they want retried.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"marketpulse/internal/campaign"
	"marketpulse/internal/content"
	"marketpulse/internal/dispatch"
	"marketpulse/internal/domain/lead"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/errs"
	"marketpulse/internal/queue"

	"github.com/google/uuid"
)

// PromotionRecorder persists the fact that a listing was posted to a surface,
// which feeds the promotion cooldown.
type PromotionRecorder interface {
	RecordPost(ctx context.Context, listingID uuid.UUID, surface string, at time.Time) error
}

type Registry struct {
	users    campaign.UserStore
	listings campaign.ListingStore
	notifier campaign.Notifier
	cache    campaign.ProfileCache
	promos   PromotionRecorder
	clock    clock.Clock
	logger   *slog.Logger
}

func NewRegistry(
	users campaign.UserStore,
	listings campaign.ListingStore,
	notifier campaign.Notifier,
	cache campaign.ProfileCache,
	promos PromotionRecorder,
	clk clock.Clock,
	logger *slog.Logger,
) *Registry {
	return &Registry{
		users:    users,
		listings: listings,
		notifier: notifier,
		cache:    cache,
		promos:   promos,
		clock:    clk,
		logger:   logger,
	}
}

// RegisterAll wires every known job kind into the drainer.
func (r *Registry) RegisterAll(d *queue.Drainer) {
	d.Register(queue.KindSendNotification, r.SendNotification)
	d.Register(queue.KindGenerateRecs, r.GenerateRecommendations)
	d.Register(queue.KindRescoreLead, r.RescoreLead)
	d.Register(queue.KindContentPost, r.ContentPost)
}

type sendNotificationPayload struct {
	UserID     uuid.UUID `json:"user_id"`
	Automation string    `json:"automation"`
	Category   string    `json:"category"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
}

// SendNotification delivers an ad hoc notification through the same dedup and
// quiet-hours gates as the campaign runs.
func (r *Registry) SendNotification(ctx context.Context, job queue.Job) error {
	var p sendNotificationPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return errs.Wrap(err, "invalid notification payload")
	}

	user, err := r.users.UserByID(ctx, p.UserID)
	if err != nil {
		return err
	}

	_, err = r.notifier.Dispatch(ctx, p.Automation, user.Recipient(), notification.Category(p.Category),
		dispatch.Message{Subject: p.Subject, Body: p.Body})
	return err
}

type userPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

// RescoreLead reclassifies one user and refreshes the cached profile. Queued
// by producers after bursts of interaction activity.
func (r *Registry) RescoreLead(ctx context.Context, job queue.Job) error {
	var p userPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return errs.Wrap(err, "invalid rescore payload")
	}

	now := r.clock.Now()
	interactions, err := r.users.InteractionsSince(ctx, p.UserID, now.Add(-90*24*time.Hour))
	if err != nil {
		return err
	}

	profile := lead.Classify(p.UserID, interactions, now)
	if err := r.cache.Set(ctx, profile); err != nil {
		return err
	}

	r.logger.Info("lead rescored",
		"user_id", p.UserID, "segment", profile.Segment, "score", profile.Score)
	return nil
}

// GenerateRecommendations builds a personalised listing digest for a hot lead
// from their classified preferences.
func (r *Registry) GenerateRecommendations(ctx context.Context, job queue.Job) error {
	var p userPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return errs.Wrap(err, "invalid recommendation payload")
	}

	user, err := r.users.UserByID(ctx, p.UserID)
	if err != nil {
		return err
	}

	now := r.clock.Now()
	interactions, err := r.users.InteractionsSince(ctx, p.UserID, now.Add(-90*24*time.Hour))
	if err != nil {
		return err
	}
	profile := lead.Classify(p.UserID, interactions, now)

	criteria := criteriaFromPreferences(profile.Preferences)
	matches, err := r.listings.CreatedMatching(ctx, criteria, now.Add(-7*24*time.Hour), 5)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		r.logger.Debug("no recommendations to send", "user_id", p.UserID)
		return nil
	}

	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m.Title)
	}

	_, err = r.notifier.Dispatch(ctx, campaign.AutomationNurture, user.Recipient(),
		notification.CategoryRecommendations, content.Recommendations(titles))
	return err
}

func criteriaFromPreferences(prefs lead.Preferences) campaign.SearchCriteria {
	var c campaign.SearchCriteria
	if len(prefs.Brands) > 0 {
		c.Brand = prefs.Brands[0]
	}
	if len(prefs.Cities) > 0 {
		c.City = prefs.Cities[0]
	}
	if prefs.PriceRange != nil {
		c.MinPriceCents = prefs.PriceRange.MinCents
		c.MaxPriceCents = prefs.PriceRange.MaxCents
	}
	return c
}

type contentPostPayload struct {
	ListingID uuid.UUID `json:"listing_id"`
	Title     string    `json:"title"`
	Surface   string    `json:"surface"`
}

// ContentPost records a promotion post on one surface. A listing that went
// terminal between enqueue and execution is skipped without error.
func (r *Registry) ContentPost(ctx context.Context, job queue.Job) error {
	var p contentPostPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return errs.Wrap(err, "invalid content post payload")
	}

	listing, err := r.listings.ListingByID(ctx, p.ListingID)
	if err != nil {
		return err
	}
	if listing.Status != campaign.ListingStatusActive {
		r.logger.Debug("skipping post for inactive listing",
			"listing_id", p.ListingID, "status", listing.Status)
		return nil
	}

	now := r.clock.Now()
	if err := r.promos.RecordPost(ctx, p.ListingID, p.Surface, now); err != nil {
		return err
	}

	r.logger.Info("listing promoted", "listing_id", p.ListingID, "surface", p.Surface)
	return nil
}
