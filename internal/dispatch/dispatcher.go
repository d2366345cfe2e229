// Package dispatch is the single gate every outbound notification passes
// through: dedup against the notification log, quiet-hours suppression,
// channel selection, the send itself, and the append-only log write.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"marketpulse/internal/channel"
	"marketpulse/internal/domain/notification"
	"marketpulse/internal/pkg/clock"
	"marketpulse/internal/pkg/errs"

	"github.com/google/uuid"
)

// LogStore is the append-only notification log. Entries are never mutated;
// the log exists to answer dedup and frequency queries.
type LogStore interface {
	// SentWithin reports whether a successful send of this category was
	// logged for the user at or after since.
	SentWithin(ctx context.Context, userID uuid.UUID, category notification.Category, since time.Time) (bool, error)
	Append(ctx context.Context, e notification.Entry) error
}

type Recipient struct {
	UserID uuid.UUID
	Prefs  notification.Preferences
}

type Message struct {
	Subject string
	Body    string
}

type Dispatcher struct {
	log    LogStore
	policy *notification.Policy
	email  channel.Sender
	sms    channel.Sender
	clock  clock.Clock
	logger *slog.Logger
}

func New(log LogStore, policy *notification.Policy, email, sms channel.Sender, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		log:    log,
		policy: policy,
		email:  email,
		sms:    sms,
		clock:  clk,
		logger: logger,
	}
}

// ShouldNotify answers whether the dedup window for (user, category) is
// clear. Each category is checked independently: an unrelated category's log
// entry never suppresses a send.
func (d *Dispatcher) ShouldNotify(ctx context.Context, userID uuid.UUID, category notification.Category) (bool, error) {
	since := d.clock.Now().Add(-d.policy.Window(category))
	sent, err := d.log.SentWithin(ctx, userID, category, since)
	if err != nil {
		return false, errs.Wrap(err, "dedup query failed")
	}
	return !sent, nil
}

// Dispatch sends one notification if the gates allow it. The returned bool
// reports whether a send was attempted; suppression (dedup, quiet hours, no
// eligible channel) is not an error. Every attempted send is logged, success
// or failure.
func (d *Dispatcher) Dispatch(ctx context.Context, automation string, rcpt Recipient, category notification.Category, msg Message) (bool, error) {
	ok, err := d.ShouldNotify(ctx, rcpt.UserID, category)
	if err != nil {
		return false, err
	}
	if !ok {
		d.logger.Debug("notification suppressed by dedup window",
			"user_id", rcpt.UserID, "category", category)
		return false, nil
	}

	now := d.clock.Now()
	if d.policy.Suppressed(category, rcpt.Prefs, now) {
		d.logger.Debug("notification suppressed by quiet hours",
			"user_id", rcpt.UserID, "category", category, "hour", now.Hour())
		return false, nil
	}

	ch, ok := d.policy.SelectChannel(category, rcpt.Prefs)
	if !ok {
		d.logger.Debug("no eligible notification channel",
			"user_id", rcpt.UserID, "category", category)
		return false, nil
	}

	sendErr := d.send(ctx, ch, rcpt, msg)

	entry := notification.Entry{
		ID:         uuid.New(),
		UserID:     rcpt.UserID,
		Automation: automation,
		Category:   category,
		Channel:    ch,
		Status:     notification.StatusSent,
		SentAt:     now,
	}
	if sendErr != nil {
		entry.Status = notification.StatusFailed
	}
	if logErr := d.log.Append(ctx, entry); logErr != nil {
		d.logger.Error("failed to append notification log entry",
			"user_id", rcpt.UserID, "category", category, "error", logErr)
	}

	if sendErr != nil {
		return true, errs.Mark(errs.Wrap(sendErr, "notification send failed"), errs.ErrChannelSendFailed)
	}
	return true, nil
}

func (d *Dispatcher) send(ctx context.Context, ch notification.Channel, rcpt Recipient, msg Message) error {
	switch ch {
	case notification.ChannelSMS:
		return d.sms.Send(ctx, rcpt.Prefs.PhoneNumber, msg.Subject, msg.Body)
	default:
		return d.email.Send(ctx, rcpt.Prefs.EmailAddress, msg.Subject, msg.Body)
	}
}
