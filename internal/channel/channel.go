// Package channel holds the outbound notification channel adapters. Both
// channels are fire-and-forget: the result is success or an error, never a
// retryable handle.
package channel

import "context"

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
