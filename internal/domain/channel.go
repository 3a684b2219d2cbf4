package domain

import (
	"context"
	"errors"
)

// MaxPostRunes is the longest message GroupMe accepts from a bot.
const MaxPostRunes = 1000

// ErrSourceClosed is returned by FetchBatch once a source will never
// yield messages again.
var ErrSourceClosed = errors.New("message source closed")

// MessageSource yields batches of candidate messages, oldest first.
// The poll and webhook adapters both implement it so the reply logic
// exists once.
type MessageSource interface {
	Name() string
	FetchBatch(ctx context.Context) ([]IncomingMessage, error)
}

// Notifier posts a reply into the group. Failures are logged by the
// implementation and reported as false; callers never retry.
type Notifier interface {
	PostReply(ctx context.Context, text string) bool
}
