// Package bus holds the in-process plumbing between the webhook handler
// and the processor.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"jokebot/internal/domain"
)

// Queue is a bounded inbound message queue. Publishing never blocks so
// an HTTP handler can acknowledge immediately.
type Queue struct {
	inbound chan domain.IncomingMessage
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
}

// NewQueue creates a Queue holding up to size messages.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		inbound: make(chan domain.IncomingMessage, size),
		logger:  logger,
	}
}

// Publish enqueues msg. It returns false if the queue is full or closed.
func (q *Queue) Publish(msg domain.IncomingMessage) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("publish on closed queue", "msg_id", msg.ID)
		return false
	}
	select {
	case q.inbound <- msg:
		return true
	default:
		q.logger.Warn("inbound queue full, message dropped", "msg_id", msg.ID)
		return false
	}
}

// Drain blocks until at least one message is queued and returns it with
// everything else already waiting, in arrival order. It returns nil when
// ctx is done or the queue is closed and empty.
func (q *Queue) Drain(ctx context.Context) []domain.IncomingMessage {
	var batch []domain.IncomingMessage
	select {
	case <-ctx.Done():
		return nil
	case msg, ok := <-q.inbound:
		if !ok {
			return nil
		}
		batch = append(batch, msg)
	}
	for {
		select {
		case msg, ok := <-q.inbound:
			if !ok {
				return batch
			}
			batch = append(batch, msg)
		default:
			return batch
		}
	}
}

// Len reports the number of queued messages.
func (q *Queue) Len() int { return len(q.inbound) }

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Close stops accepting messages. Queued messages can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.inbound)
	}
}
