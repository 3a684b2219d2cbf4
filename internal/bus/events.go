package bus

import (
	"sync"
	"time"
)

// Event is one entry in the debug log of what the bot did.
type Event struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Time      time.Time `json:"time"`
}

const (
	EventReceived    = "message.received"
	EventIgnored     = "message.ignored"
	EventReplied     = "reply.posted"
	EventPostFailed  = "reply.failed"
	EventDispatched  = "reply.dispatched"
	EventCapReached  = "run.cap_reached"
	EventPollFailed  = "poll.failed"
	EventWebhookDiag = "webhook.test"
)

// EventLog keeps the most recent events in a fixed-size ring. The owner
// creates it and passes it to the components that record into it.
type EventLog struct {
	mu    sync.Mutex
	buf   []Event
	start int
	size  int
}

// NewEventLog keeps the last capacity events; capacity < 1 is treated as 1.
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}
	return &EventLog{buf: make([]Event, capacity)}
}

// Record appends e, evicting the oldest event when full. A nil log
// discards events.
func (l *EventLog) Record(e Event) {
	if l == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size < len(l.buf) {
		l.buf[(l.start+l.size)%len(l.buf)] = e
		l.size++
		return
	}
	l.buf[l.start] = e
	l.start = (l.start + 1) % len(l.buf)
}

// Recent returns the retained events, oldest first.
func (l *EventLog) Recent() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, l.size)
	for i := range l.size {
		out[i] = l.buf[(l.start+i)%len(l.buf)]
	}
	return out
}

// Len reports how many events are retained.
func (l *EventLog) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Cap reports the maximum number of retained events.
func (l *EventLog) Cap() int {
	if l == nil {
		return 0
	}
	return len(l.buf)
}
