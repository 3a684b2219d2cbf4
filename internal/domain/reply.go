package domain

import (
	"context"
	"time"
)

// ReplyRecord is an audit row for one reply the bot attempted.
type ReplyRecord struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	Sender    string    `json:"sender"`
	Trigger   string    `json:"trigger"`
	Term      string    `json:"term,omitempty"`
	Text      string    `json:"text"`
	Posted    bool      `json:"posted"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// ReplyAuditor records replies for later inspection. It is never read
// back when deciding whether to reply.
type ReplyAuditor interface {
	RecordReply(ctx context.Context, rec ReplyRecord) error
}
