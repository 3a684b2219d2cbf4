package channel

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"jokebot/internal/bus"
	"jokebot/internal/domain"
)

// DefaultPollLimit is how many recent messages one poll looks at.
const DefaultPollLimit = 100

// refTag matches the suffix the bot appends to every reply.
var refTag = regexp.MustCompile(`ref:([0-9]+)`)

// MessageLister returns the most recent group messages, newest first.
type MessageLister interface {
	LatestMessages(ctx context.Context, limit int) ([]domain.IncomingMessage, error)
}

// PollConfig configures the polling source.
type PollConfig struct {
	Lister MessageLister
	Limit  int
	Events *bus.EventLog
	Logger *slog.Logger
}

// PollSource reads the group history and yields the user messages the bot
// has not answered yet. Answered ids are recovered from the ref tags on
// the bot's own replies, so nothing is stored between runs.
type PollSource struct {
	lister MessageLister
	limit  int
	events *bus.EventLog
	logger *slog.Logger
}

func NewPollSource(cfg PollConfig) *PollSource {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultPollLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PollSource{
		lister: cfg.Lister,
		limit:  cfg.Limit,
		events: cfg.Events,
		logger: cfg.Logger,
	}
}

func (p *PollSource) Name() string { return "poll" }

// FetchBatch returns unanswered user messages oldest first. A failed fetch
// is logged and yields an empty batch.
func (p *PollSource) FetchBatch(ctx context.Context) ([]domain.IncomingMessage, error) {
	history, err := p.lister.LatestMessages(ctx, p.limit)
	if err != nil {
		p.logger.Error("fetch messages failed", "err", err)
		p.events.Record(bus.Event{Type: bus.EventPollFailed, Detail: err.Error(), Time: time.Now()})
		return nil, nil
	}

	answered := AnsweredIDs(history)
	var batch []domain.IncomingMessage
	for _, m := range slices.Backward(history) {
		if !m.FromUser() || strings.TrimSpace(m.Text) == "" {
			continue
		}
		if _, done := answered[m.ID]; done {
			continue
		}
		batch = append(batch, m)
	}

	p.logger.Info("poll fetched", "history", len(history), "candidates", len(batch), "answered", len(answered))
	return batch, nil
}

// AnsweredIDs collects the message ids referenced by bot replies.
func AnsweredIDs(history []domain.IncomingMessage) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, m := range history {
		if m.SenderType != domain.SenderBot {
			continue
		}
		for _, match := range refTag.FindAllStringSubmatch(m.Text, -1) {
			ids[match[1]] = struct{}{}
		}
	}
	return ids
}
