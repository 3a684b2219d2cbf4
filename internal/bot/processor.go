package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"jokebot/internal/bus"
	"jokebot/internal/domain"
	"jokebot/internal/metrics"
	"jokebot/internal/reply"
)

// DefaultPostInterval spaces consecutive posts so the group is not flooded.
const DefaultPostInterval = 400 * time.Millisecond

// Decider chooses the reply for a single message.
type Decider interface {
	Decide(ctx context.Context, msg domain.IncomingMessage) (reply.Decision, bool)
}

// ProcessorConfig wires a Processor. Decider and Notifier are required;
// Dispatcher is required when Async is set.
type ProcessorConfig struct {
	Decider    Decider
	Notifier   domain.Notifier
	Dispatcher *Dispatcher
	Events     *bus.EventLog
	Audit      domain.ReplyAuditor

	// Source labels audit rows ("poll", "webhook").
	Source string
	// Async hands each post to the Dispatcher instead of waiting for it.
	Async bool
	// MaxReplies stops a batch after that many replies; 0 means no cap.
	MaxReplies int
	// PostInterval is the minimum gap between posts; negative disables pacing.
	PostInterval time.Duration

	Logger *slog.Logger
}

// Processor runs message batches through the Decider and posts replies.
// A batch is handled serially in the order given.
type Processor struct {
	decider    Decider
	notifier   domain.Notifier
	dispatcher *Dispatcher
	events     *bus.EventLog
	audit      domain.ReplyAuditor
	source     string
	async      bool
	maxReplies int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if cfg.Decider == nil {
		return nil, fmt.Errorf("processor: decider is required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("processor: notifier is required")
	}
	if cfg.Async && cfg.Dispatcher == nil {
		return nil, fmt.Errorf("processor: async mode needs a dispatcher")
	}
	if cfg.MaxReplies < 0 {
		return nil, fmt.Errorf("processor: max replies must be >= 0, got %d", cfg.MaxReplies)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	interval := cfg.PostInterval
	if interval == 0 {
		interval = DefaultPostInterval
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if interval > 0 {
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &Processor{
		decider:    cfg.Decider,
		notifier:   cfg.Notifier,
		dispatcher: cfg.Dispatcher,
		events:     cfg.Events,
		audit:      cfg.Audit,
		source:     cfg.Source,
		async:      cfg.Async,
		maxReplies: cfg.MaxReplies,
		limiter:    limiter,
		logger:     cfg.Logger,
	}, nil
}

// ProcessBatch handles msgs in order and returns how many replies were
// posted, or handed off in async mode.
func (p *Processor) ProcessBatch(ctx context.Context, msgs []domain.IncomingMessage) int {
	replies := 0
	for _, msg := range msgs {
		if ctx.Err() != nil {
			break
		}
		metrics.MessagesSeen.Inc()
		p.record(bus.EventReceived, msg.ID, msg.Text)
		if p.dispatcher != nil && msg.ID != "" && p.dispatcher.Claimed(replyTaskName(msg.ID)) {
			p.logger.Debug("reply already dispatched", "msg_id", msg.ID)
			p.record(bus.EventIgnored, msg.ID, "dispatched")
			continue
		}

		dec, ok := p.decider.Decide(ctx, msg)
		if !ok {
			p.record(bus.EventIgnored, msg.ID, string(msg.SenderType))
			continue
		}
		metrics.Triggers(string(dec.Trigger)).Inc()
		text := WithRef(dec.Text, msg.ID)

		if p.async {
			id := p.dispatcher.Submit(ctx, replyTaskName(msg.ID), func(ctx context.Context) error {
				if err := p.limiter.Wait(ctx); err != nil {
					return err
				}
				if !p.post(ctx, msg, dec, text) {
					return fmt.Errorf("post reply to %s failed", msg.ID)
				}
				return nil
			})
			p.record(bus.EventDispatched, msg.ID, id)
			replies++
		} else {
			if err := p.limiter.Wait(ctx); err != nil {
				break
			}
			if p.post(ctx, msg, dec, text) {
				replies++
			}
		}

		if p.maxReplies > 0 && replies >= p.maxReplies {
			p.logger.Info("reply cap reached", "cap", p.maxReplies)
			p.record(bus.EventCapReached, msg.ID, fmt.Sprintf("cap=%d", p.maxReplies))
			break
		}
	}
	return replies
}

// RunOnce fetches one batch from src and processes it.
func (p *Processor) RunOnce(ctx context.Context, src domain.MessageSource) (int, error) {
	batch, err := src.FetchBatch(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, domain.ErrSourceClosed) {
			p.record(bus.EventPollFailed, "", err.Error())
		}
		return 0, fmt.Errorf("fetch from %s: %w", src.Name(), err)
	}
	p.logger.Debug("batch fetched", "source", src.Name(), "count", len(batch))
	return p.ProcessBatch(ctx, batch), nil
}

// Run processes batches from src until ctx is done. It suits sources whose
// FetchBatch blocks for input, such as the webhook queue.
func (p *Processor) Run(ctx context.Context, src domain.MessageSource) error {
	p.logger.Info("processor started", "source", src.Name(), "async", p.async)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, err := p.RunOnce(ctx, src)
		switch {
		case err == nil, ctx.Err() != nil:
		case errors.Is(err, domain.ErrSourceClosed):
			p.logger.Info("source closed, processor stopping", "source", src.Name())
			return nil
		default:
			p.logger.Warn("batch failed", "source", src.Name(), "err", err)
		}
	}
}

func (p *Processor) post(ctx context.Context, msg domain.IncomingMessage, dec reply.Decision, text string) bool {
	ok := p.notifier.PostReply(ctx, text)
	if ok {
		p.logger.Info("replied", "msg_id", msg.ID, "trigger", dec.Trigger, "term", dec.Term)
		p.record(bus.EventReplied, msg.ID, string(dec.Trigger))
	} else {
		p.record(bus.EventPostFailed, msg.ID, string(dec.Trigger))
	}

	if p.audit != nil {
		rec := domain.ReplyRecord{
			MessageID: msg.ID,
			Sender:    msg.Name,
			Trigger:   string(dec.Trigger),
			Term:      dec.Term,
			Text:      text,
			Posted:    ok,
			Source:    p.source,
			CreatedAt: time.Now().UTC(),
		}
		if err := p.audit.RecordReply(ctx, rec); err != nil {
			p.logger.Warn("audit write failed", "msg_id", msg.ID, "err", err)
		}
	}
	return ok
}

func (p *Processor) record(kind, msgID, detail string) {
	p.events.Record(bus.Event{Type: kind, MessageID: msgID, Detail: detail, Time: time.Now()})
}

func replyTaskName(msgID string) string { return "reply:" + msgID }

// WithRef appends the reference tag the poller uses to recognise messages
// that were already answered. text is shortened so the tagged reply fits
// in one post and the tag is never cut off.
func WithRef(text, msgID string) string {
	if msgID == "" {
		return text
	}
	tag := " (ref:" + msgID + ")"
	room := max(domain.MaxPostRunes-utf8.RuneCountInString(tag), 0)
	if r := []rune(text); len(r) > room {
		text = string(r[:room])
	}
	return text + tag
}
