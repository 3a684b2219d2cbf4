package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jokebot/internal/domain"
)

// defaultName is used when a sender has no usable display name.
const defaultName = "there"

// JokeTeller is the joke lookup the Decider depends on. Both methods
// must always return displayable text.
type JokeTeller interface {
	RandomJoke(ctx context.Context) string
	SearchJoke(ctx context.Context, term string) string
}

// Decision is a reply the bot has chosen to send.
type Decision struct {
	Text    string
	Trigger Trigger
	Term    string
}

// Decider applies the trigger rules to one message at a time. It holds
// no state between messages.
type Decider struct {
	teller JokeTeller
	logger *slog.Logger
}

func NewDecider(teller JokeTeller, logger *slog.Logger) *Decider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decider{teller: teller, logger: logger}
}

// Decide returns the reply for msg, or false when the bot stays silent.
// Only messages written by users are ever answered.
func (d *Decider) Decide(ctx context.Context, msg domain.IncomingMessage) (Decision, bool) {
	if !msg.FromUser() {
		return Decision{}, false
	}

	trigger, term := Classify(msg.Text)
	var joke string
	switch trigger {
	case TriggerTopic:
		joke = d.teller.SearchJoke(ctx, term)
	case TriggerGeneric:
		joke = d.teller.RandomJoke(ctx)
	default:
		return Decision{}, false
	}

	d.logger.Debug("trigger matched", "msg_id", msg.ID, "trigger", trigger, "term", term)
	return Decision{
		Text:    Format(msg.Name, joke),
		Trigger: trigger,
		Term:    term,
	}, true
}

// Format builds the greeting line sent back to the group.
func Format(name, joke string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}
	return fmt.Sprintf("Hey %s — %s", name, joke)
}
