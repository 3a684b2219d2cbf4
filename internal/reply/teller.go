package reply

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"jokebot/internal/domain"
	"jokebot/internal/metrics"
)

// NoJokeFallback is sent when no joke could be fetched at all.
const NoJokeFallback = "Hmm… no joke right now 😅"

const defaultSearchLimit = 30

// Teller turns a JokeSource into a collaborator that always answers.
// Source errors and empty results degrade to fallback text; they are
// logged and counted, never returned.
type Teller struct {
	source      domain.JokeSource
	searchLimit int
	pick        func(n int) int
	logger      *slog.Logger
}

type TellerConfig struct {
	Source      domain.JokeSource
	SearchLimit int
	// Pick returns an index in [0, n). Defaults to a uniform random pick.
	Pick   func(n int) int
	Logger *slog.Logger
}

func NewTeller(cfg TellerConfig) *Teller {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if cfg.Pick == nil {
		cfg.Pick = rand.IntN
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Teller{
		source:      cfg.Source,
		searchLimit: cfg.SearchLimit,
		pick:        cfg.Pick,
		logger:      cfg.Logger,
	}
}

// RandomJoke returns a joke, or NoJokeFallback.
func (t *Teller) RandomJoke(ctx context.Context) string {
	start := time.Now()
	joke, err := t.source.Random(ctx)
	metrics.JokeLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.JokeFetchFailures.Inc()
		t.logger.Warn("random joke fetch failed", "source", t.source.Name(), "err", err)
		return NoJokeFallback
	}
	if joke = strings.TrimSpace(joke); joke == "" {
		t.logger.Debug("random joke empty", "source", t.source.Name())
		return NoJokeFallback
	}
	return joke
}

// SearchJoke returns one joke about term chosen uniformly among matches.
// With no match it apologizes and falls back to a random joke.
func (t *Teller) SearchJoke(ctx context.Context, term string) string {
	start := time.Now()
	results, err := t.source.Search(ctx, term, t.searchLimit)
	metrics.JokeLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.JokeFetchFailures.Inc()
		t.logger.Warn("joke search failed", "source", t.source.Name(), "term", term, "err", err)
	}

	candidates := results[:0:0]
	for _, r := range results {
		if r = strings.TrimSpace(r); r != "" {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) > 0 {
		return candidates[t.pick(len(candidates))]
	}
	return fmt.Sprintf("I don’t have one about “%s”… but here’s one: %s", term, t.RandomJoke(ctx))
}
