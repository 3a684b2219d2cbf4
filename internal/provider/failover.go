package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"jokebot/internal/domain"
)

// FailoverSource asks each joke source in order and uses the first one
// that answers without error. An empty search result is an answer, not a
// failure.
type FailoverSource struct {
	sources []domain.JokeSource
	logger  *slog.Logger
}

// NewFailoverSource creates a failover chain. At least one source is required.
func NewFailoverSource(sources []domain.JokeSource, logger *slog.Logger) *FailoverSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailoverSource{sources: sources, logger: logger}
}

func (fs *FailoverSource) Name() string {
	names := make([]string, len(fs.sources))
	for i, s := range fs.sources {
		names[i] = s.Name()
	}
	return "failover(" + strings.Join(names, "→") + ")"
}

func (fs *FailoverSource) Random(ctx context.Context) (string, error) {
	var lastErr error
	for i, s := range fs.sources {
		joke, err := s.Random(ctx)
		if err == nil && strings.TrimSpace(joke) != "" {
			fs.logUsed(s, i)
			return joke, nil
		}
		if err == nil {
			err = errors.New("empty joke")
		}
		lastErr = err
		fs.logger.Warn("failover: source failed, trying next", "source", s.Name(), "attempt", i+1, "err", err)
	}
	return "", fmt.Errorf("all joke sources failed: %w", lastErr)
}

func (fs *FailoverSource) Search(ctx context.Context, term string, limit int) ([]string, error) {
	var lastErr error
	for i, s := range fs.sources {
		jokes, err := s.Search(ctx, term, limit)
		if err == nil {
			fs.logUsed(s, i)
			return jokes, nil
		}
		lastErr = err
		fs.logger.Warn("failover: source failed, trying next", "source", s.Name(), "attempt", i+1, "err", err)
	}
	return nil, fmt.Errorf("all joke sources failed: %w", lastErr)
}

func (fs *FailoverSource) logUsed(s domain.JokeSource, i int) {
	if i > 0 {
		fs.logger.Info("failover: used fallback source", "source", s.Name(), "attempt", i+1)
	}
}
