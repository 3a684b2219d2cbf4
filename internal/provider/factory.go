package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"jokebot/internal/config"
	"jokebot/internal/domain"
)

// SourceConstructor creates a joke source from the jokes config section.
type SourceConstructor func(jc config.JokesConfig, client *http.Client, logger *slog.Logger) (domain.JokeSource, error)

// Factory builds the external clients the bot needs from config and
// caches them so every component shares one instance.
type Factory struct {
	cfg          *config.Config
	logger       *slog.Logger
	constructors map[string]SourceConstructor

	mu      sync.Mutex
	source  domain.JokeSource
	groupMe *GroupMe
}

// NewFactory creates a factory with the built-in joke sources registered.
func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		cfg:          cfg,
		logger:       logger,
		constructors: make(map[string]SourceConstructor),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds or replaces a joke source constructor by name.
func (f *Factory) RegisterConstructor(name string, ctor SourceConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = ctor
}

func (f *Factory) registerDefaults() {
	f.constructors["icanhazdadjoke"] = func(jc config.JokesConfig, client *http.Client, logger *slog.Logger) (domain.JokeSource, error) {
		return NewDadJoke(DadJokeConfig{
			APIBase:    jc.APIBase,
			UserAgent:  jc.UserAgent,
			HTTPClient: client,
			Logger:     logger,
		}), nil
	}
	f.constructors["file"] = func(jc config.JokesConfig, _ *http.Client, _ *slog.Logger) (domain.JokeSource, error) {
		jf, err := LoadJokeFile(jc.File)
		if err != nil {
			return nil, err
		}
		return jf, nil
	}
}

func (f *Factory) timeout() time.Duration {
	return time.Duration(f.cfg.GroupMe.RequestTimeoutSeconds) * time.Second
}

// JokeSource returns the configured joke source.
func (f *Factory) JokeSource() (domain.JokeSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.source != nil {
		return f.source, nil
	}

	name := f.cfg.Jokes.Source
	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown joke source: %s", name)
	}
	src, err := ctor(f.cfg.Jokes, NewHTTPClient(f.timeout()), f.logger.With("source", name))
	if err != nil {
		return nil, fmt.Errorf("joke source %s: %w", name, err)
	}

	if fallback := f.cfg.Jokes.FallbackFile; fallback != "" && name != "file" {
		pack, err := LoadJokeFile(fallback)
		if err != nil {
			return nil, fmt.Errorf("fallback joke file: %w", err)
		}
		src = NewFailoverSource([]domain.JokeSource{src, pack}, f.logger.With("source", "failover"))
	}
	f.source = src
	return src, nil
}

// GroupMe returns the GroupMe client.
func (f *Factory) GroupMe() *GroupMe {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.groupMe == nil {
		f.groupMe = NewGroupMe(GroupMeConfig{
			APIBase:    f.cfg.GroupMe.APIBase,
			Token:      f.cfg.GroupMe.Token,
			GroupID:    f.cfg.GroupMe.GroupID,
			BotID:      f.cfg.GroupMe.BotID,
			HTTPClient: NewHTTPClient(f.timeout()),
			Logger:     f.logger.With("component", "groupme"),
		})
	}
	return f.groupMe
}
