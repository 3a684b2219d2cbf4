package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jokebot/internal/bot"
	"jokebot/internal/bus"
	"jokebot/internal/config"
	"jokebot/internal/provider"
	"jokebot/internal/reply"
	"jokebot/internal/schedule"
	"jokebot/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	taskRetention   = time.Hour
	auditRetention  = 30 * 24 * time.Hour
)

// app holds the components shared by the poll and serve commands.
type app struct {
	cfg        *config.Config
	factory    *provider.Factory
	events     *bus.EventLog
	dispatcher *bot.Dispatcher
	decider    *reply.Decider
	audit      *store.SQLiteStore
}

func newApp(cfg *config.Config) (*app, error) {
	factory := provider.NewFactory(cfg, logger)
	source, err := factory.JokeSource()
	if err != nil {
		return nil, err
	}

	teller := reply.NewTeller(reply.TellerConfig{
		Source:      source,
		SearchLimit: cfg.Jokes.SearchLimit,
		Logger:      logger.With("component", "teller"),
	})

	a := &app{
		cfg:        cfg,
		factory:    factory,
		events:     bus.NewEventLog(cfg.Debug.EventBufferSize),
		dispatcher: bot.NewDispatcher(logger.With("component", "dispatcher")),
		decider:    reply.NewDecider(teller, logger.With("component", "decider")),
	}

	if cfg.Audit.Enabled {
		st, err := store.NewSQLiteStore(cfg.Audit.DBPath, logger.With("component", "audit"))
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		a.audit = st
	}
	return a, nil
}

// processor builds a Processor for one message source. Webhook replies
// are dispatched; poll replies are posted in line and capped per run.
func (a *app) processor(source string, async bool) (*bot.Processor, error) {
	pc := bot.ProcessorConfig{
		Decider:      a.decider,
		Notifier:     a.factory.GroupMe(),
		Dispatcher:   a.dispatcher,
		Events:       a.events,
		Source:       source,
		Async:        async,
		PostInterval: postInterval(a.cfg.Poll.PostIntervalMs),
		Logger:       logger.With("component", "processor", "source", source),
	}
	if !async {
		pc.MaxReplies = a.cfg.Poll.MaxRepliesPerRun
	}
	if a.audit != nil {
		pc.Audit = a.audit
	}
	return bot.NewProcessor(pc)
}

// addHousekeeping schedules cleanup of finished dispatcher tasks and old
// audit rows.
func (a *app) addHousekeeping(sched *schedule.Scheduler) error {
	if err := sched.Add("dispatcher-clean", "@every 10m", func(context.Context) {
		if n := a.dispatcher.Clean(taskRetention); n > 0 {
			logger.Debug("dispatcher cleaned", "removed", n)
		}
	}); err != nil {
		return err
	}
	if a.audit == nil {
		return nil
	}
	return sched.Add("audit-prune", "@daily", func(ctx context.Context) {
		n, err := a.audit.Prune(ctx, auditRetention)
		if err != nil {
			logger.Warn("audit prune failed", "err", err)
			return
		}
		if n > 0 {
			logger.Info("audit pruned", "removed", n)
		}
	})
}

func postInterval(ms int) time.Duration {
	if ms <= 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}

func (a *app) Close() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			logger.Warn("close audit store", "err", err)
		}
	}
}

// loggerFor tags the shared logger with a component name.
func loggerFor(component string) *slog.Logger {
	return logger.With("component", component)
}
