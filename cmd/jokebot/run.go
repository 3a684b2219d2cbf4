package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jokebot/internal/channel"
	"jokebot/internal/config"
	"jokebot/internal/metrics"
	"jokebot/internal/schedule"
)

func pollCmd() *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Answer unanswered joke requests in the group history",
		Long: `Reads the latest group messages and replies to joke requests that
have not been answered yet. Runs once and exits unless a schedule is given
(--schedule or poll.schedule), e.g. "@every 5m" or "*/5 * * * *".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("schedule") {
				cfg.Poll.Schedule = spec
			}
			return runPoll(cfg)
		},
	}
	cmd.Flags().StringVar(&spec, "schedule", "", "cron schedule for repeated polls")
	return cmd
}

func runPoll(cfg *config.Config) error {
	if err := config.RequireGroupMe(cfg, true); err != nil {
		return err
	}
	if cfg.Poll.Schedule != "" {
		if err := schedule.Validate(cfg.Poll.Schedule); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	poll, err := newPollJob(a)
	if err != nil {
		return err
	}

	if cfg.Poll.Schedule == "" {
		return poll(ctx)
	}

	sched := schedule.New(loggerFor("schedule"))
	if err := sched.Add("poll", cfg.Poll.Schedule, func(ctx context.Context) {
		if err := poll(ctx); err != nil {
			logger.Warn("poll run failed", "err", err)
		}
	}); err != nil {
		return err
	}
	if a.audit != nil {
		if err := a.addHousekeeping(sched); err != nil {
			return err
		}
	}
	return sched.Run(ctx)
}

// newPollJob returns one complete poll run: fetch, decide, post.
func newPollJob(a *app) (func(ctx context.Context) error, error) {
	proc, err := a.processor("poll", false)
	if err != nil {
		return nil, err
	}
	src := channel.NewPollSource(channel.PollConfig{
		Lister: a.factory.GroupMe(),
		Limit:  a.cfg.Poll.Limit,
		Events: a.events,
		Logger: loggerFor("poll"),
	})
	return func(ctx context.Context) error {
		replies, err := proc.RunOnce(ctx, src)
		if err != nil {
			return err
		}
		logger.Info("poll done", "replies", replies)
		return nil
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive GroupMe bot callbacks over HTTP",
		Long: `Starts the webhook server. Point the GroupMe bot's callback URL at
http://<host>:<port>/webhook (append ?token=<secret> when webhook.secret
is set). When poll.schedule is set and read credentials are present the
group history is also polled on that schedule. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	if err := config.RequireGroupMe(cfg, false); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	proc, err := a.processor("webhook", true)
	if err != nil {
		return err
	}

	wcfg := channel.WebhookConfig{
		Host:       cfg.Webhook.Host,
		Port:       cfg.Webhook.Port,
		Path:       cfg.Webhook.Path,
		Secret:     cfg.Webhook.Secret,
		QueueSize:  cfg.Webhook.QueueSize,
		Notifier:   a.factory.GroupMe(),
		Dispatcher: a.dispatcher,
		Events:     a.events,
		Logger:     loggerFor("webhook"),
	}
	if cfg.Metrics.Enabled {
		wcfg.Metrics = metrics.Default.Handler()
	}
	webhook := channel.NewWebhook(wcfg)

	sched := schedule.New(loggerFor("schedule"))
	if err := a.addHousekeeping(sched); err != nil {
		return err
	}
	if cfg.Poll.Schedule != "" {
		if err := config.RequireGroupMe(cfg, true); err != nil {
			logger.Warn("poll schedule ignored", "err", err)
		} else {
			poll, err := newPollJob(a)
			if err != nil {
				return err
			}
			if err := sched.Add("poll", cfg.Poll.Schedule, func(ctx context.Context) {
				if err := poll(ctx); err != nil {
					logger.Warn("poll run failed", "err", err)
				}
			}); err != nil {
				return err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return webhook.Start(gctx) })
	g.Go(func() error { return proc.Run(gctx, webhook) })
	g.Go(func() error { return sched.Run(gctx) })

	logger.Info("jokebot serving", "addr", webhook.Addr(), "path", cfg.Webhook.Path, "version", version)
	runErr := g.Wait()

	shutdownCtx, cancel := shutdownContext()
	defer cancel()
	if err := a.dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("in-flight replies abandoned", "active", a.dispatcher.Active(), "err", err)
	}
	logger.Info("shutdown complete")

	if runErr != nil {
		return fmt.Errorf("serve: %w", runErr)
	}
	return nil
}
