package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"jokebot/internal/config"
	"jokebot/internal/domain"
	"jokebot/internal/reply"
	"jokebot/internal/store"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = newLogger("info")

	root := &cobra.Command{
		Use:   "jokebot",
		Short: "jokebot: a GroupMe bot that answers joke requests",
		Long: `jokebot replies in a GroupMe group when someone asks for a joke.
It can poll the group history or receive bot callbacks over HTTP.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.jokebot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(pollCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(askCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config (or defaults plus environment when no file
// exists) and switches the logger to the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefaults(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	logger = newLogger(cfg.General.LogLevel)
	return cfg, nil
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Println("Set GROUPME_TOKEN, GROUP_ID and BOT_ID, or edit the file, then run 'jokebot doctor'.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func askCmd() *cobra.Command {
	var name, sender string
	cmd := &cobra.Command{
		Use:   "ask [text...]",
		Short: "Show what the bot would reply to a message, without posting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			msg := domain.IncomingMessage{
				ID:         "local",
				SenderType: domain.ParseSenderType(sender),
				Name:       name,
				Text:       strings.Join(args, " "),
			}
			dec, ok := a.decider.Decide(cmd.Context(), msg)
			if !ok {
				fmt.Println("(no reply)")
				return nil
			}
			fmt.Printf("[%s", dec.Trigger)
			if dec.Trigger == reply.TriggerTopic {
				fmt.Printf(" %q", dec.Term)
			}
			fmt.Printf("] %s\n", dec.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "sender display name")
	cmd.Flags().StringVar(&sender, "sender-type", "user", "sender type: user, bot or system")
	return cmd
}

func statusCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration and recent replies from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := map[string]any{
				"version":     version,
				"config":      resolveConfigPath(),
				"jokeSource":  cfg.Jokes.Source,
				"canRead":     config.RequireGroupMe(cfg, true) == nil,
				"canPost":     config.RequireGroupMe(cfg, false) == nil,
				"schedule":    cfg.Poll.Schedule,
				"auditLogged": cfg.Audit.Enabled,
			}

			if cfg.Audit.Enabled {
				st, err := store.NewSQLiteStore(cfg.Audit.DBPath, logger)
				if err != nil {
					return fmt.Errorf("audit store: %w", err)
				}
				defer st.Close()

				ctx := cmd.Context()
				counts, err := st.CountReplies(ctx)
				if err != nil {
					return fmt.Errorf("count replies: %w", err)
				}
				recent, err := st.RecentReplies(ctx, limit)
				if err != nil {
					return fmt.Errorf("recent replies: %w", err)
				}
				out["replies"] = counts
				out["recent"] = recent
			}

			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of recent replies to show")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. poll.maxRepliesPerRun)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefaults(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. poll.schedule \"@every 5m\")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.ReadFile(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefaults(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			paths := config.ListPaths(config.Sanitize(cfg))
			for _, k := range slices.Sorted(maps.Keys(paths)) {
				fmt.Printf("%s = %v\n", k, paths[k])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

// shutdownContext bounds how long shutdown may wait on in-flight work.
func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), shutdownTimeout)
}
