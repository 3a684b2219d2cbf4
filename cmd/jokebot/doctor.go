package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"jokebot/internal/config"
	"jokebot/internal/provider"
	"jokebot/internal/store"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your jokebot setup",
		Long: `Verifies that the configuration, credentials, joke source and audit
database are usable. With --live it also calls the GroupMe and joke APIs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("jokebot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			var r report

			// 1. Config file
			if _, err := os.Stat(cfgPath); err != nil {
				r.warn("Config file", fmt.Sprintf("not found at %s (using defaults and environment)", cfgPath))
			} else {
				r.pass("Config file", cfgPath)
			}

			// 2. Config loads and validates
			cfg, err := config.LoadOrDefaults(cfgPath)
			if err != nil {
				r.fail("Config validation", err.Error())
				return r.summary()
			}
			r.pass("Config validation", "valid")

			// 3. Credentials
			if err := config.RequireGroupMe(cfg, false); err != nil {
				r.fail("Post credentials", err.Error())
			} else {
				r.pass("Post credentials", "bot id set")
			}
			if err := config.RequireGroupMe(cfg, true); err != nil {
				r.warn("Read credentials", "polling unavailable: "+err.Error())
			} else {
				r.pass("Read credentials", "token and group id set")
			}

			// 4. Joke source
			factory := provider.NewFactory(cfg, logger)
			source, err := factory.JokeSource()
			if err != nil {
				r.fail("Joke source", err.Error())
			} else {
				r.pass("Joke source", source.Name())
			}

			// 5. Audit database
			if cfg.Audit.Enabled {
				if st, err := store.NewSQLiteStore(cfg.Audit.DBPath, logger); err != nil {
					r.fail("Audit database", err.Error())
				} else {
					st.Close()
					r.pass("Audit database", cfg.Audit.DBPath)
				}
			}

			// 6. Webhook port
			if err := checkPort(cfg.Webhook.Host, cfg.Webhook.Port); err != nil {
				r.warn("Webhook port", fmt.Sprintf("port %d may be in use: %v", cfg.Webhook.Port, err))
			} else {
				r.pass("Webhook port", fmt.Sprintf(":%d available", cfg.Webhook.Port))
			}

			// 7. Live API calls
			if live {
				ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
				defer cancel()
				if source != nil {
					if joke, err := source.Random(ctx); err != nil {
						r.fail("Joke API", err.Error())
					} else {
						r.pass("Joke API", fmt.Sprintf("%d chars", len(joke)))
					}
				}
				if config.RequireGroupMe(cfg, true) == nil {
					if msgs, err := factory.GroupMe().LatestMessages(ctx, 1); err != nil {
						r.fail("GroupMe API", err.Error())
					} else {
						r.pass("GroupMe API", fmt.Sprintf("read %d message(s)", len(msgs)))
					}
				}
			}

			return r.summary()
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "also call the external APIs (no messages are posted)")
	return cmd
}

type report struct {
	passed, warned, failed int
}

func (r *report) pass(check, detail string) {
	r.passed++
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func (r *report) warn(check, detail string) {
	r.warned++
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

func (r *report) fail(check, detail string) {
	r.failed++
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func (r *report) summary() error {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		fmt.Printf("\nPlease fix the failed checks before running jokebot.\n")
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	if r.warned > 0 {
		fmt.Printf("\njokebot should work but consider fixing the warnings.\n")
	} else {
		fmt.Printf("\nAll checks passed! jokebot is ready to run.\n")
	}
	return nil
}

func checkPort(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return ln.Close()
}
