package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"

	"jokebot/internal/schedule"
)

// Config is the root configuration for jokebot.
type Config struct {
	General GeneralConfig `json:"general"`
	GroupMe GroupMeConfig `json:"groupme"`
	Jokes   JokesConfig   `json:"jokes"`
	Poll    PollConfig    `json:"poll"`
	Webhook WebhookConfig `json:"webhook"`
	Debug   DebugConfig   `json:"debug"`
	Audit   AuditConfig   `json:"audit"`
	Metrics MetricsConfig `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" env:"JOKEBOT_LOG_LEVEL"`
}

// GroupMeConfig holds the group credentials. Token and GroupID are only
// needed for polling; posting needs BotID alone.
type GroupMeConfig struct {
	APIBase               string `json:"apiBase"`
	Token                 string `json:"token,omitempty" env:"GROUPME_TOKEN"`
	GroupID               string `json:"groupId,omitempty" env:"GROUP_ID"`
	BotID                 string `json:"botId,omitempty" env:"BOT_ID"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
}

type JokesConfig struct {
	Source      string `json:"source"` // "icanhazdadjoke" | "file"
	APIBase     string `json:"apiBase,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`
	SearchLimit int    `json:"searchLimit"`
	File        string `json:"file,omitempty"` // YAML joke pack for source "file"

	// FallbackFile is a YAML joke pack used when the API source fails.
	FallbackFile string `json:"fallbackFile,omitempty"`
}

type PollConfig struct {
	Limit            int    `json:"limit"`
	MaxRepliesPerRun int    `json:"maxRepliesPerRun"`
	PostIntervalMs   int    `json:"postIntervalMs"`
	Schedule         string `json:"schedule,omitempty"` // cron spec; empty runs once
}

type WebhookConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port" env:"JOKEBOT_WEBHOOK_PORT"`
	Path      string `json:"path"`
	Secret    string `json:"secret,omitempty" env:"JOKEBOT_WEBHOOK_SECRET"`
	QueueSize int    `json:"queueSize"`
}

type DebugConfig struct {
	EventBufferSize int `json:"eventBufferSize"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.jokebot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jokebot"
	}
	return filepath.Join(home, ".jokebot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the config file at path, expands ${VAR} references, overlays
// credentials from the environment and validates the result.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return finish(cfg)
}

// ReadFile parses the config file as written, with no ${VAR} expansion
// and no environment overlay. Use it when the result is saved back so
// secrets from the environment never land in the file.
func ReadFile(path string) (*Config, error) {
	path = ExpandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefaults behaves like Load but starts from Defaults when the file
// does not exist, so the bot can run from environment variables alone.
func LoadOrDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(Defaults())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
	cfg.Jokes.File = ExpandPath(cfg.Jokes.File)
	cfg.Jokes.FallbackFile = ExpandPath(cfg.Jokes.FallbackFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overwrites fields tagged with env from set environment variables.
// Unset variables leave the current value alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("cannot read environment: %w", err)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty; an unset
// variable without a default is left as written.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

// Save writes cfg as indented JSON. The file may hold credentials, so it
// is created owner-only.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has usable values. Credentials are not
// required here; commands check the ones they need with RequireGroupMe.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.GroupMe.APIBase == "" {
		errs = append(errs, "groupme.apiBase is required")
	}
	if cfg.GroupMe.RequestTimeoutSeconds < 1 || cfg.GroupMe.RequestTimeoutSeconds > 120 {
		errs = append(errs, "groupme.requestTimeoutSeconds must be between 1 and 120")
	}

	switch cfg.Jokes.Source {
	case "icanhazdadjoke":
		if cfg.Jokes.APIBase == "" {
			errs = append(errs, "jokes.apiBase is required for source icanhazdadjoke")
		}
	case "file":
		if cfg.Jokes.File == "" {
			errs = append(errs, "jokes.file is required for source file")
		}
	default:
		errs = append(errs, "jokes.source must be one of: icanhazdadjoke, file")
	}
	if cfg.Jokes.SearchLimit < 1 || cfg.Jokes.SearchLimit > 30 {
		errs = append(errs, "jokes.searchLimit must be between 1 and 30")
	}

	if cfg.Poll.Limit < 1 || cfg.Poll.Limit > 100 {
		errs = append(errs, "poll.limit must be between 1 and 100")
	}
	if cfg.Poll.MaxRepliesPerRun < 0 {
		errs = append(errs, "poll.maxRepliesPerRun must be >= 0")
	}
	if cfg.Poll.PostIntervalMs < 0 {
		errs = append(errs, "poll.postIntervalMs must be >= 0")
	}
	if cfg.Poll.Schedule != "" {
		if err := schedule.Validate(cfg.Poll.Schedule); err != nil {
			errs = append(errs, "poll.schedule: "+err.Error())
		}
	}

	if cfg.Webhook.Port < 1 || cfg.Webhook.Port > 65535 {
		errs = append(errs, "webhook.port must be between 1 and 65535")
	}
	if !strings.HasPrefix(cfg.Webhook.Path, "/") || strings.ContainsAny(cfg.Webhook.Path, " {}") {
		errs = append(errs, "webhook.path must be an absolute URL path")
	}
	for _, reserved := range []string{"/", "/test", "/debug/events", cfg.Metrics.Endpoint} {
		if cfg.Webhook.Path == reserved {
			errs = append(errs, fmt.Sprintf("webhook.path %s collides with a built-in route", reserved))
		}
	}
	if cfg.Webhook.QueueSize < 1 {
		errs = append(errs, "webhook.queueSize must be >= 1")
	}

	if cfg.Debug.EventBufferSize < 1 || cfg.Debug.EventBufferSize > 10000 {
		errs = append(errs, "debug.eventBufferSize must be between 1 and 10000")
	}
	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required when audit is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Endpoint != "/metrics" {
		errs = append(errs, "metrics.endpoint must be /metrics")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireGroupMe reports missing GroupMe credentials. Reading history
// needs the token and group id; posting needs the bot id.
func RequireGroupMe(cfg *Config, read bool) error {
	var missing []string
	if read && cfg.GroupMe.Token == "" {
		missing = append(missing, "groupme.token (GROUPME_TOKEN)")
	}
	if read && cfg.GroupMe.GroupID == "" {
		missing = append(missing, "groupme.groupId (GROUP_ID)")
	}
	if cfg.GroupMe.BotID == "" {
		missing = append(missing, "groupme.botId (BOT_ID)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
