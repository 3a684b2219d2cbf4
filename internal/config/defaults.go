package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		GroupMe: GroupMeConfig{
			APIBase:               "https://api.groupme.com/v3",
			RequestTimeoutSeconds: 15,
		},
		Jokes: JokesConfig{
			Source:      "icanhazdadjoke",
			APIBase:     "https://icanhazdadjoke.com",
			UserAgent:   "jokebot (https://github.com/jokebot/jokebot)",
			SearchLimit: 30,
		},
		Poll: PollConfig{
			Limit:            100,
			MaxRepliesPerRun: 5,
			PostIntervalMs:   400,
		},
		Webhook: WebhookConfig{
			Host:      "0.0.0.0",
			Port:      8787,
			Path:      "/webhook",
			QueueSize: 64,
		},
		Debug: DebugConfig{
			EventBufferSize: 50,
		},
		Audit: AuditConfig{
			Enabled: false,
			DBPath:  "~/.jokebot/audit.db",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
