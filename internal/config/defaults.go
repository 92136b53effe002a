package config

const (
	defaultResultsDir     = "~/.local/share/census/results"
	defaultLogDir         = "~/.local/share/census/logs"
	defaultAPIBaseURL     = "https://archive.org/metadata"
	defaultAPIConcurrency = 50
	defaultAPITimeout     = 60
	defaultUserAgent      = "census/dev"
	defaultCompression    = "none"
	defaultTickEvery      = 10_000
	defaultMarkEvery      = 1_000_000
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ResultsDir: defaultResultsDir,
			LogDir:     defaultLogDir,
		},
		API: API{
			BaseURL:        defaultAPIBaseURL,
			Concurrency:    defaultAPIConcurrency,
			TimeoutSeconds: defaultAPITimeout,
			UserAgent:      defaultUserAgent,
		},
		Harvest: Harvest{
			HashKinds:   []string{"md5", "sha1"},
			Compression: defaultCompression,
		},
		Reconcile: Reconcile{
			TickEvery: defaultTickEvery,
			MarkEvery: defaultMarkEvery,
			StrictEnd: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
