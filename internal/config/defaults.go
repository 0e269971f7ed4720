package config

const (
	defaultConfigPath         = "~/.config/ainotes/config.toml"
	defaultDataDir            = "~/.local/share/ainotes"
	defaultSpoolDir           = "~/.local/share/ainotes/spool"
	defaultLogDir             = "~/.local/share/ainotes/logs"
	defaultInboxDir           = "~/ainotes-inbox"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultHealthBind         = "127.0.0.1:7491"
	defaultStoreDriver        = "sqlite"
	defaultMaxConns           = 10
	defaultMinConns           = 1
	defaultConnMaxLifetime    = 1800
	defaultConnMaxIdle        = 300
	defaultDialTimeout        = 10
	defaultLLMBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	defaultLLMModel           = "gemini-1.5-flash"
	defaultLLMMaxAttempts     = 1
	defaultMaxChunkChars      = 3000
	defaultMapConcurrency     = 1
	defaultMaxUploadBytes     = 30 * 1024 * 1024
	defaultPdftotext          = "pdftotext"
	defaultWorkers            = 2
	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultInboxQuality       = "BALANCED"
	defaultInboxDebounceMS    = 750
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			SpoolDir: defaultSpoolDir,
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind:       defaultAPIBind,
			HealthBind: defaultHealthBind,
		},
		Store: Store{
			Driver:                 defaultStoreDriver,
			MaxConns:               defaultMaxConns,
			MinConns:               defaultMinConns,
			ConnMaxLifetimeSeconds: defaultConnMaxLifetime,
			ConnMaxIdleSeconds:     defaultConnMaxIdle,
			DialTimeoutSeconds:     defaultDialTimeout,
		},
		LLM: LLM{
			BaseURL:     defaultLLMBaseURL,
			Model:       defaultLLMModel,
			MaxAttempts: defaultLLMMaxAttempts,
		},
		Notes: Notes{
			MaxChunkChars:  defaultMaxChunkChars,
			MapConcurrency: defaultMapConcurrency,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Extract: Extract{
			Pdftotext:    defaultPdftotext,
			UsePdftotext: true,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Inbox: Inbox{
			Dir:         defaultInboxDir,
			Quality:     defaultInboxQuality,
			DebounceMS:  defaultInboxDebounceMS,
			InitialScan: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
