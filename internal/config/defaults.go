package config

const (
	defaultDataDir    = "~/.local/share/specimatch"
	defaultLogDir     = "~/.local/share/specimatch/logs"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
	defaultBatchSize  = 10
	defaultSampleSize = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Reconcile: Reconcile{
			BatchSize:  defaultBatchSize,
			SampleSize: defaultSampleSize,
		},
	}
}
