package config

import "time"

// Default configuration values.
const (
	DefaultOutput         = "table"
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"
	DefaultReloadInterval = 500 * time.Millisecond
	DefaultGCInterval     = "10m"
	DefaultGCThreshold    = 0.5
)

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Output: DefaultOutput,
		Load: LoadSection{
			ReloadInterval: DefaultReloadInterval,
		},
		Storage: StorageSection{
			GCInterval:  DefaultGCInterval,
			GCThreshold: DefaultGCThreshold,
		},
	}
}
