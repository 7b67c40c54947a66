package config

import "time"

// CLIConfig is the configuration for the kvopts command.
type CLIConfig struct {
	Log     LogSection     `koanf:"log" yaml:"log"`
	Output  string         `koanf:"output" yaml:"output" validate:"oneof=table json yaml"`
	Load    LoadSection    `koanf:"load" yaml:"load"`
	Storage StorageSection `koanf:"storage" yaml:"storage"`
	Metrics MetricsSection `koanf:"metrics" yaml:"metrics"`
}

// LogSection configures diagnostics on stderr.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=text json"`
}

// LoadSection configures how options files are loaded.
type LoadSection struct {
	IgnoreUnknownOptions bool          `koanf:"ignore_unknown_options" yaml:"ignore_unknown_options"`
	CacheSize            int64         `koanf:"cache_size" yaml:"cache_size" validate:"gte=0"`
	ReloadInterval       time.Duration `koanf:"reload_interval" yaml:"reload_interval" validate:"gte=0"`
}

// StorageSection configures the engine opened by "kvopts open".
type StorageSection struct {
	GCInterval  string  `koanf:"gc_interval" yaml:"gc_interval" validate:"required"`
	GCThreshold float64 `koanf:"gc_threshold" yaml:"gc_threshold" validate:"gt=0,lte=1"`
	InMemory    bool    `koanf:"in_memory" yaml:"in_memory"`
}

// MetricsSection configures the Prometheus endpoint of "kvopts watch".
type MetricsSection struct {
	Addr string `koanf:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// MarshalYAML writes the reload interval as a duration string.
func (s LoadSection) MarshalYAML() (any, error) {
	return map[string]any{
		"ignore_unknown_options": s.IgnoreUnknownOptions,
		"cache_size":             s.CacheSize,
		"reload_interval":        s.ReloadInterval.String(),
	}, nil
}
