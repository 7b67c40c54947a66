package storage

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("storage engine closed")
	ErrDropped     = errors.New("column family dropped")
)

// Config configures where and how an engine runs. Tuning that belongs to
// the database itself comes from the loaded options, not from here.
type Config struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Nothing is persisted, so the
	// database never exists before Open.
	InMemory bool

	// GCInterval is the interval between automatic value log GC runs.
	// A non-positive duration disables the loop.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 1GB
	ValueLogFileSize int64

	// MetricsInterval is how often registered size gauges are refreshed.
	// Default: 15s
	MetricsInterval time.Duration
}

// DefaultConfig returns the default configuration for a database in dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		GCInterval:       "10m",
		GCThreshold:      0.5,
		ValueLogFileSize: 1 << 30, // 1GB
		MetricsInterval:  15 * time.Second,
	}
}

// Stats contains storage engine statistics.
type Stats struct {
	// Keys is the number of live keys per column family.
	Keys map[string]uint64

	// TotalKeys is the sum of Keys.
	TotalKeys uint64

	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size.
	LSMSize uint64

	// ValueLogSize is the value log size.
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64

	// GCBytesReclaimed is the total bytes reclaimed by GC.
	GCBytesReclaimed uint64
}
