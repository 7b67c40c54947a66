package storage

import (
	"log/slog"
	"math"

	"github.com/dgraph-io/badger/v3"
	bopts "github.com/dgraph-io/badger/v3/options"

	"github.com/yndnr/kvopts/pkg/options"
)

// maxValueThreshold is the largest value badger keeps inline in the LSM tree.
const maxValueThreshold = 1 << 20

// badgerOptions derives badger's options from the DB options and the options
// of the "default" column family. Settings badger has no equivalent for are
// ignored.
func badgerOptions(cfg Config, db options.DBOptions, def *options.Options, logger *slog.Logger) badger.Options {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}

	opts.SyncWrites = db.UseFsync
	if n := db.MaxBackgroundCompactions; n > 0 {
		// badger refuses a single compactor.
		opts.NumCompactors = max(n, 2)
	}

	cf := def.CF
	if cf.WriteBufferSize > 0 {
		opts.MemTableSize = int64(cf.WriteBufferSize)
	}
	if cf.MaxWriteBufferNumber > 0 {
		opts.NumMemtables = cf.MaxWriteBufferNumber
	}
	if cf.Level0FileNumCompactionTrigger > 0 {
		opts.NumLevelZeroTables = cf.Level0FileNumCompactionTrigger
	}
	if cf.Level0StopWritesTrigger > opts.NumLevelZeroTables {
		opts.NumLevelZeroTablesStall = cf.Level0StopWritesTrigger
	}
	if cf.NumLevels > 1 {
		opts.MaxLevels = cf.NumLevels
	}
	if cf.TargetFileSizeBase > 0 {
		opts.BaseTableSize = int64(cf.TargetFileSizeBase)
	}
	if cf.TargetFileSizeMultiplier > 0 {
		opts.TableSizeMultiplier = cf.TargetFileSizeMultiplier
	}
	if cf.MaxBytesForLevelBase > 0 {
		opts.BaseLevelSize = int64(cf.MaxBytesForLevelBase)
	}
	if m := int(cf.MaxBytesForLevelMultiplier); m > 1 {
		opts.LevelSizeMultiplier = m
	}
	opts.Compression = compression(cf.Compression, logger)
	if cf.EnableBlobFiles {
		opts.ValueThreshold = min(int64(cf.MinBlobSize), maxValueThreshold)
	}
	// Values above the batch limit of one memtable cannot stay inline.
	opts.ValueThreshold = min(opts.ValueThreshold, opts.MemTableSize*15/100)

	table := def.Table
	if table.BlockSize > 0 {
		opts.BlockSize = int(table.BlockSize)
	}
	opts.BloomFalsePositive = bloomFalsePositive(table.BloomBitsPerKey)

	return opts
}

// compression maps a persisted compression type onto the ones badger
// implements. Types badger lacks fall back to snappy.
func compression(c options.Compression, logger *slog.Logger) bopts.CompressionType {
	switch c {
	case options.CompressionNone, options.CompressionDisabled:
		return bopts.None
	case options.CompressionSnappy:
		return bopts.Snappy
	case options.CompressionZSTD:
		return bopts.ZSTD
	default:
		logger.Warn("compression type not supported by engine, using snappy", "compression", string(c))
		return bopts.Snappy
	}
}

// bloomFalsePositive converts bits per key into the false positive rate a
// standard bloom filter reaches with them. Zero bits disables the filter.
func bloomFalsePositive(bitsPerKey float64) float64 {
	if bitsPerKey <= 0 {
		return 0
	}
	return math.Pow(0.6185, bitsPerKey)
}
