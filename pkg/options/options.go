// Package options defines the engine configuration object, the per column
// family override merge and the descriptor array produced by a load.
//
// An *Options owns one configuration value. Every scalar field is copied by
// Clone; the block cache is the only shared sub-resource and is shared by
// reference count rather than duplicated. Close releases that share.
package options

import "github.com/yndnr/kvopts/pkg/cache"

// DefaultColumnFamily is the name of the column family every database has.
const DefaultColumnFamily = "default"

// DBOptions holds database-wide settings ([DBOptions] section).
type DBOptions struct {
	CreateIfMissing             bool   `opt:"create_if_missing" json:"create_if_missing"`
	CreateMissingColumnFamilies bool   `opt:"create_missing_column_families" json:"create_missing_column_families"`
	ErrorIfExists               bool   `opt:"error_if_exists" json:"error_if_exists"`
	ParanoidChecks              bool   `opt:"paranoid_checks" json:"paranoid_checks"`
	UseFsync                    bool   `opt:"use_fsync" json:"use_fsync"`
	MaxOpenFiles                int    `opt:"max_open_files" json:"max_open_files"`
	MaxBackgroundJobs           int    `opt:"max_background_jobs" json:"max_background_jobs"`
	MaxBackgroundCompactions    int    `opt:"max_background_compactions" json:"max_background_compactions"`
	MaxSubcompactions           uint32 `opt:"max_subcompactions" json:"max_subcompactions"`
	MaxTotalWalSize             uint64 `opt:"max_total_wal_size" json:"max_total_wal_size"`
	BytesPerSync                uint64 `opt:"bytes_per_sync" json:"bytes_per_sync"`
	WalTTLSeconds               uint64 `opt:"WAL_ttl_seconds" json:"wal_ttl_seconds"`
	StatsDumpPeriodSec          uint32 `opt:"stats_dump_period_sec" json:"stats_dump_period_sec"`
	DBWriteBufferSize           uint64 `opt:"db_write_buffer_size" json:"db_write_buffer_size"`
	AllowMmapReads              bool   `opt:"allow_mmap_reads" json:"allow_mmap_reads"`
	AllowMmapWrites             bool   `opt:"allow_mmap_writes" json:"allow_mmap_writes"`
	ManualWalFlush              bool   `opt:"manual_wal_flush" json:"manual_wal_flush"`
	AtomicFlush                 bool   `opt:"atomic_flush" json:"atomic_flush"`
}

// ColumnFamilyOptions holds per column family settings ([CFOptions "name"]).
type ColumnFamilyOptions struct {
	WriteBufferSize                uint64          `opt:"write_buffer_size" json:"write_buffer_size"`
	MaxWriteBufferNumber           int             `opt:"max_write_buffer_number" json:"max_write_buffer_number"`
	MinWriteBufferNumberToMerge    int             `opt:"min_write_buffer_number_to_merge" json:"min_write_buffer_number_to_merge"`
	NumLevels                      int             `opt:"num_levels" json:"num_levels"`
	Level0FileNumCompactionTrigger int             `opt:"level0_file_num_compaction_trigger" json:"level0_file_num_compaction_trigger"`
	Level0SlowdownWritesTrigger    int             `opt:"level0_slowdown_writes_trigger" json:"level0_slowdown_writes_trigger"`
	Level0StopWritesTrigger        int             `opt:"level0_stop_writes_trigger" json:"level0_stop_writes_trigger"`
	TargetFileSizeBase             uint64          `opt:"target_file_size_base" json:"target_file_size_base"`
	TargetFileSizeMultiplier       int             `opt:"target_file_size_multiplier" json:"target_file_size_multiplier"`
	MaxBytesForLevelBase           uint64          `opt:"max_bytes_for_level_base" json:"max_bytes_for_level_base"`
	MaxBytesForLevelMultiplier     float64         `opt:"max_bytes_for_level_multiplier" json:"max_bytes_for_level_multiplier"`
	Compression                    Compression     `opt:"compression" json:"compression"`
	BottommostCompression          Compression     `opt:"bottommost_compression" json:"bottommost_compression"`
	CompactionStyle                CompactionStyle `opt:"compaction_style" json:"compaction_style"`
	DisableAutoCompactions         bool            `opt:"disable_auto_compactions" json:"disable_auto_compactions"`
	TTL                            uint64          `opt:"ttl" json:"ttl"`
	EnableBlobFiles                bool            `opt:"enable_blob_files" json:"enable_blob_files"`
	MinBlobSize                    uint64          `opt:"min_blob_size" json:"min_blob_size"`
	Comparator                     string          `opt:"comparator" json:"comparator"`
	MergeOperator                  string          `opt:"merge_operator" json:"merge_operator"`
}

// BlockBasedTableOptions holds table settings ([TableOptions/BlockBasedTable "name"]).
type BlockBasedTableOptions struct {
	BlockSize                 uint64  `opt:"block_size" json:"block_size"`
	BlockRestartInterval      int     `opt:"block_restart_interval" json:"block_restart_interval"`
	NoBlockCache              bool    `opt:"no_block_cache" json:"no_block_cache"`
	CacheIndexAndFilterBlocks bool    `opt:"cache_index_and_filter_blocks" json:"cache_index_and_filter_blocks"`
	WholeKeyFiltering         bool    `opt:"whole_key_filtering" json:"whole_key_filtering"`
	BloomBitsPerKey           float64 `opt:"bloom_bits_per_key" json:"bloom_bits_per_key"`
	FormatVersion             uint32  `opt:"format_version" json:"format_version"`

	// BlockCache is resolved at load time, never persisted.
	BlockCache cache.Handle `opt:"-" json:"-"`
}

// Options is one complete engine configuration.
type Options struct {
	DB    DBOptions
	CF    ColumnFamilyOptions
	Table BlockBasedTableOptions
}

// Default returns the engine defaults with the null block cache.
func Default() *Options {
	return &Options{
		DB: DBOptions{
			ParanoidChecks:           true,
			MaxOpenFiles:             -1,
			MaxBackgroundJobs:        2,
			MaxBackgroundCompactions: -1,
			MaxSubcompactions:        1,
			StatsDumpPeriodSec:       600,
		},
		CF: ColumnFamilyOptions{
			WriteBufferSize:                64 << 20,
			MaxWriteBufferNumber:           2,
			MinWriteBufferNumberToMerge:    1,
			NumLevels:                      7,
			Level0FileNumCompactionTrigger: 4,
			Level0SlowdownWritesTrigger:    20,
			Level0StopWritesTrigger:        36,
			TargetFileSizeBase:             64 << 20,
			TargetFileSizeMultiplier:       1,
			MaxBytesForLevelBase:           256 << 20,
			MaxBytesForLevelMultiplier:     10,
			Compression:                    CompressionSnappy,
			BottommostCompression:          CompressionDisabled,
			CompactionStyle:                CompactionStyleLevel,
			Comparator:                     "leveldb.BytewiseComparator",
			MergeOperator:                  "nullptr",
		},
		Table: BlockBasedTableOptions{
			BlockSize:            4 << 10,
			BlockRestartInterval: 16,
			WholeKeyFiltering:    true,
			BloomBitsPerKey:      10,
			FormatVersion:        5,
			BlockCache:           cache.Null(),
		},
	}
}

// Clone returns an independent copy. Scalar fields are copied; the block
// cache gains one reference owned by the clone.
func (o *Options) Clone() *Options {
	c := *o
	c.Table.BlockCache = o.Table.BlockCache.Share()
	return &c
}

// Close releases the options' share of the block cache. Calling Close more
// than once is harmless.
func (o *Options) Close() {
	o.Table.BlockCache.Release()
	o.Table.BlockCache = cache.Null()
}

// SetBlockCache replaces the block cache with a new share of c, releasing
// the previous one.
func (o *Options) SetBlockCache(c cache.Handle) {
	o.Table.BlockCache.Release()
	o.Table.BlockCache = c.Share()
}

// Equal reports whether both configurations hold the same values and
// reference the same block cache.
func (o *Options) Equal(other *Options) bool {
	if o == nil || other == nil {
		return o == other
	}
	if !o.Table.BlockCache.Same(other.Table.BlockCache) {
		return false
	}
	a, b := o.Table, other.Table
	a.BlockCache, b.BlockCache = cache.Null(), cache.Null()
	return o.DB == other.DB && o.CF == other.CF && a == b
}
