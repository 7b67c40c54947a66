package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/kvopts/internal/core/domain"
	"github.com/yndnr/kvopts/pkg/options"
)

// Engine is a badger database opened with a set of column families.
type Engine struct {
	db     *badger.DB
	seq    *badger.Sequence
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	families map[string]*ColumnFamily
	order    []string

	// Metrics (internal counters)
	lastGCTime       atomic.Int64  // Unix milliseconds
	gcBytesReclaimed atomic.Uint64 // Total bytes reclaimed by GC

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsTotalSize    prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge

	// Shutdown
	closed atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open opens the database described by db and one descriptor per column
// family. The descriptors must include "default" and every family the
// database already has. Families that do not exist yet are created when
// create_missing_column_families is set; "default" is always created.
//
// The engine keeps its own copy of every descriptor's options; the caller
// still owns families.
func Open(cfg Config, db options.DBOptions, families []options.Descriptor, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("storage directory is required")
	}
	def, err := checkDescriptors(families)
	if err != nil {
		return nil, err
	}

	exists, err := databaseExists(cfg)
	if err != nil {
		return nil, fmt.Errorf("badger: stat db: %w", err)
	}
	switch {
	case !exists && !db.CreateIfMissing:
		return nil, domain.ErrDatabaseMissing.WithDetailsf("%s (create_if_missing is false)", cfg.Dir)
	case exists && db.ErrorIfExists:
		return nil, domain.ErrDatabaseExists.WithDetailsf("%s (error_if_exists is true)", cfg.Dir)
	}

	bdb, err := badger.Open(badgerOptions(cfg, db, def, logger))
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	engine := &Engine{
		db:       bdb,
		cfg:      cfg,
		logger:   logger,
		families: make(map[string]*ColumnFamily, len(families)),
		stopCh:   make(chan struct{}),
	}
	if err := engine.openFamilies(db, families); err != nil {
		engine.closed.Store(true)
		if cerr := engine.closeStore(); cerr != nil {
			logger.Warn("close after failed open", "error", cerr)
		}
		return nil, err
	}

	engine.wg.Add(1)
	go engine.gcLoop()

	logger.Info("storage engine started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"column_families", len(engine.order),
		"gc_interval", cfg.GCInterval)

	return engine, nil
}

func checkDescriptors(families []options.Descriptor) (*options.Options, error) {
	var def *options.Options
	seen := make(map[string]bool, len(families))
	for _, d := range families {
		if d.Name == "" {
			return nil, domain.ErrInvalidArgument.WithDetails("column family name is empty")
		}
		if d.Options == nil {
			return nil, domain.ErrInvalidArgument.WithDetailsf("column family %q has no options", d.Name)
		}
		if seen[d.Name] {
			return nil, domain.ErrInvalidArgument.WithDetailsf("column family %q given twice", d.Name)
		}
		seen[d.Name] = true
		if d.Name == options.DefaultColumnFamily {
			def = d.Options
		}
	}
	if def == nil {
		return nil, domain.ErrInvalidArgument.WithDetailsf("column family %q must be opened", options.DefaultColumnFamily)
	}
	return def, nil
}

func databaseExists(cfg Config) (bool, error) {
	if cfg.InMemory {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(cfg.Dir, badger.ManifestFilename))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (e *Engine) openFamilies(db options.DBOptions, families []options.Descriptor) error {
	persisted, err := persistedFamilies(e.db)
	if err != nil {
		return fmt.Errorf("badger: read column families: %w", err)
	}

	requested := make(map[string]bool, len(families))
	for _, d := range families {
		requested[d.Name] = true
		if _, ok := persisted[d.Name]; !ok && d.Name != options.DefaultColumnFamily && !db.CreateMissingColumnFamilies {
			return domain.ErrUnknownColumnFamily.WithDetailsf("column family %q does not exist (create_missing_column_families is false)", d.Name)
		}
	}
	var unopened []string
	for name := range persisted {
		if !requested[name] {
			unopened = append(unopened, name)
		}
	}
	if len(unopened) > 0 {
		slices.Sort(unopened)
		return domain.ErrInvalidArgument.WithDetailsf("column families not opened: %s", strings.Join(unopened, ", "))
	}

	e.seq, err = e.db.GetSequence(sequenceKey, 1)
	if err != nil {
		return fmt.Errorf("badger: column family sequence: %w", err)
	}

	for _, d := range families {
		id, ok := persisted[d.Name]
		if !ok {
			if id, err = e.createFamilyRecord(d.Name); err != nil {
				return err
			}
			e.logger.Info("column family created", "name", d.Name, "id", id)
		}
		e.register(newColumnFamily(d.Name, id, d.Options.Clone()))
	}
	return nil
}

func (e *Engine) createFamilyRecord(name string) (uint32, error) {
	next, err := e.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("badger: allocate column family id: %w", err)
	}
	id := uint32(next + 1)
	if err := e.db.Update(func(txn *badger.Txn) error {
		return putFamily(txn, name, id)
	}); err != nil {
		return 0, fmt.Errorf("badger: persist column family %q: %w", name, err)
	}
	return id, nil
}

func (e *Engine) register(cf *ColumnFamily) {
	e.families[cf.name] = cf
	e.order = append(e.order, cf.name)
}

// ColumnFamily returns the open family called name.
func (e *Engine) ColumnFamily(name string) (*ColumnFamily, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cf, ok := e.families[name]
	return cf, ok
}

// DefaultColumnFamily returns the "default" family.
func (e *Engine) DefaultColumnFamily() *ColumnFamily {
	cf, _ := e.ColumnFamily(options.DefaultColumnFamily)
	return cf
}

// ColumnFamilies returns the names of the open families in the order they
// were opened or created.
func (e *Engine) ColumnFamilies() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.order)
}

// CreateColumnFamily creates and opens a new family. A nil opts means the
// engine defaults. The engine keeps its own copy of opts.
func (e *Engine) CreateColumnFamily(ctx context.Context, name string, opts *options.Options) (*ColumnFamily, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if name == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("column family name is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.families[name]; ok {
		return nil, domain.ErrColumnFamilyExists.WithDetails(name)
	}
	id, err := e.createFamilyRecord(name)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = options.Default()
	} else {
		opts = opts.Clone()
	}
	cf := newColumnFamily(name, id, opts)
	e.register(cf)

	e.logger.Info("column family created", "name", name, "id", id)
	return cf, nil
}

// DropColumnFamily deletes a family and all of its data. The default family
// cannot be dropped.
func (e *Engine) DropColumnFamily(ctx context.Context, name string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if name == options.DefaultColumnFamily {
		return domain.ErrInvalidArgument.WithDetails("the default column family cannot be dropped")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cf, ok := e.families[name]
	if !ok {
		return domain.ErrUnknownColumnFamily.WithDetails(name)
	}
	if err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(familyMetaKey(name))
	}); err != nil {
		return fmt.Errorf("badger: drop column family %q: %w", name, err)
	}
	delete(e.families, name)
	e.order = slices.DeleteFunc(e.order, func(n string) bool { return n == name })
	cf.release()

	// Ids are never reused, so leftover data is unreachable even if the
	// prefix drop fails.
	if err := e.db.DropPrefix(cf.prefix); err != nil {
		e.logger.Warn("drop column family data", "name", name, "error", err)
	}

	e.logger.Info("column family dropped", "name", name, "id", cf.id)
	return nil
}

func (e *Engine) usable(cf *ColumnFamily) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if cf == nil {
		return domain.ErrInvalidArgument.WithDetails("column family is nil")
	}
	if cf.dropped.Load() {
		return fmt.Errorf("%w: %s", ErrDropped, cf.name)
	}
	return nil
}

// Put stores a key-value pair in cf. Families with a ttl expire the entry
// after it.
func (e *Engine) Put(ctx context.Context, cf *ColumnFamily, key, value []byte) error {
	if err := e.usable(cf); err != nil {
		return err
	}
	if len(key) == 0 {
		return domain.ErrInvalidArgument.WithDetails("empty key")
	}
	k := cf.key(key)

	cf.mu.Lock()
	defer cf.mu.Unlock()

	err := e.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(k, value)
		if cf.ttl > 0 {
			entry = entry.WithTTL(cf.ttl)
		}
		return txn.SetEntry(entry)
	})
	cf.cache.Del(k)
	return err
}

// Get retrieves a value from cf.
// Returns ErrKeyNotFound if the key does not exist or has expired.
func (e *Engine) Get(ctx context.Context, cf *ColumnFamily, key []byte) ([]byte, error) {
	if err := e.usable(cf); err != nil {
		return nil, err
	}
	k := cf.key(key)
	if v, ok := cf.cache.Get(k); ok {
		return bytes.Clone(v), nil
	}

	cf.mu.RLock()
	defer cf.mu.RUnlock()

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Expiring entries are never cached.
	if cf.ttl == 0 {
		cf.cache.Set(k, value)
	}
	return value, nil
}

// Delete removes a key from cf.
func (e *Engine) Delete(ctx context.Context, cf *ColumnFamily, key []byte) error {
	if err := e.usable(cf); err != nil {
		return err
	}
	k := cf.key(key)

	cf.mu.Lock()
	defer cf.mu.Unlock()

	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
	cf.cache.Del(k)
	return err
}

// Scan iterates over the keys of cf that start with prefix, in key order.
// Keys are handed to fn without the family prefix. fn returns false to stop.
func (e *Engine) Scan(ctx context.Context, cf *ColumnFamily, prefix []byte, fn func(key, value []byte) bool) error {
	if err := e.usable(cf); err != nil {
		return err
	}
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = cf.key(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := item.Key()[len(cf.prefix):]
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			if !fn(key, value) {
				break
			}
		}

		return nil
	})
}

// Flush syncs buffered writes to disk.
func (e *Engine) Flush(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := e.db.Sync(); err != nil {
		return fmt.Errorf("badger: sync: %w", err)
	}
	return nil
}

// GC triggers value log garbage collection.
//
// Returns bytes reclaimed (approximate).
func (e *Engine) GC(ctx context.Context) (uint64, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	startTime := time.Now()

	// Run GC until no more can be reclaimed (threshold-based)
	var totalReclaimed uint64
	for ctx.Err() == nil {
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
				break
			}
			return totalReclaimed, fmt.Errorf("gc: %w", err)
		}

		// Badger does not report the exact amount; one rewrite frees
		// roughly one value log file worth of stale data at the threshold.
		totalReclaimed += uint64(float64(e.db.Opts().ValueLogFileSize) * e.cfg.GCThreshold)
	}

	e.lastGCTime.Store(time.Now().UnixMilli())
	e.gcBytesReclaimed.Add(totalReclaimed)

	e.logger.Debug("gc completed",
		"bytes_reclaimed", totalReclaimed,
		"elapsed", time.Since(startTime))

	return totalReclaimed, ctx.Err()
}

// Stats returns storage statistics. Key counts walk every family's keys.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	lsm, vlog := e.db.Size()
	stats := &Stats{
		Keys:             make(map[string]uint64),
		TotalSize:        uint64(lsm + vlog),
		LSMSize:          uint64(lsm),
		ValueLogSize:     uint64(vlog),
		LastGCTime:       e.lastGCTime.Load(),
		GCBytesReclaimed: e.gcBytesReclaimed.Load(),
	}

	e.mu.RLock()
	families := make([]*ColumnFamily, 0, len(e.order))
	for _, name := range e.order {
		families = append(families, e.families[name])
	}
	e.mu.RUnlock()

	err := e.db.View(func(txn *badger.Txn) error {
		for _, cf := range families {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false // Only need keys
			opts.Prefix = cf.prefix
			it := txn.NewIterator(opts)
			var n uint64
			for it.Rewind(); it.Valid(); it.Next() {
				n++
			}
			it.Close()
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Keys[cf.name] = n
			stats.TotalKeys += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close flushes and closes the database. Column family handles become
// unusable. Calling Close again is a no-op.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.logger.Info("shutting down storage engine")

	// Stop background loops
	close(e.stopCh)
	e.wg.Wait()

	if err := e.closeStore(); err != nil {
		return err
	}

	e.logger.Info("storage engine shutdown complete")
	return nil
}

func (e *Engine) closeStore() error {
	e.mu.Lock()
	for _, cf := range e.families {
		cf.release()
	}
	e.families = nil
	e.order = nil
	e.mu.Unlock()

	var errs []error
	if e.seq != nil {
		if err := e.seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release sequence: %w", err))
		}
	}
	if err := e.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	return errors.Join(errs...)
}

// RegisterMetrics registers engine metrics with reg and starts refreshing
// the size gauges.
//
// This should be called once during initialization.
// Returns the engine for method chaining.
func (e *Engine) RegisterMetrics(reg prometheus.Registerer) *Engine {
	e.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvopts",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	e.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvopts",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	e.metricsTotalSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvopts",
		Subsystem: "badger",
		Name:      "total_size_bytes",
		Help:      "Badger total storage size in bytes (LSM + value log)",
	})

	e.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kvopts",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	gcReclaimed := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "kvopts",
		Subsystem: "badger",
		Name:      "gc_bytes_reclaimed_total",
		Help:      "Total bytes reclaimed by Badger garbage collection",
	}, func() float64 { return float64(e.gcBytesReclaimed.Load()) })

	families := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "kvopts",
		Subsystem: "engine",
		Name:      "column_families",
		Help:      "Number of open column families",
	}, func() float64 { return float64(len(e.ColumnFamilies())) })

	reg.MustRegister(
		e.metricsLSMSize,
		e.metricsValueLogSize,
		e.metricsTotalSize,
		e.metricsLastGCTime,
		gcReclaimed,
		families,
	)

	e.updateMetrics()
	e.wg.Add(1)
	go e.metricsUpdateLoop()

	return e
}

func (e *Engine) updateMetrics() {
	lsm, vlog := e.db.Size()
	e.metricsLSMSize.Set(float64(lsm))
	e.metricsValueLogSize.Set(float64(vlog))
	e.metricsTotalSize.Set(float64(lsm + vlog))
	if t := e.lastGCTime.Load(); t > 0 {
		e.metricsLastGCTime.Set(float64(t) / 1000.0) // Convert ms to seconds
	}
}

// metricsUpdateLoop periodically updates Prometheus metrics.
func (e *Engine) metricsUpdateLoop() {
	defer e.wg.Done()

	interval := e.cfg.MetricsInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.updateMetrics()
		case <-e.stopCh:
			return
		}
	}
}

// gcLoop runs periodic garbage collection.
func (e *Engine) gcLoop() {
	defer e.wg.Done()

	interval, err := time.ParseDuration(e.cfg.GCInterval)
	if err != nil {
		e.logger.Error("invalid gc_interval, using default 10m", "error", err)
		interval = 10 * time.Minute
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := e.GC(ctx); err != nil && !errors.Is(err, ErrClosed) {
				e.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface. Badger's
// info chatter is logged at debug level.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
