// Package loader rebuilds engine configuration from a persisted OPTIONS
// file: the base options object and one merged options object per column
// family, in file order.
//
// A load either returns every result or nothing. The file is parsed and
// validated completely before anything is allocated, so merging cannot fail
// and a failed load keeps no reference to the caller's cache.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/kvopts/internal/core/domain"
	"github.com/yndnr/kvopts/internal/optfile"
	"github.com/yndnr/kvopts/internal/telemetry/logger"
	"github.com/yndnr/kvopts/internal/telemetry/metric"
	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/options"
)

// Result is a successful load. The caller owns both parts and releases them
// with Close.
type Result struct {
	// Options is the base configuration: defaults plus [DBOptions], with
	// the caller's cache as block cache.
	Options *options.Options
	// Descriptors holds one merged configuration per column family.
	Descriptors *options.Descriptors
	// FormatVersion is the file's options_file_version.
	FormatVersion string
}

// Close releases the options and the descriptor array.
func (r *Result) Close() {
	r.Options.Close()
	r.Descriptors.Close()
}

// Loader loads options files.
type Loader struct {
	logger         *slog.Logger
	metrics        *metric.Registry
	reloadInterval time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithMetrics records every load in r.
func WithMetrics(r *metric.Registry) Option {
	return func(ld *Loader) {
		ld.metrics = r
	}
}

// WithReloadInterval sets the minimum time between two reloads in Watch.
func WithReloadInterval(d time.Duration) Option {
	return func(ld *Loader) {
		ld.reloadInterval = d
	}
}

// DefaultReloadInterval is the minimum time between two reloads in Watch.
const DefaultReloadInterval = 500 * time.Millisecond

// New creates a loader. Without options it logs nowhere and records no
// metrics.
func New(opts ...Option) *Loader {
	l := &Loader{
		logger:         logger.Discard(),
		reloadInterval: DefaultReloadInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var defaultLoader = New()

// Load reads the file at path through e with the default loader.
func Load(path string, e env.Env, ignoreUnknown bool, c cache.Handle) (*Result, error) {
	return defaultLoader.Load(context.Background(), path, e, ignoreUnknown, c)
}

// Load reads the file at path through e and builds the base options and
// the column family descriptors.
//
// e is borrowed; a nil e reads the host filesystem. When c is not the null
// cache the base options and every descriptor that keeps a block cache
// share it; the caller keeps its own reference. Unknown option names fail
// the load unless ignoreUnknown is set, in which case they are skipped.
func (l *Loader) Load(ctx context.Context, path string, e env.Env, ignoreUnknown bool, c cache.Handle) (*Result, error) {
	start := time.Now()
	id := ulid.Make().String()
	ctx = logger.WithLoadID(logger.WithLogger(ctx, l.logger), id)
	log := logger.L(ctx).With("path", path)

	res, err := l.load(path, e, ignoreUnknown, c)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("options load failed", "error", err, "duration", elapsed)
		l.record(resultOf(err), elapsed, 0)
		return nil, err
	}

	log.Debug("options loaded",
		"column_families", res.Descriptors.Len(),
		"format_version", res.FormatVersion,
		"block_cache", c.String(),
		"duration", elapsed,
	)
	l.record(metric.ResultOK, elapsed, res.Descriptors.Len())
	return res, nil
}

func (l *Loader) load(path string, e env.Env, ignoreUnknown bool, c cache.Handle) (*Result, error) {
	if path == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("empty options path")
	}
	if e == nil {
		e = env.Default()
	}

	f, err := optfile.Read(e, path, ignoreUnknown)
	if err != nil {
		return nil, err
	}

	base := options.Default()
	base.DB = f.DB
	base.SetBlockCache(c)
	return &Result{
		Options:       base,
		Descriptors:   options.BuildDescriptors(base, f.Families),
		FormatVersion: f.FormatVersion,
	}, nil
}

func (l *Loader) record(result string, elapsed time.Duration, families int) {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordLoad(result, elapsed.Seconds(), families)
}

// resultOf maps a load error to its metric label.
func resultOf(err error) string {
	switch {
	case err == nil:
		return metric.ResultOK
	case errors.Is(err, domain.ErrOptionsIO):
		return metric.ResultIOError
	case errors.Is(err, domain.ErrOptionsParse):
		return metric.ResultParseError
	case errors.Is(err, domain.ErrUnknownOption):
		return metric.ResultUnknownOption
	case errors.Is(err, domain.ErrInvalidOptionValue):
		return metric.ResultInvalidValue
	default:
		return metric.ResultOther
	}
}
