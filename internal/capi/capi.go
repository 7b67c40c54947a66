// Package capi exposes loading and the option objects through integer
// handles with explicit create and destroy calls, for callers that manage
// lifetimes by hand, such as a cgo export layer.
//
// Every handle is created by exactly one call and released by exactly one
// destroy call of the matching kind. Passing an unknown, destroyed or
// wrongly typed handle panics with a domain.ErrInvalidHandle error. Failures
// that a caller can act on are reported through an ErrorSlot and the zero
// Handle.
package capi

import (
	"context"

	"github.com/yndnr/kvopts/internal/telemetry/metric"
	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/loader"
	"github.com/yndnr/kvopts/pkg/options"
)

// FullOptionsHandles is the result of Load. Both handles are zero when the
// load failed.
type FullOptionsHandles struct {
	Options Handle
	Array   Handle
}

// Empty reports whether the load failed.
func (r FullOptionsHandles) Empty() bool {
	return r.Options == 0 && r.Array == 0
}

// API owns a handle table.
type API struct {
	handles *table
	loader  *loader.Loader
	metrics *metric.Registry
}

// Option configures an API.
type Option func(*API)

// WithLoader sets the loader used by Load.
func WithLoader(l *loader.Loader) Option {
	return func(a *API) {
		a.loader = l
	}
}

// WithMetrics records handle operations in r and exports live handle
// counts from it.
func WithMetrics(r *metric.Registry) Option {
	return func(a *API) {
		a.metrics = r
	}
}

// New creates an API with an empty handle table.
func New(opts ...Option) (*API, error) {
	a := &API{handles: newTable()}
	for _, opt := range opts {
		opt(a)
	}
	if a.loader == nil {
		a.loader = loader.New(loader.WithMetrics(a.metrics))
	}
	if a.metrics != nil {
		if err := a.metrics.Register(metric.NewHandleCollector(a.LiveHandles)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *API) insert(kind Kind, v any) Handle {
	h := a.handles.insert(kind, v)
	if a.metrics != nil {
		a.metrics.RecordHandle(string(kind), "create")
	}
	return h
}

func (a *API) remove(h Handle, kind Kind) any {
	v := a.handles.remove(h, kind)
	if a.metrics != nil {
		a.metrics.RecordHandle(string(kind), "destroy")
	}
	return v
}

// Load reads the options file at path through the environment envH. When
// cacheH is not the null cache, the loaded options share it. On failure the
// message is written to errs and the empty result is returned; no handle is
// created and no cache reference is kept.
func (a *API) Load(path string, envH Handle, ignoreUnknown bool, cacheH Handle, errs *ErrorSlot) FullOptionsHandles {
	e := lookup[env.Env](a.handles, envH, KindEnv)
	c := lookup[cache.Handle](a.handles, cacheH, KindCache)

	res, err := a.loader.Load(context.Background(), path, e, ignoreUnknown, c)
	if err != nil {
		errs.fail(err)
		return FullOptionsHandles{}
	}
	return FullOptionsHandles{
		Options: a.insert(KindOptions, res.Options),
		Array:   a.insert(KindArray, res.Descriptors),
	}
}

// OptionsCreate returns a handle to the default options.
func (a *API) OptionsCreate() Handle {
	return a.insert(KindOptions, options.Default())
}

// OptionsClone returns a handle to an independent copy of h. The copy
// shares h's block cache.
func (a *API) OptionsClone(h Handle) Handle {
	o := lookup[*options.Options](a.handles, h, KindOptions)
	return a.insert(KindOptions, o.Clone())
}

// OptionsDestroy releases h.
func (a *API) OptionsDestroy(h Handle) {
	a.remove(h, KindOptions).(*options.Options).Close()
}

// OptionsSet assigns the option name of h. On failure the message is
// written to errs, h is unchanged and false is returned.
func (a *API) OptionsSet(h Handle, name, value string, errs *ErrorSlot) bool {
	o := lookup[*options.Options](a.handles, h, KindOptions)
	if err := o.Set(name, value); err != nil {
		errs.fail(err)
		return false
	}
	return true
}

// OptionsGet returns the text of the option name of h.
func (a *API) OptionsGet(h Handle, name string) (string, bool) {
	return lookup[*options.Options](a.handles, h, KindOptions).Get(name)
}

// OptionsSetBlockCache makes h share the cache cacheH.
func (a *API) OptionsSetBlockCache(h, cacheH Handle) {
	o := lookup[*options.Options](a.handles, h, KindOptions)
	o.SetBlockCache(lookup[cache.Handle](a.handles, cacheH, KindCache))
}

// NullCache returns a handle to the null cache. Like every cache handle it
// is released with CacheDestroy.
func (a *API) NullCache() Handle {
	return a.insert(KindCache, cache.Null())
}

// CacheCreateLRU returns a handle to a new cache of capacity bytes, or the
// zero Handle with the message in errs.
func (a *API) CacheCreateLRU(capacity int64, errs *ErrorSlot) Handle {
	c, err := cache.NewLRU(capacity)
	if err != nil {
		errs.fail(err)
		return 0
	}
	return a.insert(KindCache, c)
}

// CacheDestroy releases the caller's reference. Options that share the
// cache keep it alive.
func (a *API) CacheDestroy(h Handle) {
	a.remove(h, KindCache).(cache.Handle).Release()
}

// CreateDefaultEnv returns a handle to the host filesystem environment.
func (a *API) CreateDefaultEnv() Handle {
	return a.insert(KindEnv, env.Default())
}

// EnvCreate returns a handle to e. A nil e is the host filesystem.
func (a *API) EnvCreate(e env.Env) Handle {
	if e == nil {
		e = env.Default()
	}
	return a.insert(KindEnv, e)
}

// EnvDestroy releases h.
func (a *API) EnvDestroy(h Handle) {
	a.remove(h, KindEnv)
}

// ArrayCreate returns a handle to an empty descriptor array.
func (a *API) ArrayCreate() Handle {
	return a.insert(KindArray, options.NewDescriptors())
}

// ArrayDestroy releases the array and every entry in it.
func (a *API) ArrayDestroy(h Handle) {
	a.remove(h, KindArray).(*options.Descriptors).Close()
}

// ArrayCount returns the number of column families in h.
func (a *API) ArrayCount(h Handle) int {
	return lookup[*options.Descriptors](a.handles, h, KindArray).Len()
}

// ArrayName returns the name of entry i of h. i must be in
// [0, ArrayCount(h)).
func (a *API) ArrayName(h Handle, i int) string {
	return lookup[*options.Descriptors](a.handles, h, KindArray).Name(i)
}

// ArrayOptions returns a new options handle holding a copy of entry i of h.
// i must be in [0, ArrayCount(h)).
func (a *API) ArrayOptions(h Handle, i int) Handle {
	d := lookup[*options.Descriptors](a.handles, h, KindArray)
	return a.insert(KindOptions, d.Options(i))
}

// LiveHandles returns the number of live handles by kind.
func (a *API) LiveHandles() map[string]int {
	return a.handles.counts()
}
