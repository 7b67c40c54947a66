package capi

import (
	"sync"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/kvopts/internal/core/domain"
	"github.com/yndnr/kvopts/internal/telemetry/metric"
	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/options"
)

const defaultAndCF1 = `[Version]
  options_file_version=1.1
[DBOptions]
  create_if_missing=true
[CFOptions "default"]
[CFOptions "cf1"]
  write_buffer_size=1048576
`

const unknownKey = `[Version]
  options_file_version=1.1
[DBOptions]
[CFOptions "default"]
  not_an_option=1
`

func newAPI(t *testing.T) *API {
	t.Helper()
	a, err := New()
	require.NoError(t, err)
	return a
}

func memEnv(a *API) Handle {
	return a.EnvCreate(env.FromFS(fstest.MapFS{
		"OPTIONS": {Data: []byte(defaultAndCF1)},
		"UNKNOWN": {Data: []byte(unknownKey)},
		"BROKEN":  {Data: []byte("[DBOptions\n")},
	}))
}

func assertInvalidHandle(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, domain.ErrInvalidHandle)
	}()
	fn()
}

func TestLoad_DefaultAndCF1(t *testing.T) {
	a := newAPI(t)
	envH := memEnv(a)
	defer a.EnvDestroy(envH)
	nullH := a.NullCache()
	defer a.CacheDestroy(nullH)

	var errs ErrorSlot
	res := a.Load("OPTIONS", envH, false, nullH, &errs)
	require.False(t, res.Empty())
	assert.Zero(t, errs.Len(), "success leaves the slot untouched")
	defer a.OptionsDestroy(res.Options)
	defer a.ArrayDestroy(res.Array)

	require.Equal(t, 2, a.ArrayCount(res.Array))
	assert.Equal(t, "default", a.ArrayName(res.Array, 0))
	assert.Equal(t, "cf1", a.ArrayName(res.Array, 1))

	cf1 := a.ArrayOptions(res.Array, 1)
	defer a.OptionsDestroy(cf1)
	got, ok := a.OptionsGet(cf1, "write_buffer_size")
	require.True(t, ok)
	assert.Equal(t, "1048576", got)

	for _, name := range append(options.Names(options.SectionDB), "num_levels", "compression", "block_size") {
		want, _ := a.OptionsGet(res.Options, name)
		have, _ := a.OptionsGet(cf1, name)
		assert.Equal(t, want, have, name)
	}
}

func TestLoad_UnknownOptionFlag(t *testing.T) {
	a := newAPI(t)
	envH := memEnv(a)
	nullH := a.NullCache()

	var errs ErrorSlot
	res := a.Load("UNKNOWN", envH, false, nullH, &errs)
	assert.True(t, res.Empty())
	msg, ok := errs.Message()
	require.True(t, ok)
	assert.Contains(t, msg, "not_an_option")

	errs.Clear()
	res = a.Load("UNKNOWN", envH, true, nullH, &errs)
	require.False(t, res.Empty())
	assert.Zero(t, errs.Len())
	a.OptionsDestroy(res.Options)
	a.ArrayDestroy(res.Array)
}

func TestLoad_ErrorSlotHygiene(t *testing.T) {
	a := newAPI(t)
	envH := memEnv(a)
	nullH := a.NullCache()
	before := a.LiveHandles()

	var errs ErrorSlot
	assert.True(t, a.Load("MISSING", envH, false, nullH, &errs).Empty())
	first, _ := errs.Message()
	assert.Contains(t, first, "MISSING")

	assert.True(t, a.Load("BROKEN", envH, false, nullH, &errs).Empty())
	assert.Equal(t, 1, errs.Len())
	second, _ := errs.Message()
	assert.NotEqual(t, first, second, "the slot holds the most recent failure")
	assert.Contains(t, second, "KV-PARSE-4001")

	assert.Equal(t, before, a.LiveHandles(), "failed loads create no handles")
}

func TestLoad_NilErrorSlot(t *testing.T) {
	a := newAPI(t)
	res := a.Load("MISSING", memEnv(a), false, a.NullCache(), nil)
	assert.True(t, res.Empty())
}

func TestLoad_SharesCache(t *testing.T) {
	a := newAPI(t)
	envH := memEnv(a)
	var errs ErrorSlot
	cacheH := a.CacheCreateLRU(1<<20, &errs)
	require.NotZero(t, cacheH)
	c := lookup[cache.Handle](a.handles, cacheH, KindCache)

	res := a.Load("OPTIONS", envH, false, cacheH, &errs)
	require.False(t, res.Empty())
	assert.EqualValues(t, 4, c.Refs())

	a.CacheDestroy(cacheH)
	assert.True(t, c.IsNull(), "the destroyed handle reads as null")
	shared := lookup[*options.Options](a.handles, res.Options, KindOptions).Table.BlockCache
	assert.EqualValues(t, 3, shared.Refs(), "options keep the cache alive")

	a.ArrayDestroy(res.Array)
	assert.EqualValues(t, 1, shared.Refs())
	a.OptionsDestroy(res.Options)
}

func TestCacheCreateLRU_Invalid(t *testing.T) {
	a := newAPI(t)
	var errs ErrorSlot
	assert.Zero(t, a.CacheCreateLRU(0, &errs))
	assert.Equal(t, 1, errs.Len())
}

func TestOptions_CloneIndependence(t *testing.T) {
	a := newAPI(t)
	var errs ErrorSlot

	h := a.OptionsCreate()
	h2 := a.OptionsClone(h)
	defer a.OptionsDestroy(h)
	defer a.OptionsDestroy(h2)

	require.True(t, a.OptionsSet(h, "num_levels", "3", &errs))
	require.True(t, a.OptionsSet(h2, "compression", "kNoCompression", &errs))

	v, _ := a.OptionsGet(h2, "num_levels")
	assert.Equal(t, "7", v)
	v, _ = a.OptionsGet(h, "compression")
	assert.Equal(t, "kSnappyCompression", v)

	assert.False(t, a.OptionsSet(h, "num_levels", "three", &errs))
	msg, _ := errs.Message()
	assert.Contains(t, msg, "num_levels")
	v, _ = a.OptionsGet(h, "num_levels")
	assert.Equal(t, "3", v)
}

func TestOptions_SetBlockCache(t *testing.T) {
	a := newAPI(t)
	var errs ErrorSlot
	h := a.OptionsCreate()
	cacheH := a.CacheCreateLRU(1<<20, &errs)

	a.OptionsSetBlockCache(h, cacheH)
	c := lookup[cache.Handle](a.handles, cacheH, KindCache)
	assert.EqualValues(t, 2, c.Refs())

	a.OptionsDestroy(h)
	assert.EqualValues(t, 1, c.Refs())
	a.CacheDestroy(cacheH)
}

func TestArray_Empty(t *testing.T) {
	a := newAPI(t)
	h := a.ArrayCreate()
	assert.Zero(t, a.ArrayCount(h))
	assert.Panics(t, func() { a.ArrayName(h, 0) })
	a.ArrayDestroy(h)
}

func TestInvalidHandles(t *testing.T) {
	a := newAPI(t)
	opts := a.OptionsCreate()
	arr := a.ArrayCreate()

	assertInvalidHandle(t, func() { a.OptionsClone(0) })
	assertInvalidHandle(t, func() { a.OptionsClone(arr) })
	assertInvalidHandle(t, func() { a.ArrayCount(opts) })
	assertInvalidHandle(t, func() { a.Load("OPTIONS", opts, false, a.NullCache(), nil) })

	a.OptionsDestroy(opts)
	assertInvalidHandle(t, func() { a.OptionsDestroy(opts) })
	assertInvalidHandle(t, func() { a.OptionsGet(opts, "num_levels") })

	a.ArrayDestroy(arr)
	assertInvalidHandle(t, func() { a.ArrayDestroy(arr) })
}

func TestLiveHandles(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, map[string]int{"options": 0, "cache": 0, "env": 0, "array": 0}, a.LiveHandles())

	o := a.OptionsCreate()
	c := a.NullCache()
	e := a.CreateDefaultEnv()
	arr := a.ArrayCreate()
	assert.Equal(t, map[string]int{"options": 1, "cache": 1, "env": 1, "array": 1}, a.LiveHandles())

	a.OptionsDestroy(o)
	a.CacheDestroy(c)
	a.EnvDestroy(e)
	a.ArrayDestroy(arr)
	assert.Equal(t, map[string]int{"options": 0, "cache": 0, "env": 0, "array": 0}, a.LiveHandles())
}

func TestMetrics(t *testing.T) {
	reg := metric.NewRegistry()
	a, err := New(WithMetrics(reg))
	require.NoError(t, err)

	h := a.OptionsCreate()
	a.OptionsClone(h)
	a.OptionsDestroy(h)

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.HandleOps.WithLabelValues("options", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HandleOps.WithLabelValues("options", "destroy")))

	n, err := testutil.GatherAndCount(reg.Prometheus(), "kvopts_handles_live")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "one series per handle kind")

	_, err = New(WithMetrics(reg))
	assert.Error(t, err, "a registry exports one handle table")
}

func TestConcurrentHandles(t *testing.T) {
	a := newAPI(t)
	envH := memEnv(a)
	nullH := a.NullCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var errs ErrorSlot
			res := a.Load("OPTIONS", envH, false, nullH, &errs)
			if res.Empty() {
				msg, _ := errs.Message()
				t.Errorf("load %d failed: %s", i, msg)
				return
			}
			for j := 0; j < a.ArrayCount(res.Array); j++ {
				_ = a.ArrayName(res.Array, j)
				a.OptionsDestroy(a.ArrayOptions(res.Array, j))
			}
			a.ArrayDestroy(res.Array)
			a.OptionsDestroy(res.Options)
		}(i)
	}
	wg.Wait()

	live := a.LiveHandles()
	assert.Zero(t, live["options"])
	assert.Zero(t, live["array"])
}
