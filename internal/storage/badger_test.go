package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/kvopts/internal/core/domain"
	"github.com/yndnr/kvopts/internal/telemetry/logger"
	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/options"
)

func diskConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.GCInterval = "0s" // Disable auto GC for tests
	return cfg
}

func memConfig() Config {
	cfg := DefaultConfig("")
	cfg.InMemory = true
	cfg.GCInterval = "0s"
	return cfg
}

func creating() options.DBOptions {
	db := options.Default().DB
	db.CreateIfMissing = true
	db.CreateMissingColumnFamilies = true
	return db
}

func smallOptions(t *testing.T) *options.Options {
	t.Helper()
	o := options.Default()
	o.CF.WriteBufferSize = 8 << 20
	t.Cleanup(o.Close)
	return o
}

func families(t *testing.T, names ...string) []options.Descriptor {
	t.Helper()
	out := make([]options.Descriptor, len(names))
	for i, name := range names {
		out[i] = options.Descriptor{Name: name, Options: smallOptions(t)}
	}
	return out
}

func openEngine(t *testing.T, cfg Config, db options.DBOptions, fams []options.Descriptor) *Engine {
	t.Helper()
	e, err := Open(cfg, db, fams, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOpen_CreatesFamilies(t *testing.T) {
	e := openEngine(t, memConfig(), creating(), families(t, "default", "cf1"))

	assert.Equal(t, []string{"default", "cf1"}, e.ColumnFamilies())

	def := e.DefaultColumnFamily()
	require.NotNil(t, def)
	cf1, ok := e.ColumnFamily("cf1")
	require.True(t, ok)
	assert.NotEqual(t, def.ID(), cf1.ID())

	_, ok = e.ColumnFamily("nope")
	assert.False(t, ok)
}

func TestOpen_DescriptorErrors(t *testing.T) {
	tests := []struct {
		name string
		fams []options.Descriptor
	}{
		{"no families", nil},
		{"default missing", families(t, "cf1")},
		{"duplicate", families(t, "default", "cf1", "cf1")},
		{"empty name", families(t, "default", "")},
		{"nil options", []options.Descriptor{{Name: "default"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(memConfig(), creating(), tt.fams, logger.Discard())
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestOpen_DirRequired(t *testing.T) {
	_, err := Open(DefaultConfig(""), creating(), families(t, "default"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestOpen_CreateIfMissing(t *testing.T) {
	cfg := diskConfig(t)
	db := creating()
	db.CreateIfMissing = false

	_, err := Open(cfg, db, families(t, "default"), logger.Discard())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDatabaseMissing)
	assert.Contains(t, err.Error(), "create_if_missing")
}

func TestOpen_ErrorIfExists(t *testing.T) {
	cfg := diskConfig(t)

	e, err := Open(cfg, creating(), families(t, "default"), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	db := creating()
	db.ErrorIfExists = true
	_, err = Open(cfg, db, families(t, "default"), logger.Discard())
	assert.ErrorIs(t, err, domain.ErrDatabaseExists)

	db.ErrorIfExists = false
	db.CreateIfMissing = false
	e = openEngine(t, cfg, db, families(t, "default"))
	assert.Equal(t, []string{"default"}, e.ColumnFamilies())
}

func TestOpen_CreateMissingColumnFamilies(t *testing.T) {
	db := creating()
	db.CreateMissingColumnFamilies = false

	_, err := Open(memConfig(), db, families(t, "default", "cf1"), logger.Discard())
	assert.ErrorIs(t, err, domain.ErrUnknownColumnFamily)

	e := openEngine(t, memConfig(), db, families(t, "default"))
	assert.Equal(t, []string{"default"}, e.ColumnFamilies(), "default is always created")
}

func TestReopen_PersistsFamilies(t *testing.T) {
	cfg := diskConfig(t)
	ctx := context.Background()

	e, err := Open(cfg, creating(), families(t, "default", "cf1"), logger.Discard())
	require.NoError(t, err)
	cf1, _ := e.ColumnFamily("cf1")
	id := cf1.ID()
	require.NoError(t, e.Put(ctx, cf1, []byte("k"), []byte("v")))
	require.NoError(t, e.Close())

	_, err = Open(cfg, creating(), families(t, "default"), logger.Discard())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "cf1")

	db := creating()
	db.CreateMissingColumnFamilies = false
	e = openEngine(t, cfg, db, families(t, "cf1", "default"))
	assert.Equal(t, []string{"cf1", "default"}, e.ColumnFamilies(), "open order follows the descriptors")

	cf1, _ = e.ColumnFamily("cf1")
	assert.Equal(t, id, cf1.ID())
	got, err := e.Get(ctx, cf1, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestEngine_BasicOperations(t *testing.T) {
	e := openEngine(t, memConfig(), creating(), families(t, "default", "cf1"))
	ctx := context.Background()
	def := e.DefaultColumnFamily()
	cf1, _ := e.ColumnFamily("cf1")

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, e.Put(ctx, def, []byte("test-key"), []byte("test-value")))

		got, err := e.Get(ctx, def, []byte("test-key"))
		require.NoError(t, err)
		assert.Equal(t, "test-value", string(got))
	})

	t.Run("families are separate namespaces", func(t *testing.T) {
		require.NoError(t, e.Put(ctx, def, []byte("shared"), []byte("in default")))
		require.NoError(t, e.Put(ctx, cf1, []byte("shared"), []byte("in cf1")))

		got, err := e.Get(ctx, def, []byte("shared"))
		require.NoError(t, err)
		assert.Equal(t, "in default", string(got))

		got, err = e.Get(ctx, cf1, []byte("shared"))
		require.NoError(t, err)
		assert.Equal(t, "in cf1", string(got))
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := e.Get(ctx, cf1, []byte("test-key"))
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, e.Put(ctx, cf1, []byte("delete-key"), []byte("v")))
		require.NoError(t, e.Delete(ctx, cf1, []byte("delete-key")))

		_, err := e.Get(ctx, cf1, []byte("delete-key"))
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("empty key", func(t *testing.T) {
		assert.ErrorIs(t, e.Put(ctx, def, nil, []byte("v")), domain.ErrInvalidArgument)
	})

	t.Run("nil family", func(t *testing.T) {
		_, err := e.Get(ctx, nil, []byte("k"))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestEngine_Scan(t *testing.T) {
	e := openEngine(t, memConfig(), creating(), families(t, "default", "cf1"))
	ctx := context.Background()
	def := e.DefaultColumnFamily()
	cf1, _ := e.ColumnFamily("cf1")

	for _, k := range []string{"user:2", "user:1", "user:3", "other:1"} {
		require.NoError(t, e.Put(ctx, def, []byte(k), []byte("v-"+k)))
	}
	require.NoError(t, e.Put(ctx, cf1, []byte("user:9"), []byte("elsewhere")))

	var keys []string
	err := e.Scan(ctx, def, []byte("user:"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		assert.Equal(t, "v-"+string(key), string(value))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1", "user:2", "user:3"}, keys)

	count := 0
	err = e.Scan(ctx, def, nil, func(key, value []byte) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count, "returning false stops the scan")

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	err = e.Scan(ctx, def, nil, func(key, value []byte) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_TTL(t *testing.T) {
	expiring := smallOptions(t)
	expiring.CF.TTL = 1

	fams := []options.Descriptor{
		{Name: "default", Options: smallOptions(t)},
		{Name: "sessions", Options: expiring},
	}
	e := openEngine(t, memConfig(), creating(), fams)
	ctx := context.Background()

	sessions, _ := e.ColumnFamily("sessions")
	assert.Equal(t, time.Second, sessions.TTL())
	assert.Zero(t, e.DefaultColumnFamily().TTL())

	require.NoError(t, e.Put(ctx, sessions, []byte("s"), []byte("v")))
	require.NoError(t, e.Put(ctx, e.DefaultColumnFamily(), []byte("s"), []byte("v")))

	_, err := e.Get(ctx, sessions, []byte("s"))
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)

	_, err = e.Get(ctx, sessions, []byte("s"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = e.Get(ctx, e.DefaultColumnFamily(), []byte("s"))
	assert.NoError(t, err)
}

func TestEngine_BlockCache(t *testing.T) {
	c, err := cache.NewLRU(1 << 20)
	require.NoError(t, err)
	defer c.Release()

	cached := smallOptions(t)
	cached.SetBlockCache(c)
	require.EqualValues(t, 2, c.Refs())

	e, err := Open(memConfig(), creating(), []options.Descriptor{{Name: "default", Options: cached}}, logger.Discard())
	require.NoError(t, err)
	assert.EqualValues(t, 3, c.Refs(), "the engine holds its own share")

	ctx := context.Background()
	def := e.DefaultColumnFamily()
	key := []byte("k")

	require.NoError(t, e.Put(ctx, def, key, []byte("one")))
	got, err := e.Get(ctx, def, key)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	c.Wait()
	v, ok := c.Get(def.key(key))
	require.True(t, ok, "reads fill the family's cache")
	assert.Equal(t, "one", string(v))

	require.NoError(t, e.Put(ctx, def, key, []byte("two")))
	_, ok = c.Get(def.key(key))
	assert.False(t, ok, "writes invalidate")

	got, err = e.Get(ctx, def, key)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	got[0] = 'X'
	again, err := e.Get(ctx, def, key)
	require.NoError(t, err)
	assert.Equal(t, "two", string(again), "callers get copies")

	require.NoError(t, e.Close())
	assert.EqualValues(t, 2, c.Refs())
}

func TestEngine_CreateDropColumnFamily(t *testing.T) {
	e := openEngine(t, diskConfig(t), creating(), families(t, "default"))
	ctx := context.Background()

	cf2, err := e.CreateColumnFamily(ctx, "cf2", smallOptions(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "cf2"}, e.ColumnFamilies())
	require.NoError(t, e.Put(ctx, cf2, []byte("k"), []byte("v")))

	_, err = e.CreateColumnFamily(ctx, "cf2", nil)
	assert.ErrorIs(t, err, domain.ErrColumnFamilyExists)
	_, err = e.CreateColumnFamily(ctx, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	require.NoError(t, e.DropColumnFamily(ctx, "cf2"))
	assert.Equal(t, []string{"default"}, e.ColumnFamilies())
	assert.ErrorIs(t, e.Put(ctx, cf2, []byte("k"), []byte("v")), ErrDropped)

	assert.ErrorIs(t, e.DropColumnFamily(ctx, "cf2"), domain.ErrUnknownColumnFamily)
	assert.ErrorIs(t, e.DropColumnFamily(ctx, "default"), domain.ErrInvalidArgument)

	again, err := e.CreateColumnFamily(ctx, "cf2", nil)
	require.NoError(t, err)
	assert.Greater(t, again.ID(), cf2.ID(), "ids are never reused")
	_, err = e.Get(ctx, again, []byte("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound, "a recreated family starts empty")

	opts := again.Options()
	defer opts.Close()
	assert.True(t, opts.Equal(options.Default()))
}

func TestEngine_Stats(t *testing.T) {
	e := openEngine(t, memConfig(), creating(), families(t, "default", "cf1"))
	ctx := context.Background()
	cf1, _ := e.ColumnFamily("cf1")

	for i := 0; i < 5; i++ {
		require.NoError(t, e.Put(ctx, cf1, []byte{byte('a' + i)}, []byte("v")))
	}
	require.NoError(t, e.Put(ctx, e.DefaultColumnFamily(), []byte("x"), []byte("v")))
	require.NoError(t, e.Delete(ctx, cf1, []byte("a")))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"default": 1, "cf1": 4}, stats.Keys)
	assert.EqualValues(t, 5, stats.TotalKeys)
	assert.Equal(t, stats.LSMSize+stats.ValueLogSize, stats.TotalSize)
}

func TestEngine_GCAndFlush(t *testing.T) {
	e := openEngine(t, diskConfig(t), creating(), families(t, "default"))
	ctx := context.Background()

	reclaimed, err := e.GC(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Positive(t, stats.LastGCTime)

	require.NoError(t, e.Flush(ctx))
}

func TestEngine_Closed(t *testing.T) {
	e, err := Open(memConfig(), creating(), families(t, "default"), logger.Discard())
	require.NoError(t, err)
	def := e.DefaultColumnFamily()
	ctx := context.Background()

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.ErrorIs(t, e.Put(ctx, def, []byte("k"), []byte("v")), ErrClosed)
	_, err = e.Get(ctx, def, []byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Stats(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.CreateColumnFamily(ctx, "cf", nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, e.ColumnFamilies())
}

func TestEngine_RegisterMetrics(t *testing.T) {
	e := openEngine(t, memConfig(), creating(), families(t, "default", "cf1"))
	reg := prometheus.NewRegistry()
	e.RegisterMetrics(reg)

	expected := `
# HELP kvopts_engine_column_families Number of open column families
# TYPE kvopts_engine_column_families gauge
kvopts_engine_column_families 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "kvopts_engine_column_families"))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}
