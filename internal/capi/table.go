package capi

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/kvopts/internal/core/domain"
)

const shardCount = 16

// Handle is an opaque reference to a resource owned by an API. The zero
// Handle never refers to anything.
type Handle uint64

// Kind names the resource type a handle refers to.
type Kind string

const (
	KindOptions Kind = "options"
	KindCache   Kind = "cache"
	KindEnv     Kind = "env"
	KindArray   Kind = "array"
)

var kinds = [...]Kind{KindOptions, KindCache, KindEnv, KindArray}

type entry struct {
	kind  Kind
	value any
}

type shard struct {
	mu    sync.RWMutex
	items map[Handle]entry
}

// table maps handles to resources. Handles are never reused.
type table struct {
	shards [shardCount]*shard
	next   atomic.Uint64
}

func newTable() *table {
	t := &table{}
	for i := range t.shards {
		t.shards[i] = &shard{items: make(map[Handle]entry)}
	}
	return t
}

func (t *table) shardOf(h Handle) *shard {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(h))
	return t.shards[murmur3.Sum32(b[:])%shardCount]
}

func (t *table) insert(kind Kind, v any) Handle {
	h := Handle(t.next.Add(1))
	s := t.shardOf(h)
	s.mu.Lock()
	s.items[h] = entry{kind: kind, value: v}
	s.mu.Unlock()
	return h
}

// get returns the resource h refers to. It panics with
// domain.ErrInvalidHandle when h is unknown, destroyed or of another kind.
func (t *table) get(h Handle, kind Kind) any {
	s := t.shardOf(h)
	s.mu.RLock()
	e, ok := s.items[h]
	s.mu.RUnlock()
	if !ok || e.kind != kind {
		panic(invalid(h, kind))
	}
	return e.value
}

// remove deletes h and returns its resource, with the same panics as get.
func (t *table) remove(h Handle, kind Kind) any {
	s := t.shardOf(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[h]
	if !ok || e.kind != kind {
		panic(invalid(h, kind))
	}
	delete(s.items, h)
	return e.value
}

func (t *table) counts() map[string]int {
	out := make(map[string]int, len(kinds))
	for _, k := range kinds {
		out[string(k)] = 0
	}
	for _, s := range t.shards {
		s.mu.RLock()
		for _, e := range s.items {
			out[string(e.kind)]++
		}
		s.mu.RUnlock()
	}
	return out
}

func invalid(h Handle, kind Kind) error {
	return domain.ErrInvalidHandle.WithDetailsf("%s handle %d", kind, h)
}

func lookup[T any](t *table, h Handle, kind Kind) T {
	return t.get(h, kind).(T)
}
