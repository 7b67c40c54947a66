package storage

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/options"
)

// Key layout:
//
//	m c <name>        -> family id (uint32, big endian)
//	m s               -> family id sequence
//	d <id> <user key> -> value
const (
	metaPrefix = 'm'
	dataPrefix = 'd'
)

var (
	familyMetaPrefix = []byte{metaPrefix, 'c'}
	sequenceKey      = []byte{metaPrefix, 's'}
)

// ColumnFamily is an open column family. It stays valid until the engine is
// closed or the family is dropped.
type ColumnFamily struct {
	name   string
	id     uint32
	prefix []byte
	opts   *options.Options
	ttl    time.Duration
	cache  cache.Handle

	// mu orders cache fills after reads against writes of the same family.
	mu      sync.RWMutex
	dropped atomic.Bool
}

func newColumnFamily(name string, id uint32, opts *options.Options) *ColumnFamily {
	return &ColumnFamily{
		name:   name,
		id:     id,
		prefix: dataKeyPrefix(id),
		opts:   opts,
		ttl:    time.Duration(opts.CF.TTL) * time.Second,
		cache:  opts.Table.BlockCache,
	}
}

// Name returns the family name.
func (cf *ColumnFamily) Name() string { return cf.name }

// ID returns the persisted family id.
func (cf *ColumnFamily) ID() uint32 { return cf.id }

// TTL returns the lifetime given to every write, or 0 for none.
func (cf *ColumnFamily) TTL() time.Duration { return cf.ttl }

// Options returns a copy of the options the family was opened with. The
// caller owns the copy and must Close it.
func (cf *ColumnFamily) Options() *options.Options { return cf.opts.Clone() }

func (cf *ColumnFamily) key(userKey []byte) []byte {
	k := make([]byte, 0, len(cf.prefix)+len(userKey))
	k = append(k, cf.prefix...)
	return append(k, userKey...)
}

func (cf *ColumnFamily) release() {
	cf.dropped.Store(true)
	cf.opts.Close()
}

func dataKeyPrefix(id uint32) []byte {
	p := make([]byte, 5)
	p[0] = dataPrefix
	binary.BigEndian.PutUint32(p[1:], id)
	return p
}

func familyMetaKey(name string) []byte {
	return append(append([]byte{}, familyMetaPrefix...), name...)
}

// persistedFamilies reads the family catalog.
func persistedFamilies(db *badger.DB) (map[string]uint32, error) {
	out := make(map[string]uint32)
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = familyMetaPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(familyMetaPrefix):])
			err := item.Value(func(v []byte) error {
				out[name] = binary.BigEndian.Uint32(v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func putFamily(txn *badger.Txn, name string, id uint32) error {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, id)
	return txn.Set(familyMetaKey(name), v)
}
