// Package storage opens a badger database the way the loaded options
// describe it.
//
// Column families are key namespaces inside one badger instance. Every
// family gets a numeric id when it is created; the id is persisted next to
// the family name and prefixes every data key, so families survive
// restarts and can be dropped as a whole.
//
// Engine-wide tuning (memtables, levels, compression, sync writes) comes
// from the DB options and the "default" family. Per-family options that
// matter at runtime are ttl, applied to every write, and the block cache,
// which serves reads of that family.
package storage
