package options

import "sync/atomic"

// Descriptor is one column family: its name and its merged configuration.
type Descriptor struct {
	Name    string
	Options *Options
}

// Descriptors is the ordered, immutable set of column family descriptors
// produced by a load, in the order the file declares them.
//
// The array owns every entry. Close releases all of them together; no
// entry may be used afterwards. Len, Name and Options never mutate the
// array and may be called from several goroutines at once.
type Descriptors struct {
	entries []Descriptor
	closed  atomic.Bool
}

// NewDescriptors returns an empty array.
func NewDescriptors() *Descriptors {
	return &Descriptors{}
}

// BuildDescriptors merges every override onto base, once, and returns the
// resulting array. base is not retained; each entry owns its own clone.
func BuildDescriptors(base *Options, overrides []NamedOverride) *Descriptors {
	d := &Descriptors{entries: make([]Descriptor, 0, len(overrides))}
	for _, no := range overrides {
		d.entries = append(d.entries, Descriptor{
			Name:    no.Name,
			Options: Merge(base, no.Override),
		})
	}
	return d
}

// Len returns the number of column families.
func (d *Descriptors) Len() int {
	return len(d.entries)
}

// Name returns the name of entry i. Like slice indexing, i must be in
// [0, Len()) or Name panics.
func (d *Descriptors) Name(i int) string {
	return d.entries[i].Name
}

// Options returns an independent copy of entry i's configuration, owned by
// the caller. Same index rule as Name.
func (d *Descriptors) Options(i int) *Options {
	return d.entries[i].Options.Clone()
}

// Names returns every column family name in order.
func (d *Descriptors) Names() []string {
	names := make([]string, len(d.entries))
	for i, e := range d.entries {
		names[i] = e.Name
	}
	return names
}

// Index returns the position of the named column family, or -1.
func (d *Descriptors) Index(name string) int {
	for i, e := range d.entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Copy returns caller-owned descriptors cloned from every entry.
func (d *Descriptors) Copy() []Descriptor {
	out := make([]Descriptor, len(d.entries))
	for i, e := range d.entries {
		out[i] = Descriptor{Name: e.Name, Options: e.Options.Clone()}
	}
	return out
}

// Close releases every entry. Only the first call has an effect.
func (d *Descriptors) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	for _, e := range d.entries {
		e.Options.Close()
	}
	d.entries = nil
}
