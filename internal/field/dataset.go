package field

import (
	"slices"
	"sync/atomic"
)

// Dataset is an immutable snapshot of samples and their bounds. Builders may
// read it from any number of goroutines; nothing mutates it after NewDataset.
type Dataset struct {
	version uint64
	samples []Sample
	bounds  Bounds
	defined bool
}

// NewDataset copies the samples so later changes to the caller's slice never
// leak into an in-flight build.
func NewDataset(version uint64, samples []Sample) *Dataset {
	own := slices.Clone(samples)
	b, ok := Compute(own)
	return &Dataset{version: version, samples: own, bounds: b, defined: ok}
}

// Version identifies the snapshot; a newer dataset always has a larger version.
func (d *Dataset) Version() uint64 { return d.version }

// Samples returns the snapshot's rows. The slice must be treated as read-only.
func (d *Dataset) Samples() []Sample { return d.samples }

// Bounds returns the bounds and whether they are defined.
func (d *Dataset) Bounds() (Bounds, bool) { return d.bounds, d.defined }

// Len returns the number of rows, malformed ones included.
func (d *Dataset) Len() int { return len(d.samples) }

// Store publishes dataset snapshots. Replacing the dataset swaps a pointer,
// so a build that already loaded a snapshot keeps seeing exactly that one.
type Store struct {
	current atomic.Pointer[Dataset]
	version atomic.Uint64
}

// NewStore returns a store holding an empty dataset.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewDataset(0, nil))
	return s
}

// Publish copies the samples into a new snapshot and makes it current.
func (s *Store) Publish(samples []Sample) *Dataset {
	d := NewDataset(s.version.Add(1), samples)
	s.current.Store(d)
	return d
}

// Current returns the latest snapshot.
func (s *Store) Current() *Dataset {
	return s.current.Load()
}
