// Package tiles keeps the meshes of a map layer in sync with its dataset.
//
// Every mesh has an explicit state. Requesting a key moves it from Absent or
// Stale to Building and then Ready; publishing a dataset moves every Ready
// mesh to Stale; evicting a key forgets it. Nothing happens on a timer: the
// host decides when to request, evict or publish.
package tiles

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
)

// State is the lifecycle state of one mesh.
type State int

const (
	Absent State = iota
	Building
	Ready
	Stale
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ColorFactory returns the color function for a dataset snapshot, typically
// a color scale stretched over its value bounds.
type ColorFactory func(d *field.Dataset) mesh.ColorFunc

type slot struct {
	state   State
	mesh    *mesh.Mesh
	version uint64
	err     error
}

// Layer owns the meshes built from one dataset store. It is safe for
// concurrent use.
type Layer struct {
	store   *field.Store
	mesher  *mesh.Mesher
	colors  ColorFactory
	workers int

	mu    sync.Mutex
	slots map[Key]*slot
}

// NewLayer returns an empty layer over store. Builds run on at most
// GOMAXPROCS goroutines.
func NewLayer(store *field.Store, mesher *mesh.Mesher, colors ColorFactory) *Layer {
	return &Layer{
		store:   store,
		mesher:  mesher,
		colors:  colors,
		workers: runtime.GOMAXPROCS(0),
		slots:   make(map[Key]*slot),
	}
}

// Mesher returns the layer's mesher.
func (l *Layer) Mesher() *mesh.Mesher { return l.mesher }

// Dataset returns the current snapshot.
func (l *Layer) Dataset() *field.Dataset { return l.store.Current() }

// Publish replaces the dataset and marks every built mesh stale.
func (l *Layer) Publish(samples []field.Sample) *field.Dataset {
	d := l.store.Publish(samples)
	n := l.Invalidate()
	b, _ := d.Bounds()
	Logger().Info("dataset published", "version", d.Version(), "samples", d.Len(), "bounds", b.String(), "stale", n)
	return d
}

// Invalidate moves every Ready mesh to Stale and returns how many moved.
// Stale meshes stay drawable until they are rebuilt.
func (l *Layer) Invalidate() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.slots {
		if s.state == Ready {
			s.state = Stale
			n++
		}
	}
	return n
}

type job struct {
	key  Key
	slot *slot
	prev State
}

// Request builds the meshes of keys that are Absent or Stale, in parallel,
// and waits for them. Keys already Ready for the current dataset, or being
// built, are left alone.
//
// A build that finishes after the dataset was replaced is discarded and its
// key left Stale. When ctx is done no further build starts; running builds
// complete. Empty regions are not errors: their key becomes Ready without a
// mesh.
func (l *Layer) Request(ctx context.Context, keys ...Key) error {
	d := l.store.Current()
	colorAt := l.colors(d)

	var todo []job
	l.mu.Lock()
	for _, k := range keys {
		s, ok := l.slots[k]
		if !ok {
			s = &slot{}
			l.slots[k] = s
		}
		if s.state == Building || (s.state == Ready && s.version == d.Version()) {
			continue
		}
		todo = append(todo, job{key: k, slot: s, prev: s.state})
		s.state = Building
	}
	l.mu.Unlock()

	if len(todo) == 0 {
		return nil
	}

	errs := make([]error, len(todo))
	sem := make(chan struct{}, l.workers)
	var wg sync.WaitGroup
	for i, j := range todo {
		err := ctx.Err()
		if err == nil {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				err = ctx.Err()
			}
		}
		if err != nil {
			l.abandon(todo[i:])
			wg.Wait()
			return errors.Join(append(errs, err)...)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = l.build(d, colorAt, j)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (l *Layer) build(d *field.Dataset, colorAt mesh.ColorFunc, j job) error {
	b, _ := d.Bounds()
	var (
		m   *mesh.Mesh
		err error
	)
	if j.key.Full {
		m, err = l.mesher.BuildFull(d.Samples(), b, colorAt)
	} else {
		m, err = l.mesher.BuildBounded(d.Samples(), b, j.key.Rect(), colorAt)
	}
	if mesh.IsEmpty(err) {
		m, err = nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots[j.key] != j.slot {
		// evicted while building
		return nil
	}
	s := j.slot
	if l.store.Current().Version() != d.Version() {
		s.state = Stale
		Logger().Debug("stale build discarded", "key", j.key.String(), "version", d.Version())
		return nil
	}
	s.state, s.version, s.mesh, s.err = Ready, d.Version(), m, err
	if err != nil {
		Logger().Warn("build failed", "key", j.key.String(), "err", err)
		return fmt.Errorf("tiles: %s: %w", j.key, err)
	}
	return nil
}

// abandon restores the keys of jobs that never started.
func (l *Layer) abandon(jobs []job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, j := range jobs {
		if l.slots[j.key] == j.slot {
			j.slot.state = j.prev
		}
	}
}

// Evict forgets keys. A build still running for them is discarded when it
// finishes.
func (l *Layer) Evict(keys ...Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		delete(l.slots, k)
	}
}

// Retain evicts every key not listed and returns how many were evicted.
func (l *Layer) Retain(keys ...Key) int {
	keep := make(map[Key]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k := range l.slots {
		if !keep[k] {
			delete(l.slots, k)
			n++
		}
	}
	return n
}

// State returns the state of key.
func (l *Layer) State(key Key) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		return s.state
	}
	return Absent
}

// Mesh returns the mesh of key, if one is drawable (Ready or Stale).
func (l *Layer) Mesh(key Key) (*mesh.Mesh, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok || s.mesh == nil {
		return nil, false
	}
	return s.mesh, true
}

// Err returns the error of the last build of key.
func (l *Layer) Err(key Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[key]; ok {
		return s.err
	}
	return nil
}

// Meshes returns the drawable meshes of keys, in key order.
func (l *Layer) Meshes(keys ...Key) []*mesh.Mesh {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*mesh.Mesh, 0, len(keys))
	for _, k := range keys {
		if s, ok := l.slots[k]; ok && s.mesh != nil {
			out = append(out, s.mesh)
		}
	}
	return out
}

// Keys returns every key the layer knows, sorted.
func (l *Layer) Keys() []Key {
	l.mu.Lock()
	keys := make([]Key, 0, len(l.slots))
	for k := range l.slots {
		keys = append(keys, k)
	}
	l.mu.Unlock()
	sortKeys(keys)
	return keys
}

// Counts returns how many keys are in each state.
func (l *Layer) Counts() map[State]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := make(map[State]int, 4)
	for _, s := range l.slots {
		c[s.state]++
	}
	return c
}
