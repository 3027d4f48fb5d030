package tiles

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"fieldmap/internal/field"
	"fieldmap/internal/mesh"
)

func grid(minLat, maxLat, minLon, maxLon, value float64) []field.Sample {
	var samples []field.Sample
	for lat := minLat; lat <= maxLat; lat += 0.05 {
		for lon := minLon; lon <= maxLon; lon += 0.1 {
			samples = append(samples, field.Sample{Lat: lat, Lon: lon, Value: value})
		}
	}
	return samples
}

func solid(*field.Dataset) mesh.ColorFunc {
	return func(v float64) color.RGBA { return color.RGBA{R: uint8(v), A: 255} }
}

func newLayer(t *testing.T, samples []field.Sample, opts ...mesh.Option) *Layer {
	t.Helper()
	l := NewLayer(field.NewStore(), mesh.NewMesher(opts...), solid)
	l.Publish(samples)
	return l
}

var area = field.Rect{MinLat: 50, MinLon: -1, MaxLat: 52, MaxLon: 1}

func keysOf(tiles []maptile.Tile) []Key {
	keys := make([]Key, len(tiles))
	for i, t := range tiles {
		keys[i] = TileKey(t)
	}
	return keys
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Absent: "absent", Building: "building", Ready: "ready", Stale: "stale", 9: "State(9)"} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestRequestBuildsTiles(t *testing.T) {
	l := newLayer(t, grid(50, 52, -1, 1, 7))
	keys := keysOf(Cover(area, 8))
	if len(keys) == 0 {
		t.Fatal("no tiles cover the area")
	}
	for _, k := range keys {
		if got := l.State(k); got != Absent {
			t.Fatalf("%s starts %v, want absent", k, got)
		}
	}

	if err := l.Request(context.Background(), keys...); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	for _, k := range keys {
		if got := l.State(k); got != Ready {
			t.Errorf("%s is %v, want ready", k, got)
		}
		m, ok := l.Mesh(k)
		if !ok {
			t.Errorf("%s has no mesh", k)
			continue
		}
		if m.ClipBounds != k.Rect().Float32() {
			t.Errorf("%s clip bounds %v, want its footprint", k, m.ClipBounds)
		}
	}
	if got := len(l.Meshes(keys...)); got != len(keys) {
		t.Errorf("Meshes() = %d, want %d", got, len(keys))
	}
}

func TestRequestOutsideDataIsEmptyNotError(t *testing.T) {
	l := newLayer(t, grid(50, 52, -1, 1, 7))
	far := TileKey(maptile.At(orb.Point{120, -30}, 8))
	if err := l.Request(context.Background(), far); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got := l.State(far); got != Ready {
		t.Errorf("state = %v, want ready", got)
	}
	if _, ok := l.Mesh(far); ok {
		t.Error("tile outside the data has a mesh")
	}
}

func TestPublishMarksStale(t *testing.T) {
	l := newLayer(t, grid(50, 52, -1, 1, 7))
	if err := l.Request(context.Background(), FullKey); err != nil {
		t.Fatal(err)
	}
	before, _ := l.Mesh(FullKey)

	l.Publish(grid(50, 52, -1, 1, 9))
	if got := l.State(FullKey); got != Stale {
		t.Fatalf("state after publish = %v, want stale", got)
	}
	if m, ok := l.Mesh(FullKey); !ok || m != before {
		t.Error("stale mesh is no longer drawable")
	}

	if err := l.Request(context.Background(), FullKey); err != nil {
		t.Fatal(err)
	}
	after, ok := l.Mesh(FullKey)
	if !ok || after == before {
		t.Fatal("mesh not rebuilt")
	}
	if l.State(FullKey) != Ready {
		t.Errorf("state = %v, want ready", l.State(FullKey))
	}
	if after.VertexAt(0, 0).Color.R != 9 {
		t.Errorf("rebuilt mesh has color %v, want the new value", after.VertexAt(0, 0).Color)
	}
}

func TestReadyKeysAreNotRebuilt(t *testing.T) {
	l := newLayer(t, grid(50, 51, 0, 1, 1))
	if err := l.Request(context.Background(), FullKey); err != nil {
		t.Fatal(err)
	}
	first, _ := l.Mesh(FullKey)
	if err := l.Request(context.Background(), FullKey); err != nil {
		t.Fatal(err)
	}
	second, _ := l.Mesh(FullKey)
	if first != second {
		t.Error("ready mesh was rebuilt")
	}
}

func TestBuildDiscardedWhenDatasetChanges(t *testing.T) {
	store := field.NewStore()
	var once sync.Once
	l := NewLayer(store, mesh.NewMesher(), func(*field.Dataset) mesh.ColorFunc {
		return func(float64) color.RGBA {
			once.Do(func() { store.Publish(grid(50, 51, 0, 1, 2)) })
			return color.RGBA{A: 255}
		}
	})
	store.Publish(grid(50, 51, 0, 1, 1))

	if err := l.Request(context.Background(), FullKey); err != nil {
		t.Fatal(err)
	}
	if got := l.State(FullKey); got != Stale {
		t.Fatalf("state = %v, want stale after a refresh during the build", got)
	}
	if _, ok := l.Mesh(FullKey); ok {
		t.Error("result of the outdated build was kept")
	}

	if err := l.Request(context.Background(), FullKey); err != nil {
		t.Fatal(err)
	}
	if got := l.State(FullKey); got != Ready {
		t.Errorf("state = %v, want ready", got)
	}
}

func TestEvictAndRetain(t *testing.T) {
	l := newLayer(t, grid(50, 52, -1, 1, 7))
	keys := keysOf(Cover(area, 8))
	if err := l.Request(context.Background(), append(keys, FullKey)...); err != nil {
		t.Fatal(err)
	}

	l.Evict(keys[0])
	if got := l.State(keys[0]); got != Absent {
		t.Errorf("evicted key is %v, want absent", got)
	}
	if _, ok := l.Mesh(keys[0]); ok {
		t.Error("evicted key still has a mesh")
	}

	n := l.Retain(FullKey)
	if n != len(keys)-1 {
		t.Errorf("Retain() evicted %d, want %d", n, len(keys)-1)
	}
	if got := l.Keys(); len(got) != 1 || got[0] != FullKey {
		t.Errorf("Keys() = %v, want [full]", got)
	}
}

func TestRequestCancelled(t *testing.T) {
	l := newLayer(t, grid(50, 52, -1, 1, 7))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Request(ctx, FullKey)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := l.State(FullKey); got != Absent {
		t.Errorf("state = %v, want absent", got)
	}
}

func TestCapacityErrorSurfaced(t *testing.T) {
	l := newLayer(t, grid(50, 52, -1, 1, 7), mesh.WithMaxVertices(64))
	err := l.Request(context.Background(), FullKey)
	if !errors.Is(err, mesh.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if !errors.Is(l.Err(FullKey), mesh.ErrCapacityExceeded) {
		t.Errorf("Err() = %v", l.Err(FullKey))
	}
	if _, ok := l.Mesh(FullKey); ok {
		t.Error("failed build has a mesh")
	}
}

func TestConcurrentRequests(t *testing.T) {
	l := newLayer(t, grid(50, 52, -1, 1, 7))
	keys := keysOf(Cover(area, 9))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Request(context.Background(), keys...); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			l.Counts()
			l.Meshes(keys...)
		}
	}()
	wg.Wait()

	// a request racing with a running build skips the key, so finish up
	if err := l.Request(context.Background(), keys...); err != nil {
		t.Fatal(err)
	}
	if got := l.Counts()[Ready]; got != len(keys) {
		t.Errorf("%d ready, want %d (%v)", got, len(keys), l.Counts())
	}
}

func TestCover(t *testing.T) {
	tile := maptile.New(130, 86, 8)
	b := tile.Bound()
	inner := field.Rect{MinLat: b.Min.Lat() + 1e-6, MinLon: b.Min.Lon() + 1e-6, MaxLat: b.Max.Lat() - 1e-6, MaxLon: b.Max.Lon() - 1e-6}
	if got := Cover(inner, 8); len(got) != 1 || got[0] != tile {
		t.Errorf("Cover(inside %v) = %v", tile, got)
	}

	world := field.Rect{MinLat: -90, MinLon: -180, MaxLat: 90, MaxLon: 180}
	got := Cover(world, 1)
	want := []maptile.Tile{maptile.New(0, 0, 1), maptile.New(1, 0, 1), maptile.New(0, 1, 1), maptile.New(1, 1, 1)}
	if len(got) != len(want) {
		t.Fatalf("Cover(world, 1) = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Cover(world, 1)[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if got := Cover(field.Rect{MinLat: 1, MinLon: 1, MaxLat: 0, MaxLon: 2}, 4); got != nil {
		t.Errorf("Cover(inverted) = %v", got)
	}
}

func TestMinTileZoom(t *testing.T) {
	if got := MinTileZoom(mesh.DefaultConfig()); got != 5 {
		t.Errorf("MinTileZoom(default) = %d, want 5", got)
	}
	coarse := mesh.NewMesher(mesh.WithCellSize(1, 1)).Config()
	if got := MinTileZoom(coarse); got != 1 {
		t.Errorf("MinTileZoom(1°) = %d, want 1", got)
	}

	// every tile at that zoom meshes without hitting the vertex limit
	l := newLayer(t, grid(50, 52, -1, 1, 7))
	z := MinTileZoom(l.Mesher().Config())
	keys := keysOf(Cover(area, z))
	if err := l.Request(context.Background(), keys...); err != nil {
		t.Errorf("Request() at zoom %d: %v", z, err)
	}
}

func TestKeysSorted(t *testing.T) {
	keys := []Key{TileKey(maptile.New(2, 1, 3)), FullKey, TileKey(maptile.New(1, 1, 3)), TileKey(maptile.New(0, 0, 2))}
	sortKeys(keys)
	want := []string{"full", "2/0/0", "3/1/1", "3/2/1"}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, k, want[i])
		}
	}
}
