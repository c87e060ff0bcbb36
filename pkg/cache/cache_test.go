package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/linepdg/pkg/pdg"
)

func TestLRUCache_Basic(t *testing.T) {
	c := New(Options{MaxSize: 3})

	c.Set("a", []byte("value_a"))
	c.Set("b", []byte("value_b"))
	c.Set("c", []byte("value_c"))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(21), c.CurrentBytes())

	val, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, []byte("value_a"), val)

	_, found = c.Get("missing")
	assert.False(t, found)
}

func TestLRUCache_LRU_Eviction(t *testing.T) {
	var evicted []string
	c := New(Options{MaxSize: 3, OnEvict: func(key string, _ []byte) { evicted = append(evicted, key) }})

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	// Access 'a' to make it most recently used
	c.Get("a")

	// Add new item - should evict 'b' (least recently used)
	c.Set("d", []byte("4"))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b"}, evicted)

	var keys []string
	for _, e := range c.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"d", "a", "c"}, keys)
}

func TestLRUCache_MaxBytes(t *testing.T) {
	c := New(Options{MaxBytes: 10})

	c.Set("a", []byte("12345"))
	c.Set("b", []byte("12345"))
	assert.Equal(t, 2, c.Len())

	c.Set("c", []byte("1"))
	assert.Equal(t, 2, c.Len())
	_, found := c.Get("a")
	assert.False(t, found)

	// An oversized value still stays as the only entry.
	c.Set("big", make([]byte, 64))
	assert.Equal(t, 1, c.Len())
	_, found = c.Get("big")
	assert.True(t, found)
}

func TestLRUCache_UpdateAndDelete(t *testing.T) {
	c := New(Options{MaxSize: 10})

	c.Set("a", []byte("short"))
	c.Set("a", []byte("much longer"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(11), c.CurrentBytes())

	c.Delete("a")
	c.Delete("a")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.CurrentBytes())

	c.Set("x", []byte("1"))
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Entries())
}

func sampleGraph(t *testing.T) *pdg.Graph {
	t.Helper()
	g := pdg.New("sample")
	h1 := g.AddLine(1, "x := 1")
	h2 := g.AddLine(2, "if x > 0 {")
	h3 := g.AddLine(3, "y = x")
	require.NoError(t, g.SetEntry(h1))
	require.NoError(t, g.AddEdge(pdg.NewEdge(h2, h3)))
	require.NoError(t, g.AddEdge(pdg.NewDataEdge(h1, h3, "x")))
	require.NoError(t, g.RecordWrite(pdg.NewVariableWrite(h1, "x", true)))
	return g
}

func TestKey(t *testing.T) {
	src := []byte("package p")
	k := Key(src, "f", true)

	assert.Len(t, k, 64)
	assert.Equal(t, k, Key(src, "f", true))
	assert.NotEqual(t, k, Key(src, "f", false))
	assert.NotEqual(t, k, Key(src, "g", true))
	assert.NotEqual(t, k, Key([]byte("package q"), "f", true))
}

func TestGraphStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	key := Key([]byte("src"), "sample", true)

	store, err := NewGraphStore(StoreOptions{Dir: dir})
	require.NoError(t, err)

	_, found := store.Get(key)
	assert.False(t, found)

	require.NoError(t, store.Put(key, sampleGraph(t)))
	g, found := store.Get(key)
	require.True(t, found)
	assert.Equal(t, "sample", g.FunctionName)
	assert.Len(t, g.Edges(), 2)

	// A fresh store only has the disk layer.
	reopened, err := NewGraphStore(StoreOptions{Dir: dir})
	require.NoError(t, err)
	g, found = reopened.Get(key)
	require.True(t, found)
	assert.Equal(t, []int{1, 2, 3}, pdg.BackwardSlice(g, 3, nil))

	assert.Equal(t, Stats{MemoryHits: 1, Misses: 1}, store.Stats())
	assert.Equal(t, Stats{DiskHits: 1}, reopened.Stats())
}

func TestGraphStore_CallersOwnGraphs(t *testing.T) {
	store, err := NewGraphStore(StoreOptions{})
	require.NoError(t, err)

	key := Key([]byte("src"), "sample", false)
	require.NoError(t, store.Put(key, sampleGraph(t)))

	g, found := store.Get(key)
	require.True(t, found)
	h, ok := g.HandleAtLine(3)
	require.True(t, ok)
	require.NoError(t, g.RemoveNode(h))

	again, found := store.Get(key)
	require.True(t, found)
	assert.Equal(t, 3, again.Len())
}

func TestGraphStore_CorruptSnapshot(t *testing.T) {
	negative, err := msgpack.Marshal(map[string]interface{}{
		"version":  1,
		"capacity": -1,
		"entry":    -1,
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"not msgpack", []byte{0xc1}},
		{"negative capacity", negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			key := Key([]byte("src"), "broken", false)
			path := filepath.Join(dir, key+snapshotExt)
			require.NoError(t, os.WriteFile(path, tt.data, 0644))

			store, err := NewGraphStore(StoreOptions{Dir: dir})
			require.NoError(t, err)

			_, found := store.Get(key)
			assert.False(t, found)
			assert.Equal(t, int64(1), store.Stats().Misses)
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err), "corrupt snapshot should be removed")
		})
	}
}

func TestGraphStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewGraphStore(StoreOptions{Dir: dir})
	require.NoError(t, err)

	key := Key([]byte("src"), "sample", true)
	require.NoError(t, store.Put(key, sampleGraph(t)))
	require.NoError(t, store.Delete(key))
	require.NoError(t, store.Delete(key))

	_, found := store.Get(key)
	assert.False(t, found)
}

func TestGraphStore_Clear(t *testing.T) {
	dir := t.TempDir()
	store, err := NewGraphStore(StoreOptions{Dir: dir})
	require.NoError(t, err)

	key := Key([]byte("src"), "sample", true)
	require.NoError(t, store.Put(key, sampleGraph(t)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0644))

	require.NoError(t, store.Clear())

	_, found := store.Get(key)
	assert.False(t, found)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}
