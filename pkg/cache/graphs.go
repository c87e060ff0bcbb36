package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/l3aro/linepdg/internal/log"
	"github.com/l3aro/linepdg/pkg/pdg"
)

const snapshotExt = ".msgpack"

// Key identifies the graph built for one function of one source text under
// a given set of build options.
func Key(content []byte, functionName string, dataEdges bool) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(functionName))
	if dataEdges {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Stats counts store lookups.
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// GraphStore caches graph snapshots in memory and, when dir is set, on disk.
// Snapshots are decoded on every Get, so callers own the graph they receive.
type GraphStore struct {
	dir    string
	memory *LRUCache
	logger log.Logger

	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
}

// StoreOptions configures a GraphStore.
type StoreOptions struct {
	// Dir holds one snapshot file per key. Empty disables persistence.
	Dir string
	// Memory bounds the in-memory layer.
	Memory Options
	Logger log.Logger
}

// NewGraphStore creates a store, creating Dir if needed.
func NewGraphStore(opts StoreOptions) (*GraphStore, error) {
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", opts.Dir, err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard
	}
	return &GraphStore{
		dir:    opts.Dir,
		memory: New(opts.Memory),
		logger: logger,
	}, nil
}

func (s *GraphStore) path(key string) string {
	return filepath.Join(s.dir, key+snapshotExt)
}

// Get returns the graph stored under key. A corrupt disk snapshot is removed
// and reported as a miss.
func (s *GraphStore) Get(key string) (*pdg.Graph, bool) {
	if data, ok := s.memory.Get(key); ok {
		g, err := pdg.Decode(bytes.NewReader(data))
		if err == nil {
			s.memoryHits.Add(1)
			return g, true
		}
		s.memory.Delete(key)
	}

	if s.dir == "" {
		s.misses.Add(1)
		return nil, false
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read cached graph", "key", key, "error", err)
		}
		s.misses.Add(1)
		return nil, false
	}

	g, err := pdg.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("discarding corrupt cached graph", "key", key, "error", err)
		_ = os.Remove(s.path(key))
		s.misses.Add(1)
		return nil, false
	}

	s.memory.Set(key, data)
	s.diskHits.Add(1)
	return g, true
}

// Put stores g under key.
func (s *GraphStore) Put(key string, g *pdg.Graph) error {
	var buf bytes.Buffer
	if err := pdg.Encode(&buf, g); err != nil {
		return err
	}
	data := buf.Bytes()
	s.memory.Set(key, data)

	if s.dir == "" {
		return nil
	}

	// Write to a temp file first so readers never see a partial snapshot.
	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store cache file: %w", err)
	}

	s.logger.Debug("cached graph", "key", key, "function", g.FunctionName, "bytes", len(data))
	return nil
}

// Delete removes the graph stored under key.
func (s *GraphStore) Delete(key string) error {
	s.memory.Delete(key)
	if s.dir == "" {
		return nil
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// Clear drops every cached graph, including the snapshot files.
func (s *GraphStore) Clear() error {
	s.memory.Clear()
	if s.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Stats returns the lookup counters.
func (s *GraphStore) Stats() Stats {
	return Stats{
		MemoryHits: s.memoryHits.Load(),
		DiskHits:   s.diskHits.Load(),
		Misses:     s.misses.Load(),
	}
}
