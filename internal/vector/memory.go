package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force L2 index held in memory and snapshotted to a binary file.
type MemoryIndex struct {
	dimensions int
	mu         sync.RWMutex
	positions  map[string]int
	items      []Item
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		positions:  make(map[string]int),
	}, nil
}

// Dimensions returns the vector size.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

func (m *MemoryIndex) Upsert(_ context.Context, items []Item) error {
	for _, it := range items {
		if len(it.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", it.ID, len(it.Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		vec := make([]float32, m.dimensions)
		copy(vec, it.Vector)
		entry := Item{ID: it.ID, Tag: it.Tag, Vector: vec}
		if pos, ok := m.positions[it.ID]; ok {
			m.items[pos] = entry
			continue
		}
		m.positions[it.ID] = len(m.items)
		m.items = append(m.items, entry)
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, query []float32, k int, tag string) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.items) == 0 {
		return nil, nil
	}
	results := make([]Result, 0, len(m.items))
	for _, it := range m.items {
		if tag != "" && it.Tag != tag {
			continue
		}
		results = append(results, Result{ID: it.ID, Tag: it.Tag, Distance: L2Distance(query, it.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryIndex) Remove(_ context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.items[:0]
	for _, it := range m.items {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	m.items = kept
	m.positions = make(map[string]int, len(kept))
	for i, it := range kept {
		m.positions[it.ID] = i
	}
	return nil
}

// Save writes the index to path: dimension, count, then per item id, tag, and vector.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := m.write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (m *MemoryIndex) write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.items))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, it := range m.items {
		if err := writeString(w, it.ID); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeString(w, it.Tag); err != nil {
			return fmt.Errorf("write tag: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(it.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the index contents from path. A missing file leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	items := make([]Item, 0, n)
	positions := make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readString(f)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		tag, err := readString(f)
		if err != nil {
			return fmt.Errorf("read tag: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		positions[id] = len(items)
		items = append(items, Item{ID: id, Tag: tag, Vector: bytesToFloat32Slice(buf)})
	}

	m.mu.Lock()
	m.items = items
	m.positions = positions
	m.mu.Unlock()
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryIndex) Close() error { return nil }
