package vector

import (
	"bufio"
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

// MemoryIndex is an in-process vector index using brute-force cosine search.
// Upserting an existing id replaces its vector and metadata in place.
type MemoryIndex struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	metadata   []map[string]string
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		pos:        make(map[string]int),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Upsert stores vector under id, replacing any previous entry.
func (m *MemoryIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if len(vector) != m.dimensions {
		return dimensionError(len(vector), m.dimensions)
	}
	vec := make([]float32, m.dimensions)
	copy(vec, vector)
	meta := copyMetadata(metadata)

	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.pos[id]; ok {
		m.vectors[i] = vec
		m.metadata[i] = meta
		return nil
	}
	m.pos[id] = len(m.ids)
	m.ids = append(m.ids, id)
	m.vectors = append(m.vectors, vec)
	m.metadata = append(m.metadata, meta)
	return nil
}

// Query returns up to topK entries by descending cosine similarity. Ties keep insertion order.
func (m *MemoryIndex) Query(ctx context.Context, query []float32, topK int) ([]*Hit, error) {
	if len(query) != m.dimensions {
		return nil, dimensionError(len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 || len(m.ids) == 0 {
		return []*Hit{}, nil
	}
	if topK > len(m.ids) {
		topK = len(m.ids)
	}
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(m.ids))
	for i, vec := range m.vectors {
		scores[i] = scored{idx: i, score: CosineSimilarity(query, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	hits := make([]*Hit, topK)
	for i := 0; i < topK; i++ {
		s := scores[i]
		hits[i] = &Hit{ID: m.ids[s.idx], Score: s.score, Metadata: copyMetadata(m.metadata[s.idx])}
	}
	return hits, nil
}

// Remove deletes entries by id. Unknown ids are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newIDs := make([]string, 0, len(m.ids))
	newVectors := make([][]float32, 0, len(m.vectors))
	newMeta := make([]map[string]string, 0, len(m.metadata))
	for i, id := range m.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, m.vectors[i])
			newMeta = append(newMeta, m.metadata[i])
		}
	}
	m.ids, m.vectors, m.metadata = newIDs, newVectors, newMeta
	m.reindex()
	return nil
}

func (m *MemoryIndex) reindex() {
	m.pos = make(map[string]int, len(m.ids))
	for i, id := range m.ids {
		m.pos[id] = i
	}
}

// Count returns the number of stored vectors.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	return m.Size(), nil
}

// Size returns the number of stored vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// SampleIDs returns the first n ids in insertion order.
func (m *MemoryIndex) SampleIDs(ctx context.Context, n int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n > len(m.ids) {
		n = len(m.ids)
	}
	if n <= 0 {
		return []string{}, nil
	}
	out := make([]string, n)
	copy(out, m.ids[:n])
	return out, nil
}

// Save persists the index to path. Directory is created if needed. Format: dimension (4), n (4),
// then per entry: id, vector (dimension*4 bytes), metadata pair count (4) and key/value pairs.
// Strings are written as a 4-byte length followed by the bytes.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeUint32(w, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := writeUint32(w, uint32(len(m.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range m.ids {
		if err := writeString(w, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
		meta := m.metadata[i]
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := writeUint32(w, uint32(len(keys))); err != nil {
			return fmt.Errorf("write metadata count: %w", err)
		}
		for _, k := range keys {
			if err := writeString(w, k); err != nil {
				return fmt.Errorf("write metadata key: %w", err)
			}
			if err := writeString(w, meta[k]); err != nil {
				return fmt.Errorf("write metadata value: %w", err)
			}
		}
	}
	return w.Flush()
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
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

	r := bufio.NewReader(f)
	dim, err := readUint32(r)
	if err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	n, err := readUint32(r)
	if err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	metadata := make([]map[string]string, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		pairs, err := readUint32(r)
		if err != nil {
			return fmt.Errorf("read metadata count: %w", err)
		}
		var meta map[string]string
		if pairs > 0 {
			meta = make(map[string]string, pairs)
		}
		for j := uint32(0); j < pairs; j++ {
			k, err := readString(r)
			if err != nil {
				return fmt.Errorf("read metadata key: %w", err)
			}
			v, err := readString(r)
			if err != nil {
				return fmt.Errorf("read metadata value: %w", err)
			}
			meta[k] = v
		}
		ids = append(ids, id)
		vectors = append(vectors, bytesToFloat32Slice(buf))
		metadata = append(metadata, meta)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids, m.vectors, m.metadata = ids, vectors, metadata
	m.reindex()
	return nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
