package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
)

// PersistentCache stores embeddings in BadgerDB so re-ingesting unchanged knowledge skips the model.
type PersistentCache struct {
	db        *badger.DB
	namespace string
}

// OpenPersistentCache opens (or creates) a cache at path. An empty path keeps it in memory.
// namespace separates embeddings from different models.
func OpenPersistentCache(path, namespace string) (*PersistentCache, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return &PersistentCache{db: db, namespace: namespace}, nil
}

func (p *PersistentCache) key(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return []byte("emb:" + p.namespace + ":" + hex.EncodeToString(sum[:]))
}

// Get returns the stored embedding for text.
func (p *PersistentCache) Get(text string) ([]float32, bool) {
	var out []float32
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key(text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = decodeVector(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) || err != nil {
		return nil, false
	}
	return out, true
}

// Set stores the embedding for text.
func (p *PersistentCache) Set(text string, vec []float32) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(p.key(text), encodeVector(vec))
	})
}

// Close flushes and closes the database.
func (p *PersistentCache) Close() error {
	return p.db.Close()
}

func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
