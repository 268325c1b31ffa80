// Package ledger is the host key-value state every store reads and writes.
// A state transition buffers its writes in an ethdb batch and either commits
// them atomically or leaves the store untouched.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrNotFound = errors.New("ledger: not found")
	ErrStorage  = errors.New("ledger: storage error")
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"

	levelDBNamespace = "perpstate/ledger/"
)

// Store is the minimal surface the state stores depend on.
type Store interface {
	ethdb.KeyValueReader
	ethdb.Batcher
}

// Config selects and tunes the backing database.
type Config struct {
	Backend string `json:",default=memory,options=memory|leveldb"`
	Path    string `json:",optional"`
	CacheMB int    `json:",default=16"`
	Handles int    `json:",default=16"`
}

// Validate checks backend specific requirements.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", BackendMemory:
		return nil
	case BackendLevelDB:
		if strings.TrimSpace(c.Path) == "" {
			return errors.New("ledger: leveldb backend requires Path")
		}
		return nil
	default:
		return fmt.Errorf("ledger: unknown backend %q", c.Backend)
	}
}

// Open returns the configured key-value store. The caller owns Close.
func Open(c Config) (ethdb.KeyValueStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if strings.ToLower(strings.TrimSpace(c.Backend)) != BackendLevelDB {
		return memorydb.New(), nil
	}
	db, err := leveldb.New(c.Path, c.CacheMB, c.Handles, levelDBNamespace, false)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %s: %v", ErrStorage, c.Path, err)
	}
	return db, nil
}

// Get reads key, returning ErrNotFound when it is absent.
func Get(r ethdb.KeyValueReader, key []byte) ([]byte, error) {
	ok, err := r.Has(key)
	if err != nil {
		return nil, fmt.Errorf("%w: has %x: %v", ErrStorage, key, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	val, err := r.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: get %x: %v", ErrStorage, key, err)
	}
	return val, nil
}

// GetRLP reads key and decodes it into out.
func GetRLP(r ethdb.KeyValueReader, key []byte, out any) error {
	data, err := Get(r, key)
	if err != nil {
		return err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("%w: decode %x: %v", ErrStorage, key, err)
	}
	return nil
}

// PutRLP encodes v and writes it under key.
func PutRLP(w ethdb.KeyValueWriter, key []byte, v any) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("%w: encode %x: %v", ErrStorage, key, err)
	}
	if err := w.Put(key, data); err != nil {
		return fmt.Errorf("%w: put %x: %v", ErrStorage, key, err)
	}
	return nil
}

// Transition is one state transition: reads see its own pending writes,
// and nothing reaches the store until Commit.
type Transition struct {
	store   Store
	batch   ethdb.Batch
	pending map[string][]byte
	done    bool
}

// Begin opens a transition against store.
func Begin(store Store) *Transition {
	return &Transition{
		store:   store,
		batch:   store.NewBatch(),
		pending: make(map[string][]byte),
	}
}

// Has implements ethdb.KeyValueReader.
func (t *Transition) Has(key []byte) (bool, error) {
	if _, ok := t.pending[string(key)]; ok {
		return true, nil
	}
	return t.store.Has(key)
}

// Get implements ethdb.KeyValueReader.
func (t *Transition) Get(key []byte) ([]byte, error) {
	if v, ok := t.pending[string(key)]; ok {
		return bytes.Clone(v), nil
	}
	return t.store.Get(key)
}

// Put implements ethdb.KeyValueWriter.
func (t *Transition) Put(key, value []byte) error {
	if t.done {
		return fmt.Errorf("%w: transition already closed", ErrStorage)
	}
	if err := t.batch.Put(key, value); err != nil {
		return err
	}
	t.pending[string(key)] = bytes.Clone(value)
	return nil
}

// Delete is not part of any transition the stores perform; history is
// append-only.
func (t *Transition) Delete(key []byte) error {
	return fmt.Errorf("%w: delete %x not permitted", ErrStorage, key)
}

// Size reports the buffered payload size.
func (t *Transition) Size() int { return t.batch.ValueSize() }

// Commit writes every buffered entry atomically.
func (t *Transition) Commit() error {
	if t.done {
		return fmt.Errorf("%w: transition already closed", ErrStorage)
	}
	t.done = true
	if t.batch.ValueSize() == 0 && len(t.pending) == 0 {
		return nil
	}
	if err := t.batch.Write(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// Discard drops every buffered write.
func (t *Transition) Discard() {
	t.done = true
	t.batch.Reset()
	t.pending = make(map[string][]byte)
}
