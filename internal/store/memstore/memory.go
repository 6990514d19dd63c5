// Package memstore provides an in-memory implementation of store.Store for
// tests and demos. Documents are kept in their encoded form so that values
// behave exactly as they would after a trip through a persistent backend.
package memstore

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/yiblet/promptkeep/internal/store"
)

// MemoryStore is an in-memory implementation of store.Store
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	keys   store.KeyMutex
	logger hclog.Logger
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string][]byte),
		logger: hclog.NewNullLogger(),
	}
}

// WithLogger sets the logger used for decode diagnostics.
func (m *MemoryStore) WithLogger(logger hclog.Logger) *MemoryStore {
	m.logger = logger
	return m
}

// Get decodes the document for key into dst.
func (m *MemoryStore) Get(key string, dst any) (store.Status, error) {
	doc, err := m.load(key)
	if err != nil {
		return store.StatusAbsent, err
	}
	return doc.Decode(dst)
}

// Set replaces the document for key.
func (m *MemoryStore) Set(key string, value any) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	unlock := m.keys.Lock(key)
	defer unlock()
	return m.write(key, value)
}

// Delete removes the document for key.
func (m *MemoryStore) Delete(key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.docs, key)
	m.mu.Unlock()
	return nil
}

// Update runs fn against the current document for key while holding the
// key's lock.
func (m *MemoryStore) Update(key string, fn store.UpdateFunc) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	unlock := m.keys.Lock(key)
	defer unlock()

	doc, err := m.load(key)
	if err != nil {
		return err
	}
	next, write, err := fn(doc)
	if err != nil || !write {
		return err
	}
	return m.write(key, next)
}

// Close drops every document.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string][]byte)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetRaw stores data for key without encoding it. Tests use it to plant
// documents a real backend could have read from disk.
func (m *MemoryStore) SetRaw(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), data...)
}

func (m *MemoryStore) load(key string) (store.Document, error) {
	if err := store.ValidateKey(key); err != nil {
		return store.Document{Key: key}, err
	}
	m.mu.RLock()
	data := m.docs[key]
	m.mu.RUnlock()
	return store.Load(key, data, m.logger), nil
}

func (m *MemoryStore) write(key string, value any) error {
	data, err := store.Encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[key] = data
	m.mu.Unlock()
	return nil
}
