package storage

import (
	"maps"
	"sync"
)

// MemoryBackend implements Backend with in-process maps. Update
// transactions are serialized and applied to a copy, so a failed Update
// leaves nothing behind.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryBackend) Update(fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := make(map[string]map[string][]byte, len(m.buckets))
	for name, bkt := range m.buckets {
		work[name] = maps.Clone(bkt)
	}

	if err := fn(&memoryTx{buckets: work, writable: true}); err != nil {
		return err
	}
	m.buckets = work
	return nil
}

func (m *MemoryBackend) View(fn func(tx Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memoryTx{buckets: m.buckets})
}

func (m *MemoryBackend) Close() error {
	return nil
}

type memoryTx struct {
	buckets  map[string]map[string][]byte
	writable bool
}

func (t *memoryTx) CreateBucket(name []byte) (Bucket, error) {
	if !t.writable {
		return nil, ErrReadOnlyTx
	}
	if _, ok := t.buckets[string(name)]; !ok {
		t.buckets[string(name)] = make(map[string][]byte)
	}
	return t.Bucket(name), nil
}

func (t *memoryTx) DeleteBucket(name []byte) error {
	if !t.writable {
		return ErrReadOnlyTx
	}
	delete(t.buckets, string(name))
	return nil
}

func (t *memoryTx) Bucket(name []byte) Bucket {
	kv, ok := t.buckets[string(name)]
	if !ok {
		return nil
	}
	return &memoryBucket{kv: kv, writable: t.writable}
}

func (t *memoryTx) ForEachBucket(fn func(name []byte) error) error {
	for name := range t.buckets {
		if err := fn([]byte(name)); err != nil {
			return err
		}
	}
	return nil
}

type memoryBucket struct {
	kv       map[string][]byte
	writable bool
}

func (b *memoryBucket) Put(key, value []byte) error {
	if !b.writable {
		return ErrReadOnlyTx
	}
	// Copy value to prevent external modifications
	b.kv[string(key)] = append([]byte(nil), value...)
	return nil
}

func (b *memoryBucket) Get(key []byte) []byte {
	return b.kv[string(key)]
}

func (b *memoryBucket) Delete(key []byte) error {
	if !b.writable {
		return ErrReadOnlyTx
	}
	delete(b.kv, string(key))
	return nil
}

func (b *memoryBucket) ForEach(fn func(k, v []byte) error) error {
	for k, v := range b.kv {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}
