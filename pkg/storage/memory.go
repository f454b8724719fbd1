package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in process memory. Used for tests and the
// "memory" storage driver.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	marks  map[string]time.Time
	now    func() time.Time
	failOn map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		marks: make(map[string]time.Time),
		now:   time.Now,
	}
}

// FailSaves makes every subsequent Save for name return err. Passing a nil
// error clears the failure.
func (m *MemoryStore) FailSaves(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == nil {
		m.failOn = make(map[string]error)
	}
	if err == nil {
		delete(m.failOn, name)
		return
	}
	m.failOn[name] = err
}

func (m *MemoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (m *MemoryStore) Save(ctx context.Context, name string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[name]; err != nil {
		return err
	}
	m.data[name] = append([]byte(nil), payload...)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		delete(m.data, name)
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) MarkOnce(ctx context.Context, scope, referenceID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope + ":" + referenceID
	now := m.now()
	if expires, ok := m.marks[key]; ok && (expires.IsZero() || now.Before(expires)) {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	m.marks[key] = expires
	return true, nil
}

func (m *MemoryStore) Unmark(ctx context.Context, scope, referenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marks, scope+":"+referenceID)
	return nil
}
