package savestore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore хранит сохранения в памяти процесса. Используется в CLI и тестах.
type MemoryStore struct {
	mu     sync.RWMutex
	saves  map[string]map[string][]byte
	latest map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		saves:  map[string]map[string][]byte{},
		latest: map[string]string{},
	}
}

func (m *MemoryStore) Save(_ context.Context, owner string, rec Record) (string, error) {
	data, err := Encode(rec)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saves[owner] == nil {
		m.saves[owner] = map[string][]byte{}
	}
	m.saves[owner][token] = data
	m.latest[owner] = token
	return token, nil
}

func (m *MemoryStore) Load(_ context.Context, owner, token string) (Record, error) {
	m.mu.RLock()
	data, ok := m.saves[owner][token]
	m.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	return Decode(data)
}

func (m *MemoryStore) Latest(_ context.Context, owner string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.latest[owner]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

// Put кладет сырые байты сохранения под заданным токеном.
// Нужен для импорта сохранений старого формата.
func (m *MemoryStore) Put(owner, token string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saves[owner] == nil {
		m.saves[owner] = map[string][]byte{}
	}
	m.saves[owner][token] = append([]byte(nil), data...)
	m.latest[owner] = token
}
