// Package session owns the client session identifier sent with every chat
// request.
package session

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// Key is the storage key the identifier lives under.
const Key = "chat_session_id"

// KV is the minimal key/value persistence a Store needs.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// Store hands out the current session id, creating one lazily.
type Store struct {
	mu      sync.Mutex
	kv      KV
	now     func() time.Time
	current string
}

// NewStore returns a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// NewMemoryStore returns a Store that forgets its id when the process exits.
func NewMemoryStore() *Store {
	return NewStore(NewMemoryKV())
}

// ID returns the stored identifier or creates, persists and returns a new
// one. A persistence failure is reported once; the id is kept in memory and
// reused until Clear.
func (s *Store) ID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" {
		return s.current, nil
	}
	if id, ok := s.kv.Get(Key); ok && id != "" {
		s.current = id
		return id, nil
	}
	s.current = newID(s.now())
	if err := s.kv.Set(Key, s.current); err != nil {
		return s.current, fmt.Errorf("persist session id: %w", err)
	}
	return s.current, nil
}

// Clear invalidates the current identifier; the next ID call creates a new one.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	return s.kv.Delete(Key)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID formats session_<unix-millis>_<9 base36 chars>.
func newID(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return "session_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
