package storage

import (
	"sync"
	"time"

	"github.com/HatiCode/dtstail/pkg/profile"
)

type Snapshot struct {
	DeviceCode string
	SampleTime string
	ReceivedAt time.Time
	Summary    profile.Summary
}

type Store interface {
	Put(Snapshot) error
	GetLatest(deviceCode string) (Snapshot, bool, error)
}

// MemoryStore keeps the most recent snapshot per device. Safe for
// concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	latest map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{latest: make(map[string]Snapshot)}
}

func (s *MemoryStore) Put(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[snap.DeviceCode] = snap
	return nil
}

func (s *MemoryStore) GetLatest(deviceCode string) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[deviceCode]
	return snap, ok, nil
}
