package snapshot

import (
	"sync"

	"alarmd/internal/alarm"
)

// Memory is an in-memory snapshot store. State does not survive the process;
// useful for tests and for running the daemon without persistence.
type Memory struct {
	mu    sync.Mutex
	state alarm.State
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(state alarm.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *Memory) Load() (alarm.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *Memory) Close() error { return nil }

var _ alarm.SnapshotStore = (*Memory)(nil)
