// Package testutil provides deterministic implementations of the alarm
// engine's interfaces for tests.
package testutil

import (
	"sync"
	"time"

	"alarmd/internal/alarm"
)

// MockClock is a Clock whose time is set explicitly by the test.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to an absolute instant.
func (c *MockClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ alarm.Clock = (*MockClock)(nil)

// MockNotifier records notification starts and stops instead of spawning a
// player process.
type MockNotifier struct {
	mu      sync.Mutex
	starts  int
	stops   int
	failErr error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// FailWith makes subsequent Start calls return err.
func (n *MockNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failErr = err
}

func (n *MockNotifier) Start() (alarm.NotificationHandle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failErr != nil {
		return nil, n.failErr
	}
	n.starts++
	return &mockHandle{notifier: n}, nil
}

// Starts returns how many notifications have been started.
func (n *MockNotifier) Starts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.starts
}

// Stops returns how many notifications have been stopped.
func (n *MockNotifier) Stops() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stops
}

var _ alarm.Notifier = (*MockNotifier)(nil)

type mockHandle struct {
	notifier *MockNotifier
}

func (h *mockHandle) Stop() error {
	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	h.notifier.stops++
	return nil
}

// MemorySnapshots is an in-memory SnapshotStore that counts saves.
type MemorySnapshots struct {
	mu    sync.Mutex
	state alarm.State
	saves int
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{}
}

func (m *MemorySnapshots) Save(state alarm.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.saves++
	return nil
}

func (m *MemorySnapshots) Load() (alarm.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemorySnapshots) Close() error { return nil }

// Saves returns how many times Save has been called.
func (m *MemorySnapshots) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Seed replaces the stored state without counting a save.
func (m *MemorySnapshots) Seed(state alarm.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

var _ alarm.SnapshotStore = (*MemorySnapshots)(nil)
