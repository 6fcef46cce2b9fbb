package alarm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"alarmd/internal/protocol"
)

// Request is a decoded, validated client request. The server layer is
// responsible for rejecting malformed input before a Request is built.
type Request struct {
	Action   Action
	When     When
	Time     TimeOfDay
	HasTime  bool
	FullList bool
}

// Manager guards the alarm store and the notification state behind a single
// mutex. Both the request server and the buzzer loop operate exclusively
// through it; every operation runs as one critical section so that reading
// due alarms and deciding to fire are atomic with respect to the
// notification handle.
type Manager struct {
	clock     Clock
	logger    Logger
	notifier  Notifier
	snapshots SnapshotStore

	mu        sync.Mutex
	store     *Store
	handle    NotificationHandle
	lastFired time.Time // minute at which a notification last started
}

// NewManager creates a Manager, rehydrating the store from the snapshot
// store. An absent snapshot means an empty store.
func NewManager(clock Clock, logger Logger, notifier Notifier, snapshots SnapshotStore) (*Manager, error) {
	state, err := snapshots.Load()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	store := NewStore()
	store.Restore(state)

	return &Manager{
		clock:     clock,
		logger:    logger,
		notifier:  notifier,
		snapshots: snapshots,
		store:     store,
	}, nil
}

// Process executes one client request and returns the reply text. Errors are
// returned for the server layer to report verbatim; they never leave the
// store in a partial state.
func (m *Manager) Process(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()

	switch req.Action {
	case ActionAdd:
		if !req.HasTime {
			return "", errors.New("add requires a time")
		}
		m.logger.Debug("adding alarm", "time", req.Time.String(), "when", string(req.When))
		m.store.Add(req.Time, req.When, now)
		if err := m.persistLocked(); err != nil {
			return "", err
		}
		return "Successfully added", nil

	case ActionDelete:
		if !req.HasTime {
			return "", errors.New("delete requires a time")
		}
		m.logger.Debug("deleting alarm", "time", req.Time.String(), "when", string(req.When))
		m.store.Delete(req.Time, req.When, now)
		if err := m.persistLocked(); err != nil {
			return "", err
		}
		return "Successfully deleted", nil

	case ActionCancel:
		if !req.HasTime {
			return "", errors.New("cancel requires a time")
		}
		m.store.CancelToday(req.Time, now)
		if err := m.persistLocked(); err != nil {
			return "", err
		}
		return "Alarm cancelled", nil

	case ActionList:
		reply, err := json.Marshal(m.infoLocked(req.FullList, now))
		if err != nil {
			return "", fmt.Errorf("encoding alarm list: %w", err)
		}
		return string(reply), nil

	case ActionStop:
		return m.stopLocked(), nil
	}

	return "", fmt.Errorf("unknown action %q", req.Action)
}

// infoLocked builds the list reply: due alarms ascending by remaining
// duration, with the when column showing the target date for one-shot
// alarms. Caller holds the lock.
func (m *Manager) infoLocked(includeAll bool, now time.Time) protocol.InfoList {
	due := m.store.ListDue(includeAll, now)

	infos := make([]protocol.AlarmInfo, 0, len(due))
	for _, a := range due {
		when := string(a.When)
		if a.When == WhenAuto {
			when = a.At.Format("2006-01-02")
		}
		infos = append(infos, protocol.AlarmInfo{
			Time:      a.Time.String(),
			Remaining: protocol.FormatRemaining(a.Remaining),
			When:      when,
			Canceled:  m.store.IsCanceled(a.Time, a.When, now),
		})
	}
	return protocol.InfoList{Alarms: infos}
}

// stopLocked terminates a running notification. The last-fired minute is
// kept so the same alarm does not immediately re-trigger after a manual
// stop. Caller holds the lock.
func (m *Manager) stopLocked() string {
	if m.handle == nil {
		return "Alarm isn't running"
	}
	if err := m.handle.Stop(); err != nil {
		m.logger.Warn("stopping notification", "err", err)
	}
	m.handle = nil
	return "Alarm stopped"
}

// Poll runs one trigger-loop cycle: cleanup, then fire the head of today's
// due list if its minute is the current minute. Reading the list and
// starting the notification happen in the same critical section, and a
// notification starts at most once per wall-clock minute.
func (m *Manager) Poll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.store.Cleanup(now)

	due := m.store.ListDue(false, now)
	if len(due) == 0 {
		return
	}

	nowMinute := now.Truncate(time.Minute)
	head := due[0]
	if head.Time != TimeOfDayFrom(nowMinute) {
		return
	}
	if m.store.IsCanceled(head.Time, head.When, now) {
		return
	}
	if m.handle != nil || m.lastFired.Equal(nowMinute) {
		return
	}

	handle, err := m.notifier.Start()
	if err != nil {
		m.logger.Error("starting notification", "err", err,
			"time", head.Time.String(), "when", string(head.When))
		return
	}
	m.handle = handle
	m.lastFired = nowMinute
	m.logger.Info("alarm fired", "time", head.Time.String(), "when", string(head.When))
}

// Finalize runs a last cleanup and snapshot. Called on every shutdown path.
func (m *Manager) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Cleanup(m.clock.Now())
	return m.snapshots.Save(m.store.Snapshot())
}

// persistLocked writes the snapshot. Caller holds the lock; snapshot stores
// are required to be fast enough for that.
func (m *Manager) persistLocked() error {
	if err := m.snapshots.Save(m.store.Snapshot()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}
