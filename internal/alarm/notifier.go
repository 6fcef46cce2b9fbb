package alarm

// NotificationHandle refers to a running notification process.
type NotificationHandle interface {
	// Stop terminates the notification. Stopping an already-finished
	// notification is not an error.
	Stop() error
}

// Notifier starts the external notification when an alarm fires.
type Notifier interface {
	Start() (NotificationHandle, error)
}

// SnapshotStore persists the alarm state across daemon restarts.
type SnapshotStore interface {
	// Save writes the full state. It is called on every mutation while the
	// manager lock is held, so implementations must be fast and must replace
	// previous state atomically.
	Save(state State) error

	// Load reads the last saved state. A missing snapshot yields an empty
	// state, not an error.
	Load() (State, error)

	Close() error
}
