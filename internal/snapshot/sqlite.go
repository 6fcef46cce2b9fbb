package snapshot

import (
	"database/sql"
	"fmt"
	"time"

	"alarmd/internal/alarm"
	"alarmd/internal/snapshot/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps the snapshot in a single sqlite database file. Each save
// replaces the whole alarms table in one transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the snapshot database and brings its
// schema up to date. path can be ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating snapshot database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Save(state alarm.State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM alarms"); err != nil {
		return fmt.Errorf("clearing alarms: %w", err)
	}

	insert := func(kind string, tod alarm.TimeOfDay, firesAt any) error {
		_, err := tx.Exec(
			"INSERT INTO alarms (kind, time_of_day, fires_at) VALUES (?, ?, ?)",
			kind, tod.String(), firesAt,
		)
		return err
	}

	for kind, tods := range map[string][]alarm.TimeOfDay{
		string(alarm.WhenEveryday): state.Everyday,
		string(alarm.WhenWeekdays): state.Weekdays,
		string(alarm.WhenWeekends): state.Weekends,
	} {
		for _, tod := range tods {
			if err := insert(kind, tod, nil); err != nil {
				return fmt.Errorf("inserting %s alarm: %w", kind, err)
			}
		}
	}

	for _, at := range state.Auto {
		tod := alarm.TimeOfDayFrom(at)
		if err := insert(string(alarm.WhenAuto), tod, at.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("inserting auto alarm: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load() (alarm.State, error) {
	rows, err := s.db.Query("SELECT kind, time_of_day, fires_at FROM alarms")
	if err != nil {
		return alarm.State{}, fmt.Errorf("querying alarms: %w", err)
	}
	defer rows.Close()

	var state alarm.State
	for rows.Next() {
		var kind, todStr string
		var firesAt sql.NullString
		if err := rows.Scan(&kind, &todStr, &firesAt); err != nil {
			return alarm.State{}, fmt.Errorf("scanning alarm row: %w", err)
		}

		tod, err := alarm.ParseTimeOfDay(todStr)
		if err != nil {
			return alarm.State{}, fmt.Errorf("snapshot row has bad time %q: %w", todStr, err)
		}

		switch alarm.When(kind) {
		case alarm.WhenEveryday:
			state.Everyday = append(state.Everyday, tod)
		case alarm.WhenWeekdays:
			state.Weekdays = append(state.Weekdays, tod)
		case alarm.WhenWeekends:
			state.Weekends = append(state.Weekends, tod)
		case alarm.WhenAuto:
			if !firesAt.Valid {
				return alarm.State{}, fmt.Errorf("auto alarm %s has no instant", todStr)
			}
			at, err := time.Parse(time.RFC3339, firesAt.String)
			if err != nil {
				return alarm.State{}, fmt.Errorf("snapshot row has bad instant %q: %w", firesAt.String, err)
			}
			state.Auto = append(state.Auto, at)
		default:
			return alarm.State{}, fmt.Errorf("snapshot row has unknown kind %q", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return alarm.State{}, fmt.Errorf("reading alarm rows: %w", err)
	}
	return state, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ alarm.SnapshotStore = (*SQLiteStore)(nil)
