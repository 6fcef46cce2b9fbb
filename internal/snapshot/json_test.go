package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"alarmd/internal/alarm"
	"alarmd/internal/snapshot"
)

func testState() alarm.State {
	return alarm.State{
		Everyday: []alarm.TimeOfDay{{Hour: 7, Minute: 30}},
		Weekdays: []alarm.TimeOfDay{{Hour: 9, Minute: 0}},
		Weekends: []alarm.TimeOfDay{{Hour: 10, Minute: 15}},
		Auto:     []time.Time{time.Date(2026, time.March, 3, 8, 10, 0, 0, time.Local)},
	}
}

func assertStatesEqual(t *testing.T, got, want alarm.State) {
	t.Helper()
	if len(got.Everyday) != len(want.Everyday) ||
		len(got.Weekdays) != len(want.Weekdays) ||
		len(got.Weekends) != len(want.Weekends) ||
		len(got.Auto) != len(want.Auto) {
		t.Fatalf("state shape = %+v, want %+v", got, want)
	}
	for i := range want.Everyday {
		if got.Everyday[i] != want.Everyday[i] {
			t.Errorf("Everyday[%d] = %v, want %v", i, got.Everyday[i], want.Everyday[i])
		}
	}
	for i := range want.Auto {
		if !got.Auto[i].Equal(want.Auto[i]) {
			t.Errorf("Auto[%d] = %v, want %v", i, got.Auto[i], want.Auto[i])
		}
	}
}

func TestJSONStore(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "alarms.json")
		s, err := snapshot.NewJSONStore(path)
		if err != nil {
			t.Fatalf("NewJSONStore() error = %v", err)
		}

		if err := s.Save(testState()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := s.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		assertStatesEqual(t, got, testState())
	})

	t.Run("missing file loads empty state", func(t *testing.T) {
		s, err := snapshot.NewJSONStore(filepath.Join(t.TempDir(), "alarms.json"))
		if err != nil {
			t.Fatalf("NewJSONStore() error = %v", err)
		}

		got, err := s.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got.Everyday)+len(got.Weekdays)+len(got.Weekends)+len(got.Auto) != 0 {
			t.Errorf("Load() = %+v, want empty state", got)
		}
	})

	t.Run("save replaces previous state", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "alarms.json")
		s, err := snapshot.NewJSONStore(path)
		if err != nil {
			t.Fatalf("NewJSONStore() error = %v", err)
		}

		if err := s.Save(testState()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := s.Save(alarm.State{}); err != nil {
			t.Fatalf("second Save() error = %v", err)
		}

		got, err := s.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got.Everyday) != 0 {
			t.Errorf("Everyday = %v, want empty", got.Everyday)
		}
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		s, err := snapshot.NewJSONStore(filepath.Join(dir, "alarms.json"))
		if err != nil {
			t.Fatalf("NewJSONStore() error = %v", err)
		}
		if err := s.Save(testState()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != "alarms.json" {
			t.Errorf("dir entries = %v, want only alarms.json", entries)
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "alarms.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		s, err := snapshot.NewJSONStore(path)
		if err != nil {
			t.Fatalf("NewJSONStore() error = %v", err)
		}
		if _, err := s.Load(); err == nil {
			t.Error("Load() expected error for corrupt snapshot")
		}
	})
}
