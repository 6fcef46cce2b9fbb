package alarm_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"alarmd/internal/alarm"
	"alarmd/internal/protocol"
	"alarmd/internal/testutil"
)

func newTestManager(t *testing.T, now time.Time) (*alarm.Manager, *testutil.MockClock, *testutil.MockNotifier, *testutil.MemorySnapshots) {
	t.Helper()
	clock := testutil.NewMockClock(now)
	notifier := testutil.NewMockNotifier()
	snapshots := testutil.NewMemorySnapshots()

	m, err := alarm.NewManager(clock, alarm.NewNopLogger(), notifier, snapshots)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, clock, notifier, snapshots
}

func addRequest(hour, minute int, when alarm.When) alarm.Request {
	return alarm.Request{
		Action:  alarm.ActionAdd,
		When:    when,
		Time:    alarm.TimeOfDay{Hour: hour, Minute: minute},
		HasTime: true,
	}
}

func TestManager_Process(t *testing.T) {
	t.Run("add replies and snapshots", func(t *testing.T) {
		m, _, _, snapshots := newTestManager(t, date(3, 8, 0, 0))

		reply, err := m.Process(addRequest(9, 0, alarm.WhenEveryday))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if reply != "Successfully added" {
			t.Errorf("reply = %q, want %q", reply, "Successfully added")
		}
		if snapshots.Saves() != 1 {
			t.Errorf("snapshot saves = %d, want 1", snapshots.Saves())
		}
	})

	t.Run("delete of absent alarm still succeeds", func(t *testing.T) {
		m, _, _, _ := newTestManager(t, date(3, 8, 0, 0))

		reply, err := m.Process(alarm.Request{
			Action:  alarm.ActionDelete,
			When:    alarm.WhenEveryday,
			Time:    alarm.TimeOfDay{Hour: 9, Minute: 0},
			HasTime: true,
		})
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if reply != "Successfully deleted" {
			t.Errorf("reply = %q, want %q", reply, "Successfully deleted")
		}
	})

	t.Run("add without time is an error", func(t *testing.T) {
		m, _, _, _ := newTestManager(t, date(3, 8, 0, 0))

		if _, err := m.Process(alarm.Request{Action: alarm.ActionAdd, When: alarm.WhenAuto}); err == nil {
			t.Error("Process() expected error for add without time")
		}
	})

	t.Run("list returns remaining durations and labels", func(t *testing.T) {
		m, _, _, _ := newTestManager(t, date(3, 8, 0, 0))

		if _, err := m.Process(addRequest(8, 10, alarm.WhenAuto)); err != nil {
			t.Fatalf("Process(add) error = %v", err)
		}
		if _, err := m.Process(addRequest(9, 0, alarm.WhenEveryday)); err != nil {
			t.Fatalf("Process(add) error = %v", err)
		}

		reply, err := m.Process(alarm.Request{Action: alarm.ActionList})
		if err != nil {
			t.Fatalf("Process(list) error = %v", err)
		}

		var list protocol.InfoList
		if err := json.Unmarshal([]byte(reply), &list); err != nil {
			t.Fatalf("list reply is not JSON: %v", err)
		}
		if len(list.Alarms) != 2 {
			t.Fatalf("len(Alarms) = %d, want 2", len(list.Alarms))
		}

		// Auto alarm at 08:10 is ten minutes away and labeled with its date.
		if list.Alarms[0].Time != "08:10" {
			t.Errorf("Alarms[0].Time = %q, want %q", list.Alarms[0].Time, "08:10")
		}
		if list.Alarms[0].Remaining != "0:10:00" {
			t.Errorf("Alarms[0].Remaining = %q, want %q", list.Alarms[0].Remaining, "0:10:00")
		}
		if list.Alarms[0].When != "2026-03-03" {
			t.Errorf("Alarms[0].When = %q, want %q", list.Alarms[0].When, "2026-03-03")
		}
		if list.Alarms[1].When != "everyday" {
			t.Errorf("Alarms[1].When = %q, want %q", list.Alarms[1].When, "everyday")
		}
	})

	t.Run("list does not snapshot", func(t *testing.T) {
		m, _, _, snapshots := newTestManager(t, date(3, 8, 0, 0))

		if _, err := m.Process(alarm.Request{Action: alarm.ActionList}); err != nil {
			t.Fatalf("Process(list) error = %v", err)
		}
		if snapshots.Saves() != 0 {
			t.Errorf("snapshot saves = %d, want 0", snapshots.Saves())
		}
	})

	t.Run("stop without running notification", func(t *testing.T) {
		m, _, _, _ := newTestManager(t, date(3, 8, 0, 0))

		reply, err := m.Process(alarm.Request{Action: alarm.ActionStop})
		if err != nil {
			t.Fatalf("Process(stop) error = %v", err)
		}
		if reply != "Alarm isn't running" {
			t.Errorf("reply = %q, want %q", reply, "Alarm isn't running")
		}
	})
}

func TestManager_Poll(t *testing.T) {
	t.Run("fires at the due minute, once", func(t *testing.T) {
		m, clock, notifier, _ := newTestManager(t, date(3, 8, 0, 0))

		if _, err := m.Process(addRequest(8, 10, alarm.WhenAuto)); err != nil {
			t.Fatalf("Process(add) error = %v", err)
		}

		m.Poll()
		if notifier.Starts() != 0 {
			t.Fatalf("notification started before due minute")
		}

		clock.Set(date(3, 8, 10, 2))
		m.Poll()
		if notifier.Starts() != 1 {
			t.Fatalf("starts = %d, want 1", notifier.Starts())
		}

		// A later poll cycle in the same minute must not fire again.
		clock.Advance(20 * time.Second)
		m.Poll()
		if notifier.Starts() != 1 {
			t.Errorf("starts = %d after second poll, want 1", notifier.Starts())
		}
	})

	t.Run("stop terminates and suppresses same-minute refire", func(t *testing.T) {
		m, clock, notifier, _ := newTestManager(t, date(3, 8, 9, 50))

		if _, err := m.Process(addRequest(8, 10, alarm.WhenAuto)); err != nil {
			t.Fatalf("Process(add) error = %v", err)
		}

		clock.Set(date(3, 8, 10, 5))
		m.Poll()
		if notifier.Starts() != 1 {
			t.Fatalf("starts = %d, want 1", notifier.Starts())
		}

		reply, err := m.Process(alarm.Request{Action: alarm.ActionStop})
		if err != nil {
			t.Fatalf("Process(stop) error = %v", err)
		}
		if reply != "Alarm stopped" {
			t.Errorf("reply = %q, want %q", reply, "Alarm stopped")
		}
		if notifier.Stops() != 1 {
			t.Errorf("stops = %d, want 1", notifier.Stops())
		}

		// Still the same minute after the manual stop: no refire.
		clock.Advance(10 * time.Second)
		m.Poll()
		if notifier.Starts() != 1 {
			t.Errorf("starts = %d after stop, want 1", notifier.Starts())
		}

		reply, err = m.Process(alarm.Request{Action: alarm.ActionStop})
		if err != nil {
			t.Fatalf("Process(stop) error = %v", err)
		}
		if reply != "Alarm isn't running" {
			t.Errorf("second stop reply = %q, want %q", reply, "Alarm isn't running")
		}
	})

	t.Run("cancelled alarms do not fire", func(t *testing.T) {
		m, clock, notifier, _ := newTestManager(t, date(3, 8, 0, 0))

		if _, err := m.Process(addRequest(8, 10, alarm.WhenEveryday)); err != nil {
			t.Fatalf("Process(add) error = %v", err)
		}
		if _, err := m.Process(alarm.Request{
			Action:  alarm.ActionCancel,
			When:    alarm.WhenAuto,
			Time:    alarm.TimeOfDay{Hour: 8, Minute: 10},
			HasTime: true,
		}); err != nil {
			t.Fatalf("Process(cancel) error = %v", err)
		}

		clock.Set(date(3, 8, 10, 0))
		m.Poll()
		if notifier.Starts() != 0 {
			t.Errorf("starts = %d for cancelled alarm, want 0", notifier.Starts())
		}
	})

	t.Run("notifier failure leaves state ready to retry", func(t *testing.T) {
		m, clock, notifier, _ := newTestManager(t, date(3, 8, 0, 0))

		if _, err := m.Process(addRequest(8, 10, alarm.WhenAuto)); err != nil {
			t.Fatalf("Process(add) error = %v", err)
		}

		notifier.FailWith(errors.New("player missing"))
		clock.Set(date(3, 8, 10, 0))
		m.Poll()
		if notifier.Starts() != 0 {
			t.Fatalf("starts = %d, want 0", notifier.Starts())
		}

		// The failed attempt did not record a firing; the next poll in the
		// same minute may retry.
		notifier.FailWith(nil)
		clock.Advance(15 * time.Second)
		m.Poll()
		if notifier.Starts() != 1 {
			t.Errorf("starts = %d after recovery, want 1", notifier.Starts())
		}
	})
}

func TestManager_EndToEnd(t *testing.T) {
	// Add an alarm ten minutes out, watch it fire exactly once at 08:10,
	// stop it, and confirm a second stop reports nothing running.
	m, clock, notifier, snapshots := newTestManager(t, date(3, 8, 0, 0))

	timeStr, err := protocol.ResolveRelativeTime("+10", clock.Now())
	if err != nil {
		t.Fatalf("ResolveRelativeTime() error = %v", err)
	}
	tod, err := alarm.ParseTimeOfDay(timeStr)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) error = %v", timeStr, err)
	}
	if tod != (alarm.TimeOfDay{Hour: 8, Minute: 10}) {
		t.Fatalf("resolved time = %v, want 08:10", tod)
	}

	if _, err := m.Process(alarm.Request{
		Action:  alarm.ActionAdd,
		When:    alarm.WhenAuto,
		Time:    tod,
		HasTime: true,
	}); err != nil {
		t.Fatalf("Process(add) error = %v", err)
	}
	if snapshots.Saves() != 1 {
		t.Errorf("snapshot saves = %d, want 1", snapshots.Saves())
	}

	reply, err := m.Process(alarm.Request{Action: alarm.ActionList})
	if err != nil {
		t.Fatalf("Process(list) error = %v", err)
	}
	var list protocol.InfoList
	if err := json.Unmarshal([]byte(reply), &list); err != nil {
		t.Fatalf("list reply is not JSON: %v", err)
	}
	if len(list.Alarms) != 1 || list.Alarms[0].Remaining != "0:10:00" {
		t.Fatalf("list = %+v, want one alarm with 0:10:00 remaining", list.Alarms)
	}

	clock.Set(date(3, 8, 10, 0))
	m.Poll()
	m.Poll()
	if notifier.Starts() != 1 {
		t.Fatalf("starts = %d, want exactly 1", notifier.Starts())
	}

	reply, err = m.Process(alarm.Request{Action: alarm.ActionStop})
	if err != nil {
		t.Fatalf("Process(stop) error = %v", err)
	}
	if reply != "Alarm stopped" {
		t.Errorf("stop reply = %q", reply)
	}

	reply, err = m.Process(alarm.Request{Action: alarm.ActionStop})
	if err != nil {
		t.Fatalf("Process(stop) error = %v", err)
	}
	if reply != "Alarm isn't running" {
		t.Errorf("second stop reply = %q", reply)
	}
}

func TestManager_RehydratesFromSnapshot(t *testing.T) {
	now := date(3, 8, 0, 0)
	snapshots := testutil.NewMemorySnapshots()
	snapshots.Seed(alarm.State{
		Everyday: []alarm.TimeOfDay{{Hour: 9, Minute: 0}},
		Auto:     []time.Time{date(3, 8, 10, 0)},
	})

	m, err := alarm.NewManager(testutil.NewMockClock(now), alarm.NewNopLogger(), testutil.NewMockNotifier(), snapshots)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	reply, err := m.Process(alarm.Request{Action: alarm.ActionList})
	if err != nil {
		t.Fatalf("Process(list) error = %v", err)
	}
	var list protocol.InfoList
	if err := json.Unmarshal([]byte(reply), &list); err != nil {
		t.Fatalf("list reply is not JSON: %v", err)
	}
	if len(list.Alarms) != 2 {
		t.Errorf("len(Alarms) = %d, want 2", len(list.Alarms))
	}
}

func TestManager_Finalize(t *testing.T) {
	m, clock, _, snapshots := newTestManager(t, date(3, 8, 0, 0))

	if _, err := m.Process(addRequest(8, 10, alarm.WhenAuto)); err != nil {
		t.Fatalf("Process(add) error = %v", err)
	}

	// The auto alarm expires before shutdown; Finalize must clean it up and
	// write a snapshot without it.
	clock.Set(date(3, 9, 0, 0))
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	state, err := snapshots.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(state.Auto) != 0 {
		t.Errorf("len(state.Auto) = %d, want 0", len(state.Auto))
	}
}
