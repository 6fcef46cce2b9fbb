package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"alarmd/internal/alarm"
	"alarmd/internal/protocol"
	"alarmd/internal/server"
	"alarmd/internal/testutil"
)

func startServer(t *testing.T) string {
	t.Helper()

	clock := testutil.NewMockClock(time.Date(2026, time.March, 2, 8, 0, 0, 0, time.Local))
	manager, err := alarm.NewManager(clock, alarm.NewNopLogger(), testutil.NewMockNotifier(), testutil.NewMemorySnapshots())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "alarmd.sock")
	srv := server.New(path, manager, alarm.NewNopLogger())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	return path
}

func send(t *testing.T, path string, payload []byte) string {
	t.Helper()

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(reply)
}

func sendMessage(t *testing.T, path string, msg protocol.Message) string {
	t.Helper()
	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return send(t, path, payload)
}

func TestServer(t *testing.T) {
	t.Run("add then list", func(t *testing.T) {
		path := startServer(t)

		got := sendMessage(t, path, protocol.Message{Time: "9:30", When: "everyday", Action: "add"})
		if got != "Successfully added" {
			t.Fatalf("add reply = %q", got)
		}

		raw := sendMessage(t, path, protocol.Message{Action: "list"})
		var list protocol.InfoList
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			t.Fatalf("list reply %q is not JSON: %v", raw, err)
		}
		if len(list.Alarms) != 1 {
			t.Fatalf("Alarms = %+v, want one entry", list.Alarms)
		}
		if list.Alarms[0].Time != "09:30" || list.Alarms[0].When != "everyday" {
			t.Errorf("Alarms[0] = %+v", list.Alarms[0])
		}
	})

	t.Run("delete removes the alarm", func(t *testing.T) {
		path := startServer(t)

		sendMessage(t, path, protocol.Message{Time: "9:30", When: "weekdays", Action: "add"})
		got := sendMessage(t, path, protocol.Message{Time: "9:30", When: "weekdays", Action: "delete"})
		if got != "Successfully deleted" {
			t.Fatalf("delete reply = %q", got)
		}

		raw := sendMessage(t, path, protocol.Message{Action: "list"})
		var list protocol.InfoList
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			t.Fatalf("list reply %q is not JSON: %v", raw, err)
		}
		if len(list.Alarms) != 0 {
			t.Errorf("Alarms = %+v, want none", list.Alarms)
		}
	})

	t.Run("malformed json is answered not dropped", func(t *testing.T) {
		path := startServer(t)

		got := send(t, path, []byte("{not json"))
		if !strings.HasPrefix(got, "invalid request:") {
			t.Errorf("reply = %q, want invalid request prefix", got)
		}
	})

	t.Run("bad action is reported", func(t *testing.T) {
		path := startServer(t)

		got := sendMessage(t, path, protocol.Message{Action: "explode"})
		if !strings.Contains(got, "explode") {
			t.Errorf("reply = %q, want mention of the bad action", got)
		}
	})

	t.Run("bad time is reported", func(t *testing.T) {
		path := startServer(t)

		got := sendMessage(t, path, protocol.Message{Time: "25:00", When: "everyday", Action: "add"})
		if !strings.Contains(got, "25:00") {
			t.Errorf("reply = %q, want mention of the bad time", got)
		}
	})

	t.Run("stop without a ringing alarm", func(t *testing.T) {
		path := startServer(t)

		got := sendMessage(t, path, protocol.Message{Action: "stop"})
		if got != "Alarm isn't running" {
			t.Errorf("stop reply = %q", got)
		}
	})
}
