package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"alarmd/internal/protocol"
)

// defaultSocketPath matches the daemon's default socket location.
func defaultSocketPath() string {
	return filepath.Join(os.TempDir(), "alarmd.sock")
}

// sendMessage performs one request/reply exchange with the daemon.
func sendMessage(socketPath string, msg protocol.Message) (string, error) {
	if _, err := os.Stat(socketPath); err != nil {
		return "", fmt.Errorf("are you sure the alarm daemon is running? (socket %s not found)", socketPath)
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return "", fmt.Errorf("are you sure the alarm daemon is running? (%v)", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("reading reply: %w", err)
	}
	return string(reply), nil
}

// listOptions controls which list columns and rows are shown.
type listOptions struct {
	full          bool
	showCancelled bool
	listWhens     bool
	raw           bool
}

// fetchAlarms asks the daemon for the alarm list and renders it.
func fetchAlarms(socketPath string, opts listOptions) (string, error) {
	reply, err := sendMessage(socketPath, protocol.Message{
		Action:   "list",
		When:     "auto",
		FullList: opts.full,
	})
	if err != nil {
		return "", err
	}

	var list protocol.InfoList
	if err := json.Unmarshal([]byte(reply), &list); err != nil {
		// The daemon answered with an error string instead of a list.
		return "", fmt.Errorf("%s", reply)
	}
	if len(list.Alarms) == 0 {
		return "No alarms found", nil
	}

	header := []string{"alarm time", "remaining time"}
	if opts.listWhens {
		header = append(header, "when")
	}
	if opts.showCancelled {
		header = append(header, "cancelled")
	}

	var rows [][]string
	for _, a := range list.Alarms {
		if a.Canceled && !opts.showCancelled {
			continue
		}
		row := []string{a.Time, a.Remaining}
		if opts.listWhens {
			row = append(row, a.When)
		}
		if opts.showCancelled {
			row = append(row, fmt.Sprintf("%t", a.Canceled))
		}
		rows = append(rows, row)
	}

	if opts.raw {
		return renderRaw(header, rows), nil
	}
	return renderTable(header, rows), nil
}

// renderTable renders aligned columns.
func renderTable(header []string, rows [][]string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// renderRaw renders tab-separated lines for scripting.
func renderRaw(header []string, rows [][]string) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(header, "\t"))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "\t"))
	}
	return strings.Join(lines, "\n")
}
