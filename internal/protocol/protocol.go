// Package protocol defines the wire messages exchanged between the alarm
// daemon and its clients over the unix socket. A client sends one JSON
// Message per connection and reads one UTF-8 reply: a JSON InfoList for list
// requests, a short status string for everything else.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message is a client request.
type Message struct {
	// Time is the alarm time as "HH:MM". Empty for list and stop.
	Time string `json:"time,omitempty"`
	// When is the recurrence kind; empty defaults to "auto".
	When string `json:"when"`
	// Action is one of add, delete, cancel, list, stop.
	Action string `json:"action"`
	// FullList asks list to include alarms not scheduled for today.
	FullList bool `json:"full_list"`
}

// AlarmInfo is one row of a list reply.
type AlarmInfo struct {
	Time string `json:"time"`
	// Remaining is the duration until the next occurrence, as "H:MM:SS".
	Remaining string `json:"remaining"`
	// When is the recurrence kind name, or the target date for one-shot
	// alarms.
	When     string `json:"when"`
	Canceled bool   `json:"canceled"`
}

// InfoList is the reply to a list request.
type InfoList struct {
	Alarms []AlarmInfo `json:"alarms"`
}

// FormatRemaining renders a remaining duration as "H:MM:SS". Durations inside
// the due minute are slightly negative and render as zero.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// ResolveRelativeTime turns the client-side convenience syntax "+MM" or
// "+HH:MM" into an absolute "HH:MM" by adding the offset to now. Values not
// beginning with '+' are returned unchanged; the daemon only ever sees
// absolute times.
func ResolveRelativeTime(s string, now time.Time) (string, error) {
	if !strings.HasPrefix(s, "+") {
		return s, nil
	}

	parts := strings.Split(strings.TrimPrefix(s, "+"), ":")
	var hours, minutes int
	var err error
	switch len(parts) {
	case 1:
		minutes, err = strconv.Atoi(parts[0])
	case 2:
		if hours, err = strconv.Atoi(parts[0]); err == nil {
			minutes, err = strconv.Atoi(parts[1])
		}
	default:
		return "", fmt.Errorf("invalid relative time %q", s)
	}
	if err != nil {
		return "", fmt.Errorf("invalid relative time %q", s)
	}

	target := now.Truncate(time.Minute).
		Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)
	return fmt.Sprintf("%02d:%02d", target.Hour(), target.Minute()), nil
}
