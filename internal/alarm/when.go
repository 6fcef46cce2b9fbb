package alarm

import (
	"fmt"
	"time"
)

// When classifies an alarm's repeat schedule.
type When string

const (
	// WhenAuto is a one-shot alarm bound to a single absolute instant.
	// It is consumed after firing (or after its instant passes).
	WhenAuto When = "auto"
	// WhenEveryday fires every day.
	WhenEveryday When = "everyday"
	// WhenWeekdays fires Monday through Friday.
	WhenWeekdays When = "weekdays"
	// WhenWeekends fires Saturday and Sunday.
	WhenWeekends When = "weekends"
)

// ParseWhen validates a recurrence kind received over the wire.
// An empty string defaults to WhenAuto.
func ParseWhen(s string) (When, error) {
	switch When(s) {
	case WhenAuto, WhenEveryday, WhenWeekdays, WhenWeekends:
		return When(s), nil
	case "":
		return WhenAuto, nil
	default:
		return "", fmt.Errorf("unknown recurrence kind: %q", s)
	}
}

// Matches reports whether a recurring kind is scheduled on the given weekday.
// WhenAuto alarms are keyed by absolute instant and never consult this.
func (w When) Matches(day time.Weekday) bool {
	switch w {
	case WhenWeekdays:
		return day != time.Saturday && day != time.Sunday
	case WhenWeekends:
		return day == time.Saturday || day == time.Sunday
	default:
		return true
	}
}

// Action identifies a client request.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
	ActionCancel Action = "cancel"
	ActionList   Action = "list"
	ActionStop   Action = "stop"
)

// ParseAction validates an action received over the wire.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAdd, ActionDelete, ActionCancel, ActionList, ActionStop:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action: %q", s)
	}
}
