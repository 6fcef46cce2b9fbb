package alarm

import (
	"sort"
	"time"
)

// DeltaAlarm is a query-time view of an alarm: its next occurrence and the
// remaining duration, computed against a given now. Never stored.
type DeltaAlarm struct {
	Time      TimeOfDay
	When      When
	At        time.Time
	Remaining time.Duration
}

// autoKey identifies a one-shot alarm by its absolute instant at minute
// precision. Comparable so it can be a map key.
type autoKey struct {
	year   int
	month  time.Month
	day    int
	hour   int
	minute int
}

func autoKeyFrom(t time.Time) autoKey {
	return autoKey{t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()}
}

func (k autoKey) at(loc *time.Location) time.Time {
	return time.Date(k.year, k.month, k.day, k.hour, k.minute, 0, 0, loc)
}

func (k autoKey) timeOfDay() TimeOfDay {
	return TimeOfDay{Hour: k.hour, Minute: k.minute}
}

func (k autoKey) sameDate(t time.Time) bool {
	y, m, d := t.Date()
	return k.year == y && k.month == m && k.day == d
}

// cancelKey identifies a day-scoped suppression of one occurrence of a
// recurring alarm.
type cancelKey struct {
	when  When
	tod   TimeOfDay
	year  int
	month time.Month
	day   int
}

func cancelKeyFor(when When, tod TimeOfDay, day time.Time) cancelKey {
	y, m, d := day.Date()
	return cancelKey{when: when, tod: tod, year: y, month: m, day: d}
}

// Store owns the authoritative in-memory alarm collections. It performs no
// I/O and no locking; Manager serializes access and handles persistence.
type Store struct {
	recurring map[When]map[TimeOfDay]struct{}
	auto      map[autoKey]struct{}
	canceled  map[cancelKey]struct{}
}

func NewStore() *Store {
	return &Store{
		recurring: map[When]map[TimeOfDay]struct{}{
			WhenEveryday: {},
			WhenWeekdays: {},
			WhenWeekends: {},
		},
		auto:     map[autoKey]struct{}{},
		canceled: map[cancelKey]struct{}{},
	}
}

// Add inserts an alarm. For WhenAuto the time of day is materialized as the
// absolute instant of its next occurrence. Adding an alarm that already
// exists is a no-op.
func (s *Store) Add(tod TimeOfDay, when When, now time.Time) {
	if when == WhenAuto {
		at, _ := NextOccurrence(tod, when, now)
		s.auto[autoKeyFrom(at)] = struct{}{}
		return
	}
	s.recurring[when][tod] = struct{}{}
}

// Delete removes an alarm. For WhenAuto the time of day resolves to its next
// occurrence instant, mirroring Add. Deleting an absent alarm is a no-op.
func (s *Store) Delete(tod TimeOfDay, when When, now time.Time) {
	if when == WhenAuto {
		at, _ := NextOccurrence(tod, when, now)
		delete(s.auto, autoKeyFrom(at))
		return
	}
	delete(s.recurring[when], tod)
}

// CancelToday suppresses today's occurrence of every alarm due today at the
// given time of day. One-shot alarms are deleted outright; recurring alarms
// get a cancellation record dated today. No matching alarm means no-op.
func (s *Store) CancelToday(tod TimeOfDay, now time.Time) {
	for _, due := range s.ListDue(false, now) {
		if due.Time != tod {
			continue
		}
		if due.When == WhenAuto {
			delete(s.auto, autoKeyFrom(due.At))
			continue
		}
		s.canceled[cancelKeyFor(due.When, tod, now)] = struct{}{}
	}
}

// IsCanceled reports whether a cancellation record dated today exists for the
// given alarm.
func (s *Store) IsCanceled(tod TimeOfDay, when When, now time.Time) bool {
	_, ok := s.canceled[cancelKeyFor(when, tod, now)]
	return ok
}

// ListDue returns the alarms scheduled for today (or all alarms when
// includeAll is set), ascending by remaining duration. The ordering is
// load-bearing: the trigger loop inspects only the head.
func (s *Store) ListDue(includeAll bool, now time.Time) []DeltaAlarm {
	day := now.Weekday()

	var out []DeltaAlarm
	for when, set := range s.recurring {
		if !includeAll && !when.Matches(day) {
			continue
		}
		for tod := range set {
			at, remaining := NextOccurrence(tod, when, now)
			out = append(out, DeltaAlarm{Time: tod, When: when, At: at, Remaining: remaining})
		}
	}

	for key := range s.auto {
		if !includeAll && !key.sameDate(now) {
			continue
		}
		at := key.at(now.Location())
		out = append(out, DeltaAlarm{
			Time:      key.timeOfDay(),
			When:      WhenAuto,
			At:        at,
			Remaining: at.Sub(now),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Remaining != out[j].Remaining {
			return out[i].Remaining < out[j].Remaining
		}
		if out[i].Time != out[j].Time {
			return out[i].Time.Hour < out[j].Time.Hour ||
				(out[i].Time.Hour == out[j].Time.Hour && out[i].Time.Minute < out[j].Time.Minute)
		}
		return out[i].When < out[j].When
	})
	return out
}

// Cleanup purges one-shot alarms whose instant has passed and cancellation
// records dated before today. Idempotent; called at least once per poll.
func (s *Store) Cleanup(now time.Time) {
	nowMinute := now.Truncate(time.Minute)
	for key := range s.auto {
		if key.at(now.Location()).Before(nowMinute) {
			delete(s.auto, key)
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for key := range s.canceled {
		if time.Date(key.year, key.month, key.day, 0, 0, 0, 0, now.Location()).Before(today) {
			delete(s.canceled, key)
		}
	}
}

// State is the serializable form of the store. Cancellation records are
// date-scoped and cheap to lose, so they are not part of it.
type State struct {
	Everyday []TimeOfDay `json:"everyday"`
	Weekdays []TimeOfDay `json:"weekdays"`
	Weekends []TimeOfDay `json:"weekends"`
	Auto     []time.Time `json:"auto"`
}

// Snapshot captures the store's persistent state, sorted for determinism.
func (s *Store) Snapshot() State {
	sorted := func(when When) []TimeOfDay {
		tods := make([]TimeOfDay, 0, len(s.recurring[when]))
		for tod := range s.recurring[when] {
			tods = append(tods, tod)
		}
		sort.Slice(tods, func(i, j int) bool {
			return tods[i].Hour < tods[j].Hour ||
				(tods[i].Hour == tods[j].Hour && tods[i].Minute < tods[j].Minute)
		})
		return tods
	}

	auto := make([]time.Time, 0, len(s.auto))
	for key := range s.auto {
		auto = append(auto, key.at(time.Local))
	}
	sort.Slice(auto, func(i, j int) bool { return auto[i].Before(auto[j]) })

	return State{
		Everyday: sorted(WhenEveryday),
		Weekdays: sorted(WhenWeekdays),
		Weekends: sorted(WhenWeekends),
		Auto:     auto,
	}
}

// Restore replaces the store's alarms with a previously captured state.
func (s *Store) Restore(state State) {
	fill := func(when When, tods []TimeOfDay) {
		s.recurring[when] = make(map[TimeOfDay]struct{}, len(tods))
		for _, tod := range tods {
			s.recurring[when][tod] = struct{}{}
		}
	}
	fill(WhenEveryday, state.Everyday)
	fill(WhenWeekdays, state.Weekdays)
	fill(WhenWeekends, state.Weekends)

	s.auto = make(map[autoKey]struct{}, len(state.Auto))
	for _, at := range state.Auto {
		s.auto[autoKeyFrom(at.Local())] = struct{}{}
	}
}
