package alarm

import "time"

// NextOccurrence computes the next concrete instant at which an alarm with
// the given time of day and recurrence kind fires, along with the remaining
// duration until then. It is the single source of truth for both listing and
// the trigger decision.
//
// The occurrence stays on today's date for the whole of the due minute, so a
// due alarm reports a remaining duration in (-1m, 0] and sorts to the head of
// the list. Once the minute has fully elapsed the occurrence rolls forward to
// the next day satisfying the kind.
func NextOccurrence(tod TimeOfDay, when When, now time.Time) (time.Time, time.Duration) {
	nowMinute := now.Truncate(time.Minute)

	target := tod.On(now)
	if target.Before(nowMinute) {
		target = target.AddDate(0, 0, 1)
	}
	for !when.Matches(target.Weekday()) {
		target = target.AddDate(0, 0, 1)
	}

	return target, target.Sub(now)
}
