package domain

import (
	"math/big"
	"time"
)

const (
	// InvalidDate is shown for deadlines that cannot be rendered as a calendar date.
	InvalidDate = "Invalid date"

	dateLayout    = "02/01/2006"
	secondsPerDay = 24 * 60 * 60

	// Unix seconds of 0001-01-01 and 9999-12-31T23:59:59 UTC, widened by a day
	// for zone offsets. The exact bound is checked on the zoned year.
	minDeadline = -62135596800 - secondsPerDay
	maxDeadline = 253402300799 + secondsPerDay
)

// renderDeadline formats a unix-seconds deadline in loc and counts the whole
// days left until it, never below zero. Timestamps outside years 1-9999 yield
// InvalidDate and zero days.
func renderDeadline(deadline *big.Int, now time.Time, loc *time.Location) Deadline {
	if deadline == nil || !deadline.IsInt64() {
		return Deadline{Formatted: InvalidDate}
	}
	sec := deadline.Int64()
	if sec < minDeadline || sec > maxDeadline {
		return Deadline{Formatted: InvalidDate}
	}

	t := time.Unix(sec, 0).In(loc)
	if y := t.Year(); y < 1 || y > 9999 {
		return Deadline{Formatted: InvalidDate}
	}

	return Deadline{
		Formatted: t.Format(dateLayout),
		DaysLeft:  daysLeft(sec, now),
	}
}

// daysLeft is floor((deadline - now) / 24h), floored at zero. It works on
// whole seconds so that far deadlines do not overflow time.Duration.
func daysLeft(deadline int64, now time.Time) int64 {
	diff := deadline - now.Unix()
	if now.Nanosecond() > 0 {
		// now is slightly past now.Unix(); the true difference lies in (diff-1, diff).
		diff--
	}
	if diff < 0 {
		return 0
	}
	return diff / secondsPerDay
}
