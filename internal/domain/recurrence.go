package domain

import "time"

// Frequency is the repeat unit of a recurrence rule.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Valid returns true if the frequency is a known value.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// RecurrenceRule describes how a task repeats. The rule is consumed when a
// recurring task is completed: the next due date is computed and a fresh todo
// task is created for it.
// Fields are ordered to minimize memory padding.
type RecurrenceRule struct {
	Until      *time.Time `json:"until,omitempty"` // No occurrences due after this date
	Frequency  Frequency  `json:"frequency"`
	Interval   int        `json:"interval"`             // Every N units; 0 is treated as 1
	DayOfWeek  *int       `json:"dayOfWeek,omitempty"`  // 0=Sunday .. 6=Saturday (weekly only)
	DayOfMonth *int       `json:"dayOfMonth,omitempty"` // 1..31, clamped to month length (monthly only)
}

// NextAfter computes the next due date strictly after from.
// Returns false if the rule has expired (next occurrence past Until).
func (r *RecurrenceRule) NextAfter(from time.Time) (time.Time, bool) {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch r.Frequency {
	case FreqDaily:
		next = from.AddDate(0, 0, interval)
	case FreqWeekly:
		next = from.AddDate(0, 0, 7*interval)
		if r.DayOfWeek != nil {
			next = rollToWeekday(next, time.Weekday(*r.DayOfWeek))
		}
	case FreqMonthly:
		next = addMonthsClamped(from, interval, r.DayOfMonth)
	case FreqYearly:
		next = from.AddDate(interval, 0, 0)
	default:
		return time.Time{}, false
	}

	if r.Until != nil && next.After(*r.Until) {
		return time.Time{}, false
	}
	return next, true
}

// rollToWeekday moves t backward to the given weekday within the same week,
// or forward if the weekday has not yet occurred.
func rollToWeekday(t time.Time, wd time.Weekday) time.Time {
	diff := int(wd) - int(t.Weekday())
	return t.AddDate(0, 0, diff)
}

// addMonthsClamped advances t by whole months, clamping the day to the
// target month's length. AddDate alone would normalize the overflow instead:
// Jan 31 + 1 month must be Feb 28, not Mar 3. A pinned day replaces the
// source day before clamping.
func addMonthsClamped(t time.Time, months int, pinnedDay *int) time.Time {
	day := t.Day()
	if pinnedDay != nil {
		day = *pinnedDay
	}
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return setDayOfMonth(first.AddDate(0, months, 0), day)
}

// setDayOfMonth pins t to the given day, clamped to the month length.
func setDayOfMonth(t time.Time, day int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
