package core

import "time"

// MaxRangeDays bounds every aggregation window so per-day series stay finite.
const MaxRangeDays = 3660

// DateRange is an inclusive calendar window.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewDateRange validates start <= end and the window length.
func NewDateRange(start, end Date) (DateRange, error) {
	if start.IsZero() {
		return DateRange{}, invalid("start", "is required")
	}
	if end.IsZero() {
		return DateRange{}, invalid("end", "is required")
	}
	if end.Before(start.Time) {
		return DateRange{}, invalid("end", "must not be before start")
	}
	r := DateRange{Start: start, End: end}
	if r.Days() > MaxRangeDays {
		return DateRange{}, invalid("end", "range too long")
	}
	return r, nil
}

// ParseDateRange parses the start/end query values.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, invalid("start", "must be YYYY-MM-DD")
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, invalid("end", "must be YYYY-MM-DD")
	}
	return NewDateRange(s, e)
}

// LastNDays returns the n-day window ending on today, as the 7d/30d presets do.
func LastNDays(today time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	end := DateOf(today)
	return DateRange{Start: end.AddDays(-(n - 1)), End: end}
}

// Days is (end - start) in days plus one.
func (r DateRange) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

// Contains reports whether d falls within the inclusive bounds.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// EachDay calls fn for every day in the range in ascending order.
func (r DateRange) EachDay(fn func(Date)) {
	for d := r.Start; !d.After(r.End.Time); d = d.AddDays(1) {
		fn(d)
	}
}
