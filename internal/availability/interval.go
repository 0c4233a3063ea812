package availability

import (
	"time"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start,end) overlaps [b.Start,b.End).
// Half-open intervals: touching endpoints are not a conflict, so a booking
// may begin exactly when the previous one ends.
func Overlaps(start, end time.Time, b Interval) bool {
	return start.Before(b.End) && b.Start.Before(end)
}

func OverlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b) {
			return true
		}
	}
	return false
}

// FitsWindows reports whether [start,end) lies entirely inside one of the
// weekday working windows. A booking crossing midnight never fits.
func FitsWindows(start, end time.Time, windows []model.Schedule) bool {
	startMin := start.Hour()*60 + start.Minute()
	endMin := startMin + int(end.Sub(start).Minutes())
	for _, w := range windows {
		if w.StartMinute <= startMin && endMin <= w.EndMinute {
			return true
		}
	}
	return false
}

// WindowInterval anchors a schedule window onto a concrete day.
func WindowInterval(day time.Time, w model.Schedule) Interval {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return Interval{
		Start: midnight.Add(time.Duration(w.StartMinute) * time.Minute),
		End:   midnight.Add(time.Duration(w.EndMinute) * time.Minute),
	}
}

// CoversDate reports whether the inclusive date range [from,to] contains the
// calendar date of t. Time-of-day is ignored on all three arguments.
func CoversDate(from, to, t time.Time) bool {
	d := DateOf(t)
	return !d.Before(DateOf(from)) && !d.After(DateOf(to))
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
