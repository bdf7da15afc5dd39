package domain

import "time"

// Schedule is the catalog's view of when an event runs. Showtimes are
// normalized to UTC when decoded.
type Schedule struct {
	EventID   string
	Title     string
	Showtimes []time.Time
}

// HasShowtime reports whether t matches a scheduled showtime once both sides
// are truncated to whole seconds. Duplicate entries for the same instant count
// as one showtime.
func (s Schedule) HasShowtime(t time.Time) bool {
	want := t.Truncate(time.Second)
	for _, st := range s.Showtimes {
		if st.Truncate(time.Second).Equal(want) {
			return true
		}
	}
	return false
}
