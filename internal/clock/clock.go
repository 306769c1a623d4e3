// Package clock provides the time source used for quota accounting.
//
// Every usage bucket, history timestamp, and "today" lookup in the service
// flows through a Clock pinned to one configured timezone. Production code
// uses Real(loc); tests use NewFake with deterministic time control.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current instant and the timezone in which calendar
// days are evaluated.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time
	// Location returns the timezone that defines day boundaries.
	Location() *time.Location
}

// Real returns a Clock backed by time.Now and pinned to loc.
// A nil loc is treated as UTC.
func Real(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return realClock{loc: loc}
}

type realClock struct{ loc *time.Location }

func (c realClock) Now() time.Time           { return time.Now() }
func (c realClock) Location() *time.Location { return c.loc }

// Today returns the bucket key for the current local calendar day: the
// local year/month/day expressed as midnight UTC. The value is identical
// for every instant within that local day regardless of the server zone.
func Today(c Clock) time.Time {
	return DayOf(c.Now(), c.Location())
}

// DayOf returns the bucket key of the local calendar day containing t.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TodayBounds returns the instants at which the current local day began and
// the next one begins. The span is not always 24h across DST changes.
func TodayBounds(c Clock) (start, end time.Time) {
	loc := c.Location()
	y, m, d := c.Now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(), time.Date(y, m, d+1, 0, 0, 0, 0, loc).UTC()
}

// IsWeekend reports whether the current local day is Saturday or Sunday.
func IsWeekend(c Clock) bool {
	switch c.Now().In(c.Location()).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// Fake is a deterministic Clock for tests. Time stands still until Set or
// Advance is called. Safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	loc     *time.Location
}

// NewFake returns a Fake clock at initial, evaluating days in loc.
func NewFake(initial time.Time, loc *time.Location) *Fake {
	if loc == nil {
		loc = time.UTC
	}
	return &Fake{current: initial, loc: loc}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Location returns the configured zone.
func (f *Fake) Location() *time.Location { return f.loc }

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	f.mu.Unlock()
}

// Set jumps the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
}
