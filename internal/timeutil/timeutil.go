// Package timeutil holds the calendar arithmetic shared by the reminder
// scheduler, the conversation manager and the dashboards.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// Clock is the injectable "now" source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a settable instant. Safe for concurrent use.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date truncates t to midnight in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween counts whole calendar days from a to b. Negative when b is
// before a. Computed on the y/m/d fields so DST shifts do not matter.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// DaysSince is the number of days elapsed from past to today.
func DaysSince(past, today time.Time) int {
	return DaysBetween(past, today)
}

// DaysUntil is the number of days from today to future. Negative once
// future has passed.
func DaysUntil(future, today time.Time) int {
	return DaysBetween(today, future)
}

// AgeOn returns the age in completed years of someone born on birth, as of
// today. Zero when birth is after today.
func AgeOn(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Recency buckets how long ago something happened (illness history).
type Recency string

const (
	RecencyRecent   Recency = "Recent"
	RecencyModerate Recency = "Moderate"
	RecencyLongAgo  Recency = "Long ago"
)

func RecencyBand(daysSince int) Recency {
	switch {
	case daysSince < 30:
		return RecencyRecent
	case daysSince < 90:
		return RecencyModerate
	default:
		return RecencyLongAgo
	}
}

// Expiry buckets a stock item's remaining shelf life.
type Expiry string

const (
	ExpiryExpired  Expiry = "EXPIRED"
	ExpiryCritical Expiry = "EXPIRES_WITHIN_30_DAYS"
	ExpiryWarning  Expiry = "EXPIRES_WITHIN_90_DAYS"
	ExpiryOK       Expiry = "OK"
)

func ExpiryBand(daysUntil int) Expiry {
	switch {
	case daysUntil < 0:
		return ExpiryExpired
	case daysUntil < 30:
		return ExpiryCritical
	case daysUntil < 90:
		return ExpiryWarning
	default:
		return ExpiryOK
	}
}

// TimeOfDay is a wall-clock time without a date, in minutes after midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay panics on out-of-range input. For constants only.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay accepts "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places t on the calendar day of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
