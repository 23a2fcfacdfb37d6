package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAgeOn(t *testing.T) {
	birth := day("1990-06-15")
	assert.Equal(t, 33, AgeOn(birth, day("2024-06-14")))
	assert.Equal(t, 34, AgeOn(birth, day("2024-06-15")))
	assert.Equal(t, 0, AgeOn(day("2030-01-01"), day("2024-01-01")))
}

func TestDayDeltas(t *testing.T) {
	assert.Equal(t, 4, DaysSince(day("2024-01-01"), day("2024-01-05")))
	assert.Equal(t, -3, DaysUntil(day("2024-01-02"), day("2024-01-05")))
	assert.Equal(t, 29, DaysBetween(day("2024-02-01"), day("2024-03-01")))

	// Times within the day are ignored.
	late := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	early := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(late, early))
}

func TestBands(t *testing.T) {
	assert.Equal(t, RecencyRecent, RecencyBand(29))
	assert.Equal(t, RecencyModerate, RecencyBand(30))
	assert.Equal(t, RecencyModerate, RecencyBand(89))
	assert.Equal(t, RecencyLongAgo, RecencyBand(90))

	assert.Equal(t, ExpiryExpired, ExpiryBand(-1))
	assert.Equal(t, ExpiryCritical, ExpiryBand(0))
	assert.Equal(t, ExpiryWarning, ExpiryBand(30))
	assert.Equal(t, ExpiryOK, ExpiryBand(90))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, tod.Hour())
	assert.Equal(t, 30, tod.Minute())
	assert.Equal(t, "08:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)

	at := tod.On(day("2024-01-05"), time.UTC)
	assert.Equal(t, time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC), at)

	var decoded TimeOfDay
	require.NoError(t, decoded.UnmarshalText([]byte("20:00")))
	assert.Equal(t, MustTimeOfDay(20, 0), decoded)
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Hour), c.Advance(time.Hour))
	assert.True(t, SameDay(start, c.Now()))
}
