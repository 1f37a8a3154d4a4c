package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHouseTimesValidityWindow(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*3600)
	house := HouseTimes{Location: istanbul, CheckIn: 14 * time.Hour, CheckOut: 11 * time.Hour}

	from, to := house.ValidityWindow(Stay{CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 12)})

	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, istanbul), from)
	assert.Equal(t, time.Date(2026, 3, 12, 11, 0, 0, 0, istanbul), to)
	assert.Equal(t, time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC), to.UTC())
	assert.Equal(t, to, house.Departure(day(2026, 3, 12)))
}

func TestHouseTimesToday(t *testing.T) {
	house := HouseTimes{Location: time.FixedZone("UTC+3", 3*3600), CheckIn: 14 * time.Hour, CheckOut: 11 * time.Hour}
	// 22:30 UTC on the 9th is already the 10th at the hotel.
	now := time.Date(2026, 3, 9, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, day(2026, 3, 10), house.Today(now))
	assert.Equal(t, time.Date(2026, 3, 9, 21, 0, 0, 0, time.UTC), house.StartOfDay(now).UTC())
}

func TestDefaultHouseTimes(t *testing.T) {
	house := DefaultHouseTimes()
	from, to := house.ValidityWindow(Stay{CheckIn: day(2026, 3, 10), CheckOut: day(2026, 3, 11)})

	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 11, 11, 0, 0, 0, time.UTC), to)

	var zero HouseTimes
	assert.Equal(t, time.UTC, zero.Departure(day(2026, 3, 11)).Location())
}
