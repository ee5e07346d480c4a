package seasons_test

import (
	"testing"
	"time"

	"github.com/Dosada05/forecast-league/seasons"
	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"before anchor", time.Date(2024, 12, 29, 23, 0, 0, 0, time.UTC), 0},
		{"anchor monday", seasons.FirstSeasonStart, 1},
		{"first sunday", time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC), 1},
		{"second monday", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), 2},
		{"ten weeks later", seasons.FirstSeasonStart.AddDate(0, 0, 70), 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, seasons.Number(tt.at))
		})
	}
}

func TestDates(t *testing.T) {
	start, end := seasons.Dates(1)
	assert.Equal(t, seasons.FirstSeasonStart, start)
	assert.Equal(t, time.Weekday(time.Monday), start.Weekday())
	assert.Equal(t, time.Weekday(time.Sunday), end.Weekday())
	assert.Equal(t, start.AddDate(0, 0, 6), end)

	start2, _ := seasons.Dates(2)
	assert.Equal(t, start.AddDate(0, 0, 7), start2)
}

func TestNumberDatesRoundTrip(t *testing.T) {
	for n := 1; n <= 52; n++ {
		start, end := seasons.Dates(n)
		assert.Equal(t, n, seasons.Number(start))
		assert.Equal(t, n, seasons.Number(end))
	}
}
