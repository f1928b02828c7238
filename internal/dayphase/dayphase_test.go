package dayphase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromHourBoundaries(t *testing.T) {
	t.Parallel()

	want := map[int]Phase{
		0: Night, 4: Night,
		5: Morning, 11: Morning,
		12: Day, 16: Day,
		17: Evening, 20: Evening,
		21: Night, 23: Night,
	}
	for hour, phase := range want {
		assert.Equal(t, phase, FromHour(hour), "hour %d", hour)
	}
}

func TestFromHourCoversEveryHour(t *testing.T) {
	t.Parallel()

	counts := map[Phase]int{}
	for hour := 0; hour < 24; hour++ {
		counts[FromHour(hour)]++
	}
	assert.Equal(t, 7, counts[Morning])
	assert.Equal(t, 5, counts[Day])
	assert.Equal(t, 4, counts[Evening])
	assert.Equal(t, 8, counts[Night])
}

func TestAtUsesLocalHour(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("test", 3*3600)
	assert.Equal(t, Evening, At(time.Date(2026, 3, 1, 18, 30, 0, 0, loc)))
}

func TestParseDefaultsToDay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Morning, Parse("Morning"))
	assert.Equal(t, Evening, Parse("evening"))
	assert.Equal(t, Night, Parse(" night "))
	assert.Equal(t, Day, Parse("day"))
	assert.Equal(t, Day, Parse(""))
	assert.Equal(t, Day, Parse("brunch"))
}
