package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries() MonthlySeries {
	return MonthlySeries{
		{Month: Month{Year: 2024, Month: time.January}, Percent: Float64(80)},
		{Month: Month{Year: 2024, Month: time.February}, Percent: nil},
		{Month: Month{Year: 2024, Month: time.March}, Percent: Float64(0)},
	}
}

func TestMonthlySeriesPercent(t *testing.T) {
	s := testSeries()

	v, ok := s.Percent(Month{Year: 2024, Month: time.January})
	require.True(t, ok)
	assert.Equal(t, 80.0, v)

	// an undefined month is not the same as 0
	_, ok = s.Percent(Month{Year: 2024, Month: time.February})
	assert.False(t, ok)

	// a defined 0 is a real value
	v, ok = s.Percent(Month{Year: 2024, Month: time.March})
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = s.Percent(Month{Year: 2023, Month: time.December})
	assert.False(t, ok)
}

func TestMonthlySeriesSince(t *testing.T) {
	s := testSeries()

	assert.Len(t, s.Since(Month{Year: 2023, Month: time.June}), 3)
	assert.Len(t, s.Since(Month{Year: 2024, Month: time.February}), 2)
	assert.Empty(t, s.Since(Month{Year: 2024, Month: time.April}))
}

func TestMonthlySeriesDefinedCount(t *testing.T) {
	assert.Equal(t, 2, testSeries().DefinedCount())
	assert.Equal(t, 0, MonthlySeries{}.DefinedCount())
}

func TestFleetReportBattery(t *testing.T) {
	r := FleetReport{
		Batteries: []BatteryReport{
			{ID: "battery-01", Label: "battery_01"},
			{ID: "battery-02", Label: "battery_02"},
		},
	}

	b, ok := r.Battery("battery-02")
	require.True(t, ok)
	assert.Equal(t, "battery_02", b.Label)

	_, ok = r.Battery("battery-99")
	assert.False(t, ok)
}
