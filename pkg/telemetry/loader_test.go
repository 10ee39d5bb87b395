package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01T00:00:00Z in epoch milliseconds, plus hourly steps.
const (
	t0 = 1704067200000
	t1 = 1704070800000
	t2 = 1704074400000
)

func TestLoad(t *testing.T) {
	csvData := `timestamp,signal_name,signal_value
1704067200000,AvailableChargePower,3300
1704067200000,EnergyRemaining,5000
1704070800000,AvailableChargePower,3100
1704074400000,EnergyRemaining,4500
1704074400000,AvailableChargePower,2900
`
	f, err := Load(strings.NewReader(csvData))
	require.NoError(t, err)

	require.Equal(t, 3, f.Len())
	assert.Equal(t, time.UnixMilli(t0).UTC(), f.Time(0))
	assert.Equal(t, time.UnixMilli(t1).UTC(), f.Time(1))
	assert.Equal(t, time.UnixMilli(t2).UTC(), f.Time(2))

	power, ok := f.Column(SignalAvailableChargePower)
	require.True(t, ok)
	assert.Equal(t, []float64{3300, 3100, 2900}, power)

	// EnergyRemaining had a gap at t1; forward fill closes it
	er, ok := f.Column(SignalEnergyRemaining)
	require.True(t, ok)
	assert.Equal(t, []float64{5000, 5000, 4500}, er)
}

func TestLoadBackwardFillsLeadingGap(t *testing.T) {
	csvData := `timestamp,signal_name,signal_value
1704067200000,AvailableChargePower,3300
1704070800000,EnergyRemaining,5000
1704070800000,AvailableChargePower,3200
`
	f, err := Load(strings.NewReader(csvData))
	require.NoError(t, err)

	// EnergyRemaining only appears at t1; the t0 cell is backfilled
	er, _ := f.Column(SignalEnergyRemaining)
	assert.Equal(t, []float64{5000, 5000}, er)
}

func TestLoadUnsortedAndDuplicateRows(t *testing.T) {
	csvData := `timestamp,signal_name,signal_value
1704074400000,AvailableChargePower,2900
1704067200000,AvailableChargePower,3300
1704067200000,AvailableChargePower,3350
`
	f, err := Load(strings.NewReader(csvData))
	require.NoError(t, err)

	require.Equal(t, 2, f.Len())
	assert.True(t, f.Time(0).Before(f.Time(1)), "rows must come out sorted")

	// the duplicate t0 sample resolves to the last occurrence
	power, _ := f.Column(SignalAvailableChargePower)
	assert.Equal(t, []float64{3350, 2900}, power)
}

func TestLoadHeaderVariants(t *testing.T) {
	t.Run("reordered columns with extras", func(t *testing.T) {
		csvData := `signal_value,extra,timestamp,signal_name
3300,x,1704067200000,AvailableChargePower
`
		f, err := Load(strings.NewReader(csvData))
		require.NoError(t, err)
		power, ok := f.Column(SignalAvailableChargePower)
		require.True(t, ok)
		assert.Equal(t, []float64{3300}, power)
	})

	t.Run("byte order mark", func(t *testing.T) {
		csvData := "\uFEFFtimestamp,signal_name,signal_value\n1704067200000,AvailableChargePower,3300\n"
		f, err := Load(strings.NewReader(csvData))
		require.NoError(t, err)
		assert.Equal(t, 1, f.Len())
	})

	t.Run("header only", func(t *testing.T) {
		f, err := Load(strings.NewReader("timestamp,signal_name,signal_value\n"))
		require.NoError(t, err)
		assert.Equal(t, 0, f.Len())
		assert.Empty(t, f.Signals())
	})
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		csvData string
		column  string
		line    int
	}{
		{
			name:    "missing timestamp column",
			csvData: "time,signal_name,signal_value\n1,a,2\n",
			column:  "timestamp",
		},
		{
			name:    "missing signal_name column",
			csvData: "timestamp,name,signal_value\n1,a,2\n",
			column:  "signal_name",
		},
		{
			name:    "missing signal_value column",
			csvData: "timestamp,signal_name,value\n1,a,2\n",
			column:  "signal_value",
		},
		{
			name:    "unparseable timestamp",
			csvData: "timestamp,signal_name,signal_value\nnot-a-ts,AvailableChargePower,3300\n",
			column:  "timestamp",
			line:    2,
		},
		{
			name:    "fractional timestamp",
			csvData: "timestamp,signal_name,signal_value\n1704067200.5,AvailableChargePower,3300\n",
			column:  "timestamp",
			line:    2,
		},
		{
			name:    "unparseable value",
			csvData: "timestamp,signal_name,signal_value\n1704067200000,AvailableChargePower,broken\n",
			column:  "signal_value",
			line:    2,
		},
		{
			name:    "ragged row",
			csvData: "timestamp,signal_name,signal_value\n1704067200000,AvailableChargePower\n",
			line:    2,
		},
		{
			name:    "empty file",
			csvData: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.csvData))
			require.Error(t, err)
			var malformed *MalformedInputError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.column, malformed.Column)
			assert.Equal(t, tt.line, malformed.Line)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "battery_01.csv")
	csvData := "timestamp,signal_name,signal_value\n1704067200000,AvailableChargePower,3300\n"
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("error names the file", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.csv")
		require.NoError(t, os.WriteFile(bad, []byte("nope\n1,2\n"), 0o644))
		_, err := LoadFile(bad)
		require.Error(t, err)
		var malformed *MalformedInputError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "bad.csv", malformed.File)
	})
}
