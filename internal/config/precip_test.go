package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrecip(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "precip.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPrecipitation(t *testing.T) {
	path := writePrecip(t, `{
  "units": "cm",
  "area_of_interest": "Tompkins County, NY",
  "depths": {"2": 6.1, "10": 9.4, "25": 11.2, "100": 14.8}
}`)

	series, err := LoadPrecipitation(path, 1.0)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 10, 25, 100}, series.ReturnPeriods())
	depth, ok := series.Depth(10)
	require.True(t, ok)
	assert.InDelta(t, 9.4, depth, 1e-9)
}

func TestLoadPrecipitationUnitConversion(t *testing.T) {
	t.Run("thousandths of inch", func(t *testing.T) {
		path := writePrecip(t, `{"units": "in/1000", "depths": {"2": 1000}}`)
		series, err := LoadPrecipitation(path, 1.0)
		require.NoError(t, err)

		depth, _ := series.Depth(2)
		assert.InDelta(t, 2.54, depth, 1e-9)
	})

	t.Run("inches", func(t *testing.T) {
		path := writePrecip(t, `{"units": "in", "depths": {"2": 2.0}}`)
		series, err := LoadPrecipitation(path, 1.0)
		require.NoError(t, err)

		depth, _ := series.Depth(2)
		assert.InDelta(t, 5.08, depth, 1e-9)
	})

	t.Run("rainfall adjustment", func(t *testing.T) {
		path := writePrecip(t, `{"units": "cm", "depths": {"2": 10.0}}`)
		series, err := LoadPrecipitation(path, 1.2)
		require.NoError(t, err)

		depth, _ := series.Depth(2)
		assert.InDelta(t, 12.0, depth, 1e-9)
	})
}

func TestLoadPrecipitationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"unknown units", `{"units": "furlongs", "depths": {"2": 1}}`},
		{"no depths", `{"units": "cm", "depths": {}}`},
		{"bad return period", `{"units": "cm", "depths": {"two": 1}}`},
		{"decreasing depths", `{"units": "cm", "depths": {"2": 9.0, "10": 5.0}}`},
		{"negative depth", `{"units": "cm", "depths": {"2": -1}}`},
		{"unknown top-level key", `{"units": "cm", "depths": {"2": 1}, "extra": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPrecipitation(writePrecip(t, tt.body), 1.0)
			require.Error(t, err)

			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

// noaaSample mimics a NOAA Atlas 14 precipitation frequency estimates
// export: 13 metadata lines, then the estimates matrix with one row per
// duration. Depths are inches.
const noaaSample = `Point precipitation frequency estimates (inches)
NOAA Atlas 14 Volume 10 Version 3
Data type: Precipitation depth
Time series type: Partial duration
Project area: Northeastern States
Location name: Ithaca
Station name: -
Latitude: 42.4440 degrees
Longitude: -76.5019 degrees
Elevation: 335 meters
line 11
line 12
line 13
by duration for ARI (years):,1,2,5,10,25,50,100,200,500
5-min:,0.30,0.36,0.44,0.51,0.60,0.68,0.76,0.84,0.95
60-min:,0.83,1.00,1.25,1.46,1.74,1.97,2.21,2.45,2.78
24-hr:,2.31,2.74,3.43,4.04,4.96,5.76,6.65,7.65,9.16
48-hr:,2.70,3.18,3.94,4.60,5.59,6.44,7.37,8.41,9.96
`

func TestParseNOAAPrecipCSV(t *testing.T) {
	depths, err := ParseNOAAPrecipCSV(strings.NewReader(noaaSample), 1.0)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 5, 10, 25, 50, 100, 200, 500}, ReturnPeriodsAscending(depths))
	// 24-hr row, inches to cm, rounded to 2 decimals.
	assert.InDelta(t, 5.87, depths[1], 1e-9)   // 2.31 * 2.54
	assert.InDelta(t, 10.26, depths[10], 1e-9) // 4.04 * 2.54
	assert.InDelta(t, 23.27, depths[500], 1e-9)
}

func TestParseNOAAPrecipCSVAdjustment(t *testing.T) {
	depths, err := ParseNOAAPrecipCSV(strings.NewReader(noaaSample), 2.0)
	require.NoError(t, err)
	assert.InDelta(t, 11.73, depths[1], 1e-9) // 2.31 * 2.54 * 2, rounded
}

func TestParseNOAAPrecipCSVErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := ParseNOAAPrecipCSV(strings.NewReader(""), 1.0)
		assert.Error(t, err)
	})

	t.Run("missing 24-hr row", func(t *testing.T) {
		trimmed := strings.ReplaceAll(noaaSample, "24-hr:", "12-hr:")
		_, err := ParseNOAAPrecipCSV(strings.NewReader(trimmed), 1.0)
		assert.ErrorContains(t, err, "24-hr")
	})
}

func TestPrecipitationFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "precip.json")
	depths := map[int]float64{2: 6.96, 10: 10.26, 100: 16.89}

	require.NoError(t, WritePrecipitationFile(path, "Ithaca", depths))

	series, err := LoadPrecipitation(path, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 10, 100}, series.ReturnPeriods())

	depth, _ := series.Depth(100)
	assert.InDelta(t, 16.89, depth, 1e-9)
}
