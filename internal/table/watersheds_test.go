package table

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmapper/culvert-toolkit/internal/watershed"
)

func TestReadWatershedTable(t *testing.T) {
	params, err := ReadWatershedTable(strings.NewReader(
		"lat,lng,area_sqkm,avg_slope_pct,curve_number,max_flow_length_m,tc_hr,pond_adjustment\n" +
			"42.45,-76.49,2.0,5.0,75,2000,0.5,1.0\n" +
			"42.60,-76.60,0.8,3.2,68,1400,,\n"))
	require.NoError(t, err)
	require.Len(t, params, 2)

	a := params[watershed.Point{Lat: 42.45, Lng: -76.49}.Key()]
	assert.Equal(t, 2.0, a.AreaSqkm)
	assert.Equal(t, 75.0, a.CurveNumber)
	assert.Equal(t, 0.5, a.TcHr)
	assert.InDelta(t, 0.5, a.TimeOfConcentrationHr(), 1e-12)

	b := params[watershed.Point{Lat: 42.60, Lng: -76.60}.Key()]
	assert.Zero(t, b.TcHr)
	// Missing Tc falls back to the empirical relation at evaluation time.
	assert.Greater(t, b.TimeOfConcentrationHr(), 0.0)
}

func TestReadWatershedTableErrors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		_, err := ReadWatershedTable(strings.NewReader("lat,lng,area_sqkm\n"))
		assert.ErrorContains(t, err, "avg_slope_pct")
	})
	t.Run("missing value", func(t *testing.T) {
		_, err := ReadWatershedTable(strings.NewReader(
			"lat,lng,area_sqkm,avg_slope_pct,curve_number,max_flow_length_m\n" +
				"42.45,-76.49,2.0,,75,2000\n"))
		assert.ErrorContains(t, err, "line 2")
	})
	t.Run("bad value", func(t *testing.T) {
		_, err := ReadWatershedTable(strings.NewReader(
			"lat,lng,area_sqkm,avg_slope_pct,curve_number,max_flow_length_m\n" +
				"42.45,-76.49,big,5,75,2000\n"))
		assert.ErrorContains(t, err, "area_sqkm")
	})
}

func TestStaticResolverFromTable(t *testing.T) {
	params, err := ReadWatershedTable(strings.NewReader(
		"lat,lng,area_sqkm,avg_slope_pct,curve_number,max_flow_length_m\n" +
			"42.45,-76.49,2.0,5.0,75,2000\n"))
	require.NoError(t, err)

	resolver := watershed.NewStaticResolver(params)
	assert.Equal(t, 1, resolver.Len())

	got, err := resolver.ResolveWatershed(context.Background(), watershed.Point{Lat: 42.45, Lng: -76.49})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.AreaSqkm)

	_, err = resolver.ResolveWatershed(context.Background(), watershed.Point{Lat: 0, Lng: 0})
	var df *watershed.DelineationFailedError
	assert.ErrorAs(t, err, &df)
}
