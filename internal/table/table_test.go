package table

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmapper/culvert-toolkit/internal/hydro"
	"github.com/civicmapper/culvert-toolkit/internal/naacc"
	"github.com/civicmapper/culvert-toolkit/internal/watershed"
)

const sampleCSV = `Survey_Id,Naacc_Culvert_Id,GIS_Latitude,GIS_Longitude,Crossing_Type,Inlet_Structure_Type
100,1, 42.45 ,-76.49,Culvert,Round Culvert
100,2,42.45,-76.49,Culvert,Round Culvert
200,1,42.50,-76.50,Bridge,Box Culvert
`

func TestReadCulverts(t *testing.T) {
	in, err := ReadCulverts(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Survey_Id", "Naacc_Culvert_Id", "GIS_Latitude", "GIS_Longitude",
		"Crossing_Type", "Inlet_Structure_Type",
	}, in.Header)
	require.Len(t, in.Records, 3)

	first := in.Records[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "100", first.Get(naacc.FieldSurveyID))
	assert.Equal(t, "42.45", first.Get(naacc.FieldLatitude), "values are trimmed")
	assert.Equal(t, 4, in.Records[2].Line)
}

func TestReadCulvertsErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := ReadCulverts(strings.NewReader(""))
		assert.ErrorContains(t, err, "empty table")
	})

	t.Run("ragged row", func(t *testing.T) {
		_, err := ReadCulverts(strings.NewReader("a,b,c\n1,2\n"))
		assert.ErrorContains(t, err, "line 2")
	})
}

func TestReadGeometryReference(t *testing.T) {
	ref, err := ReadGeometryReference(strings.NewReader(
		"crossing_id,lat,lng\n100,42.4510,-76.4920\n200,42.5000,-76.5000\n"))
	require.NoError(t, err)

	require.Len(t, ref, 2)
	assert.Equal(t, watershed.Point{Lat: 42.4510, Lng: -76.4920}, ref[100])
}

func TestReadGeometryReferenceErrors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		_, err := ReadGeometryReference(strings.NewReader("crossing_id,lat\n1,42\n"))
		assert.ErrorContains(t, err, "lng")
	})
	t.Run("bad crossing id", func(t *testing.T) {
		_, err := ReadGeometryReference(strings.NewReader("crossing_id,lat,lng\nten,42,-76\n"))
		assert.ErrorContains(t, err, "crossing id")
	})
}

func TestApplyGeometryCorrection(t *testing.T) {
	culverts := []naacc.NormalizedCulvert{
		{CrossingID: 100, CulvertID: 1, Lat: 42.45, Lng: -76.49},
		{CrossingID: 100, CulvertID: 2, Lat: 42.45, Lng: -76.49},
		{CrossingID: 300, CulvertID: 1, Lat: 42.60, Lng: -76.60},
	}
	ref := GeometryReference{
		100: {Lat: 42.4510, Lng: -76.4920},
		300: {Lat: 42.60, Lng: -76.60}, // identical, no move
	}

	out, moved := ApplyGeometryCorrection(culverts, ref)

	// Both culverts at crossing 100 move together.
	assert.Equal(t, 42.4510, out[0].Lat)
	assert.Equal(t, 42.4510, out[1].Lat)
	assert.True(t, moved[naacc.Key{CrossingID: 100, CulvertID: 1}])
	assert.True(t, moved[naacc.Key{CrossingID: 100, CulvertID: 2}])

	assert.False(t, moved[naacc.Key{CrossingID: 300, CulvertID: 1}])

	// Inputs untouched.
	assert.Equal(t, 42.45, culverts[0].Lat)
}

func TestWriteResults(t *testing.T) {
	in, err := ReadCulverts(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	culverts := naacc.NormalizeAll(in.Records)

	capacity := 5.0
	crossing := 9.5
	maxRP := 25
	rows := []ResultRow{
		{
			Culvert:          culverts[0],
			CulvertCapacity:  &capacity,
			CrossingCapacity: &crossing,
			Evaluation:       &hydro.Exceedance{MaxReturnPeriod: &maxRP},
		},
		{
			Culvert:    culverts[1],
			Evaluation: &hydro.Exceedance{FailsAtMinimum: true},
			Reasons:    []string{"capacity radicand negative"},
		},
		{
			Culvert: culverts[2],
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, in.Header, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t,
		"Survey_Id,Naacc_Culvert_Id,GIS_Latitude,GIS_Longitude,Crossing_Type,Inlet_Structure_Type,"+
			"include,validation_errors,culvert_capacity,crossing_capacity,max_return_period,moved",
		lines[0])

	assert.Contains(t, lines[1], "5.000")
	assert.Contains(t, lines[1], "9.500")
	assert.Contains(t, lines[1], ",25,")

	assert.Contains(t, lines[2], MaxReturnPeriodFailsAtMinimum)
	assert.Contains(t, lines[2], "capacity radicand negative")

	// The bridge record failed validation and was never evaluated.
	assert.Contains(t, lines[3], "false")
	assert.Contains(t, lines[3], MaxReturnPeriodUnevaluated)
}

func TestWriteResultsMovedCoordinates(t *testing.T) {
	in, err := ReadCulverts(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	culverts := naacc.NormalizeAll(in.Records)

	corrected, moved := ApplyGeometryCorrection(culverts, GeometryReference{
		100: {Lat: 42.4510, Lng: -76.4920},
	})

	rows := []ResultRow{{
		Culvert: corrected[0],
		Moved:   moved[corrected[0].RecordKey()],
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, in.Header, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines[1], "42.451")
	assert.Contains(t, lines[1], ",true")
}
