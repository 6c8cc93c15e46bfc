package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmapper/culvert-toolkit/internal/hydro"
	"github.com/civicmapper/culvert-toolkit/internal/naacc"
	"github.com/civicmapper/culvert-toolkit/internal/observability"
	"github.com/civicmapper/culvert-toolkit/internal/runstate"
	"github.com/civicmapper/culvert-toolkit/internal/table"
	"github.com/civicmapper/culvert-toolkit/internal/watershed"
)

// Test watershed: 2 km², CN 75, Tc 0.5 hr. With the test precipitation
// series this yields peak flows of roughly 5.82, 15.52, 21.84, and 35.79
// m³/s for the 2, 10, 25, and 100 year storms.
var testParams = watershed.Parameters{
	AreaSqkm:    2.0,
	CurveNumber: 75,
	TcHr:        0.5,
}

// fakeBackend resolves every point to testParams except those whose
// latitude appears in failLats.
type fakeBackend struct {
	calls    atomic.Int64
	failLats map[float64]bool
}

func (b *fakeBackend) ResolveWatershed(_ context.Context, pt watershed.Point) (watershed.Parameters, error) {
	b.calls.Add(1)
	if b.failLats[pt.Lat] {
		return watershed.Parameters{}, &watershed.DelineationFailedError{Point: pt, Reason: "point off hydrologic network"}
	}
	return testParams, nil
}

const inputHeader = "Survey_Id,Naacc_Culvert_Id,GIS_Latitude,GIS_Longitude,Crossing_Type,Road," +
	"Inlet_Structure_Type,Inlet_Type,Material,Inlet_Width,Inlet_Height,Road_Fill_Height," +
	"Crossing_Structure_Length,Slope_Percent"

func culvertRow(crossing, culvert int, lat float64, widthFt float64, material string) string {
	return fmt.Sprintf("%d,%d,%.4f,-76.4900,Culvert,Test Rd,Round Culvert,Headwall and Wingwalls,%s,%g,%g,4.0,30.0,1.5",
		crossing, culvert, lat, material, widthFt, widthFt)
}

// testInput builds three crossings:
//   - 100: two valid culverts (3 ft and 5 ft round concrete) at lat 42.45
//   - 200: one valid culvert at lat 41.00, where delineation fails
//   - 300: one valid culvert and one with an unknown material at lat 42.60
func testInput(t *testing.T) *table.Input {
	t.Helper()
	rows := []string{
		inputHeader,
		culvertRow(100, 1, 42.45, 3.0, "Concrete"),
		culvertRow(100, 2, 42.45, 5.0, "Concrete"),
		culvertRow(200, 1, 41.00, 3.0, "Concrete"),
		culvertRow(300, 1, 42.60, 3.0, "Concrete"),
		culvertRow(300, 2, 42.60, 3.0, "Adamantium"),
	}
	in, err := table.ReadCulverts(strings.NewReader(strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	return in
}

func testSeries(t *testing.T) hydro.PrecipitationSeries {
	t.Helper()
	series, err := hydro.NewPrecipitationSeries(map[int]float64{2: 6.1, 10: 9.4, 25: 11.2, 100: 14.8})
	require.NoError(t, err)
	return series
}

type testRun struct {
	engine  *Engine
	backend *fakeBackend
	snap    runstate.ConfigSnapshot
	input   *table.Input
}

func newTestRun(t *testing.T, dir string) *testRun {
	t.Helper()
	backend := &fakeBackend{failLats: map[float64]bool{41.00: true}}
	snap := runstate.ConfigSnapshot{
		InputPath:  "culverts.csv",
		OutputPath: filepath.Join(dir, "results.csv"),
		StatePath:  filepath.Join(dir, "state.json"),
		Workers:    4,
	}
	eng := New(Options{
		Resolver: backend,
		Series:   testSeries(t),
		Store:    runstate.NewStore(snap.StatePath),
		Logger:   observability.NewDiscardLogger(),
		Metrics:  observability.NewMetricsForTesting(),
		Workers:  snap.Workers,
	})
	return &testRun{engine: eng, backend: backend, snap: snap, input: testInput(t)}
}

// readOutput parses the result CSV into maps keyed by column name.
func readOutput(t *testing.T, path string) []map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	header := rows[0]
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(header))
		for i, col := range header {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	return out
}

func TestRunEndToEnd(t *testing.T) {
	run := newTestRun(t, t.TempDir())

	err := run.engine.Run(context.Background(), run.input, nil, run.snap, false)
	require.NoError(t, err)

	rows := readOutput(t, run.snap.OutputPath)
	require.Len(t, rows, 5)

	t.Run("crossing capacities aggregate included culverts", func(t *testing.T) {
		// 3 ft round concrete: 2.576 m³/s; 5 ft: 7.544 m³/s.
		assert.Equal(t, "2.576", rows[0]["culvert_capacity"])
		assert.Equal(t, "7.544", rows[1]["culvert_capacity"])
		assert.Equal(t, "10.121", rows[0]["crossing_capacity"])
		assert.Equal(t, "10.121", rows[1]["crossing_capacity"])
	})

	t.Run("max return period is the last storm passed", func(t *testing.T) {
		// Capacity 10.121 passes the 2-year flow (5.82) and fails the
		// 10-year (15.52).
		assert.Equal(t, "2", rows[0]["max_return_period"])
		assert.Equal(t, "2", rows[1]["max_return_period"])
	})

	t.Run("delineation failure leaves culvert unevaluated with reason", func(t *testing.T) {
		assert.Equal(t, "true", rows[2]["include"])
		assert.Equal(t, "2.576", rows[2]["culvert_capacity"], "capacity is a static property")
		assert.Equal(t, table.MaxReturnPeriodUnevaluated, rows[2]["max_return_period"])
		assert.Contains(t, rows[2]["validation_errors"], "delineation failed")
	})

	t.Run("excluded culvert does not contribute to crossing capacity", func(t *testing.T) {
		assert.Equal(t, "2.576", rows[3]["crossing_capacity"])
		assert.Equal(t, "false", rows[4]["include"])
		assert.Empty(t, rows[4]["culvert_capacity"])
		assert.Equal(t, "2.576", rows[4]["crossing_capacity"], "flagged record still shows its crossing")
		assert.Contains(t, rows[4]["validation_errors"], "unknown_material")
	})

	t.Run("undersized crossing fails at minimum return period", func(t *testing.T) {
		// 2.576 m³/s cannot pass even the 2-year flow of 5.82.
		assert.Equal(t, table.MaxReturnPeriodFailsAtMinimum, rows[3]["max_return_period"])
	})

	t.Run("state reaches the terminal stage", func(t *testing.T) {
		state, err := runstate.NewStore(run.snap.StatePath).Load()
		require.NoError(t, err)
		assert.Equal(t, runstate.StageSaved, state.Stage)
		assert.Len(t, state.Records, 5)
		assert.Len(t, state.Watersheds, 2, "two distinct points delineated")

		reason, parked := state.IsParked(naacc.Key{CrossingID: 200, CulvertID: 1})
		require.True(t, parked)
		assert.Contains(t, reason, "delineation failed")
	})

	t.Run("shared point delineates once", func(t *testing.T) {
		// Three distinct points, two culverts sharing one of them.
		assert.Equal(t, int64(3), run.backend.calls.Load())
	})
}

func TestRunIsDeterministic(t *testing.T) {
	first := newTestRun(t, t.TempDir())
	require.NoError(t, first.engine.Run(context.Background(), first.input, nil, first.snap, false))

	second := newTestRun(t, t.TempDir())
	require.NoError(t, second.engine.Run(context.Background(), second.input, nil, second.snap, false))

	a, err := os.ReadFile(first.snap.OutputPath)
	require.NoError(t, err)
	b, err := os.ReadFile(second.snap.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunResumeSkipsDelineation(t *testing.T) {
	dir := t.TempDir()
	run := newTestRun(t, dir)
	require.NoError(t, run.engine.Run(context.Background(), run.input, nil, run.snap, false))
	require.Equal(t, int64(3), run.backend.calls.Load())

	resumed := newTestRun(t, dir)
	require.NoError(t, resumed.engine.Run(context.Background(), resumed.input, nil, resumed.snap, true))

	// Successful points come from the state snapshot; only the failed
	// point goes back to the backend.
	assert.Equal(t, int64(1), resumed.backend.calls.Load())

	a, err := os.ReadFile(run.snap.OutputPath)
	require.NoError(t, err)
	b, err := os.ReadFile(resumed.snap.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "resumed run reproduces the output")
}

func TestRunResumeRejectsChangedConfig(t *testing.T) {
	dir := t.TempDir()
	run := newTestRun(t, dir)
	require.NoError(t, run.engine.Run(context.Background(), run.input, nil, run.snap, false))

	changed := newTestRun(t, dir)
	changed.snap.Workers = 16
	err := changed.engine.Run(context.Background(), changed.input, nil, changed.snap, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different configuration")
}

func TestRunGeometryCorrection(t *testing.T) {
	run := newTestRun(t, t.TempDir())

	geometry := table.GeometryReference{
		100: {Lat: 42.4600, Lng: -76.4800},
	}
	require.NoError(t, run.engine.Run(context.Background(), run.input, geometry, run.snap, false))

	rows := readOutput(t, run.snap.OutputPath)
	assert.Equal(t, "true", rows[0]["moved"])
	assert.Equal(t, "42.46", rows[0]["GIS_Latitude"])
	assert.Equal(t, "false", rows[2]["moved"])
}

func TestRunCancellation(t *testing.T) {
	run := newTestRun(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run.engine.Run(ctx, run.input, nil, run.snap, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(run.snap.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "no output on a cancelled run")
}

func TestCheckReadiness(t *testing.T) {
	run := newTestRun(t, t.TempDir())
	require.Error(t, run.engine.CheckReadiness(context.Background()))

	require.NoError(t, run.engine.Run(context.Background(), run.input, nil, run.snap, false))
	assert.NoError(t, run.engine.CheckReadiness(context.Background()))
}
