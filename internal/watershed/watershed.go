// Package watershed defines the capability interface for the external
// geoprocessing backend and a run-scoped caching decorator around it.
//
// The engine never performs raster delineation itself. Flow direction,
// flow length, slope, and curve-number statistics come from whatever GIS
// toolchain sits behind the Resolver interface; this package only fixes
// the contract and makes repeat lookups for the same point cheap.
package watershed

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/civicmapper/culvert-toolkit/internal/hydro"
)

// Point is a culvert location in WGS84 decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// keyPrecision fixes the coordinate rounding used for cache identity.
// Six decimal places is roughly 0.1 m at these latitudes, well below
// survey GPS accuracy, so two reports of the same culvert collapse to
// one delineation.
const keyPrecision = 6

// Key returns the canonical cache identity for the point. Points whose
// coordinates agree to keyPrecision decimals share a key.
func (p Point) Key() string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(p.Lat, 'f', keyPrecision, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(p.Lng, 'f', keyPrecision, 64))
	return b.String()
}

// Parameters holds the per-point watershed statistics the calculators
// consume. Produced once per unique point per run.
type Parameters struct {
	// AreaSqkm is the delineated drainage area.
	AreaSqkm float64
	// AvgSlopePct is the watershed-average slope in percent.
	AvgSlopePct float64
	// CurveNumber is the area-weighted composite SCS curve number.
	CurveNumber float64
	// MaxFlowLengthM is the longest flow path to the point, meters.
	MaxFlowLengthM float64
	// Segments carries per-regime flow segment data when the backend
	// provides it. Empty segments fall back to the watershed-wide
	// empirical formula.
	Segments hydro.TcSegments
	// TcHr, when positive, is a time of concentration delivered by the
	// backend (or restored from run state) and takes precedence over
	// derivation from segments.
	TcHr float64
	// PondAdjustment is the TR-55 pond/swamp storage factor; zero means
	// none reported and is treated as 1.0 downstream.
	PondAdjustment float64
}

// TimeOfConcentrationHr computes Tc from the flow segments when any are
// present, otherwise from the Cornell empirical relation on flow length
// and average slope. A backend-supplied TcHr wins over both.
func (p Parameters) TimeOfConcentrationHr() float64 {
	if p.TcHr > 0 {
		return p.TcHr
	}
	if !p.Segments.Empty() {
		return hydro.TimeOfConcentration(p.Segments)
	}
	return hydro.TimeOfConcentrationEmpirical(p.MaxFlowLengthM, p.AvgSlopePct)
}

// Resolver is the geoprocessing backend capability. Implementations are
// expected to be safe for concurrent use.
type Resolver interface {
	ResolveWatershed(ctx context.Context, pt Point) (Parameters, error)
}

// DelineationFailedError reports that the backend could not delineate a
// watershed for a point: off the hydrologic network, outside raster
// coverage, or similar. It is point-level and non-fatal; the culverts at
// the point stay in the output as unevaluated.
type DelineationFailedError struct {
	Point  Point
	Reason string
}

func (e *DelineationFailedError) Error() string {
	return fmt.Sprintf("watershed delineation failed at %s: %s", e.Point.Key(), e.Reason)
}
