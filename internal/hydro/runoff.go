package hydro

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// TR-55 Type II exhibit 4-II coefficients for unit peak discharge,
// tabulated against the Ia/P ratio. The exhibit's stated validity limits
// clamp Ia/P to [0.1, 0.5].
var (
	iaOverPKnots = []float64{0.10, 0.30, 0.35, 0.40, 0.45, 0.50}
	c0Knots      = []float64{2.55323, 2.46532, 2.41896, 2.36409, 2.29238, 2.20282}
	c1Knots      = []float64{-0.61512, -0.62257, -0.61594, -0.59857, -0.57005, -0.51599}
	c2Knots      = []float64{-0.16403, -0.11657, -0.08820, -0.05621, -0.02281, -0.01259}

	c0Curve, c1Curve, c2Curve interp.PiecewiseLinear
)

func init() {
	mustFit(&c0Curve, iaOverPKnots, c0Knots)
	mustFit(&c1Curve, iaOverPKnots, c1Knots)
	mustFit(&c2Curve, iaOverPKnots, c2Knots)
}

func mustFit(pl *interp.PiecewiseLinear, xs, ys []float64) {
	if err := pl.Fit(xs, ys); err != nil {
		panic(fmt.Sprintf("fit unit-peak-discharge curve: %v", err))
	}
}

// csmInToSI converts the exhibit's csm/in unit peak discharge to m³/s per
// km² per cm: 10^-2.366.
const log10CsmInToSI = -2.366

// Retention returns the curve-number retention parameter S, in centimeters:
// 0.1 * (25400/CN - 254).
func Retention(curveNumber float64) float64 {
	return 0.1 * (25400.0/curveNumber - 254.0)
}

// RunoffDepth returns the runoff depth Q, in centimeters, produced by a
// 24-hour rainfall of precipCM over a watershed with the given curve number.
// Rainfall at or below the initial abstraction produces no runoff.
func RunoffDepth(curveNumber, precipCM float64) float64 {
	s := Retention(curveNumber)
	ia := 0.2 * s
	pe := precipCM - ia
	if pe <= 0 {
		return 0
	}
	return pe * pe / (precipCM + s - ia)
}

// UnitPeakDischarge returns qu in m³/s per km² per cm of runoff, from the
// TR-55 Type II curves. The Ia/P ratio is clamped to the exhibit limits
// before the coefficient curves are interpolated.
func UnitPeakDischarge(tcHr, iaOverP float64) float64 {
	r := math.Min(math.Max(iaOverP, 0.1), 0.5)
	c0 := c0Curve.Predict(r)
	c1 := c1Curve.Predict(r)
	c2 := c2Curve.Predict(r)
	logTc := math.Log10(tcHr)
	return math.Pow(10, c0+c1*logTc+c2*logTc*logTc+log10CsmInToSI)
}

// PeakFlowInput carries the watershed statistics and storm depth for one
// peak-discharge calculation.
type PeakFlowInput struct {
	BasinAreaSqkm float64
	CurveNumber   float64
	TcHr          float64
	PrecipCM      float64
	// PondAdjustment scales for channel/pond/swamp storage (TR-55 Fp).
	// Zero means absent and defaults to 1.0.
	PondAdjustment float64
}

// PeakFlow computes the TR-55 graphical-method peak discharge, in m³/s, at a
// watershed's pour point for a single 24-hour storm depth. It is a pure
// function of its inputs. An InvalidPrecipitationError is returned for a
// non-numeric or negative depth; a zero curve number or time of
// concentration yields zero discharge (the watershed statistics were
// unusable, reported upstream as a delineation condition).
func PeakFlow(in PeakFlowInput) (float64, error) {
	if in.PrecipCM != in.PrecipCM || in.PrecipCM < 0 {
		return 0, &InvalidPrecipitationError{Detail: fmt.Sprintf("depth %g", in.PrecipCM)}
	}
	if in.CurveNumber <= 0 || in.TcHr <= 0 || in.BasinAreaSqkm <= 0 {
		return 0, nil
	}

	q := RunoffDepth(in.CurveNumber, in.PrecipCM)
	if q == 0 {
		return 0, nil
	}

	ia := 0.2 * Retention(in.CurveNumber)
	qu := UnitPeakDischarge(in.TcHr, ia/in.PrecipCM)

	fp := in.PondAdjustment
	if fp == 0 {
		fp = 1.0
	}

	return qu * q * in.BasinAreaSqkm * fp, nil
}
