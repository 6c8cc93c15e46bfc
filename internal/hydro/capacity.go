package hydro

import (
	"fmt"
	"math"
)

// SIConversionFactor adjusts the FHWA inlet-control equation for SI units.
const SIConversionFactor = 1.811

// CapacityInput carries the geometry and coefficients for a single culvert
// capacity calculation. All lengths are meters, areas square meters, and the
// slope is rise over run.
type CapacityInput struct {
	AreaSqm        float64 // internal cross-section area of the barrel
	HeadOverInvert float64 // hydraulic head above the culvert invert
	DepthM         float64 // barrel depth: diameter, or dimension B for non-round shapes
	SlopeRR        float64 // culvert slope as rise/run
	CoefC          float64 // FHWA c coefficient (shape/material/inlet)
	CoefY          float64 // FHWA Y coefficient (shape/material/inlet)
	CoefSlope      float64 // FHWA Ks: -0.5, or +0.7 for mitered inlets
}

// CulvertCapacity computes the discharge a culvert can pass under inlet
// control with a submerged outlet, in m³/s.
//
// A zero radicand is a valid zero-capacity result. A negative radicand means
// the head is insufficient relative to the coefficients; capacity is
// undefined in that regime and a DomainError is returned so the caller can
// report the condition instead of producing a NaN.
func CulvertCapacity(in CapacityInput) (float64, error) {
	if in.DepthM <= 0 {
		return 0, &DomainError{Op: "culvert capacity", Detail: fmt.Sprintf("non-positive culvert depth %g", in.DepthM)}
	}
	if in.CoefC <= 0 {
		return 0, &DomainError{Op: "culvert capacity", Detail: fmt.Sprintf("non-positive c coefficient %g", in.CoefC)}
	}

	radicand := in.DepthM * ((in.HeadOverInvert / in.DepthM) - in.CoefY - in.CoefSlope*in.SlopeRR) / in.CoefC
	if radicand < 0 {
		return 0, &DomainError{
			Op:     "culvert capacity",
			Detail: fmt.Sprintf("negative radicand %g: head %gm insufficient for coefficients", radicand, in.HeadOverInvert),
		}
	}

	return in.AreaSqm * math.Sqrt(radicand) / SIConversionFactor, nil
}

// BarrelGeometry derives the cross-section area and depth used in the
// capacity equation from a culvert's crosswalked shape and inlet dimensions
// (meters). For round barrels the depth is the diameter (dimension A); for
// elliptical, pipe-arch, box, and arch barrels it is dimension B.
func BarrelGeometry(shape string, inletA, inletB float64) (areaSqm, depthM float64, err error) {
	switch shape {
	case ShapeRound:
		r := inletA / 2
		return r * r * math.Pi, inletA, nil
	case ShapeElliptical, ShapePipeArch:
		return (inletA / 2) * (inletB / 2) * math.Pi, inletB, nil
	case ShapeBox:
		return inletA * inletB, inletB, nil
	case ShapeArch:
		return (inletA / 2) * (inletB / 2) * math.Pi / 2, inletB, nil
	default:
		return 0, 0, &UnknownCoefficientKeyError{Shape: shape}
	}
}
