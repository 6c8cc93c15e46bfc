package hydro

import "math"

// metersToFeet converts SI segment lengths to the imperial lengths the TR-55
// travel-time formulas are stated in.
const metersToFeet = 3.28083989501312

// SheetFlowSegment describes the initial overland flow regime: shallow sheet
// flow over a planar surface, limited by TR-55 to roughly the first 300 feet
// of the flow path.
type SheetFlowSegment struct {
	ManningN    float64 // sheet-flow roughness coefficient
	LengthM     float64
	SlopeRR     float64 // land slope, rise/run
	Rainfall2yr float64 // 2-year 24-hour rainfall depth, centimeters
}

// ShallowFlowSegment describes shallow concentrated flow after sheet flow
// breaks down into rills and small channels.
type ShallowFlowSegment struct {
	LengthM float64
	SlopeRR float64
	Paved   bool
}

// ChannelFlowSegment describes open-channel flow, with velocity from
// Manning's equation.
type ChannelFlowSegment struct {
	ManningN        float64
	LengthM         float64
	HydraulicRadius float64 // meters
	SlopeRR         float64
}

// TcSegments holds up to three flow-regime segments for a watershed's
// longest flow path. A nil segment is simply omitted from the total; a point
// with no defined channel, for example, carries only the first two.
type TcSegments struct {
	Sheet   *SheetFlowSegment
	Shallow *ShallowFlowSegment
	Channel *ChannelFlowSegment
}

// Empty reports whether no segment data is available, in which case the
// empirical watershed-wide formula is the only option.
func (s TcSegments) Empty() bool {
	return s.Sheet == nil && s.Shallow == nil && s.Channel == nil
}

// TimeOfConcentration sums the travel times of the defined flow segments,
// in hours, per the TR-55 chapter 3 segment method.
func TimeOfConcentration(segs TcSegments) float64 {
	var tc float64
	if s := segs.Sheet; s != nil {
		tc += sheetFlowTravelTime(s)
	}
	if s := segs.Shallow; s != nil {
		tc += shallowFlowTravelTime(s)
	}
	if s := segs.Channel; s != nil {
		tc += channelFlowTravelTime(s)
	}
	return tc
}

// TimeOfConcentrationEmpirical estimates Tc, in hours, from watershed-wide
// statistics when no per-segment data exists: the maximum flow length (m)
// and the average percent slope of the contributing area. This is the
// Cornell culvert model relation, a power-law fit in the spirit of the
// Kirpich formula. A zero slope is nudged to avoid a division blowup.
func TimeOfConcentrationEmpirical(maxFlowLengthM, avgSlopePct float64) float64 {
	const (
		constA = 0.000325
		constB = 0.77
		constC = -0.385
	)
	if avgSlopePct <= 0 {
		avgSlopePct = 0.00001
	}
	return constA * math.Pow(maxFlowLengthM, constB) * math.Pow(avgSlopePct/100, constC)
}

// sheetFlowTravelTime: Tt = 0.007*(n*L)^0.8 / (P2^0.5 * s^0.4), with L in
// feet and P2 in inches (TR-55 eq. 3-3).
func sheetFlowTravelTime(s *SheetFlowSegment) float64 {
	if s.LengthM <= 0 || s.SlopeRR <= 0 || s.Rainfall2yr <= 0 {
		return 0
	}
	lengthFt := s.LengthM * metersToFeet
	p2In := s.Rainfall2yr / 2.54
	return 0.007 * math.Pow(s.ManningN*lengthFt, 0.8) / (math.Sqrt(p2In) * math.Pow(s.SlopeRR, 0.4))
}

// shallowFlowTravelTime: velocity 16.1345*sqrt(s) ft/s unpaved or
// 20.3282*sqrt(s) paved (TR-55 eq. 3-1 coefficients), Tt = L/(3600*V).
func shallowFlowTravelTime(s *ShallowFlowSegment) float64 {
	if s.LengthM <= 0 || s.SlopeRR <= 0 {
		return 0
	}
	k := 16.1345
	if s.Paved {
		k = 20.3282
	}
	velocityFtS := k * math.Sqrt(s.SlopeRR)
	return s.LengthM * metersToFeet / (3600 * velocityFtS)
}

// channelFlowTravelTime: Manning velocity V = (1.49/n)*r^(2/3)*s^(1/2) with
// r in feet, Tt = L/(3600*V) (TR-55 eq. 3-4).
func channelFlowTravelTime(s *ChannelFlowSegment) float64 {
	if s.LengthM <= 0 || s.SlopeRR <= 0 || s.ManningN <= 0 || s.HydraulicRadius <= 0 {
		return 0
	}
	radiusFt := s.HydraulicRadius * metersToFeet
	velocityFtS := (1.49 / s.ManningN) * math.Pow(radiusFt, 2.0/3.0) * math.Sqrt(s.SlopeRR)
	return s.LengthM * metersToFeet / (3600 * velocityFtS)
}
