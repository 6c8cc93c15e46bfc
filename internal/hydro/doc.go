// Package hydro implements the numeric core of the culvert toolkit: the
// TR-55 curve-number runoff and peak-discharge method, the FHWA inlet-control
// culvert capacity equation, and the crossing-level exceedance evaluation.
//
// # Units
//
// All calculator inputs and outputs are SI: meters for lengths, square
// meters for areas, square kilometers for drainage areas, centimeters for
// rainfall depths, and cubic meters per second for discharge. Source data in
// imperial units (NAACC dimensional fields in feet, NOAA Atlas 14 rainfall
// in thousandths of an inch) is converted before it reaches this package.
//
// # TR-55 peak discharge
//
// Runoff depth follows the standard curve-number relation with retention
// S = 25400/CN - 254 (millimeters, carried here as 0.1*(25400/CN - 254) in
// centimeters) and initial abstraction Ia = 0.2*S. Unit peak discharge comes
// from the TR-55 Type II exhibit coefficients (C0, C1, C2 tabulated against
// the Ia/P ratio), interpolated piecewise-linearly, with Ia/P clamped to the
// [0.1, 0.5] limits stated in TR-55:
//
//	qu = 10^(C0 + C1*log10(Tc) + C2*log10(Tc)^2 - 2.366)   [m³/s per km² per cm]
//
// The -2.366 term converts the exhibit's csm/in units to SI.
//
// # FHWA capacity
//
// Culvert capacity under inlet control with a submerged outlet, from FHWA
// publication HIF-12-026 equation A.3 (p. 191):
//
//	capacity = A * sqrt(D * (H/D - Y - Ks*S) / c) / 1.811   [m³/s]
//
// The c and Y coefficients are tabulated in Appendix A of the same
// publication by culvert shape, material, and inlet structure type. Ks is
// -0.5, or +0.7 when the inlet is mitered to conform to the roadway slope.
//
// All functions in this package are pure: identical inputs always produce
// identical outputs, and nothing here touches the filesystem or network.
package hydro
