package naacc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/civicmapper/culvert-toolkit/internal/hydro"
)

// Validation error code prefixes. Each emitted code is "<prefix>:<detail>"
// so output stays both machine-filterable and human-readable.
const (
	CodeMissingIdentifier    = "missing_identifier"
	CodeBadIdentifier        = "bad_identifier"
	CodeBadCoordinate        = "bad_coordinate"
	CodeMissingDimension     = "missing_dimension"
	CodeNonNumericDimension  = "non_numeric_dimension"
	CodeNonPositiveDimension = "non_positive_dimension"
	CodeNotCulvertCrossing   = "not_culvert_crossing"
	CodeUnknownShape         = "unknown_shape"
	CodeUnknownMaterial      = "unknown_material"
	CodeUnknownInletType     = "unknown_inlet_type"
	CodeUnknownCoefficients  = "unknown_coefficient_key"
	CodeNonNumericSlope      = "non_numeric_slope"
)

const feetToMeters = 0.3048

// slopeMissingSentinel is the NAACC convention for an unmeasured slope.
const slopeMissingSentinel = -1

// inletShapeCrosswalk maps NAACC Inlet_Structure_Type codes onto the FHWA
// coefficient-table shapes.
var inletShapeCrosswalk = map[string]string{
	"Round Culvert":                         hydro.ShapeRound,
	"Pipe Arch/Elliptical Culvert":          hydro.ShapeElliptical,
	"Box Culvert":                           hydro.ShapeBox,
	"Box/Bridge with Abutments":             hydro.ShapeBox,
	"Bridge with Abutments and Side Slopes": hydro.ShapeBox,
	"Open Bottom Arch Bridge/Culvert":       hydro.ShapeArch,
}

// inletTypeCrosswalk maps NAACC Inlet_Type codes onto the coefficient-table
// inlet vocabulary. Values already in the target vocabulary pass through.
var inletTypeCrosswalk = map[string]string{
	"Headwall and Wingwalls": hydro.InletWingwallHeadwall,
	"Wingwalls":              hydro.InletWingwall,
	"None":                   hydro.InletProjecting,
}

// includableCrossingTypes are the crossing types eligible for capacity
// analysis; everything else (bridges, fords) is flagged, lower-cased for
// comparison.
var includableCrossingTypes = map[string]bool{
	"culvert":          true,
	"multiple culvert": true,
}

// Normalize crosswalks and validates one raw NAACC row. It is a pure
// function: the same RawRecord always yields the same NormalizedCulvert,
// and the input is never mutated. Every failed rule appends a distinct
// error code; a record with any code has Include=false but is still
// returned so it stays visible downstream.
func Normalize(raw RawRecord) NormalizedCulvert {
	c := NormalizedCulvert{raw: raw}

	c.CrossingID = parseIdentifier(&c, FieldSurveyID, raw.Get(FieldSurveyID))
	c.CulvertID = parseIdentifier(&c, FieldCulvertID, raw.Get(FieldCulvertID))
	c.Lat = parseCoordinate(&c, FieldLatitude, raw.Get(FieldLatitude))
	c.Lng = parseCoordinate(&c, FieldLongitude, raw.Get(FieldLongitude))

	c.CrossingType = strings.TrimSpace(raw.Get(FieldCrossingType))
	c.Road = strings.TrimSpace(raw.Get(FieldRoad))
	c.Comments = strings.TrimSpace(raw.Get(FieldCrossingComment))

	if !includableCrossingTypes[strings.ToLower(c.CrossingType)] {
		c.addError(CodeNotCulvertCrossing, c.CrossingType)
	}

	c.Shape = crosswalkShape(&c, raw.Get(FieldInletShape))
	c.Material = crosswalkMaterial(&c, raw.Get(FieldMaterial))
	c.InletType = crosswalkInletType(&c, raw.Get(FieldInletType))

	c.InletWidthM = parseDimension(&c, FieldInletWidth, raw.Get(FieldInletWidth), true)
	c.InletHeightM = parseDimension(&c, FieldInletHeight, raw.Get(FieldInletHeight), true)
	c.RoadFillHeightM = parseDimension(&c, FieldRoadFillHeight, raw.Get(FieldRoadFillHeight), true)
	c.LengthM = parseDimension(&c, FieldLength, raw.Get(FieldLength), true)
	c.OutletWidthM = parseDimension(&c, FieldOutletWidth, raw.Get(FieldOutletWidth), false)
	c.OutletHeightM = parseDimension(&c, FieldOutletHeight, raw.Get(FieldOutletHeight), false)

	parseSlope(&c, raw.Get(FieldSlopePercent))

	c.Include = len(c.ValidationErrors) == 0
	if c.Include {
		deriveCapacityParameters(&c)
		// Coefficient resolution can add errors of its own.
		c.Include = len(c.ValidationErrors) == 0
	}

	return c
}

// NormalizeAll normalizes a batch, preserving cardinality and order; no
// record is dropped, only flagged.
func NormalizeAll(records []RawRecord) []NormalizedCulvert {
	out := make([]NormalizedCulvert, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}

func (c *NormalizedCulvert) addError(code, detail string) {
	c.ValidationErrors = append(c.ValidationErrors, fmt.Sprintf("%s:%s", code, detail))
}

func (c *NormalizedCulvert) addNote(note string) {
	c.Notes = append(c.Notes, note)
}

func parseIdentifier(c *NormalizedCulvert, field, value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		c.addError(CodeMissingIdentifier, field)
		return 0
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		c.addError(CodeBadIdentifier, field)
		return 0
	}
	return id
}

func parseCoordinate(c *NormalizedCulvert, field, value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		c.addError(CodeBadCoordinate, field)
		return 0
	}
	coord, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.addError(CodeBadCoordinate, field)
		return 0
	}
	return coord
}

// parseDimension parses a dimensional field in feet and converts to meters.
// Required fields must be present, numeric, and strictly positive; optional
// fields (outlet dimensions) only report format problems when non-empty.
func parseDimension(c *NormalizedCulvert, field, value string, required bool) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			c.addError(CodeMissingDimension, field)
		}
		return 0
	}
	ft, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.addError(CodeNonNumericDimension, field)
		return 0
	}
	if ft <= 0 {
		if required {
			c.addError(CodeNonPositiveDimension, field)
		}
		return 0
	}
	return ft * feetToMeters
}

func parseSlope(c *NormalizedCulvert, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		c.addNote("slope missing, assuming 0 for capacity calculation")
		return
	}
	pct, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.addError(CodeNonNumericSlope, FieldSlopePercent)
		return
	}
	if pct == slopeMissingSentinel {
		// NAACC "-1 = not measured": keep the record, note the assumption.
		c.addNote("slope missing (-1), assuming 0 for capacity calculation")
		return
	}
	c.SlopePct = pct
	c.SlopeRR = pct / 100
}

func crosswalkShape(c *NormalizedCulvert, value string) string {
	value = strings.TrimSpace(value)
	shape, ok := inletShapeCrosswalk[value]
	if !ok {
		// Already-crosswalked values (re-ingest of toolkit output) pass.
		if hydro.KnownShape(value) {
			return value
		}
		c.addError(CodeUnknownShape, value)
		return ""
	}
	return shape
}

func crosswalkMaterial(c *NormalizedCulvert, value string) string {
	value = strings.TrimSpace(value)
	if !hydro.KnownMaterial(value) {
		c.addError(CodeUnknownMaterial, value)
		return ""
	}
	return value
}

func crosswalkInletType(c *NormalizedCulvert, value string) string {
	value = strings.TrimSpace(value)
	inlet, ok := inletTypeCrosswalk[value]
	if !ok {
		if hydro.KnownInletType(value) {
			return value
		}
		c.addError(CodeUnknownInletType, value)
		return ""
	}
	return inlet
}

// deriveCapacityParameters computes barrel geometry, head over invert, and
// FHWA coefficients for a record that passed validation.
func deriveCapacityParameters(c *NormalizedCulvert) {
	area, depth, err := hydro.BarrelGeometry(c.Shape, c.InletWidthM, c.InletHeightM)
	if err != nil {
		c.addError(CodeUnknownShape, c.Shape)
		return
	}
	c.AreaSqm = area
	c.DepthM = depth
	// Head over invert: distance from the road surface to the top of the
	// culvert plus the barrel depth.
	c.HeadOverInvertM = c.RoadFillHeightM + depth

	coefs, err := hydro.LookupCoefficients(c.Shape, c.Material, c.InletType)
	if err != nil {
		c.addError(CodeUnknownCoefficients,
			fmt.Sprintf("%s|%s|%s", c.Shape, c.Material, c.InletType))
		return
	}
	c.CoefC = coefs.C
	c.CoefY = coefs.Y
	c.CoefSlope = hydro.SlopeCoefficient(c.InletType)
	if coefs.Note != "" {
		c.addNote(coefs.Note)
	}
}
