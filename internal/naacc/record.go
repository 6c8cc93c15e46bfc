package naacc

import (
	"fmt"
	"strconv"
	"strings"
)

// Source column names from the NAACC survey export.
const (
	FieldSurveyID        = "Survey_Id"
	FieldCulvertID       = "Naacc_Culvert_Id"
	FieldLatitude        = "GIS_Latitude"
	FieldLongitude       = "GIS_Longitude"
	FieldCrossingType    = "Crossing_Type"
	FieldCrossingComment = "Crossing_Comment"
	FieldLength          = "Crossing_Structure_Length"
	FieldInletType       = "Inlet_Type"
	FieldInletShape      = "Inlet_Structure_Type"
	FieldInletWidth      = "Inlet_Width"
	FieldInletHeight     = "Inlet_Height"
	FieldMaterial        = "Material"
	FieldOutletShape     = "Outlet_Structure_Type"
	FieldOutletWidth     = "Outlet_Width"
	FieldOutletHeight    = "Outlet_Height"
	FieldRoadFillHeight  = "Road_Fill_Height"
	FieldSlopePercent    = "Slope_Percent"
	FieldRoad            = "Road"
)

// RawRecord is one unmodified row of source culvert data: the column values
// as read, keyed by source column name. It is immutable once ingested;
// normalization reads it and produces a separate NormalizedCulvert.
type RawRecord struct {
	Fields map[string]string
	Line   int // 1-based source row number, for diagnostics
}

// Get returns the raw value of a source column, honoring read aliases
// (legacy exports used xing_type for Crossing_Type).
func (r RawRecord) Get(field string) string {
	if v, ok := r.Fields[field]; ok {
		return v
	}
	if alias, ok := fieldAliases[field]; ok {
		return r.Fields[alias]
	}
	return ""
}

// fieldAliases maps canonical source field names to legacy column names
// still accepted on read. The canonical name wins when both are present.
var fieldAliases = map[string]string{
	FieldCrossingType: "xing_type",
}

// NormalizedCulvert is the crosswalked, unit-converted form of a RawRecord.
// Dimensional fields are meters. Created once per RawRecord and never
// mutated afterwards; re-running normalization replaces it wholesale.
type NormalizedCulvert struct {
	CrossingID int // NAACC Survey_Id
	CulvertID  int // NAACC Naacc_Culvert_Id

	Lat float64
	Lng float64

	CrossingType string
	Road         string
	Comments     string

	// Crosswalked coefficient-table vocabulary.
	Shape     string
	Material  string
	InletType string

	// Dimensions, meters.
	InletWidthM     float64
	InletHeightM    float64
	OutletWidthM    float64
	OutletHeightM   float64
	RoadFillHeightM float64
	LengthM         float64

	SlopePct float64
	SlopeRR  float64 // slope as rise/run

	// Derived capacity parameters (only populated for includable records).
	AreaSqm          float64
	DepthM           float64
	HeadOverInvertM  float64
	CoefC            float64
	CoefY            float64
	CoefSlope        float64

	Include          bool
	ValidationErrors []string // ordered machine-readable codes
	Notes            []string

	raw RawRecord
}

// Raw returns the source record this culvert was normalized from, for
// carrying original columns into output.
func (c NormalizedCulvert) Raw() RawRecord {
	return c.raw
}

// Key is the composite record identity used for run-state tracking.
type Key struct {
	CrossingID int
	CulvertID  int
}

// String renders the identity as "crossing/culvert", suitable as a map key
// in serialized run state.
func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.CrossingID, k.CulvertID)
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return Key{}, fmt.Errorf("malformed record key %q", s)
	}
	crossing, err := strconv.Atoi(parts[0])
	if err != nil {
		return Key{}, fmt.Errorf("malformed record key %q: %w", s, err)
	}
	culvert, err := strconv.Atoi(parts[1])
	if err != nil {
		return Key{}, fmt.Errorf("malformed record key %q: %w", s, err)
	}
	return Key{CrossingID: crossing, CulvertID: culvert}, nil
}

// RecordKey returns the (crossing, culvert) identity pair.
func (c NormalizedCulvert) RecordKey() Key {
	return Key{CrossingID: c.CrossingID, CulvertID: c.CulvertID}
}
