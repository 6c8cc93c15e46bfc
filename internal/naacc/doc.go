// Package naacc validates and crosswalks North Atlantic Aquatic Connectivity
// Collaborative (NAACC) culvert survey records into the toolkit's internal
// schema.
//
// # Data Source
//
// NAACC publishes road-stream crossing surveys as wide CSV tables, one row
// per culvert. A crossing (one road-stream intersection) may contain several
// culverts; rows are keyed by the (Survey_Id, Naacc_Culvert_Id) pair, where
// Survey_Id identifies the crossing and Naacc_Culvert_Id the individual
// structure. Both are stored internally as integers so downstream spatial
// joins behave.
//
// # NAACC Conventions
//
// Dimensional fields (Inlet_Width, Inlet_Height, Outlet_Width,
// Outlet_Height, Road_Fill_Height, Crossing_Structure_Length) are in feet
// and converted to meters during normalization. Slope_Percent is percent
// rise; a value of -1 is the NAACC sentinel for "not measured" and is
// carried through as zero slope with a note rather than excluding the
// record.
//
// Structure type codes are verbose survey vocabulary and are crosswalked to
// the shapes the FHWA coefficient table understands:
//
//	Round Culvert                          -> Round
//	Pipe Arch/Elliptical Culvert           -> Elliptical
//	Box Culvert                            -> Box
//	Box/Bridge with Abutments              -> Box
//	Bridge with Abutments and Side Slopes  -> Box
//	Open Bottom Arch Bridge/Culvert        -> Arch
//
// Inlet types similarly:
//
//	Headwall and Wingwalls -> Wingwall and Headwall
//	Wingwalls              -> Wingwall
//	None                   -> Projecting
//
// Only "Culvert" and "Multiple Culvert" crossing types are eligible for
// capacity analysis; bridges and fords are retained in output but flagged.
// The canonical internal field name is crossing_type; the legacy column name
// xing_type that appears in older exports is accepted as a read alias.
//
// # Validation
//
// Every rule appends a distinct machine-readable code to the record's
// validation error list and forces include=false. No record is ever
// dropped: flagged rows stay visible in output and are merely excluded from
// crossing aggregation. Normalization is idempotent and never mutates the
// raw record.
package naacc
