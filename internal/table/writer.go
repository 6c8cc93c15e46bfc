package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/civicmapper/culvert-toolkit/internal/hydro"
	"github.com/civicmapper/culvert-toolkit/internal/naacc"
)

// Appended result columns, in output order after the original fields.
var resultColumns = []string{
	"include",
	"validation_errors",
	"culvert_capacity",
	"crossing_capacity",
	"max_return_period",
	"moved",
}

// Sentinels for the max_return_period column. Every record shows either
// a number or the reason it lacks one.
const (
	MaxReturnPeriodFailsAtMinimum = "fails_at_minimum"
	MaxReturnPeriodUnevaluated    = "unevaluated"
)

// ResultRow is one output record: the culvert plus everything the run
// determined about it.
type ResultRow struct {
	Culvert naacc.NormalizedCulvert

	// CulvertCapacity is nil when capacity was not computed (excluded or
	// domain error).
	CulvertCapacity *float64
	// CrossingCapacity is nil when the crossing was not aggregated.
	CrossingCapacity *float64
	// Evaluation is nil for records that never reached evaluation.
	Evaluation *hydro.Exceedance

	// Reasons carries park reasons and domain conditions, appended after
	// the validation error codes so no record is blank without
	// explanation.
	Reasons []string

	Moved bool
}

// WriteResultsFile writes the result table to disk. The engine is the
// single writer of this file.
func WriteResultsFile(path string, header []string, rows []ResultRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file %s: %w", path, err)
	}
	if err := WriteResults(f, header, rows); err != nil {
		f.Close()
		return fmt.Errorf("results file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing results file %s: %w", path, err)
	}
	return nil
}

// WriteResults renders the output schema: every original column in its
// source order, then the result columns.
func WriteResults(w io.Writer, header []string, rows []ResultRow) error {
	cw := csv.NewWriter(w)

	out := make([]string, 0, len(header)+len(resultColumns))
	out = append(out, header...)
	out = append(out, resultColumns...)
	if err := cw.Write(out); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		rec := make([]string, 0, len(header)+len(resultColumns))
		raw := row.Culvert.Raw()
		for _, col := range header {
			rec = append(rec, originalValue(row, raw, col))
		}
		rec = append(rec,
			strconv.FormatBool(row.Culvert.Include),
			strings.Join(combineReasons(row), ";"),
			formatCapacity(row.CulvertCapacity),
			formatCapacity(row.CrossingCapacity),
			formatMaxReturnPeriod(row.Evaluation),
			strconv.FormatBool(row.Moved),
		)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing record %s: %w", row.Culvert.RecordKey(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// originalValue echoes the source column, except coordinates on a moved
// record, which show the snapped geometry.
func originalValue(row ResultRow, raw naacc.RawRecord, col string) string {
	if row.Moved {
		switch col {
		case naacc.FieldLatitude:
			return strconv.FormatFloat(row.Culvert.Lat, 'f', -1, 64)
		case naacc.FieldLongitude:
			return strconv.FormatFloat(row.Culvert.Lng, 'f', -1, 64)
		}
	}
	return raw.Fields[col]
}

func combineReasons(row ResultRow) []string {
	reasons := make([]string, 0, len(row.Culvert.ValidationErrors)+len(row.Reasons))
	reasons = append(reasons, row.Culvert.ValidationErrors...)
	reasons = append(reasons, row.Reasons...)
	return reasons
}

func formatCapacity(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func formatMaxReturnPeriod(e *hydro.Exceedance) string {
	switch {
	case e == nil, e.Unevaluated:
		return MaxReturnPeriodUnevaluated
	case e.FailsAtMinimum:
		return MaxReturnPeriodFailsAtMinimum
	case e.MaxReturnPeriod != nil:
		return strconv.Itoa(*e.MaxReturnPeriod)
	default:
		return MaxReturnPeriodUnevaluated
	}
}
