// Package table adapts the engine to its file-based interfaces: the
// NAACC input CSV, the result CSV, and the optional corrected-geometry
// reference table.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/civicmapper/culvert-toolkit/internal/naacc"
	"github.com/civicmapper/culvert-toolkit/internal/watershed"
)

// Input is the parsed source table: the header in source column order
// plus one RawRecord per data row.
type Input struct {
	Header  []string
	Records []naacc.RawRecord
}

// ReadCulvertsFile reads a NAACC crossing/culvert CSV from disk.
func ReadCulvertsFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening culvert table %s: %w", path, err)
	}
	defer f.Close()

	in, err := ReadCulverts(f)
	if err != nil {
		return nil, fmt.Errorf("culvert table %s: %w", path, err)
	}
	return in, nil
}

// ReadCulverts parses the culvert CSV. The first row is the header;
// every following row becomes one RawRecord keyed by header column name,
// carrying its 1-based line number for diagnostics. Ragged rows are an
// error: a shifted column would silently corrupt every downstream value.
func ReadCulverts(r io.Reader) (*Input, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	in := &Input{Header: header}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		fields := make(map[string]string, len(header))
		for i, col := range header {
			fields[col] = strings.TrimSpace(row[i])
		}
		in.Records = append(in.Records, naacc.RawRecord{Fields: fields, Line: line})
	}
	return in, nil
}

// Corrected-geometry reference table columns.
const (
	geomFieldCrossingID = "crossing_id"
	geomFieldLatitude   = "lat"
	geomFieldLongitude  = "lng"
)

// GeometryReference maps crossing ids to snapped point locations.
type GeometryReference map[int]watershed.Point

// ReadGeometryReferenceFile loads a corrected-geometry table: one row
// per crossing with its snapped coordinates.
func ReadGeometryReferenceFile(path string) (GeometryReference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geometry reference %s: %w", path, err)
	}
	defer f.Close()

	ref, err := ReadGeometryReference(f)
	if err != nil {
		return nil, fmt.Errorf("geometry reference %s: %w", path, err)
	}
	return ref, nil
}

func ReadGeometryReference(r io.Reader) (GeometryReference, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{geomFieldCrossingID, geomFieldLatitude, geomFieldLongitude} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	ref := make(GeometryReference)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id, err := strconv.Atoi(strings.TrimSpace(row[cols[geomFieldCrossingID]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad crossing id: %w", line, err)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[cols[geomFieldLatitude]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad latitude: %w", line, err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(row[cols[geomFieldLongitude]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad longitude: %w", line, err)
		}
		ref[id] = watershed.Point{Lat: lat, Lng: lng}
	}
	return ref, nil
}

// ApplyGeometryCorrection substitutes snapped coordinates into culverts
// whose crossing appears in the reference, a reverse one-to-many join.
// It returns replacement copies; inputs are not mutated. The second
// return value records which keys moved.
func ApplyGeometryCorrection(culverts []naacc.NormalizedCulvert, ref GeometryReference) ([]naacc.NormalizedCulvert, map[naacc.Key]bool) {
	moved := make(map[naacc.Key]bool)
	if len(ref) == 0 {
		return culverts, moved
	}

	out := make([]naacc.NormalizedCulvert, len(culverts))
	copy(out, culverts)
	for i := range out {
		pt, ok := ref[out[i].CrossingID]
		if !ok {
			continue
		}
		if pt.Lat == out[i].Lat && pt.Lng == out[i].Lng {
			continue
		}
		out[i].Lat = pt.Lat
		out[i].Lng = pt.Lng
		moved[out[i].RecordKey()] = true
	}
	return out, moved
}
