package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/civicmapper/culvert-toolkit/internal/watershed"
)

// Watershed statistics table columns. lat/lng locate the pour point;
// the remainder are the delineated statistics. tc_hr and pond_adjustment
// are optional.
const (
	wsFieldLatitude       = "lat"
	wsFieldLongitude      = "lng"
	wsFieldAreaSqkm       = "area_sqkm"
	wsFieldAvgSlopePct    = "avg_slope_pct"
	wsFieldCurveNumber    = "curve_number"
	wsFieldMaxFlowLengthM = "max_flow_length_m"
	wsFieldTcHr           = "tc_hr"
	wsFieldPondAdjustment = "pond_adjustment"
)

// ReadWatershedTableFile loads a per-point watershed statistics CSV, as
// produced by an external GIS delineation run, keyed by canonical point
// key.
func ReadWatershedTableFile(path string) (map[string]watershed.Parameters, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening watershed table %s: %w", path, err)
	}
	defer f.Close()

	params, err := ReadWatershedTable(f)
	if err != nil {
		return nil, fmt.Errorf("watershed table %s: %w", path, err)
	}
	return params, nil
}

func ReadWatershedTable(r io.Reader) (map[string]watershed.Parameters, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.ToLower(strings.TrimSpace(col))] = i
	}
	required := []string{
		wsFieldLatitude, wsFieldLongitude, wsFieldAreaSqkm,
		wsFieldAvgSlopePct, wsFieldCurveNumber, wsFieldMaxFlowLengthM,
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	field := func(row []string, name string) (float64, bool, error) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return 0, false, nil
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false, fmt.Errorf("bad %s value %q", name, v)
		}
		return f, true, nil
	}

	params := make(map[string]watershed.Parameters)
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

		var p watershed.Parameters
		var pt watershed.Point
		for _, bind := range []struct {
			name     string
			dst      *float64
			required bool
		}{
			{wsFieldLatitude, &pt.Lat, true},
			{wsFieldLongitude, &pt.Lng, true},
			{wsFieldAreaSqkm, &p.AreaSqkm, true},
			{wsFieldAvgSlopePct, &p.AvgSlopePct, true},
			{wsFieldCurveNumber, &p.CurveNumber, true},
			{wsFieldMaxFlowLengthM, &p.MaxFlowLengthM, true},
			{wsFieldTcHr, &p.TcHr, false},
			{wsFieldPondAdjustment, &p.PondAdjustment, false},
		} {
			v, ok, err := field(row, bind.name)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if !ok {
				if bind.required {
					return nil, fmt.Errorf("line %d: missing %s", line, bind.name)
				}
				continue
			}
			*bind.dst = v
		}
		params[pt.Key()] = p
	}
	return params, nil
}
