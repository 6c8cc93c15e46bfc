package config

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/civicmapper/culvert-toolkit/internal/hydro"
)

// PrecipitationFile is the on-disk precipitation source: a unit tag, an
// optional area-of-interest label, and depths keyed by return period in
// years.
type PrecipitationFile struct {
	Units          string             `json:"units"`
	AreaOfInterest string             `json:"area_of_interest,omitempty"`
	Depths         map[string]float64 `json:"depths"`
}

// LoadPrecipitation reads a precipitation series file, normalizes depths
// to centimeters, applies the rainfall adjustment, and validates the
// series invariants. Any problem is a ConfigurationError.
func LoadPrecipitation(path string, rainfallAdjustment float64) (hydro.PrecipitationSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errorf(err, "opening precipitation file %s", path)
	}
	defer f.Close()
	return parsePrecipitation(f, path, rainfallAdjustment)
}

func parsePrecipitation(r io.Reader, path string, rainfallAdjustment float64) (hydro.PrecipitationSeries, error) {
	var pf PrecipitationFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pf); err != nil {
		return nil, errorf(err, "parsing precipitation file %s", path)
	}
	if len(pf.Depths) == 0 {
		return nil, errorf(nil, "precipitation file %s has no depths", path)
	}

	depths := make(map[int]float64, len(pf.Depths))
	for k, depth := range pf.Depths {
		rp, err := strconv.Atoi(k)
		if err != nil {
			return nil, errorf(err, "precipitation file %s: bad return period %q", path, k)
		}
		cm, err := hydro.DepthToCentimeters(depth, pf.Units)
		if err != nil {
			return nil, errorf(err, "precipitation file %s, return period %d", path, rp)
		}
		depths[rp] = cm * rainfallAdjustment
	}

	series, err := hydro.NewPrecipitationSeries(depths)
	if err != nil {
		return nil, errorf(err, "precipitation file %s", path)
	}
	return series, nil
}

// NOAA precipitation frequency estimate CSVs carry 13 lines of site
// metadata before the estimates matrix.
const noaaHeaderLines = 13

const (
	noaaDescField   = "by duration for ARI (years):"
	noaaDurationVal = "24-hr:"
)

// ParseNOAAPrecipCSV extracts the 24-hour duration row from a NOAA
// Atlas 14 precipitation frequency estimates CSV. Values in the matrix
// are inches; the result is depths in centimeters keyed by return period,
// scaled by rainfallAdjustment. Suitable for conversion into the JSON
// precipitation format.
func ParseNOAAPrecipCSV(r io.Reader, rainfallAdjustment float64) (map[int]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows [][]string
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errorf(err, "reading NOAA precipitation table")
		}
		line++
		if line <= noaaHeaderLines {
			continue
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, errorf(nil, "NOAA precipitation table has no estimate rows")
	}

	header := rows[0]
	if len(header) == 0 || strings.TrimSpace(header[0]) != noaaDescField {
		return nil, errorf(nil, "NOAA precipitation table missing %q column", noaaDescField)
	}

	for _, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) != noaaDurationVal {
			continue
		}
		depths := make(map[int]float64, len(header)-1)
		for i := 1; i < len(header) && i < len(row); i++ {
			rp, err := strconv.Atoi(strings.TrimSpace(header[i]))
			if err != nil {
				return nil, errorf(err, "NOAA precipitation table: bad return period %q", header[i])
			}
			inches, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, errorf(err, "NOAA precipitation table: bad depth %q for return period %d", row[i], rp)
			}
			cm := inches * 2.54 * rainfallAdjustment
			depths[rp] = math.Round(cm*100) / 100
		}
		if len(depths) == 0 {
			return nil, errorf(nil, "NOAA precipitation table 24-hr row has no values")
		}
		return depths, nil
	}
	return nil, errorf(nil, "NOAA precipitation table has no %q row", noaaDurationVal)
}

// WritePrecipitationFile converts extracted depths into the JSON
// precipitation format consumed by LoadPrecipitation.
func WritePrecipitationFile(path, areaOfInterest string, depthsCM map[int]float64) error {
	pf := PrecipitationFile{
		Units:          hydro.UnitCentimeters,
		AreaOfInterest: areaOfInterest,
		Depths:         make(map[string]float64, len(depthsCM)),
	}
	for rp, cm := range depthsCM {
		pf.Depths[strconv.Itoa(rp)] = cm
	}

	data, err := json.MarshalIndent(&pf, "", "  ")
	if err != nil {
		return errorf(err, "encoding precipitation file")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errorf(err, "writing precipitation file %s", path)
	}
	return nil
}

// ReturnPeriodsAscending is a convenience for deterministic iteration
// over an extracted depth map.
func ReturnPeriodsAscending(depths map[int]float64) []int {
	rps := make([]int, 0, len(depths))
	for rp := range depths {
		rps = append(rps, rp)
	}
	sort.Ints(rps)
	return rps
}
