package hydro

import (
	"fmt"
	"sort"
)

// PrecipEntry is one return-period step of a precipitation series: the
// 24-hour rainfall depth, in centimeters, for a storm of the given average
// recurrence interval.
type PrecipEntry struct {
	ReturnPeriodYears int
	DepthCM           float64
}

// PrecipitationSeries is an ordered mapping of return period to 24-hour
// rainfall depth. Return periods are strictly increasing and depths are
// non-decreasing; NewPrecipitationSeries enforces both. The series is
// immutable once built and safe for concurrent reads.
type PrecipitationSeries []PrecipEntry

// Depth units accepted from precipitation sources. NOAA Atlas 14 grids and
// precipitation-frequency CSVs publish thousandths of an inch; everything is
// normalized to centimeters on load.
const (
	UnitCentimeters       = "cm"
	UnitMillimeters       = "mm"
	UnitInches            = "in"
	UnitThousandthsOfInch = "in/1000"
)

// DepthToCentimeters converts a depth value in the named unit to
// centimeters. Unknown units are an error, not a silent pass-through.
func DepthToCentimeters(value float64, unit string) (float64, error) {
	switch unit {
	case UnitCentimeters, "":
		return value, nil
	case UnitMillimeters:
		return value / 10, nil
	case UnitInches:
		return value * 2.54, nil
	case UnitThousandthsOfInch:
		return value * 2.54 / 1000, nil
	default:
		return 0, fmt.Errorf("unrecognized precipitation unit %q", unit)
	}
}

// NewPrecipitationSeries validates and orders raw (return period, depth)
// pairs into a PrecipitationSeries. Depths must already be in centimeters.
// Violations return InvalidPrecipitationError: non-positive or duplicate
// return periods, negative or NaN-free non-numeric depths, or a depth that
// decreases as the return period increases. Equal consecutive depths are
// allowed.
func NewPrecipitationSeries(depths map[int]float64) (PrecipitationSeries, error) {
	if len(depths) == 0 {
		return nil, &InvalidPrecipitationError{Detail: "series is empty"}
	}

	series := make(PrecipitationSeries, 0, len(depths))
	for rp, depth := range depths {
		if rp <= 0 {
			return nil, &InvalidPrecipitationError{Detail: fmt.Sprintf("non-positive return period %d", rp)}
		}
		if depth != depth { // NaN
			return nil, &InvalidPrecipitationError{Detail: fmt.Sprintf("non-numeric depth for return period %d", rp)}
		}
		if depth < 0 {
			return nil, &InvalidPrecipitationError{Detail: fmt.Sprintf("negative depth %g for return period %d", depth, rp)}
		}
		series = append(series, PrecipEntry{ReturnPeriodYears: rp, DepthCM: depth})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].ReturnPeriodYears < series[j].ReturnPeriodYears
	})

	for i := 1; i < len(series); i++ {
		if series[i].DepthCM < series[i-1].DepthCM {
			return nil, &InvalidPrecipitationError{Detail: fmt.Sprintf(
				"depth decreases from %gcm (%dyr) to %gcm (%dyr)",
				series[i-1].DepthCM, series[i-1].ReturnPeriodYears,
				series[i].DepthCM, series[i].ReturnPeriodYears,
			)}
		}
	}

	return series, nil
}

// ReturnPeriods lists the series' return periods in ascending order.
func (s PrecipitationSeries) ReturnPeriods() []int {
	periods := make([]int, len(s))
	for i, e := range s {
		periods[i] = e.ReturnPeriodYears
	}
	return periods
}

// Depth returns the rainfall depth for a return period.
func (s PrecipitationSeries) Depth(returnPeriodYears int) (float64, bool) {
	for _, e := range s {
		if e.ReturnPeriodYears == returnPeriodYears {
			return e.DepthCM, true
		}
	}
	return 0, false
}
