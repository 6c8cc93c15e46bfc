package hydro

// Overflow compares culvert (or crossing) capacity against a peak flow.
// Positive values indicate spare capacity; negative values indicate an
// overtopping condition.
func Overflow(capacity, peakFlow float64) float64 {
	return capacity - peakFlow
}

// PeriodFlow pairs a return period with the peak discharge computed for it.
type PeriodFlow struct {
	ReturnPeriodYears int
	PeakFlowM3s       float64
}

// Exceedance is the outcome of evaluating a crossing's capacity against its
// peak flows across ascending return periods.
type Exceedance struct {
	// MaxReturnPeriod is the largest return period whose peak flow the
	// crossing can still pass, nil when the crossing could not be evaluated
	// or fails at the minimum period.
	MaxReturnPeriod *int
	// FailsAtMinimum is set when even the smallest return period's flow
	// exceeds capacity — reported distinctly from "could not evaluate".
	FailsAtMinimum bool
	// Unevaluated is set when no comparison was possible (no included
	// culverts, or no peak flows for the point).
	Unevaluated bool
}

// EvaluateReturnPeriods finds the highest return period a crossing can pass.
// flows must be ordered by ascending return period; peak flow is
// non-decreasing in return period (enforced at the precipitation series) and
// capacity is frequency-independent, so the scan stops at the first period
// whose flow exceeds capacity and reports the previous one.
func EvaluateReturnPeriods(crossingCapacity float64, flows []PeriodFlow) Exceedance {
	if len(flows) == 0 {
		return Exceedance{Unevaluated: true}
	}

	var passed *int
	for i := range flows {
		if flows[i].PeakFlowM3s > crossingCapacity {
			break
		}
		rp := flows[i].ReturnPeriodYears
		passed = &rp
	}

	if passed == nil {
		return Exceedance{FailsAtMinimum: true}
	}
	return Exceedance{MaxReturnPeriod: passed}
}

// SumCapacities totals culvert capacities into a crossing capacity. Callers
// pass only the capacities of included culverts; an empty slice yields 0.
func SumCapacities(capacities []float64) float64 {
	var total float64
	for _, c := range capacities {
		total += c
	}
	return total
}
