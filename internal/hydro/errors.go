package hydro

import "fmt"

// DomainError reports a calculation whose inputs fall outside the model's
// valid regime, e.g. a negative capacity radicand. It is a modeling
// condition, not a data-validation failure: callers record it against the
// record and continue the batch.
type DomainError struct {
	Op     string
	Detail string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// UnknownCoefficientKeyError reports a shape/material/inlet combination with
// no entry in the FHWA Appendix A coefficient table.
type UnknownCoefficientKeyError struct {
	Shape    string
	Material string
	Inlet    string
}

func (e *UnknownCoefficientKeyError) Error() string {
	return fmt.Sprintf("no FHWA coefficient entry for shape=%q material=%q inlet=%q",
		e.Shape, e.Material, e.Inlet)
}

// InvalidPrecipitationError reports a malformed precipitation series entry:
// a non-numeric or negative depth, a non-positive return period, or a depth
// series that decreases with return period.
type InvalidPrecipitationError struct {
	Detail string
}

func (e *InvalidPrecipitationError) Error() string {
	return "invalid precipitation series: " + e.Detail
}
