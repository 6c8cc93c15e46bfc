package watershed

import "context"

// StaticResolver serves watershed parameters from an already-derived
// per-point statistics table, the usual production backend: delineation
// runs in an external GIS toolchain ahead of time and this resolver
// hands out its results. Points absent from the table fail delineation.
type StaticResolver struct {
	params map[string]Parameters
}

// NewStaticResolver builds a resolver over parameters keyed by canonical
// point key (see Point.Key).
func NewStaticResolver(params map[string]Parameters) *StaticResolver {
	if params == nil {
		params = make(map[string]Parameters)
	}
	return &StaticResolver{params: params}
}

func (r *StaticResolver) ResolveWatershed(_ context.Context, pt Point) (Parameters, error) {
	p, ok := r.params[pt.Key()]
	if !ok {
		return Parameters{}, &DelineationFailedError{Point: pt, Reason: "no watershed statistics for point"}
	}
	return p, nil
}

// Len reports the number of points covered by the table.
func (r *StaticResolver) Len() int { return len(r.params) }
