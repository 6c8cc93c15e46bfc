// Package engine sequences a batch analysis run: normalize the input
// table, resolve watershed parameters, compute peak flows and culvert
// capacities, aggregate and evaluate crossings, and write the result
// table. Progress is checkpointed in run state after every stage so an
// interrupted run resumes without re-delineating.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/civicmapper/culvert-toolkit/internal/hydro"
	"github.com/civicmapper/culvert-toolkit/internal/naacc"
	"github.com/civicmapper/culvert-toolkit/internal/observability"
	"github.com/civicmapper/culvert-toolkit/internal/runstate"
	"github.com/civicmapper/culvert-toolkit/internal/table"
	"github.com/civicmapper/culvert-toolkit/internal/watershed"
)

// Options wires the engine's collaborators.
type Options struct {
	// Resolver is the geoprocessing backend; the engine wraps it with a
	// run-scoped cache.
	Resolver watershed.Resolver
	Series   hydro.PrecipitationSeries
	Store    *runstate.Store
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	// Workers bounds concurrent per-point and per-record computation.
	Workers int
}

// Engine runs one batch to completion.
type Engine struct {
	resolver *watershed.CachedResolver
	series   hydro.PrecipitationSeries
	store    *runstate.Store
	logger   *slog.Logger
	metrics  *observability.Metrics
	workers  int
	ready    atomic.Bool
}

func New(opts Options) *Engine {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		resolver: watershed.NewCachedResolver(opts.Resolver, opts.Metrics),
		series:   opts.Series,
		store:    opts.Store,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		workers:  workers,
	}
}

// CheckReadiness returns nil once the engine has loaded its input.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not loaded any records yet")
	}
	return nil
}

// record is the engine's working view of one culvert across stages.
type record struct {
	culvert naacc.NormalizedCulvert
	moved   bool

	capacity *float64
	reasons  []string
}

// Run executes the full stage sequence over the input and writes the
// result table to snap.OutputPath. When resume is true and a state file
// exists, already-resolved watershed parameters are restored instead of
// recomputed.
func (e *Engine) Run(ctx context.Context, input *table.Input, geometry table.GeometryReference, snap runstate.ConfigSnapshot, resume bool) error {
	e.metrics.RunActive.Set(1)
	defer e.metrics.RunActive.Set(0)

	state, err := e.loadOrCreateState(snap, resume)
	if err != nil {
		return err
	}
	e.logger.Info("run started",
		"run_id", state.RunID,
		"records", len(input.Records),
		"workers", e.workers,
		"resumed", state.Stage != runstate.StageCreated)

	records, err := e.loadPoints(ctx, state, input, geometry)
	if err != nil {
		return err
	}

	if err := e.resolveParameters(ctx, state, records); err != nil {
		return err
	}

	flows, err := e.computeFlows(ctx, state, records)
	if err != nil {
		return err
	}

	if err := e.computeCapacities(ctx, state, records); err != nil {
		return err
	}

	evaluations, err := e.evaluate(state, records, flows)
	if err != nil {
		return err
	}

	if err := e.save(state, input.Header, records, evaluations, snap.OutputPath); err != nil {
		return err
	}

	e.logger.Info("run finished",
		"run_id", state.RunID,
		"records", len(records),
		"parked", len(state.Parked))
	return nil
}

func (e *Engine) loadOrCreateState(snap runstate.ConfigSnapshot, resume bool) (*runstate.State, error) {
	if resume {
		state, err := e.store.Load()
		switch {
		case err == nil:
			if state.Config != snap {
				return nil, fmt.Errorf("state %s was created with a different configuration; archive it or disable resume", e.store.Path())
			}
			return state, nil
		case errors.Is(err, os.ErrNotExist):
			e.logger.Info("no state file to resume, starting fresh", "path", e.store.Path())
		default:
			return nil, err
		}
	}
	return runstate.New(snap), nil
}

// stage runs fn under a duration observation, then checkpoints the
// state. Stage computations are deterministic and always re-run; what a
// resumed run skips is the expensive backend delineation, served from
// the restored watershed snapshot instead. The state only advances when
// it has not already passed the checkpoint.
func (e *Engine) stage(state *runstate.State, to runstate.Stage, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return err
	}
	e.metrics.StageDuration.WithLabelValues(string(to)).Observe(time.Since(start).Seconds())

	if !state.Completed(to) {
		if err := state.Advance(to); err != nil {
			return err
		}
	}
	if err := e.store.Save(state); err != nil {
		return fmt.Errorf("checkpointing %s: %w", to, err)
	}
	e.logger.Info("stage completed", "stage", to, "duration", time.Since(start))
	return nil
}

// loadPoints normalizes the input, applies geometry correction, parks
// validation failures, and registers every record in the state.
func (e *Engine) loadPoints(ctx context.Context, state *runstate.State, input *table.Input, geometry table.GeometryReference) ([]*record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	culverts := naacc.NormalizeAll(input.Records)
	culverts, movedKeys := table.ApplyGeometryCorrection(culverts, geometry)

	records := make([]*record, len(culverts))
	invalid := 0
	for i, c := range culverts {
		records[i] = &record{culvert: c, moved: movedKeys[c.RecordKey()]}
		if !c.Include {
			invalid++
		}
	}
	e.metrics.RecordsProcessed.Add(float64(len(records)))
	e.metrics.ValidationFailures.Add(float64(invalid))
	e.metrics.BatchSize.Observe(float64(len(records)))
	e.ready.Store(true)

	err := e.stage(state, runstate.StagePointsLoaded, func() error {
		for _, r := range records {
			state.Track(r.culvert.RecordKey())
			if !r.culvert.Include {
				state.Park(r.culvert.RecordKey(), runstate.StagePointsLoaded, "validation failed")
			} else {
				state.MarkRecord(r.culvert.RecordKey(), runstate.StagePointsLoaded)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("input loaded", "records", len(records), "flagged", invalid)
	return records, nil
}

// resolveParameters delineates each distinct point once, concurrency
// bounded by the worker count. Delineation failures park the point's
// culverts; any other backend error aborts the run.
func (e *Engine) resolveParameters(ctx context.Context, state *runstate.State, records []*record) error {
	for key, snap := range state.Watersheds {
		e.resolver.SeedKey(key, watershed.Parameters{
			AreaSqkm:       snap.AreaSqkm,
			AvgSlopePct:    snap.AvgSlopePct,
			CurveNumber:    snap.CurveNumber,
			MaxFlowLengthM: snap.MaxFlowLengthM,
			TcHr:           snap.TcHr,
			PondAdjustment: snap.PondAdjustment,
		})
	}

	return e.stage(state, runstate.StageParametersResolved, func() error {
		points := distinctPoints(records)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		failures := make([]error, len(points))
		for i, pt := range points {
			g.Go(func() error {
				_, err := e.resolver.ResolveWatershed(gctx, pt)
				var df *watershed.DelineationFailedError
				if errors.As(err, &df) {
					failures[i] = df
					return nil
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("resolving watershed parameters: %w", err)
		}

		failedPoints := make(map[string]string)
		for i, ferr := range failures {
			if ferr != nil {
				e.metrics.DelineationFailures.Inc()
				failedPoints[points[i].Key()] = ferr.Error()
				e.logger.Warn("delineation failed", "point", points[i].Key(), "error", ferr)
			}
		}
		for _, r := range records {
			if !r.culvert.Include {
				continue
			}
			if reason, ok := failedPoints[r.point().Key()]; ok {
				state.Park(r.culvert.RecordKey(), runstate.StageParametersResolved, reason)
				r.reasons = append(r.reasons, reason)
			} else {
				state.MarkRecord(r.culvert.RecordKey(), runstate.StageParametersResolved)
			}
		}

		snapshot := make(map[string]runstate.WatershedSnapshot)
		for key, p := range e.resolver.Snapshot() {
			snapshot[key] = runstate.WatershedSnapshot{
				AreaSqkm:       p.AreaSqkm,
				AvgSlopePct:    p.AvgSlopePct,
				CurveNumber:    p.CurveNumber,
				MaxFlowLengthM: p.MaxFlowLengthM,
				TcHr:           p.TimeOfConcentrationHr(),
				PondAdjustment: p.PondAdjustment,
			}
		}
		state.Watersheds = snapshot
		return nil
	})
}

// computeFlows produces the per-point peak flow series for every point
// that delineated, one slice per canonical point key, ordered by return
// period.
func (e *Engine) computeFlows(ctx context.Context, state *runstate.State, records []*record) (map[string][]hydro.PeriodFlow, error) {
	flows := make(map[string][]hydro.PeriodFlow)
	var mu sync.Mutex

	err := e.stage(state, runstate.StageFlowsComputed, func() error {
		points := distinctPoints(records)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for _, pt := range points {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				params, err := e.resolver.ResolveWatershed(gctx, pt)
				if err != nil {
					// Failed points were parked in the previous stage.
					return nil
				}
				series, err := pointFlows(params, e.series)
				if err != nil {
					return fmt.Errorf("peak flow at %s: %w", pt.Key(), err)
				}
				mu.Lock()
				flows[pt.Key()] = series
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, r := range records {
			if r.active(state) {
				state.MarkRecord(r.culvert.RecordKey(), runstate.StageFlowsComputed)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flows, nil
}

// pointFlows computes one discharge per return period. Pure; independent
// across periods.
func pointFlows(params watershed.Parameters, series hydro.PrecipitationSeries) ([]hydro.PeriodFlow, error) {
	tc := params.TimeOfConcentrationHr()
	out := make([]hydro.PeriodFlow, 0, len(series))
	for _, entry := range series {
		flow, err := hydro.PeakFlow(hydro.PeakFlowInput{
			BasinAreaSqkm:  params.AreaSqkm,
			CurveNumber:    params.CurveNumber,
			TcHr:           tc,
			PrecipCM:       entry.DepthCM,
			PondAdjustment: params.PondAdjustment,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, hydro.PeriodFlow{
			ReturnPeriodYears: entry.ReturnPeriodYears,
			PeakFlowM3s:       flow,
		})
	}
	return out, nil
}

// computeCapacities evaluates the FHWA capacity equation for every
// record that passed validation. Capacity is a static hydraulic property
// of the structure, so culverts at undelineatable points still get one.
// A negative radicand is a domain condition, recorded, not fatal.
func (e *Engine) computeCapacities(ctx context.Context, state *runstate.State, records []*record) error {
	return e.stage(state, runstate.StageCapacitiesComputed, func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for _, r := range records {
			if !r.culvert.Include {
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := r.culvert
				capacity, err := hydro.CulvertCapacity(hydro.CapacityInput{
					AreaSqm:        c.AreaSqm,
					HeadOverInvert: c.HeadOverInvertM,
					DepthM:         c.DepthM,
					SlopeRR:        c.SlopeRR,
					CoefC:          c.CoefC,
					CoefY:          c.CoefY,
					CoefSlope:      c.CoefSlope,
				})
				if err != nil {
					var domainErr *hydro.DomainError
					if errors.As(err, &domainErr) {
						e.metrics.DomainErrors.Inc()
						r.reasons = append(r.reasons, err.Error())
						return nil
					}
					return fmt.Errorf("capacity for %s: %w", c.RecordKey(), err)
				}
				r.capacity = &capacity
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, r := range records {
			if r.culvert.Include && r.capacity != nil {
				state.MarkRecord(r.culvert.RecordKey(), runstate.StageCapacitiesComputed)
			}
		}
		return nil
	})
}

// crossingEvaluation is the aggregate outcome for one crossing.
type crossingEvaluation struct {
	capacity   float64
	exceedance hydro.Exceedance
}

// evaluate aggregates capacities per crossing and finds the highest
// return period each crossing passes. Evaluation order is deterministic:
// ascending crossing id.
func (e *Engine) evaluate(state *runstate.State, records []*record, flows map[string][]hydro.PeriodFlow) (map[int]crossingEvaluation, error) {
	evaluations := make(map[int]crossingEvaluation)

	err := e.stage(state, runstate.StageEvaluated, func() error {
		byCrossing := make(map[int][]*record)
		for _, r := range records {
			byCrossing[r.culvert.CrossingID] = append(byCrossing[r.culvert.CrossingID], r)
		}

		ids := make([]int, 0, len(byCrossing))
		for id := range byCrossing {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		for _, id := range ids {
			group := byCrossing[id]

			var capacities []float64
			for _, r := range group {
				if r.culvert.Include && r.capacity != nil {
					capacities = append(capacities, *r.capacity)
				}
			}
			crossingCapacity := hydro.SumCapacities(capacities)

			periodFlows, ok := crossingFlows(group, flows, state)
			var exceedance hydro.Exceedance
			if !ok || len(capacities) == 0 {
				exceedance = hydro.Exceedance{Unevaluated: true}
			} else {
				exceedance = hydro.EvaluateReturnPeriods(crossingCapacity, periodFlows)
			}
			evaluations[id] = crossingEvaluation{capacity: crossingCapacity, exceedance: exceedance}

			for _, r := range group {
				if r.active(state) {
					state.MarkRecord(r.culvert.RecordKey(), runstate.StageEvaluated)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}

// crossingFlows picks the flow series for a crossing: the one at the
// point of its lowest-numbered active culvert.
func crossingFlows(group []*record, flows map[string][]hydro.PeriodFlow, state *runstate.State) ([]hydro.PeriodFlow, bool) {
	for _, r := range group {
		if !r.active(state) {
			continue
		}
		if series, ok := flows[r.point().Key()]; ok {
			return series, true
		}
	}
	return nil, false
}

// save renders and writes the result table, then advances to the
// terminal stage.
func (e *Engine) save(state *runstate.State, header []string, records []*record, evaluations map[int]crossingEvaluation, outputPath string) error {
	return e.stage(state, runstate.StageSaved, func() error {
		rows := make([]table.ResultRow, 0, len(records))
		for _, r := range records {
			row := table.ResultRow{
				Culvert:         r.culvert,
				CulvertCapacity: r.capacity,
				Reasons:         r.reasons,
				Moved:           r.moved,
			}
			if reason, parked := state.IsParked(r.culvert.RecordKey()); parked && !contains(r.reasons, reason) && reason != "validation failed" {
				row.Reasons = append(row.Reasons, reason)
			}
			if eval, ok := evaluations[r.culvert.CrossingID]; ok {
				capacity := eval.capacity
				row.CrossingCapacity = &capacity
				exceedance := eval.exceedance
				row.Evaluation = &exceedance
			}
			rows = append(rows, row)
		}

		if err := table.WriteResultsFile(outputPath, header, rows); err != nil {
			return err
		}
		for _, r := range records {
			if r.active(state) {
				state.MarkRecord(r.culvert.RecordKey(), runstate.StageSaved)
			}
		}
		return nil
	})
}

// point returns the culvert's (possibly snapped) location.
func (r *record) point() watershed.Point {
	return watershed.Point{Lat: r.culvert.Lat, Lng: r.culvert.Lng}
}

// active reports whether the record is still advancing: valid and not
// parked.
func (r *record) active(state *runstate.State) bool {
	if !r.culvert.Include {
		return false
	}
	_, parked := state.IsParked(r.culvert.RecordKey())
	return !parked
}

// distinctPoints returns the unique points of active-or-parkable valid
// records in first-appearance order, so work is scheduled
// deterministically.
func distinctPoints(records []*record) []watershed.Point {
	seen := make(map[string]bool)
	var points []watershed.Point
	for _, r := range records {
		if !r.culvert.Include {
			continue
		}
		pt := r.point()
		if !seen[pt.Key()] {
			seen[pt.Key()] = true
			points = append(points, pt)
		}
	}
	return points
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
