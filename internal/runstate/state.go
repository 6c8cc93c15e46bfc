// Package runstate holds the versioned, serializable record of a batch
// run: which stage each input record has reached, the records parked with
// failure reasons, and a snapshot of the resolved configuration. The state
// is persisted after every stage so an interrupted run can resume from the
// last completed stage and so a finished run can be audited.
package runstate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civicmapper/culvert-toolkit/internal/naacc"
)

// SchemaVersion is bumped whenever the serialized layout changes shape.
const SchemaVersion = 1

// Stage is a checkpoint in the run lifecycle. Transitions are strictly
// forward.
type Stage string

const (
	StageCreated             Stage = "created"
	StagePointsLoaded        Stage = "points_loaded"
	StageParametersResolved  Stage = "parameters_resolved"
	StageFlowsComputed       Stage = "flows_computed"
	StageCapacitiesComputed  Stage = "capacities_computed"
	StageEvaluated           Stage = "evaluated"
	StageSaved               Stage = "saved"
)

var stageOrder = []Stage{
	StageCreated,
	StagePointsLoaded,
	StageParametersResolved,
	StageFlowsComputed,
	StageCapacitiesComputed,
	StageEvaluated,
	StageSaved,
}

// Index returns the stage's position in the lifecycle, or -1 for an
// unknown stage value.
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the value names a known stage.
func (s Stage) Valid() bool { return s.Index() >= 0 }

// After reports whether s is a later checkpoint than other.
func (s Stage) After(other Stage) bool { return s.Index() > other.Index() }

// ConfigSnapshot records the resolved run configuration inside the state
// file, so the state is auditable on its own and a resume can detect a
// changed configuration.
type ConfigSnapshot struct {
	InputPath         string `json:"input_path"`
	PrecipitationPath string `json:"precipitation_path"`
	OutputPath        string `json:"output_path"`
	StatePath         string `json:"state_path"`
	Workers           int    `json:"workers"`
}

// WatershedSnapshot persists resolved watershed parameters so a resumed
// run skips re-delineation, the expensive stage. Only the inputs the
// calculators need are kept.
type WatershedSnapshot struct {
	AreaSqkm       float64 `json:"area_sqkm"`
	AvgSlopePct    float64 `json:"avg_slope_pct"`
	CurveNumber    float64 `json:"curve_number"`
	MaxFlowLengthM float64 `json:"max_flow_length_m"`
	TcHr           float64 `json:"tc_hr"`
	PondAdjustment float64 `json:"pond_adjustment,omitempty"`
}

// ParkedRecord is a record removed from further processing, with the
// stage it failed at and why. Parked records stay visible in output.
type ParkedRecord struct {
	Key    naacc.Key `json:"key"`
	Stage  Stage     `json:"stage"`
	Reason string    `json:"reason"`
}

// State is the run's progress ledger. It is a plain value object;
// persistence is handled by Store.
type State struct {
	Version   int            `json:"version"`
	RunID     string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Config    ConfigSnapshot `json:"config"`

	// Stage is the last checkpoint the batch as a whole completed.
	Stage Stage `json:"stage"`

	// Records maps each input record to the last stage it reached.
	// Serialized with string keys (see naacc.Key.String).
	Records map[string]Stage `json:"records"`

	// Parked lists records withdrawn from processing, in park order.
	Parked []ParkedRecord `json:"parked"`

	// Watersheds holds resolved parameters keyed by canonical point key,
	// populated at StageParametersResolved.
	Watersheds map[string]WatershedSnapshot `json:"watersheds,omitempty"`
}

// New creates a fresh state at StageCreated with a generated run id.
func New(cfg ConfigSnapshot) *State {
	now := clock.Now().UTC()
	return &State{
		Version:   SchemaVersion,
		RunID:     uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Config:    cfg,
		Stage:     StageCreated,
		Records:   make(map[string]Stage),
	}
}

// Advance moves the batch to the next checkpoint. Moving backwards or
// skipping a checkpoint is a programming error and is rejected.
func (s *State) Advance(to Stage) error {
	if !to.Valid() {
		return fmt.Errorf("unknown stage %q", to)
	}
	if to.Index() != s.Stage.Index()+1 {
		return fmt.Errorf("illegal stage transition %s -> %s", s.Stage, to)
	}
	s.Stage = to
	s.UpdatedAt = clock.Now().UTC()
	return nil
}

// Completed reports whether the batch has already passed the given
// checkpoint, used on resume to skip recomputation.
func (s *State) Completed(stage Stage) bool {
	return s.Stage.Index() >= stage.Index()
}

// Track registers an input record at StageCreated if it is not already
// tracked.
func (s *State) Track(key naacc.Key) {
	k := key.String()
	if _, ok := s.Records[k]; !ok {
		s.Records[k] = StageCreated
	}
}

// MarkRecord records that a single record reached a stage. Records only
// move forward; a stale mark is ignored.
func (s *State) MarkRecord(key naacc.Key, stage Stage) {
	k := key.String()
	if cur, ok := s.Records[k]; ok && !stage.After(cur) {
		return
	}
	s.Records[k] = stage
	s.UpdatedAt = clock.Now().UTC()
}

// RecordStage returns the last stage a record reached.
func (s *State) RecordStage(key naacc.Key) (Stage, bool) {
	st, ok := s.Records[key.String()]
	return st, ok
}

// Park withdraws a record from further processing with a reason. Parking
// is idempotent per key; the first reason wins.
func (s *State) Park(key naacc.Key, stage Stage, reason string) {
	for _, p := range s.Parked {
		if p.Key == key {
			return
		}
	}
	s.Parked = append(s.Parked, ParkedRecord{Key: key, Stage: stage, Reason: reason})
	s.UpdatedAt = clock.Now().UTC()
}

// IsParked reports whether a record has been withdrawn, and why.
func (s *State) IsParked(key naacc.Key) (string, bool) {
	for _, p := range s.Parked {
		if p.Key == key {
			return p.Reason, true
		}
	}
	return "", false
}

// Validate checks structural invariants after deserialization.
func (s *State) Validate() error {
	if s.Version != SchemaVersion {
		return fmt.Errorf("unsupported state version %d (want %d)", s.Version, SchemaVersion)
	}
	if s.RunID == "" {
		return fmt.Errorf("state missing run id")
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", s.Stage)
	}
	for k, st := range s.Records {
		if _, err := naacc.ParseKey(k); err != nil {
			return fmt.Errorf("bad record key: %w", err)
		}
		if !st.Valid() {
			return fmt.Errorf("record %s has unknown stage %q", k, st)
		}
	}
	for _, p := range s.Parked {
		if !p.Stage.Valid() {
			return fmt.Errorf("parked record %s has unknown stage %q", p.Key, p.Stage)
		}
	}
	return nil
}
