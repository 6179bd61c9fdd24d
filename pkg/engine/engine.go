// Package engine drives the formation layout pipeline and exposes the slot
// API occupants use.
//
// A regeneration pass runs to completion inside one call:
//
//	generate → position → constrain → flatten
//
// Each instance is generated at full spacing, positioned by the spread or
// the position policy, shrunk by the boundary solver and finally flattened
// into a fresh registry that replaces the previous one in a single step.
// Slots from an earlier pass are stale afterwards; listeners are told so
// through a LayoutChanged event and are expected to re-acquire.
//
// All methods are safe for concurrent use. A single mutex serializes the
// pipeline and every registry mutation. Events are published after the
// mutex is released, so listeners may call back into the engine.
package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/events"
	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/layout"
	"github.com/matzehuels/formation/pkg/observability"
	"github.com/matzehuels/formation/pkg/settings"
	"github.com/matzehuels/formation/pkg/shape"
)

// State is the pipeline phase the engine is in.
type State int

const (
	Idle State = iota
	Regenerating
	Positioning
	Constraining
	Flattened
)

var stateNames = [...]string{"idle", "regenerating", "positioning", "constraining", "flattened"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Result describes one completed regeneration pass.
type Result struct {
	Generation uuid.UUID
	Instances  int
	Slots      int
	Report     layout.Report
	Separation layout.Separation
	Duration   time.Duration
}

// Engine owns the instances and the slot registry of one formation.
type Engine struct {
	mu sync.Mutex

	host     Host
	settings settings.Settings
	tuning   settings.Tuning
	logger   *log.Logger
	bus      *events.Bus

	state   State
	pending bool

	instances  []*formation.Instance
	registry   *formation.Registry
	generation uuid.UUID
	last       Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings sets the initial formation settings.
func WithSettings(s settings.Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithTuning sets the solver constants.
func WithTuning(t settings.Tuning) Option {
	return func(e *Engine) { e.tuning = t }
}

// WithLogger sets the logger. Without it the engine is silent.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBus publishes events on an existing bus instead of a private one.
func WithBus(b *events.Bus) Option {
	return func(e *Engine) {
		if b != nil {
			e.bus = b
		}
	}
}

// New returns an engine bound to host. Settings default to
// [settings.Defaults] and tuning to [settings.DefaultTuning]. No layout
// exists until the first Regenerate or Tick.
func New(host Host, opts ...Option) (*Engine, error) {
	if host == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "engine requires a host")
	}
	e := &Engine{
		host:     host,
		settings: settings.Defaults(),
		tuning:   settings.DefaultTuning(),
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		bus:      events.NewBus(),
		pending:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := errors.Join(e.settings.Validate(), e.tuning.Validate()); err != nil {
		return nil, err
	}
	e.registry = formation.NewRegistry(nil, hostFrame{host})
	e.instances = []*formation.Instance{}
	return e, nil
}

// Bus returns the bus events are published on.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Subscribe registers a listener for layout events.
func (e *Engine) Subscribe(fn events.Listener) (unsubscribe func()) {
	return e.bus.Subscribe(fn)
}

// State returns the current pipeline phase. Outside of a pass it is
// always Idle.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Settings returns the active settings.
func (e *Engine) Settings() settings.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Tuning returns the active solver constants.
func (e *Engine) Tuning() settings.Tuning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tuning
}

// Pending reports whether a regeneration is scheduled for the next Tick.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Generation returns the ID of the current layout, or uuid.Nil before the
// first pass.
func (e *Engine) Generation() uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// LastResult returns the outcome of the most recent pass.
func (e *Engine) LastResult() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Apply replaces the settings. Settings equal by value to the active ones
// are ignored and Apply returns false; otherwise a regeneration is
// scheduled for the next Tick. Invalid settings are rejected and leave the
// engine unchanged.
func (e *Engine) Apply(s settings.Settings) (bool, error) {
	if err := s.Validate(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settings.Equal(s) {
		return false, nil
	}
	e.settings = s
	e.pending = true
	e.logger.Debug("settings changed", "shape", s.Shape, "instances", s.InstanceCount())
	return true, nil
}

// SetTuning replaces the solver constants and schedules a regeneration
// when they differ.
func (e *Engine) SetTuning(t settings.Tuning) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tuning == t {
		return false, nil
	}
	e.tuning = t
	e.pending = true
	return true, nil
}

// Tick is the per-step hook of the host simulation. It runs a scheduled
// regeneration, notifying listeners, and reports whether one ran.
func (e *Engine) Tick() bool {
	e.mu.Lock()
	if !e.pending {
		e.mu.Unlock()
		return false
	}
	_, evs := e.regenerate(context.Background(), true)
	e.mu.Unlock()
	e.publish(evs)
	return true
}

// Regenerate runs the full pipeline now. When notify is set, listeners
// receive LayoutChanged once the new registry is in place.
func (e *Engine) Regenerate(notify bool) Result {
	return e.RegenerateContext(context.Background(), notify)
}

// RegenerateContext is Regenerate with a context for observability hooks.
// The pipeline itself is not cancellable.
func (e *Engine) RegenerateContext(ctx context.Context, notify bool) Result {
	e.mu.Lock()
	res, evs := e.regenerate(ctx, notify)
	e.mu.Unlock()
	e.publish(evs)
	return res
}

func (e *Engine) publish(evs []events.Event) {
	for _, ev := range evs {
		e.bus.Publish(ev)
	}
}

// regenerate runs one pass. The caller holds e.mu.
func (e *Engine) regenerate(ctx context.Context, notify bool) (Result, []events.Event) {
	start := time.Now()
	s, t := e.settings, e.tuning
	k := s.InstanceCount()
	observability.Pipeline().OnGenerateStart(ctx, s.Shape.String(), k)

	e.enter(Regenerating)
	frame := hostFrame{e.host}.Frame()
	size := e.host.BoundarySize()
	boundary := layout.BoundaryFor(frame, size)
	env := shape.EnvFor(size, t)
	build := func(in *formation.Instance) {
		in.SetPoints(shape.Generate(s, in.Spacing, env))
	}

	instances := make([]*formation.Instance, k)
	for i := range instances {
		instances[i] = formation.NewInstance(i)
		build(instances[i])
	}

	e.enter(Positioning)
	rng := layout.NewRand(s.Seed)
	var sep layout.Separation
	position := func() {
		if k == 1 {
			layout.Place(instances[0], s.Position, size, rng)
			return
		}
		sep = layout.Spread(instances, size, t)
	}
	position()

	e.enter(Constraining)
	var report layout.Report
	if t.ConstrainToBoundary {
		reposition := position
		if k == 1 && s.Position == settings.Random {
			reposition = func() { layout.Clamp(instances[0], size) }
		}
		solver := layout.NewSolver(t, boundary, frame, build, e.logger)
		report = solver.Solve(instances, reposition)
	} else {
		report = layout.Report{Converged: layout.WithinBounds(boundary, frame, instances, t.Tolerance)}
	}

	e.enter(Flattened)
	e.instances = instances
	e.registry = formation.NewRegistry(instances, hostFrame{e.host})
	e.generation = uuid.New()
	e.pending = false

	res := Result{
		Generation: e.generation,
		Instances:  k,
		Slots:      e.registry.Len(),
		Report:     report,
		Separation: sep,
		Duration:   time.Since(start),
	}
	e.last = res
	e.enter(Idle)

	e.logger.Debug("regenerated formation",
		"shape", s.Shape,
		"instances", k,
		"slots", res.Slots,
		"iterations", report.Iterations,
		"converged", report.Converged,
		"generation", e.generation,
	)
	observability.Pipeline().OnGenerateComplete(ctx, s.Shape.String(), res.Slots, report.Iterations, res.Duration, nil)

	var evs []events.Event
	if report.Fallback {
		observability.Pipeline().OnFallback(ctx, s.Shape.String(), k)
		evs = append(evs, e.event(events.FallbackApplied))
	}
	if notify {
		evs = append(evs, e.event(events.LayoutChanged))
	}
	return res, evs
}

func (e *Engine) enter(s State) {
	e.state = s
	e.logger.Debug("pipeline state", "state", s)
}

func (e *Engine) event(kind events.Kind) events.Event {
	return events.Event{
		Kind:       kind,
		Generation: e.generation,
		Instances:  len(e.instances),
		Slots:      e.registry.Len(),
	}
}

// =============================================================================
// Slot API
// =============================================================================

// TryOccupySlot gives o the first free slot, or nil if none is free.
func (e *Engine) TryOccupySlot(o formation.Occupant) *formation.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TryOccupy(o)
}

// TryOccupySlotInFormation gives o the first free slot of one instance.
func (e *Engine) TryOccupySlotInFormation(o formation.Occupant, index int) *formation.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TryOccupyInFormation(o, index)
}

// OccupySpecificSlot gives s to o if s is current and free.
func (e *Engine) OccupySpecificSlot(s *formation.Slot, o formation.Occupant) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.OccupySpecific(s, o)
}

// ReleaseSlot frees s. Nil, stale and free slots are ignored.
func (e *Engine) ReleaseSlot(s *formation.Slot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Release(s)
}

// ReleaseOccupant frees every slot o holds and returns how many there were.
func (e *Engine) ReleaseOccupant(o formation.Occupant) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.ReleaseOccupant(o)
}

// SlotsOf returns the slots o currently holds.
func (e *Engine) SlotsOf(o formation.Occupant) []*formation.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SlotsOf(o)
}

// Slot returns the current slot with the given flat ID.
func (e *Engine) Slot(id int) (*formation.Slot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Slot(id)
}

// NearestAvailableSlot returns the free slot closest to pos in world
// space, or nil.
func (e *Engine) NearestAvailableSlot(pos geom.Vec3) *formation.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.NearestAvailable(pos)
}

// AvailableSlots returns every free slot.
func (e *Engine) AvailableSlots() []*formation.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.AvailableSlots()
}

// AvailableSlotsInFormation returns the free slots of one instance.
func (e *Engine) AvailableSlotsInFormation(index int) []*formation.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.AvailableSlotsInFormation(index)
}

// SlotWorldPosition resolves s against the host's current anchor and
// orientation.
func (e *Engine) SlotWorldPosition(s *formation.Slot) geom.Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.WorldPosition(s)
}

// SlotCount returns the total and occupied slot counts.
func (e *Engine) SlotCount() (total, occupied int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len(), e.registry.OccupiedCount()
}

// WithinBounds reports whether every current slot lies inside the host's
// current boundary. It is a diagnostic and never changes the layout.
func (e *Engine) WithinBounds() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	frame := hostFrame{e.host}.Frame()
	b := layout.BoundaryFor(frame, e.host.BoundarySize())
	return layout.WithinBounds(b, frame, e.instances, e.tuning.Tolerance)
}

// InstanceInfo is a read-only view of one instance.
type InstanceInfo struct {
	Index   int       `json:"index"`
	Offset  geom.Vec2 `json:"offset"`
	Spacing float64   `json:"spacing"`

	// Bounds is the local bounding box, relative to the instance origin.
	Bounds geom.Box `json:"bounds"`
	Slots  int      `json:"slots"`
}

// Instances describes the current instances.
func (e *Engine) Instances() []InstanceInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]InstanceInfo, len(e.instances))
	for i, in := range e.instances {
		out[i] = InstanceInfo{
			Index:   in.Index,
			Offset:  in.Offset,
			Spacing: in.Spacing,
			Bounds:  in.Bounds,
			Slots:   len(in.Slots),
		}
	}
	return out
}

// SlotInfo is a read-only view of one slot.
type SlotInfo struct {
	ID       int                `json:"id"`
	Instance int                `json:"instance"`
	Index    int                `json:"index"`
	Local    geom.Vec3          `json:"local"`
	World    geom.Vec3          `json:"world"`
	Occupant formation.Occupant `json:"occupant,omitempty"`
}

// Describe returns a consistent view of s. Stale and foreign slots report
// false.
func (e *Engine) Describe(s *formation.Slot) (SlotInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.registry.Owns(s) {
		return SlotInfo{}, false
	}
	return SlotInfo{
		ID:       s.ID(),
		Instance: s.InstanceIndex(),
		Index:    s.Index,
		Local:    s.Local,
		World:    e.registry.WorldPosition(s),
		Occupant: s.Occupant(),
	}, true
}
