package layout

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/settings"
)

// Builder regenerates the slots of an instance at its current spacing
// multiplier.
type Builder func(inst *formation.Instance)

// Report records what the solver did during one pass.
type Report struct {
	// Iterations counts shrink steps across both passes.
	Iterations int `json:"iterations"`

	// Converged is true when every slot ended inside the boundary.
	Converged bool `json:"converged"`

	// Fallback is true when the emergency layout was applied.
	Fallback bool `json:"fallback"`

	// Trace holds, per instance, every spacing multiplier it was generated
	// with, starting with the initial one. Entries never increase.
	Trace [][]float64 `json:"trace"`
}

func newReport(instances []*formation.Instance) *Report {
	r := &Report{Trace: make([][]float64, len(instances))}
	for i, in := range instances {
		r.Trace[i] = []float64{in.Spacing}
	}
	return r
}

func (r *Report) record(pos int, in *formation.Instance) {
	r.Trace[pos] = append(r.Trace[pos], in.Spacing)
}

// Solver shrinks instance spacing until every slot fits the boundary.
type Solver struct {
	Tuning   settings.Tuning
	Boundary Boundary
	Frame    formation.Frame
	Build    Builder
	Logger   *log.Logger
}

// NewSolver returns a solver for the given boundary and frame. A nil logger
// discards output.
func NewSolver(t settings.Tuning, b Boundary, f formation.Frame, build Builder, logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Solver{Tuning: t, Boundary: b, Frame: f, Build: build, Logger: logger}
}

// Solve runs the single-instance pass when there is exactly one instance
// and then the multi-instance pass over all of them. reposition is invoked
// after each multi-instance shrink step so offsets can follow the smaller
// instances.
func (s *Solver) Solve(instances []*formation.Instance, reposition func()) Report {
	rep := newReport(instances)
	if len(instances) == 1 {
		s.constrain(instances[0], rep)
	}
	s.validate(instances, reposition, rep)
	return *rep
}

// ApplyBoundaryConstraintsAtPosition shrinks one instance at its current
// offset. Each step multiplies the spacing by a damped reduction factor,
// up to SingleInstanceIterations steps, stopping at the floor.
func (s *Solver) ApplyBoundaryConstraintsAtPosition(inst *formation.Instance) Report {
	rep := newReport([]*formation.Instance{inst})
	s.constrain(inst, rep)
	return *rep
}

// ValidateAndAdjustAllFormations shrinks all instances uniformly until they
// fit, up to MultiInstanceIterations steps. If they still do not fit, every
// instance is collapsed onto the anchor at the floor multiplier.
func (s *Solver) ValidateAndAdjustAllFormations(instances []*formation.Instance, reposition func()) Report {
	rep := newReport(instances)
	s.validate(instances, reposition, rep)
	return *rep
}

func (s *Solver) constrain(inst *formation.Instance, rep *Report) {
	tol := s.Tuning.Tolerance
	floor := s.Tuning.MinSpacingMultiplier
	for i := 0; i < s.Tuning.SingleInstanceIterations; i++ {
		f := measure(s.Boundary, s.Frame, inst)
		if f.inside(tol) {
			rep.Converged = true
			return
		}
		if inst.Spacing <= floor {
			break
		}
		factor := s.shrinkFactor(f)
		inst.Spacing = max(inst.Spacing*factor, floor)
		s.Build(inst)
		rep.Iterations++
		rep.record(0, inst)
		s.Logger.Debug("shrunk instance", "instance", inst.Index, "factor", factor, "spacing", inst.Spacing)
	}
	rep.Converged = measure(s.Boundary, s.Frame, inst).inside(tol)
}

// shrinkFactor combines the ratio of available to required extent with a
// reduction aimed at removing the worst overshoot, then damps it. The cap
// guarantees progress even when both estimates are close to one.
func (s *Solver) shrinkFactor(f fit) float64 {
	factor := 1.0
	size := s.Boundary.Size
	if f.over.X > s.Tuning.Tolerance {
		if f.span.X > 0 {
			factor = min(factor, size.X/f.span.X)
		}
		if f.reach.X > 0 {
			factor = min(factor, (f.reach.X-f.over.X)/f.reach.X)
		}
	}
	if f.over.Y > s.Tuning.Tolerance {
		if f.span.Y > 0 {
			factor = min(factor, size.Y/f.span.Y)
		}
		if f.reach.Y > 0 {
			factor = min(factor, (f.reach.Y-f.over.Y)/f.reach.Y)
		}
	}
	return max(min(factor*s.Tuning.Damping, s.Tuning.DampingCap), 0)
}

func (s *Solver) validate(instances []*formation.Instance, reposition func(), rep *Report) {
	tol := s.Tuning.Tolerance
	floor := s.Tuning.MinSpacingMultiplier
	for i := 0; i < s.Tuning.MultiInstanceIterations; i++ {
		if WithinBounds(s.Boundary, s.Frame, instances, tol) {
			rep.Converged = true
			return
		}
		scale := s.Tuning.ProgressiveScale(i)
		for j, in := range instances {
			next := max(in.Spacing*scale, floor)
			if next == in.Spacing {
				continue
			}
			in.Spacing = next
			s.Build(in)
			rep.record(j, in)
		}
		if reposition != nil {
			reposition()
		}
		rep.Iterations++
	}
	if WithinBounds(s.Boundary, s.Frame, instances, tol) {
		rep.Converged = true
		return
	}

	s.Logger.Warn("formation does not fit boundary, applying fallback",
		"instances", len(instances),
		"boundary", s.Boundary.Size,
	)
	for j, in := range instances {
		in.Offset = geom.Vec2{}
		if in.Spacing != floor {
			in.Spacing = floor
			s.Build(in)
			rep.record(j, in)
		}
	}
	rep.Fallback = true
	rep.Converged = WithinBounds(s.Boundary, s.Frame, instances, tol)
}
