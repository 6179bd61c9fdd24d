// Package layout positions formation instances relative to the anchor and
// fits them inside the available boundary.
//
// Three steps cooperate during a regeneration pass:
//
//   - [Spread] separates several instances with closed-form offsets.
//   - [Place] moves a single instance according to a position policy.
//   - [Solver] shrinks spacing multipliers until every slot lies inside the
//     boundary, falling back to a compact layout when it cannot.
//
// Spacing multipliers only ever decrease within a pass and never drop below
// the configured floor.
package layout

import (
	"math"

	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
)

// Boundary is the rectangular area the formation must fit in. It is centered
// on Center and shares the formation orientation.
type Boundary struct {
	Center   geom.Vec3
	Size     geom.Vec2
	Rotation geom.Rotation
}

// BoundaryFor returns the boundary centered on the frame anchor.
func BoundaryFor(f formation.Frame, size geom.Vec2) Boundary {
	return Boundary{Center: f.Anchor, Size: size, Rotation: f.Rotation}
}

// Half returns the half extents.
func (b Boundary) Half() geom.Vec2 { return b.Size.Half() }

// Local maps a world position into the boundary frame.
func (b Boundary) Local(world geom.Vec3) geom.Vec2 {
	return b.Rotation.Inverse().Apply(world.Sub(b.Center)).Flat()
}

// Overshoot returns, per axis, how far world lies beyond the boundary edge.
// Negative values mean the point is inside on that axis.
func (b Boundary) Overshoot(world geom.Vec3) geom.Vec2 {
	return b.Local(world).Abs().Sub(b.Half())
}

// Contains reports whether world lies inside the boundary, allowing tol.
func (b Boundary) Contains(world geom.Vec3, tol float64) bool {
	o := b.Overshoot(world)
	return o.X <= tol && o.Y <= tol
}

// fit summarizes how one instance sits in the boundary frame.
type fit struct {
	// over is the worst per-axis overshoot across all slots.
	over geom.Vec2

	// reach is the largest per-axis distance of a slot from the instance
	// origin.
	reach geom.Vec2

	// span is the per-axis extent of the slots.
	span geom.Vec2
}

func (f fit) inside(tol float64) bool { return f.over.X <= tol && f.over.Y <= tol }

// measure evaluates inst against b using the world placement given by frame.
// An empty instance always fits.
func measure(b Boundary, frame formation.Frame, inst *formation.Instance) fit {
	if inst.Empty() {
		return fit{over: b.Half().Scale(-1)}
	}
	origin := b.Local(frame.World(inst.Offset.Vec3()))
	out := fit{over: geom.V2(math.Inf(-1), math.Inf(-1))}
	lo := geom.V2(math.Inf(1), math.Inf(1))
	hi := geom.V2(math.Inf(-1), math.Inf(-1))
	for _, s := range inst.Slots {
		q := b.Local(frame.SlotWorld(s))
		out.over = out.over.Max(q.Abs().Sub(b.Half()))
		out.reach = out.reach.Max(q.Sub(origin).Abs())
		lo = lo.Min(q)
		hi = hi.Max(q)
	}
	out.span = hi.Sub(lo)
	return out
}

// WithinBounds reports whether every slot of every instance lies inside b.
func WithinBounds(b Boundary, frame formation.Frame, instances []*formation.Instance, tol float64) bool {
	for _, in := range instances {
		if !measure(b, frame, in).inside(tol) {
			return false
		}
	}
	return true
}
