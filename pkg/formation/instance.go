package formation

import (
	"github.com/matzehuels/formation/pkg/geom"
)

// Instance is one complete occurrence of a shape: its slots, its offset from
// the formation anchor and the spacing multiplier it was generated with.
type Instance struct {
	Index int

	// Offset is the instance center relative to the formation anchor, in the
	// unrotated formation frame.
	Offset geom.Vec2

	// Spacing is the multiplier applied to the shape's base spacing. It
	// lies in [Tuning.MinSpacingMultiplier, 1].
	Spacing float64

	// Bounds is the local bounding box of the slots.
	Bounds geom.Box

	Slots []*Slot
}

// NewInstance returns an empty instance at full spacing.
func NewInstance(index int) *Instance {
	return &Instance{Index: index, Spacing: 1, Slots: []*Slot{}}
}

// SetPoints replaces every slot of the instance with fresh, unoccupied
// slots at points and recomputes the bounds.
func (in *Instance) SetPoints(points []geom.Vec3) {
	slots := make([]*Slot, len(points))
	for i, p := range points {
		slots[i] = &Slot{Local: p, Index: i, inst: in, id: -1}
	}
	in.Slots = slots
	in.Bounds = geom.BoundsOf(points)
}

// Points returns the local slot positions.
func (in *Instance) Points() []geom.Vec3 {
	pts := make([]geom.Vec3, len(in.Slots))
	for i, s := range in.Slots {
		pts[i] = s.Local
	}
	return pts
}

// Size returns the width and height of the local bounds.
func (in *Instance) Size() geom.Vec2 { return in.Bounds.Size() }

// Empty reports whether the instance has no slots.
func (in *Instance) Empty() bool { return len(in.Slots) == 0 }

// Frame places the formation in the world: an anchor point and a shared
// orientation common to all instances.
type Frame struct {
	Anchor   geom.Vec3
	Rotation geom.Rotation
}

// World maps a position in the unrotated formation frame to world space.
func (f Frame) World(p geom.Vec3) geom.Vec3 {
	return f.Anchor.Add(f.Rotation.Apply(p))
}

// SlotWorld returns anchor + R·offset + R·local for s.
func (f Frame) SlotWorld(s *Slot) geom.Vec3 {
	return f.World(s.Offset())
}

// FrameSource supplies the current frame. It is queried on demand so the
// registry follows a moving anchor without being rebuilt.
type FrameSource interface {
	Frame() Frame
}

// StaticFrame is a FrameSource that never moves.
type StaticFrame Frame

// Frame implements FrameSource.
func (f StaticFrame) Frame() Frame { return Frame(f) }
