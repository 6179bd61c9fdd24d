package layout

import (
	"math/rand/v2"

	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/settings"
)

// NewRand returns the deterministic source Random placement draws from.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// Place sets the offset of a single instance inside boundary according to
// policy. Compass policies push the instance flush against the named sides;
// Random draws a uniform offset from the range that keeps the instance
// inside. On an axis where the instance is larger than the boundary the
// offset stays zero.
func Place(inst *formation.Instance, policy settings.PositionPolicy, boundary geom.Vec2, rng *rand.Rand) {
	lo, hi := offsetRange(inst, boundary)
	switch policy {
	case settings.Random:
		inst.Offset = geom.V2(draw(rng, lo.X, hi.X), draw(rng, lo.Y, hi.Y))
	case settings.Center:
		inst.Offset = geom.Vec2{}
	default:
		dir, ok := policy.Direction()
		if !ok {
			inst.Offset = geom.Vec2{}
			return
		}
		inst.Offset = geom.V2(flush(dir.X, lo.X, hi.X), flush(dir.Y, lo.Y, hi.Y))
	}
}

// Clamp pulls the offset of inst back into the range that keeps it inside
// boundary, leaving axes where it cannot fit unchanged.
func Clamp(inst *formation.Instance, boundary geom.Vec2) {
	lo, hi := offsetRange(inst, boundary)
	if lo.X <= hi.X {
		inst.Offset.X = min(max(inst.Offset.X, lo.X), hi.X)
	}
	if lo.Y <= hi.Y {
		inst.Offset.Y = min(max(inst.Offset.Y, lo.Y), hi.Y)
	}
}

// offsetRange returns the offsets for which the local bounds of inst stay
// within a boundary of the given size centered on the anchor.
func offsetRange(inst *formation.Instance, boundary geom.Vec2) (lo, hi geom.Vec2) {
	half := boundary.Half()
	lo = half.Scale(-1).Sub(inst.Bounds.Min)
	hi = half.Sub(inst.Bounds.Max)
	return lo, hi
}

func flush(d, lo, hi float64) float64 {
	if lo > hi {
		return 0
	}
	switch {
	case d > 0:
		return hi
	case d < 0:
		return lo
	}
	return min(max(0, lo), hi)
}

func draw(rng *rand.Rand, lo, hi float64) float64 {
	if lo > hi {
		return 0
	}
	return lo + rng.Float64()*(hi-lo)
}
