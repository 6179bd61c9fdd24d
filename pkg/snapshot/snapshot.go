// Package snapshot is the serializable, read-only view of one generated
// layout.
//
// Snapshots carry everything a visualization or inspection layer needs:
// instances with their offsets, spacing and bounds, every slot in local and
// world space with its occupant, and the solver outcome. They are plain data
// with JSON and BSON tags so they can be written to disk, cached in Redis or
// stored in MongoDB unchanged.
//
// A snapshot is never fed back into an engine. Regenerating from the same
// settings and scene reproduces it.
package snapshot

import (
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/settings"
)

// Snapshot is one generated layout.
type Snapshot struct {
	Generation string            `json:"generation" bson:"generation"`
	Settings   settings.Settings `json:"settings" bson:"settings"`
	Tuning     settings.Tuning   `json:"tuning" bson:"tuning"`
	Scene      settings.Scene    `json:"scene" bson:"scene"`
	Instances  []Instance        `json:"instances" bson:"instances"`
	Solver     Solver            `json:"solver" bson:"solver"`
}

// Instance is one formation instance.
type Instance struct {
	Index   int       `json:"index" bson:"index"`
	Offset  geom.Vec2 `json:"offset" bson:"offset"`
	Spacing float64   `json:"spacing" bson:"spacing"`
	Bounds  geom.Box  `json:"bounds" bson:"bounds"`
	Slots   []Slot    `json:"slots" bson:"slots"`
}

// Slot is one slot with its resolved world position.
type Slot struct {
	ID       int       `json:"id" bson:"id"`
	Index    int       `json:"index" bson:"index"`
	Local    geom.Vec3 `json:"local" bson:"local"`
	World    geom.Vec3 `json:"world" bson:"world"`
	Occupant uint64    `json:"occupant,omitempty" bson:"occupant,omitempty"`
}

// Occupied reports whether the slot was held when the snapshot was taken.
func (s Slot) Occupied() bool { return s.Occupant != 0 }

// Solver records how the boundary solver finished.
type Solver struct {
	Iterations int     `json:"iterations" bson:"iterations"`
	Converged  bool    `json:"converged" bson:"converged"`
	Fallback   bool    `json:"fallback" bson:"fallback"`
	Separation float64 `json:"separation" bson:"separation"`
}

// SlotCount returns the total number of slots.
func (s *Snapshot) SlotCount() int {
	n := 0
	for _, in := range s.Instances {
		n += len(in.Slots)
	}
	return n
}

// OccupiedCount returns the number of occupied slots.
func (s *Snapshot) OccupiedCount() int {
	n := 0
	for _, in := range s.Instances {
		for _, sl := range in.Slots {
			if sl.Occupied() {
				n++
			}
		}
	}
	return n
}

// WorldBounds returns the planar bounding box of every slot in world space.
func (s *Snapshot) WorldBounds() geom.Box {
	var pts []geom.Vec3
	for _, in := range s.Instances {
		for _, sl := range in.Slots {
			pts = append(pts, sl.World)
		}
	}
	return geom.BoundsOf(pts)
}
