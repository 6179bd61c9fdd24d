// Package formation holds the runtime model of a formation layout: instances,
// their slots and the registry that tracks who occupies which slot.
//
// Slots are created wholesale whenever an instance is (re)generated and are
// never migrated across generations. Occupants are opaque handles owned by
// the caller; the registry only remembers them and never manages their
// lifetime.
package formation

import (
	"github.com/matzehuels/formation/pkg/geom"
)

// Occupant is an opaque, non-owning handle to whatever holds a slot (an
// actor ID, an entity index). The zero value means "no occupant".
type Occupant uint64

// NoOccupant is the empty handle.
const NoOccupant Occupant = 0

// Slot is a single occupiable position within a formation instance.
//
// Occupancy is derived from the stored handle, so a slot is occupied exactly
// when it holds an occupant.
type Slot struct {
	// Local is the position relative to the instance origin.
	Local geom.Vec3

	// Index is the position of the slot within its instance.
	Index int

	inst     *Instance
	id       int // flat registry index, -1 until registered
	occupant Occupant
}

// Occupied reports whether the slot holds an occupant.
func (s *Slot) Occupied() bool { return s.occupant != NoOccupant }

// Occupant returns the current occupant, or NoOccupant.
func (s *Slot) Occupant() Occupant { return s.occupant }

// InstanceIndex returns the index of the owning instance.
func (s *Slot) InstanceIndex() int { return s.inst.Index }

// Instance returns the owning instance.
func (s *Slot) Instance() *Instance { return s.inst }

// ID returns the flat registry index of the slot, or -1 if the slot was
// never registered.
func (s *Slot) ID() int { return s.id }

// Offset returns the slot position relative to the formation anchor in the
// unrotated formation frame.
func (s *Slot) Offset() geom.Vec3 { return s.Local.Translate(s.inst.Offset) }
