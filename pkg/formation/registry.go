package formation

import (
	"math"
	"slices"

	"github.com/kamstrup/intmap"

	"github.com/matzehuels/formation/pkg/geom"
)

// Registry is the set of slots of one generation together with their
// occupancy. It is rebuilt from scratch on every regeneration; slots of an
// older generation are foreign to it and every mutating call treats them as
// a no-op.
//
// A Registry is not safe for concurrent use. The engine serializes access.
type Registry struct {
	instances []*Instance
	slots     []*Slot
	frame     FrameSource

	// occupant -> slots it holds, in occupation order
	held *intmap.Map[Occupant, []*Slot]
	busy int
}

// NewRegistry registers every slot of instances, in instance order then
// slot order. The frame source is consulted on each world-position query.
func NewRegistry(instances []*Instance, frame FrameSource) *Registry {
	n := 0
	for _, in := range instances {
		n += len(in.Slots)
	}
	r := &Registry{
		instances: instances,
		slots:     make([]*Slot, 0, n),
		frame:     frame,
		held:      intmap.New[Occupant, []*Slot](max(n, 8)),
	}
	for _, in := range instances {
		for _, s := range in.Slots {
			s.id = len(r.slots)
			s.occupant = NoOccupant
			r.slots = append(r.slots, s)
		}
	}
	return r
}

// Instances returns the registered instances in index order.
func (r *Registry) Instances() []*Instance { return r.instances }

// Slots returns every registered slot in registration order.
func (r *Registry) Slots() []*Slot { return r.slots }

// Len returns the total number of slots.
func (r *Registry) Len() int { return len(r.slots) }

// OccupiedCount returns the number of occupied slots.
func (r *Registry) OccupiedCount() int { return r.busy }

// Slot returns the slot with the given flat ID.
func (r *Registry) Slot(id int) (*Slot, bool) {
	if id < 0 || id >= len(r.slots) {
		return nil, false
	}
	return r.slots[id], true
}

// Owns reports whether s belongs to this generation.
func (r *Registry) Owns(s *Slot) bool {
	return s != nil && s.id >= 0 && s.id < len(r.slots) && r.slots[s.id] == s
}

// TryOccupy claims the first free slot in registration order for o and
// returns it, or nil if every slot is taken.
func (r *Registry) TryOccupy(o Occupant) *Slot {
	if o == NoOccupant {
		return nil
	}
	for _, s := range r.slots {
		if !s.Occupied() {
			r.occupy(s, o)
			return s
		}
	}
	return nil
}

// TryOccupyInFormation claims the first free slot of one instance. An
// out-of-range index returns nil.
func (r *Registry) TryOccupyInFormation(o Occupant, index int) *Slot {
	if o == NoOccupant || index < 0 || index >= len(r.instances) {
		return nil
	}
	for _, s := range r.instances[index].Slots {
		if r.Owns(s) && !s.Occupied() {
			r.occupy(s, o)
			return s
		}
	}
	return nil
}

// OccupySpecific claims s for o. It fails if s is nil, foreign or already
// occupied.
func (r *Registry) OccupySpecific(s *Slot, o Occupant) bool {
	if o == NoOccupant || !r.Owns(s) || s.Occupied() {
		return false
	}
	r.occupy(s, o)
	return true
}

// Release frees s. Releasing nil, a foreign slot or a free slot does
// nothing.
func (r *Registry) Release(s *Slot) {
	if !r.Owns(s) || !s.Occupied() {
		return
	}
	o := s.occupant
	s.occupant = NoOccupant
	r.busy--

	held, _ := r.held.Get(o)
	held = slices.DeleteFunc(held, func(h *Slot) bool { return h == s })
	if len(held) == 0 {
		r.held.Del(o)
		return
	}
	r.held.Put(o, held)
}

// SlotsOf returns the slots o currently holds.
func (r *Registry) SlotsOf(o Occupant) []*Slot {
	held, _ := r.held.Get(o)
	return slices.Clone(held)
}

// ReleaseOccupant frees every slot o holds and returns how many were freed.
func (r *Registry) ReleaseOccupant(o Occupant) int {
	held, ok := r.held.Get(o)
	if !ok {
		return 0
	}
	for _, s := range slices.Clone(held) {
		r.Release(s)
	}
	return len(held)
}

// Occupants returns the number of distinct occupants holding slots.
func (r *Registry) Occupants() int { return r.held.Len() }

// WorldPosition resolves s against the current frame. Nil yields the zero
// vector.
func (r *Registry) WorldPosition(s *Slot) geom.Vec3 {
	if s == nil {
		return geom.Vec3{}
	}
	return r.frame.Frame().SlotWorld(s)
}

// NearestAvailable returns the free slot whose world position is closest to
// pos, or nil if none is free. Ties go to the earlier slot.
func (r *Registry) NearestAvailable(pos geom.Vec3) *Slot {
	f := r.frame.Frame()
	var best *Slot
	bestDist := math.Inf(1)
	for _, s := range r.slots {
		if s.Occupied() {
			continue
		}
		if d := f.SlotWorld(s).DistSq(pos); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

// AvailableSlots returns every free slot in registration order.
func (r *Registry) AvailableSlots() []*Slot {
	return free(r.slots)
}

// AvailableSlotsInFormation returns the free slots of one instance. An
// out-of-range index yields an empty list.
func (r *Registry) AvailableSlotsInFormation(index int) []*Slot {
	if index < 0 || index >= len(r.instances) {
		return []*Slot{}
	}
	return free(r.instances[index].Slots)
}

func (r *Registry) occupy(s *Slot, o Occupant) {
	s.occupant = o
	r.busy++
	held, _ := r.held.Get(o)
	r.held.Put(o, append(held, s))
}

func free(slots []*Slot) []*Slot {
	out := make([]*Slot, 0, len(slots))
	for _, s := range slots {
		if !s.Occupied() {
			out = append(out, s)
		}
	}
	return out
}
