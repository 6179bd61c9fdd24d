package engine

import (
	"github.com/google/uuid"

	"github.com/matzehuels/formation/pkg/snapshot"
)

// Snapshot captures the current layout, including occupancy and world
// positions resolved against the host as it is now.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	frame := hostFrame{e.host}.Frame()
	out := &snapshot.Snapshot{
		Settings:  e.settings,
		Tuning:    e.tuning,
		Scene:     sceneOf(e.host),
		Instances: make([]snapshot.Instance, len(e.instances)),
		Solver: snapshot.Solver{
			Iterations: e.last.Report.Iterations,
			Converged:  e.last.Report.Converged,
			Fallback:   e.last.Report.Fallback,
			Separation: e.last.Separation.Distance,
		},
	}
	if e.generation != uuid.Nil {
		out.Generation = e.generation.String()
	}
	for i, in := range e.instances {
		si := snapshot.Instance{
			Index:   in.Index,
			Offset:  in.Offset,
			Spacing: in.Spacing,
			Bounds:  in.Bounds,
			Slots:   make([]snapshot.Slot, len(in.Slots)),
		}
		for j, s := range in.Slots {
			si.Slots[j] = snapshot.Slot{
				ID:       s.ID(),
				Index:    s.Index,
				Local:    s.Local,
				World:    frame.SlotWorld(s),
				Occupant: uint64(s.Occupant()),
			}
		}
		out.Instances[i] = si
	}
	return out
}
