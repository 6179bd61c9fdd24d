package engine

import (
	"math"
	"sync"

	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/settings"
)

// Host is the level/path collaborator that places the formation in the
// world. The engine queries it once per regeneration and again on every
// world-position lookup, so a moving anchor is followed without
// regenerating.
type Host interface {
	// Anchor is the world-space point instance offsets are relative to.
	Anchor() geom.Vec3

	// BoundarySize is the full width and height of the rectangle every slot
	// must lie in, centered on the anchor.
	BoundarySize() geom.Vec2

	// Orientation is the shared rotation of all instances, typically the
	// current travel direction.
	Orientation() geom.Rotation
}

// StaticHost is a Host whose values are set explicitly. It is safe for
// concurrent use.
type StaticHost struct {
	mu       sync.RWMutex
	anchor   geom.Vec3
	size     geom.Vec2
	rotation geom.Rotation
}

// NewStaticHost returns a host with the given anchor, boundary size and
// orientation.
func NewStaticHost(anchor geom.Vec3, size geom.Vec2, rotation geom.Rotation) *StaticHost {
	return &StaticHost{anchor: anchor, size: size, rotation: rotation}
}

// SceneHost returns a host for an offline scene description. Heading is
// converted from degrees.
func SceneHost(sc settings.Scene) *StaticHost {
	return NewStaticHost(sc.Anchor, sc.Size, sc.Rotation())
}

func (h *StaticHost) Anchor() geom.Vec3 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.anchor
}

func (h *StaticHost) BoundarySize() geom.Vec2 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *StaticHost) Orientation() geom.Rotation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rotation
}

// Move sets a new anchor.
func (h *StaticHost) Move(anchor geom.Vec3) {
	h.mu.Lock()
	h.anchor = anchor
	h.mu.Unlock()
}

// Face sets the orientation from a travel direction.
func (h *StaticHost) Face(dir geom.Vec2) {
	h.mu.Lock()
	h.rotation = geom.FromDirection(dir)
	h.mu.Unlock()
}

// Orient sets the orientation directly.
func (h *StaticHost) Orient(r geom.Rotation) {
	h.mu.Lock()
	h.rotation = r
	h.mu.Unlock()
}

// Resize sets a new boundary size. It takes effect on the next
// regeneration.
func (h *StaticHost) Resize(size geom.Vec2) {
	h.mu.Lock()
	h.size = size
	h.mu.Unlock()
}

// sceneOf describes host as a scene.
func sceneOf(h Host) settings.Scene {
	return settings.Scene{
		Anchor:  h.Anchor(),
		Size:    h.BoundarySize(),
		Heading: h.Orientation().Yaw * 180 / math.Pi,
	}
}

// hostFrame adapts a Host to formation.FrameSource.
type hostFrame struct{ host Host }

func (f hostFrame) Frame() formation.Frame {
	return formation.Frame{Anchor: f.host.Anchor(), Rotation: f.host.Orientation()}
}
