// Package geom provides the small vector and rotation types used by the
// formation engine.
//
// Formations live in a plane: X is lateral (east), Y is depth (north) and Z is
// the up axis. Rotations are yaw-only, about Z, which is all a path-following
// orientation needs.
package geom

import "math"

// Vec2 is a 2D vector used for instance offsets and boundary extents.
type Vec2 struct {
	X float64 `json:"x" toml:"x" bson:"x"`
	Y float64 `json:"y" toml:"y" bson:"y"`
}

// Vec3 is a 3D vector used for slot and anchor positions.
type Vec3 struct {
	X float64 `json:"x" toml:"x" bson:"x"`
	Y float64 `json:"y" toml:"y" bson:"y"`
	Z float64 `json:"z" toml:"z" bson:"z"`
}

// V2 is shorthand for Vec2{x, y}.
func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec2) Add(o Vec2) Vec2       { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2       { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2  { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Half() Vec2            { return v.Scale(0.5) }
func (v Vec2) Len() float64          { return math.Hypot(v.X, v.Y) }
func (v Vec2) Vec3() Vec3            { return Vec3{X: v.X, Y: v.Y} }
func (v Vec3) Add(o Vec3) Vec3       { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3       { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3  { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Flat() Vec2            { return Vec2{v.X, v.Y} }
func (v Vec3) Translate(o Vec2) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z} }
func (v Vec2) Finite() bool          { return finite(v.X) && finite(v.Y) }
func (v Vec3) Finite() bool          { return finite(v.X) && finite(v.Y) && finite(v.Z) }
func (v Vec2) Positive() bool        { return v.X > 0 && v.Y > 0 }
func (v Vec2) Abs() Vec2             { return Vec2{math.Abs(v.X), math.Abs(v.Y)} }
func (v Vec2) Max(o Vec2) Vec2       { return Vec2{max(v.X, o.X), max(v.Y, o.Y)} }
func (v Vec2) Min(o Vec2) Vec2       { return Vec2{min(v.X, o.X), min(v.Y, o.Y)} }

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return math.Sqrt(v.DistSq(o)) }

// DistSq returns the squared distance between v and o.
func (v Vec3) DistSq(o Vec3) float64 {
	d := v.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

func (v Vec2) Eq(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Rotation is a yaw about the Z axis, in radians, counter-clockwise.
// The zero value is the identity.
type Rotation struct {
	Yaw float64 `json:"yaw" toml:"yaw" bson:"yaw"`
}

// Yaw returns a rotation of rad radians.
func Yaw(rad float64) Rotation { return Rotation{Yaw: rad} }

// FromDirection returns the rotation that maps +Y (formation forward) onto
// dir. A zero direction yields the identity.
func FromDirection(dir Vec2) Rotation {
	if dir.X == 0 && dir.Y == 0 {
		return Rotation{}
	}
	return Rotation{Yaw: math.Atan2(dir.Y, dir.X) - math.Pi/2}
}

// Apply rotates v about the Z axis.
func (r Rotation) Apply(v Vec3) Vec3 {
	if r.Yaw == 0 {
		return v
	}
	sin, cos := math.Sincos(r.Yaw)
	return Vec3{
		X: cos*v.X - sin*v.Y,
		Y: sin*v.X + cos*v.Y,
		Z: v.Z,
	}
}

// Apply2 rotates a planar vector.
func (r Rotation) Apply2(v Vec2) Vec2 { return r.Apply(v.Vec3()).Flat() }

// Inverse returns the opposite rotation.
func (r Rotation) Inverse() Rotation { return Rotation{Yaw: -r.Yaw} }

// Box is an axis-aligned rectangle in the plane.
type Box struct {
	Min Vec2 `json:"min" bson:"min"`
	Max Vec2 `json:"max" bson:"max"`
}

// Size returns the box width and height.
func (b Box) Size() Vec2 { return b.Max.Sub(b.Min) }

// Center returns the midpoint of the box.
func (b Box) Center() Vec2 { return b.Min.Add(b.Max).Half() }

// Translate shifts the box by o.
func (b Box) Translate(o Vec2) Box { return Box{Min: b.Min.Add(o), Max: b.Max.Add(o)} }

// BoundsOf returns the planar bounding box of points. Empty input yields the
// zero box.
func BoundsOf(points []Vec3) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{Min: points[0].Flat(), Max: points[0].Flat()}
	for _, p := range points[1:] {
		b.Min = b.Min.Min(p.Flat())
		b.Max = b.Max.Max(p.Flat())
	}
	return b
}
