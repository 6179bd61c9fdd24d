// Package settings defines the configuration of a formation layout.
//
// A [Settings] value describes what to generate: the shape, its per-shape
// parameters, how many instances to place and where. It is a plain comparable
// value, so a host can detect a real change with == (see [Settings.Equal])
// and skip redundant regeneration.
//
// [Tuning] holds the solver constants. They are empirically chosen defaults,
// not contracts, and can be overridden per engine or from a TOML file (see
// [Load]).
package settings

import (
	"fmt"
	"strings"

	"github.com/matzehuels/formation/pkg/errors"
	"github.com/matzehuels/formation/pkg/geom"
)

// =============================================================================
// Shape
// =============================================================================

// Shape identifies a formation shape.
type Shape int

const (
	VShape Shape = iota
	Square
	Triangle
	Circle
	Grid
)

var shapeNames = []string{"vshape", "square", "triangle", "circle", "grid"}

// Shapes lists all shapes in declaration order.
var Shapes = []Shape{VShape, Square, Triangle, Circle, Grid}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool { return s >= 0 && int(s) < len(shapeNames) }

// SingleInstance reports whether the shape always produces exactly one
// instance regardless of the configured instance count.
func (s Shape) SingleInstance() bool { return s == Grid || s == VShape }

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidShape, "unknown shape: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseShape parses a shape name. Matching is case-insensitive and accepts
// "v" and "v-shape" as aliases.
func ParseShape(name string) (Shape, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "v", "v-shape", "v_shape":
		return VShape, nil
	}
	for i, sn := range shapeNames {
		if n == sn {
			return Shape(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidShape, "invalid shape: %q (must be one of: %s)", name, strings.Join(shapeNames, ", "))
}

// =============================================================================
// PositionPolicy
// =============================================================================

// PositionPolicy selects where a single formation instance sits inside the
// boundary.
type PositionPolicy int

const (
	Center PositionPolicy = iota
	Random
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var policyNames = []string{
	"center", "random",
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
}

func (p PositionPolicy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("policy(%d)", int(p))
	}
	return policyNames[p]
}

// Valid reports whether p is a known policy.
func (p PositionPolicy) Valid() bool { return p >= 0 && int(p) < len(policyNames) }

// Direction returns the unit compass direction of p, with +Y as north and
// +X as east. Center and Random have no direction.
func (p PositionPolicy) Direction() (geom.Vec2, bool) {
	switch p {
	case North:
		return geom.V2(0, 1), true
	case NorthEast:
		return geom.V2(1, 1), true
	case East:
		return geom.V2(1, 0), true
	case SouthEast:
		return geom.V2(1, -1), true
	case South:
		return geom.V2(0, -1), true
	case SouthWest:
		return geom.V2(-1, -1), true
	case West:
		return geom.V2(-1, 0), true
	case NorthWest:
		return geom.V2(-1, 1), true
	}
	return geom.Vec2{}, false
}

// MarshalText implements encoding.TextMarshaler.
func (p PositionPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidPolicy, "unknown position policy: %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PositionPolicy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePolicy parses a position policy name. Compass names may be written
// with a separator ("north-east", "north_east") or abbreviated ("ne").
func ParsePolicy(name string) (PositionPolicy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", "", "_", "", " ", "").Replace(n)
	abbrev := map[string]PositionPolicy{
		"n": North, "ne": NorthEast, "e": East, "se": SouthEast,
		"s": South, "sw": SouthWest, "w": West, "nw": NorthWest,
	}
	if p, ok := abbrev[n]; ok {
		return p, nil
	}
	for i, pn := range policyNames {
		if n == pn {
			return PositionPolicy(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidPolicy, "invalid position policy: %q", name)
}

// =============================================================================
// Settings
// =============================================================================

// Settings configures one generation of a formation layout.
// The zero value generates nothing; start from [Defaults].
type Settings struct {
	Shape Shape `toml:"shape" json:"shape" bson:"shape"`

	// V-shape
	VCount   int       `toml:"v_count" json:"v_count,omitempty" bson:"v_count,omitempty"`
	VSpacing geom.Vec2 `toml:"v_spacing" json:"v_spacing" bson:"v_spacing"`

	// Square
	SquareSize    int       `toml:"square_size" json:"square_size,omitempty" bson:"square_size,omitempty"`
	SquareSpacing geom.Vec2 `toml:"square_spacing" json:"square_spacing" bson:"square_spacing"`

	// Triangle
	TriangleRows    int       `toml:"triangle_rows" json:"triangle_rows,omitempty" bson:"triangle_rows,omitempty"`
	TriangleSpacing geom.Vec2 `toml:"triangle_spacing" json:"triangle_spacing" bson:"triangle_spacing"`

	// Circle
	CircleCount  int     `toml:"circle_count" json:"circle_count,omitempty" bson:"circle_count,omitempty"`
	CircleRadius float64 `toml:"circle_radius" json:"circle_radius,omitempty" bson:"circle_radius,omitempty"`

	// Grid
	GridColumns       int       `toml:"grid_columns" json:"grid_columns,omitempty" bson:"grid_columns,omitempty"`
	GridRows          int       `toml:"grid_rows" json:"grid_rows,omitempty" bson:"grid_rows,omitempty"`
	GridSpacing       geom.Vec2 `toml:"grid_spacing" json:"grid_spacing" bson:"grid_spacing"`
	GridFillsBoundary bool      `toml:"grid_fills_boundary" json:"grid_fills_boundary,omitempty" bson:"grid_fills_boundary,omitempty"`

	// Instances is the requested number of formation instances. Grid and
	// V-shape always produce one; see InstanceCount.
	Instances int            `toml:"instances" json:"instances" bson:"instances"`
	Position  PositionPolicy `toml:"position" json:"position" bson:"position"`

	// Seed drives the Random position policy. Shapes themselves are never
	// randomized.
	Seed uint64 `toml:"seed" json:"seed,omitempty" bson:"seed,omitempty"`
}

// Default parameter values.
const (
	DefaultVCount        = 5
	DefaultSquareSize    = 3
	DefaultTriangleRows  = 3
	DefaultCircleCount   = 8
	DefaultCircleRadius  = 5.0
	DefaultGridColumns   = 4
	DefaultGridRows      = 3
	DefaultSpacing       = 2.0
	DefaultInstanceCount = 1
	DefaultSeed          = uint64(42)
)

// Defaults returns settings for a single centered five-slot V.
func Defaults() Settings {
	sp := geom.V2(DefaultSpacing, DefaultSpacing)
	return Settings{
		Shape:           VShape,
		VCount:          DefaultVCount,
		VSpacing:        sp,
		SquareSize:      DefaultSquareSize,
		SquareSpacing:   sp,
		TriangleRows:    DefaultTriangleRows,
		TriangleSpacing: sp,
		CircleCount:     DefaultCircleCount,
		CircleRadius:    DefaultCircleRadius,
		GridColumns:     DefaultGridColumns,
		GridRows:        DefaultGridRows,
		GridSpacing:     sp,
		Instances:       DefaultInstanceCount,
		Position:        Center,
		Seed:            DefaultSeed,
	}
}

// Equal reports whether s and o describe the same layout.
func (s Settings) Equal(o Settings) bool { return s == o }

// InstanceCount resolves the number of instances to generate. Grid and
// V-shape are forced to one; negative counts resolve to zero.
func (s Settings) InstanceCount() int {
	if s.Shape.SingleInstance() {
		return 1
	}
	return max(s.Instances, 0)
}

// SlotsPerInstance returns the number of slots one instance of the
// configured shape holds. Degenerate parameters yield zero.
func (s Settings) SlotsPerInstance() int {
	switch s.Shape {
	case VShape:
		return max(s.VCount, 0)
	case Square:
		n := max(s.SquareSize, 0)
		return n * n
	case Triangle:
		r := max(s.TriangleRows, 0)
		return r * (r + 1) / 2
	case Circle:
		return max(s.CircleCount, 0)
	case Grid:
		if s.GridColumns <= 0 || s.GridRows <= 0 {
			return 0
		}
		return s.GridColumns * s.GridRows
	}
	return 0
}

// TotalSlots returns the number of slots the settings generate across all
// instances. Callers must have bounded each parameter by
// [errors.MaxSlotCount] first, which keeps the product within int64.
func (s Settings) TotalSlots() int64 {
	return int64(s.SlotsPerInstance()) * int64(s.InstanceCount())
}

// Validate checks for values that cannot be generated. Zero and negative
// counts are legal and produce empty instances.
func (s Settings) Validate() error {
	if !s.Shape.Valid() {
		return errors.New(errors.ErrCodeInvalidShape, "unknown shape: %d", int(s.Shape))
	}
	if !s.Position.Valid() {
		return errors.New(errors.ErrCodeInvalidPolicy, "unknown position policy: %d", int(s.Position))
	}
	if err := errors.Join(
		errors.ValidateCount("v_count", s.VCount),
		errors.ValidateCount("square_size", s.SquareSize),
		errors.ValidateCount("triangle_rows", s.TriangleRows),
		errors.ValidateCount("circle_count", s.CircleCount),
		errors.ValidateCount("grid_columns", s.GridColumns),
		errors.ValidateCount("grid_rows", s.GridRows),
		errors.ValidateCount("instances", s.Instances),
	); err != nil {
		return err
	}
	if n := s.TotalSlots(); n > errors.MaxSlotCount {
		return errors.New(errors.ErrCodeInvalidSettings,
			"%s × %d is %d slots (max %d)", s.Shape, s.InstanceCount(), n, errors.MaxSlotCount)
	}
	return errors.Join(
		errors.ValidateSpacing("v_spacing.x", s.VSpacing.X),
		errors.ValidateSpacing("v_spacing.y", s.VSpacing.Y),
		errors.ValidateSpacing("square_spacing.x", s.SquareSpacing.X),
		errors.ValidateSpacing("square_spacing.y", s.SquareSpacing.Y),
		errors.ValidateSpacing("triangle_spacing.x", s.TriangleSpacing.X),
		errors.ValidateSpacing("triangle_spacing.y", s.TriangleSpacing.Y),
		errors.ValidateSpacing("circle_radius", s.CircleRadius),
		errors.ValidateSpacing("grid_spacing.x", s.GridSpacing.X),
		errors.ValidateSpacing("grid_spacing.y", s.GridSpacing.Y),
	)
}
