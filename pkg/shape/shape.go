// Package shape generates the local-space slot positions of one formation
// instance.
//
// Generation is pure: the same settings, multiplier and environment always
// yield the same points in the same order. Shapes are laid out in the plane
// (X lateral, Y depth, Z = 0) around the instance origin.
//
// Degenerate parameters (a count, row or column of zero or less) produce an
// empty, non-nil slice rather than an error.
package shape

import (
	"math"

	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/settings"
)

// Env carries what the boundary-filling grid needs to know about the
// boundary it fills. Other shapes ignore it.
type Env struct {
	// Boundary is the full available boundary size.
	Boundary geom.Vec2

	// Margin is the fraction of the boundary the grid may use.
	Margin float64

	// MinSpacing is the hard floor of derived grid spacing.
	MinSpacing float64
}

// EnvFor builds the generation environment for a boundary from tuning.
func EnvFor(boundary geom.Vec2, t settings.Tuning) Env {
	return Env{
		Boundary:   boundary,
		Margin:     t.GridMargin(),
		MinSpacing: t.MinGridSpacing,
	}
}

// Generate returns the slot positions of one instance of s.Shape with all
// spacings scaled by multiplier.
func Generate(s settings.Settings, multiplier float64, env Env) []geom.Vec3 {
	switch s.Shape {
	case settings.VShape:
		return VShape(s.VCount, s.VSpacing.Scale(multiplier))
	case settings.Square:
		return Lattice(s.SquareSize, s.SquareSize, s.SquareSpacing.Scale(multiplier))
	case settings.Triangle:
		return Triangle(s.TriangleRows, s.TriangleSpacing.Scale(multiplier))
	case settings.Circle:
		return Circle(s.CircleCount, s.CircleRadius*multiplier)
	case settings.Grid:
		if s.GridFillsBoundary {
			return FillGrid(s.GridColumns, s.GridRows, s.GridSpacing, multiplier, env)
		}
		return Lattice(s.GridColumns, s.GridRows, s.GridSpacing.Scale(multiplier))
	}
	return []geom.Vec3{}
}

// VShape places count points in a V whose vertex sits at the origin.
// Point i lies at x = (i - count/2)·sp.X, y = |i - count/2|·sp.Y, using
// integer division so an odd count is symmetric about the vertex.
func VShape(count int, sp geom.Vec2) []geom.Vec3 {
	if count <= 0 {
		return []geom.Vec3{}
	}
	pts := make([]geom.Vec3, count)
	half := count / 2
	minY := math.Inf(1)
	for i := range pts {
		d := float64(i - half)
		pts[i] = geom.V3(d*sp.X, math.Abs(d)*sp.Y, 0)
		minY = min(minY, pts[i].Y)
	}
	for i := range pts {
		pts[i].Y -= minY
	}
	return pts
}

// Lattice places cols×rows points on a grid centered on the origin, row by
// row. Square formations are a lattice with cols == rows.
func Lattice(cols, rows int, sp geom.Vec2) []geom.Vec3 {
	if cols <= 0 || rows <= 0 {
		return []geom.Vec3{}
	}
	pts := make([]geom.Vec3, 0, cols*rows)
	cx := float64(cols-1) / 2
	cy := float64(rows-1) / 2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pts = append(pts, geom.V3((float64(c)-cx)*sp.X, (float64(r)-cy)*sp.Y, 0))
		}
	}
	return pts
}

// Triangle places rows rows of points; row r holds r+1 points centered on
// x = 0 at y = r·sp.Y.
func Triangle(rows int, sp geom.Vec2) []geom.Vec3 {
	if rows <= 0 {
		return []geom.Vec3{}
	}
	pts := make([]geom.Vec3, 0, rows*(rows+1)/2)
	for r := 0; r < rows; r++ {
		center := float64(r) / 2
		for c := 0; c <= r; c++ {
			pts = append(pts, geom.V3((float64(c)-center)*sp.X, float64(r)*sp.Y, 0))
		}
	}
	return pts
}

// Circle places count points evenly on a circle of the given radius,
// starting on +X and proceeding counter-clockwise.
func Circle(count int, radius float64) []geom.Vec3 {
	if count <= 0 {
		return []geom.Vec3{}
	}
	pts := make([]geom.Vec3, count)
	step := 2 * math.Pi / float64(count)
	for i := range pts {
		sin, cos := math.Sincos(float64(i) * step)
		pts[i] = geom.V3(cos*radius, sin*radius, 0)
	}
	return pts
}

// FillGrid lays out a grid whose spacing is derived from the boundary so the
// grid spans Margin of it. Derived spacing is scaled by multiplier and never
// drops below env.MinSpacing. If the grid still does not fit the safe area,
// it falls back to the standard spacing base·multiplier.
func FillGrid(cols, rows int, base geom.Vec2, multiplier float64, env Env) []geom.Vec3 {
	if cols <= 0 || rows <= 0 {
		return []geom.Vec3{}
	}
	standard := base.Scale(multiplier)
	safe := env.Boundary.Scale(env.Margin)

	sp := geom.V2(
		fillSpacing(safe.X, cols, standard.X, multiplier, env.MinSpacing),
		fillSpacing(safe.Y, rows, standard.Y, multiplier, env.MinSpacing),
	)
	extent := geom.V2(float64(cols-1)*sp.X, float64(rows-1)*sp.Y)
	if extent.X > safe.X+fitEpsilon || extent.Y > safe.Y+fitEpsilon {
		sp = standard
	}
	return Lattice(cols, rows, sp)
}

// fitEpsilon absorbs rounding when a derived spacing is multiplied back out.
const fitEpsilon = 1e-9

// fillSpacing spreads n points across span. A single point has no gaps, so
// the standard spacing is kept for that axis.
func fillSpacing(span float64, n int, standard, multiplier, floor float64) float64 {
	if n <= 1 {
		return standard
	}
	return max(span/float64(n-1)*multiplier, floor)
}

// Bounds returns the planar bounding box of points.
func Bounds(points []geom.Vec3) geom.Box {
	return geom.BoundsOf(points)
}
