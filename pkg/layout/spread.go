package layout

import (
	"math"

	"github.com/matzehuels/formation/pkg/formation"
	"github.com/matzehuels/formation/pkg/geom"
	"github.com/matzehuels/formation/pkg/settings"
)

// Separation describes the offsets Spread assigned.
type Separation struct {
	// Base is the separation before boundary reduction: the widest instance
	// times the separation factor.
	Base float64 `json:"base"`

	// Reduction is the factor in [0, 1] applied to Base so the footprint
	// fits the boundary. It is zero only for a zero-sized boundary.
	Reduction float64 `json:"reduction"`

	// Distance is Base × Reduction.
	Distance float64 `json:"distance"`

	// Columns and Rows describe the arrangement. Fewer than five instances
	// use the fixed patterns and report a single row, except the 2×2 square.
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// Spread assigns offsets to instances by closed form:
//
//	K=2  ±1.25·sep on X
//	K=3  -2·sep, 0, +2·sep on X
//	K=4  (±0.5·sep, ±0.5·sep)
//	K>4  ceil(√K) columns, rows spaced by sep·RowSpacingFactor
//
// sep starts at the widest instance times SeparationFactor and is reduced
// when the resulting footprint, including the widest and tallest instance,
// exceeds boundary. Single-row patterns only check the width: their offsets
// have no Y component, so shrinking sep cannot help a tall instance fit and
// the solver handles that by shrinking spacing. A single instance is left
// untouched; see Place.
func Spread(instances []*formation.Instance, boundary geom.Vec2, t settings.Tuning) Separation {
	k := len(instances)
	if k <= 1 {
		return Separation{Reduction: 1, Columns: k, Rows: k}
	}

	extent := maxExtent(instances)
	base := extent.X * t.SeparationFactor
	sep := Separation{Base: base, Reduction: 1, Columns: k, Rows: 1}

	var foot geom.Vec2
	switch {
	case k == 2:
		foot = geom.V2(2.5*base, 0)
	case k == 3:
		foot = geom.V2(4*base, 0)
	case k == 4:
		sep.Columns, sep.Rows = 2, 2
		foot = geom.V2(base, base)
	default:
		sep.Columns = int(math.Ceil(math.Sqrt(float64(k))))
		sep.Rows = (k + sep.Columns - 1) / sep.Columns
		foot = geom.V2(
			float64(sep.Columns-1)*base,
			float64(sep.Rows-1)*base*t.RowSpacingFactor,
		)
	}
	required := foot.Add(extent)
	if sep.Rows == 1 {
		required.Y = 0
	}
	sep.Reduction = reduction(required, boundary)
	sep.Distance = base * sep.Reduction
	d := sep.Distance

	switch {
	case k == 2:
		instances[0].Offset = geom.V2(-1.25*d, 0)
		instances[1].Offset = geom.V2(1.25*d, 0)
	case k == 3:
		for i, in := range instances {
			in.Offset = geom.V2(float64(i-1)*2*d, 0)
		}
	case k == 4:
		h := 0.5 * d
		instances[0].Offset = geom.V2(-h, h)
		instances[1].Offset = geom.V2(h, h)
		instances[2].Offset = geom.V2(-h, -h)
		instances[3].Offset = geom.V2(h, -h)
	default:
		cx := float64(sep.Columns-1) / 2
		cy := float64(sep.Rows-1) / 2
		rowSep := d * t.RowSpacingFactor
		for i, in := range instances {
			col, row := i%sep.Columns, i/sep.Columns
			in.Offset = geom.V2((float64(col)-cx)*d, (cy-float64(row))*rowSep)
		}
	}
	return sep
}

// reduction returns the largest factor in [0, 1] that brings required
// within available on both axes. Axes with no requirement are ignored.
func reduction(required, available geom.Vec2) float64 {
	r := 1.0
	if required.X > available.X && required.X > 0 {
		r = min(r, available.X/required.X)
	}
	if required.Y > available.Y && required.Y > 0 {
		r = min(r, available.Y/required.Y)
	}
	return max(r, 0)
}

// maxExtent returns the widest width and tallest height across instances.
func maxExtent(instances []*formation.Instance) geom.Vec2 {
	var out geom.Vec2
	for _, in := range instances {
		out = out.Max(in.Size())
	}
	return out
}
