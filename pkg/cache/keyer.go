package cache

import "math"

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey identifies a generated layout.
	LayoutKey(settingsHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered output of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the scene values that change a layout without
// changing its settings.
type LayoutKeyOpts struct {
	Anchor  [3]float64 `json:"anchor"`
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	Heading float64    `json:"heading"`
}

// ArtifactKeyOpts holds the render options of an artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
	Labels bool    `json:"labels,omitempty"`
}

// DefaultKeyer hashes its inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey returns "layout:<hash>".
func (DefaultKeyer) LayoutKey(settingsHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", settingsHash, normalizeLayout(opts))
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

// normalizeLayout folds -0 into 0 so equal scenes hash equally.
func normalizeLayout(o LayoutKeyOpts) LayoutKeyOpts {
	for i := range o.Anchor {
		o.Anchor[i] = zero(o.Anchor[i])
	}
	o.Width, o.Height = zero(o.Width), zero(o.Height)
	o.Heading = zero(math.Mod(o.Heading, 360))
	return o
}

func zero(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}
