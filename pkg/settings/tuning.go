package settings

import (
	"github.com/matzehuels/formation/pkg/errors"
)

// Tuning holds the constants of the boundary solver and the multi-instance
// layout. All values are tunable defaults.
type Tuning struct {
	// MinSpacingMultiplier is the floor no spacing multiplier shrinks below.
	MinSpacingMultiplier float64 `toml:"min_spacing_multiplier" json:"min_spacing_multiplier" bson:"min_spacing_multiplier"`

	// SeparationFactor scales the widest instance into the base separation
	// between instance centers.
	SeparationFactor float64 `toml:"separation_factor" json:"separation_factor" bson:"separation_factor"`

	// RowSpacingFactor scales the separation between rows of the K>4 grid.
	RowSpacingFactor float64 `toml:"row_spacing_factor" json:"row_spacing_factor" bson:"row_spacing_factor"`

	// ConstrainToBoundary enables the boundary solver. When false, instances
	// are generated and spread but never shrunk.
	ConstrainToBoundary bool `toml:"constrain_to_boundary" json:"constrain_to_boundary" bson:"constrain_to_boundary"`

	SingleInstanceIterations int `toml:"single_instance_iterations" json:"single_instance_iterations" bson:"single_instance_iterations"`
	MultiInstanceIterations  int `toml:"multi_instance_iterations" json:"multi_instance_iterations" bson:"multi_instance_iterations"`

	// Damping multiplies every single-instance reduction factor; the result
	// is then capped at DampingCap so each iteration shrinks at least a bit.
	Damping    float64 `toml:"damping" json:"damping" bson:"damping"`
	DampingCap float64 `toml:"damping_cap" json:"damping_cap" bson:"damping_cap"`

	// ProgressiveStart and ProgressiveEnd bound the uniform per-iteration
	// scale of the multi-instance pass, interpolated across the budget.
	ProgressiveStart float64 `toml:"progressive_start" json:"progressive_start" bson:"progressive_start"`
	ProgressiveEnd   float64 `toml:"progressive_end" json:"progressive_end" bson:"progressive_end"`

	// Safety margins of the boundary-filling grid.
	ConstrainedMargin   float64 `toml:"constrained_margin" json:"constrained_margin" bson:"constrained_margin"`
	UnconstrainedMargin float64 `toml:"unconstrained_margin" json:"unconstrained_margin" bson:"unconstrained_margin"`

	// MinGridSpacing is the hard floor of boundary-filling grid spacing.
	MinGridSpacing float64 `toml:"min_grid_spacing" json:"min_grid_spacing" bson:"min_grid_spacing"`

	// Tolerance absorbs floating point noise in containment checks.
	Tolerance float64 `toml:"tolerance" json:"tolerance" bson:"tolerance"`
}

// DefaultTuning returns the stock solver constants.
func DefaultTuning() Tuning {
	return Tuning{
		MinSpacingMultiplier:     0.3,
		SeparationFactor:         1.2,
		RowSpacingFactor:         0.8,
		ConstrainToBoundary:      true,
		SingleInstanceIterations: 20,
		MultiInstanceIterations:  15,
		Damping:                  0.9,
		DampingCap:               0.95,
		ProgressiveStart:         0.95,
		ProgressiveEnd:           0.85,
		ConstrainedMargin:        0.85,
		UnconstrainedMargin:      0.95,
		MinGridSpacing:           0.5,
		Tolerance:                1e-6,
	}
}

// GridMargin returns the safety margin the boundary-filling grid applies.
func (t Tuning) GridMargin() float64 {
	if t.ConstrainToBoundary {
		return t.ConstrainedMargin
	}
	return t.UnconstrainedMargin
}

// ProgressiveScale returns the uniform shrink factor for multi-instance
// iteration i, linearly interpolated from ProgressiveStart to ProgressiveEnd
// across the iteration budget.
func (t Tuning) ProgressiveScale(i int) float64 {
	n := t.MultiInstanceIterations
	if n <= 1 {
		return t.ProgressiveStart
	}
	f := float64(min(max(i, 0), n-1)) / float64(n-1)
	return t.ProgressiveStart + (t.ProgressiveEnd-t.ProgressiveStart)*f
}

// ClampMultiplier bounds m to [MinSpacingMultiplier, 1].
func (t Tuning) ClampMultiplier(m float64) float64 {
	return min(max(m, t.MinSpacingMultiplier), 1)
}

// Validate checks that the constants keep the solver terminating and
// monotone.
func (t Tuning) Validate() error {
	return errors.Join(
		errors.ValidateFraction("min_spacing_multiplier", t.MinSpacingMultiplier),
		errors.ValidateSpacing("separation_factor", t.SeparationFactor),
		errors.ValidateSpacing("row_spacing_factor", t.RowSpacingFactor),
		errors.ValidateIterations("single_instance_iterations", t.SingleInstanceIterations),
		errors.ValidateIterations("multi_instance_iterations", t.MultiInstanceIterations),
		errors.ValidateFraction("damping", t.Damping),
		strictFraction("damping_cap", t.DampingCap),
		strictFraction("progressive_start", t.ProgressiveStart),
		strictFraction("progressive_end", t.ProgressiveEnd),
		errors.ValidateFraction("constrained_margin", t.ConstrainedMargin),
		errors.ValidateFraction("unconstrained_margin", t.UnconstrainedMargin),
		errors.ValidateSpacing("min_grid_spacing", t.MinGridSpacing),
		errors.ValidateSpacing("tolerance", t.Tolerance),
	)
}

// strictFraction rejects 1: a shrink factor of one would never progress.
func strictFraction(field string, v float64) error {
	if err := errors.ValidateFraction(field, v); err != nil {
		return err
	}
	if v >= 1 {
		return errors.New(errors.ErrCodeInvalidTuning, "%s must be below 1: %g", field, v)
	}
	return nil
}
