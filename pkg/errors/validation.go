package errors

import (
	"math"
)

// MaxSlotCount bounds any single shape parameter and the total number of
// slots a layout may hold. A 10k-slot formation is already far past anything
// a frame budget can move.
const MaxSlotCount = 10000

// ValidateCount checks a shape count parameter.
//
// Zero and negative counts are accepted: they degenerate to an empty
// formation instance rather than failing. Only values that cannot be
// generated at all are rejected.
func ValidateCount(field string, n int) error {
	if n > MaxSlotCount {
		return New(ErrCodeInvalidSettings, "%s too large: %d (max %d)", field, n, MaxSlotCount)
	}
	return nil
}

// ValidateSpacing checks a spacing or radius value.
func ValidateSpacing(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidSettings, "%s must be finite", field)
	}
	if v < 0 {
		return New(ErrCodeInvalidSettings, "%s cannot be negative: %g", field, v)
	}
	return nil
}

// ValidateFraction checks that v lies in the half-open interval (0, 1].
func ValidateFraction(field string, v float64) error {
	if math.IsNaN(v) || v <= 0 || v > 1 {
		return New(ErrCodeInvalidTuning, "%s must be in (0, 1]: %g", field, v)
	}
	return nil
}

// ValidateIterations checks an iteration cap.
func ValidateIterations(field string, n int) error {
	if n < 1 {
		return New(ErrCodeInvalidTuning, "%s must be at least 1: %d", field, n)
	}
	return nil
}

// ValidateBoundary checks boundary extents.
//
// The boundary must be finite and non-negative on both axes. A zero-sized
// boundary is legal; everything is then collapsed by the solver's fallback.
func ValidateBoundary(width, height float64) error {
	for _, v := range []float64{width, height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidBoundary, "boundary extents must be finite")
		}
		if v < 0 {
			return New(ErrCodeInvalidBoundary, "boundary extents cannot be negative: %gx%g", width, height)
		}
	}
	return nil
}
