package errors

import (
	"math"
	"testing"
)

func TestValidateCount(t *testing.T) {
	tests := []struct {
		name    string
		input   int
		wantErr bool
	}{
		{"zero", 0, false},
		{"negative degenerates", -3, false},
		{"typical", 12, false},
		{"at max", MaxSlotCount, false},

		{"too large", MaxSlotCount + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCount("count", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCount(%d) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidSettings) {
				t.Errorf("ValidateCount(%d) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidSettings)
			}
		})
	}
}

func TestValidateSpacing(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"positive", 2.5, false},

		{"negative", -1, true},
		{"NaN", math.NaN(), true},
		{"+Inf", math.Inf(1), true},
		{"-Inf", math.Inf(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpacing("spacing", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSpacing(%g) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFraction(t *testing.T) {
	tests := []struct {
		input   float64
		wantErr bool
	}{
		{0.5, false},
		{1, false},
		{0.0001, false},

		{0, true},
		{-0.1, true},
		{1.01, true},
		{math.NaN(), true},
	}

	for _, tt := range tests {
		err := ValidateFraction("damping", tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFraction(%g) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err != nil && GetCode(err) != ErrCodeInvalidTuning {
			t.Errorf("ValidateFraction(%g) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidTuning)
		}
	}
}

func TestValidateIterations(t *testing.T) {
	if err := ValidateIterations("iterations", 1); err != nil {
		t.Errorf("1 iteration should pass: %v", err)
	}
	if err := ValidateIterations("iterations", 0); err == nil {
		t.Error("0 iterations should fail")
	}
}

func TestValidateBoundary(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
		wantErr       bool
	}{
		{"typical", 60, 40, false},
		{"zero", 0, 0, false},

		{"negative width", -1, 10, true},
		{"negative height", 10, -1, true},
		{"NaN", math.NaN(), 10, true},
		{"Inf", 10, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBoundary(tt.width, tt.height)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBoundary(%g, %g) error = %v, wantErr %v", tt.width, tt.height, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidBoundary) {
				t.Errorf("unexpected code %v", GetCode(err))
			}
		})
	}
}
