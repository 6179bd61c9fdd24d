package geom

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRotationApply(t *testing.T) {
	tests := []struct {
		name string
		r    Rotation
		in   Vec3
		want Vec3
	}{
		{"identity", Rotation{}, V3(1, 2, 3), V3(1, 2, 3)},
		{"quarter", Yaw(math.Pi / 2), V3(1, 0, 5), V3(0, 1, 5)},
		{"half", Yaw(math.Pi), V3(1, 1, 0), V3(-1, -1, 0)},
	}
	for _, tt := range tests {
		got := tt.r.Apply(tt.in)
		if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) || got.Z != tt.want.Z {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRotationInverse(t *testing.T) {
	r := Yaw(0.7)
	p := V3(3, -2, 1)
	back := r.Inverse().Apply(r.Apply(p))
	if !near(back.X, p.X) || !near(back.Y, p.Y) {
		t.Fatalf("inverse round trip: got %v, want %v", back, p)
	}
}

func TestFromDirection(t *testing.T) {
	if got := FromDirection(V2(0, 1)); !near(got.Yaw, 0) {
		t.Errorf("north: yaw %v, want 0", got.Yaw)
	}
	if got := FromDirection(Vec2{}); got.Yaw != 0 {
		t.Errorf("zero direction: yaw %v, want 0", got.Yaw)
	}

	// forward (+Y) must map onto the direction
	dir := V2(1, 1)
	fwd := FromDirection(dir).Apply2(V2(0, 1))
	if !near(fwd.X, math.Sqrt2/2) || !near(fwd.Y, math.Sqrt2/2) {
		t.Errorf("forward mapped to %v", fwd)
	}
}

func TestBoundsOf(t *testing.T) {
	if b := BoundsOf(nil); b != (Box{}) {
		t.Errorf("empty: got %v", b)
	}
	b := BoundsOf([]Vec3{V3(1, -2, 9), V3(-3, 4, 0), V3(0, 0, 0)})
	if b.Min != V2(-3, -2) || b.Max != V2(1, 4) {
		t.Fatalf("got %v", b)
	}
	if b.Size() != V2(4, 6) {
		t.Errorf("size %v", b.Size())
	}
	if b.Center() != V2(-1, 1) {
		t.Errorf("center %v", b.Center())
	}
	if tb := b.Translate(V2(1, 1)); tb.Min != V2(-2, -1) {
		t.Errorf("translate %v", tb)
	}
}

func TestVectorHelpers(t *testing.T) {
	if d := V3(0, 0, 0).Dist(V3(3, 4, 0)); d != 5 {
		t.Errorf("dist %v", d)
	}
	if !V2(1, 2).Finite() || V2(math.Inf(1), 0).Finite() || V3(0, math.NaN(), 0).Finite() {
		t.Error("finite")
	}
	if V2(1, 0).Positive() {
		t.Error("positive with zero component")
	}
	if got := V3(1, 2, 3).Translate(V2(1, 1)); got != V3(2, 3, 3) {
		t.Errorf("translate %v", got)
	}
	if !V2(1, 1).Eq(V2(1+1e-10, 1), 1e-9) {
		t.Error("eq within eps")
	}
}
