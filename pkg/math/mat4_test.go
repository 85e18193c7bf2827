package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestScale(t *testing.T) {
	m := Scale(2, 3, 4)

	if m[0] != 2 || m[5] != 3 || m[10] != 4 {
		t.Errorf("Scale diagonal: got (%f, %f, %f), want (2, 3, 4)", m[0], m[5], m[10])
	}
}

func TestTransformPoint(t *testing.T) {
	// Translate by (10, 20, 30)
	m := Translate(10, 20, 30)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScale(t *testing.T) {
	m := Scale(2, 2, 2)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2)) // 90 degrees
	p := [3]float32{1, 0, 0}           // Point on X axis
	result := m.TransformPoint(p)

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if abs(result[0]) > 0.001 || abs(result[1]) > 0.001 || abs(result[2]+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestPerspective(t *testing.T) {
	fov := float32(math.Pi / 4) // 45 degrees
	m := Perspective(fov, 1.0, 1.0, 1000.0)

	if m[11] != 1 {
		t.Errorf("Perspective [11] should be 1, got %f", m[11])
	}
	if m[15] != 0 {
		t.Errorf("Perspective [15] should be 0, got %f", m[15])
	}

	// Near plane maps to depth 0, far plane to depth 1.
	near := m.TransformPoint([3]float32{0, 0, 1})
	far := m.TransformPoint([3]float32{0, 0, 1000})
	if abs(near[2]) > 0.0001 || abs(far[2]-1) > 0.0001 {
		t.Errorf("Perspective depth: near %f, far %f", near[2], far[2])
	}
}

func TestLookAt(t *testing.T) {
	eye := Vec3{0, 0, -5}
	m := LookAt(eye, Vec3{}, Vec3{0, 1, 0})

	origin := m.TransformPoint(eye.Array())
	if abs(origin[0]) > 0.0001 || abs(origin[1]) > 0.0001 || abs(origin[2]) > 0.0001 {
		t.Errorf("eye should map to the origin, got %v", origin)
	}

	// Left-handed: the target is in front along +Z.
	target := m.TransformPoint([3]float32{0, 0, 0})
	if abs(target[2]-5) > 0.0001 {
		t.Errorf("target should be at z=5, got %v", target)
	}

	right := m.TransformPoint([3]float32{1, 0, 0})
	if right[0] <= 0 {
		t.Errorf("+X should stay on the right, got %v", right)
	}
}

func TestInverse(t *testing.T) {
	m := Translate(3, -2, 7).Mul(RotateY(0.7)).Mul(Scale(2, 3, 4))
	result := m.Mul(m.Inverse())
	id := Identity()

	for i := 0; i < 16; i++ {
		if abs(result[i]-id[i]) > 0.0001 {
			t.Errorf("M * inv(M) element %d: got %f, want %f", i, result[i], id[i])
		}
	}
}

func TestInverseSingular(t *testing.T) {
	if got := Scale(0, 1, 1).Inverse(); got != Identity() {
		t.Errorf("singular inverse should be identity, got %v", got)
	}
}

func TestScaleRotateTranslateOrder(t *testing.T) {
	// Scale first, then rotate, then translate.
	m := Translate(0, 8, -20).Mul(RotateY(float32(math.Pi / 2))).Mul(Scale(2, 1, 1))
	result := m.TransformPoint([3]float32{1, 0, 0})

	want := [3]float32{0, 8, -22}
	for i := range want {
		if abs(result[i]-want[i]) > 0.001 {
			t.Fatalf("SRT: got %v, want %v", result, want)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		x, lo, hi, want float32
	}{
		{0.05, 0.1, 3, 0.1},
		{3.5, 0.1, 3, 3},
		{1, 0.1, 3, 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.x, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.x, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestFract(t *testing.T) {
	if got := Fract(1.25); abs(got-0.25) > 1e-6 {
		t.Errorf("Fract(1.25) = %v, want 0.25", got)
	}
	if got := Fract(-0.25); abs(got-0.75) > 1e-6 {
		t.Errorf("Fract(-0.25) = %v, want 0.75", got)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
