package gjk

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

func approx(a, b, tol float32) bool {
	return math32.Abs(a-b) < tol
}

func TestInitialMaxBitPattern(t *testing.T) {
	if bits := math.Float32bits(initialMax); bits != 0x5f7fffff {
		t.Errorf("Expected 0x5f7fffff, got %#x", bits)
	}
}

func TestOverlappingSpheres(t *testing.T) {
	a := NewSphere(2, rl.Vector3{})
	b := NewSphere(3, rl.Vector3{X: 4})

	c, ok := Check(a, b)
	if !ok {
		t.Fatal("Expected overlapping spheres to collide")
	}
	if !approx(c.Distance.X, 4-2-3, 1e-5) || c.Distance.Y != 0 || c.Distance.Z != 0 {
		t.Errorf("Expected distance (-1,0,0), got %v", c.Distance)
	}
	if !approx(c.PointA.X, 2, 1e-5) || !approx(c.PointB.X, 1, 1e-5) {
		t.Errorf("Expected surface points at x=2 and x=1, got %v %v", c.PointA, c.PointB)
	}
}

func TestOverlappingSpheresDiagonal(t *testing.T) {
	a := NewSphere(2, rl.Vector3{})
	b := NewSphere(2, rl.Vector3{X: 1, Y: 2, Z: 2})

	c, ok := Check(a, b)
	if !ok {
		t.Fatal("Expected overlapping spheres to collide")
	}
	// Centers are 3 apart, so the overlap is 1 along the center line.
	want := rl.Vector3{X: -1.0 / 3, Y: -2.0 / 3, Z: -2.0 / 3}
	if !approx(c.Distance.X, want.X, 1e-5) || !approx(c.Distance.Y, want.Y, 1e-5) || !approx(c.Distance.Z, want.Z, 1e-5) {
		t.Errorf("Expected distance %v, got %v", want, c.Distance)
	}
}

func TestSeparatedSpheres(t *testing.T) {
	a := NewSphere(1, rl.Vector3{})
	b := NewSphere(1, rl.Vector3{X: 5})

	if _, ok := Check(a, b); ok {
		t.Error("Expected spheres 3 apart not to collide")
	}

	b = NewSphere(1, rl.Vector3{X: 2.01})
	if _, ok := Check(a, b); ok {
		t.Error("Expected spheres just out of reach not to collide")
	}
}

func TestCylinderAgainstSphere(t *testing.T) {
	cyl := NewCylinder(1, 2, rl.Vector3{})
	s := NewSphere(1, rl.Vector3{X: 1.5, Y: 1})

	c, ok := Check(cyl, s)
	if !ok {
		t.Fatal("Expected the sphere to touch the cylinder side")
	}
	if !approx(c.Distance.X, -0.5, 1e-4) || !approx(c.Distance.Y, 0, 1e-4) {
		t.Errorf("Expected distance (-0.5,0,0), got %v", c.Distance)
	}
	if !approx(c.PointA.Y, 1, 1e-4) {
		t.Errorf("Expected the cylinder contact at the sphere's height, got %v", c.PointA)
	}

	far := NewSphere(1, rl.Vector3{X: 3, Y: 1})
	if _, ok := Check(cyl, far); ok {
		t.Error("Expected no contact 1 unit away from the cylinder")
	}
}

func TestBoxAgainstSphere(t *testing.T) {
	box := NewBox(1, 1, 1, rl.Vector3{})
	s := NewSphere(1, rl.Vector3{X: 1.5, Y: 0.2, Z: 0.3})

	c, ok := Check(box, s)
	if !ok {
		t.Fatal("Expected the sphere to touch the box face")
	}
	if !approx(c.Distance.X, -0.5, 1e-3) || !approx(c.Distance.Y, 0, 1e-3) || !approx(c.Distance.Z, 0, 1e-3) {
		t.Errorf("Expected distance (-0.5,0,0), got %v", c.Distance)
	}

	far := NewSphere(1, rl.Vector3{X: 4})
	if _, ok := Check(box, far); ok {
		t.Error("Expected no contact 2 units from the box")
	}
}

func TestSphereTransform(t *testing.T) {
	s := NewSphere(1, rl.Vector3{X: 1})
	speed := rl.Vector3{Z: 5}
	s.Transform(rl.MatrixTranslate(10, 0, 0), rl.Vector3{X: 2, Y: 2, Z: 2}, speed)

	if s.BoundingRadius() != 2 {
		t.Errorf("Expected radius 2, got %v", s.BoundingRadius())
	}
	if s.Center() != (rl.Vector3{X: 12}) {
		t.Errorf("Expected center (12,0,0), got %v", s.Center())
	}
	if s.Speed() != speed {
		t.Errorf("Expected speed %v, got %v", speed, s.Speed())
	}
}

func TestCylinderTransform(t *testing.T) {
	c := NewCylinder(1, 2, rl.Vector3{})
	c.Transform(rl.MatrixTranslate(0, 5, 0), rl.Vector3{X: 3, Y: 0.5, Z: 3}, rl.Vector3{})

	if c.BoundingRadius() != 3 {
		t.Errorf("Expected radius 3, got %v", c.BoundingRadius())
	}
	if top := c.Support(rl.Vector3{Y: 1}); top != (rl.Vector3{Y: 6}) {
		t.Errorf("Expected top at y=6, got %v", top)
	}
	if bottom := c.Support(rl.Vector3{Y: -1}); bottom != (rl.Vector3{Y: 4}) {
		t.Errorf("Expected bottom at y=4, got %v", bottom)
	}
}

func TestBoxTransform(t *testing.T) {
	b := NewBox(1, 2, 3, rl.Vector3{})
	b.Transform(rl.MatrixTranslate(10, 0, 0), rl.Vector3{X: 2, Y: 1, Z: 1}, rl.Vector3{})

	p := b.Support(rl.Vector3{X: 1, Y: 1, Z: 1})
	if !approx(p.X, 12, 1e-5) || !approx(p.Y, 2, 1e-5) || !approx(p.Z, 3, 1e-5) {
		t.Errorf("Expected corner (12,2,3), got %v", p)
	}
	if len(b.Points()) != 8 {
		t.Errorf("Expected 8 corners, got %d", len(b.Points()))
	}

	q := b.ClosestPoint(rl.Vector3{X: 20, Y: 0.5, Z: -10})
	if !approx(q.X, 12, 1e-5) || !approx(q.Y, 0.5, 1e-5) || !approx(q.Z, -3, 1e-5) {
		t.Errorf("Expected closest point (12,0.5,-3), got %v", q)
	}
}

func TestConvexHullSupport(t *testing.T) {
	h := NewConvexHull([]rl.Vector3{{X: -1}, {X: 1}, {Y: 2}, {Z: -3}})

	if p := h.Support(rl.Vector3{X: 1}); p != (rl.Vector3{X: 1}) {
		t.Errorf("Expected (1,0,0), got %v", p)
	}
	if p := h.Support(rl.Vector3{Z: -1}); p != (rl.Vector3{Z: -3}) {
		t.Errorf("Expected (0,0,-3), got %v", p)
	}
	if h.BoundingRadius() != 0 {
		t.Errorf("Expected no margin, got %v", h.BoundingRadius())
	}

	h.Transform(rl.MatrixTranslate(0, 1, 0), rl.Vector3{X: 1, Y: 1, Z: 1}, rl.Vector3{})
	if p := h.Support(rl.Vector3{Y: 1}); p != (rl.Vector3{Y: 3}) {
		t.Errorf("Expected (0,3,0) after the move, got %v", p)
	}
}

func TestChecksAreIndependent(t *testing.T) {
	a := NewSphere(2, rl.Vector3{})
	b := NewSphere(3, rl.Vector3{X: 4})
	cyl := NewCylinder(1, 2, rl.Vector3{})
	s := NewSphere(1, rl.Vector3{X: 1.5, Y: 1})

	first, _ := Check(a, b)
	Check(cyl, s)
	second, _ := Check(a, b)
	if first != second {
		t.Errorf("Expected repeated checks to agree, got %v and %v", first, second)
	}
}
