package gjk

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/physics"
)

// Sphere is a point inflated by a radius.
type Sphere struct {
	radius float32
	pos    rl.Vector3

	worldRadius float32
	center      rl.Vector3
	speed       rl.Vector3
}

// NewSphere places a sphere at center in model space. Until the first
// Transform, model space is world space.
func NewSphere(radius float32, center rl.Vector3) *Sphere {
	return &Sphere{radius: radius, pos: center, worldRadius: radius, center: center}
}

// Transform scales uniformly by scale.X.
func (s *Sphere) Transform(mat rl.Matrix, scale, speed rl.Vector3) {
	s.speed = speed
	s.worldRadius = s.radius * scale.X
	s.center = physics.MultVector(mat, rl.Vector3Scale(s.pos, scale.X))
}

func (s *Sphere) Support(rl.Vector3) rl.Vector3 { return s.center }
func (s *Sphere) BoundingRadius() float32       { return s.worldRadius }
func (s *Sphere) Center() rl.Vector3            { return s.center }
func (s *Sphere) Speed() rl.Vector3             { return s.speed }

// Cylinder is a vertical segment of half length height inflated by radius,
// so its caps are rounded.
type Cylinder struct {
	radius float32
	height float32
	pos    rl.Vector3

	worldRadius float32
	worldHeight float32
	center      rl.Vector3
	top         rl.Vector3
	bottom      rl.Vector3
	speed       rl.Vector3
}

func NewCylinder(radius, height float32, center rl.Vector3) *Cylinder {
	up := rl.Vector3{Y: height}
	return &Cylinder{
		radius:      radius,
		height:      height,
		pos:         center,
		worldRadius: radius,
		worldHeight: height,
		center:      center,
		top:         rl.Vector3Add(center, up),
		bottom:      rl.Vector3Subtract(center, up),
	}
}

// Transform scales the radius by scale.X and the height by scale.Y.
func (c *Cylinder) Transform(mat rl.Matrix, scale, speed rl.Vector3) {
	c.speed = speed
	pos := rl.Vector3Scale(c.pos, scale.X)
	c.worldHeight = c.height * scale.Y
	c.worldRadius = c.radius * scale.X

	up := rl.Vector3{Y: c.worldHeight}
	c.center = physics.MultVector(mat, pos)
	c.top = physics.MultVector(mat, rl.Vector3Add(pos, up))
	c.bottom = physics.MultVector(mat, rl.Vector3Subtract(pos, up))
}

func (c *Cylinder) Support(dir rl.Vector3) rl.Vector3 {
	if physics.Dot(c.top, dir) > physics.Dot(c.bottom, dir) {
		return c.top
	}
	return c.bottom
}

func (c *Cylinder) BoundingRadius() float32 { return c.worldRadius }
func (c *Cylinder) Center() rl.Vector3      { return c.center }
func (c *Cylinder) Speed() rl.Vector3       { return c.speed }

// ConvexHull is the hull of a point set, with no margin.
type ConvexHull struct {
	points []rl.Vector3
	world  []rl.Vector3
	speed  rl.Vector3
}

// NewConvexHull copies points. Until the first Transform, model space is
// world space.
func NewConvexHull(points []rl.Vector3) *ConvexHull {
	h := &ConvexHull{
		points: make([]rl.Vector3, len(points)),
		world:  make([]rl.Vector3, len(points)),
	}
	copy(h.points, points)
	copy(h.world, points)
	return h
}

// Transform scales each point per axis before applying mat.
func (h *ConvexHull) Transform(mat rl.Matrix, scale, speed rl.Vector3) {
	h.speed = speed
	for i, p := range h.points {
		h.world[i] = physics.MultVector(mat, rl.Vector3Multiply(p, scale))
	}
}

// Support returns the first world point with the largest projection on dir.
func (h *ConvexHull) Support(dir rl.Vector3) rl.Vector3 {
	best := h.world[0]
	bestDot := physics.Dot(best, dir)
	for _, p := range h.world[1:] {
		if d := physics.Dot(p, dir); d > bestDot {
			best, bestDot = p, d
		}
	}
	return best
}

func (h *ConvexHull) BoundingRadius() float32 { return 0 }
func (h *ConvexHull) Points() []rl.Vector3    { return h.world }
func (h *ConvexHull) Speed() rl.Vector3       { return h.speed }

// Box is a convex hull over the corners of an oriented box.
type Box struct {
	ConvexHull

	halfSize rl.Vector3
	center   rl.Vector3
	obb      physics.OBB
}

// NewBox builds a box of half extents x, y, z around center.
func NewBox(x, y, z float32, center rl.Vector3) *Box {
	b := &Box{halfSize: rl.Vector3{X: x, Y: y, Z: z}, center: center}
	b.obb = physics.NewAABBasOBB(center, b.halfSize)
	corners := b.obb.Corners()
	b.ConvexHull = *NewConvexHull(corners[:])
	return b
}

// Transform places the box with mat after scaling it per axis.
func (b *Box) Transform(mat rl.Matrix, scale, speed rl.Vector3) {
	b.speed = speed
	b.obb = physics.NewOBBFromMatrix(mat, rl.Vector3Multiply(b.center, scale), rl.Vector3Multiply(b.halfSize, scale))
	corners := b.obb.Corners()
	copy(b.world, corners[:])
}

// ClosestPoint returns the point of the box nearest p.
func (b *Box) ClosestPoint(p rl.Vector3) rl.Vector3 {
	return physics.ClosestPointOnOBB(b.obb, p)
}

var (
	_ Transformer = (*Sphere)(nil)
	_ Transformer = (*Cylinder)(nil)
	_ Transformer = (*ConvexHull)(nil)
	_ Transformer = (*Box)(nil)
)
