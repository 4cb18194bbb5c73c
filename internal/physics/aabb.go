package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// emptyExtent seeds bounding boxes that are grown point by point.
const emptyExtent = 999999.0

type AABB struct {
	Min rl.Vector3
	Max rl.Vector3
}

// EmptyAABB returns an inverted box that any Grow call will replace.
func EmptyAABB() AABB {
	return AABB{
		Min: rl.Vector3{X: emptyExtent, Y: emptyExtent, Z: emptyExtent},
		Max: rl.Vector3{X: -emptyExtent, Y: -emptyExtent, Z: -emptyExtent},
	}
}

// NewAABBFromCenter creates an AABB from a center point and half extents.
func NewAABBFromCenter(center, half rl.Vector3) AABB {
	return AABB{
		Min: rl.Vector3Subtract(center, half),
		Max: rl.Vector3Add(center, half),
	}
}

// Intersects is inclusive on every face.
func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Grow extends the box to include p.
func (a *AABB) Grow(p rl.Vector3) {
	a.Min = Vector3Min(a.Min, p)
	a.Max = Vector3Max(a.Max, p)
}

// Merge extends the box to include b.
func (a *AABB) Merge(b AABB) {
	a.Min = Vector3Min(a.Min, b.Min)
	a.Max = Vector3Max(a.Max, b.Max)
}

// Transform33 maps both corners through the rotation/scale part of m and
// re-sorts them per axis. Translation is ignored, so this is meant for boxes
// of offsets rather than positions.
func (a AABB) Transform33(m rl.Matrix) AABB {
	lo := MultVector33(m, a.Min)
	hi := MultVector33(m, a.Max)
	return AABB{
		Min: Vector3Min(lo, hi),
		Max: Vector3Max(lo, hi),
	}
}
