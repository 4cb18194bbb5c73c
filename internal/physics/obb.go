package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// OBB represents an Oriented Bounding Box
type OBB struct {
	Center   rl.Vector3    // World-space center
	HalfSize rl.Vector3    // Half-extents along local axes
	Axes     [3]rl.Vector3 // Local X, Y, Z axes (rotated)
}

// NewAABBasOBB creates an axis-aligned OBB (no rotation)
func NewAABBasOBB(center, halfSize rl.Vector3) OBB {
	return OBB{
		Center:   center,
		HalfSize: halfSize,
		Axes: [3]rl.Vector3{
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1},
		},
	}
}

// NewOBBFromMatrix places a box with local center and half extents into the
// frame described by m. Scale folded into m ends up in HalfSize.
func NewOBBFromMatrix(m rl.Matrix, center, halfSize rl.Vector3) OBB {
	cols := [3]rl.Vector3{
		{X: m.M0, Y: m.M1, Z: m.M2},
		{X: m.M4, Y: m.M5, Z: m.M6},
		{X: m.M8, Y: m.M9, Z: m.M10},
	}
	half := [3]float32{halfSize.X, halfSize.Y, halfSize.Z}

	var o OBB
	o.Center = rl.Vector3Transform(center, m)
	for i, col := range cols {
		length := rl.Vector3Length(col)
		if length == 0 {
			o.Axes[i] = rl.Vector3Zero()
			continue
		}
		o.Axes[i] = rl.Vector3Scale(col, 1/length)
		half[i] *= length
	}
	o.HalfSize = rl.Vector3{X: half[0], Y: half[1], Z: half[2]}
	return o
}

// Corners returns the eight vertices, bit i of the index selecting the sign on axis i.
func (o OBB) Corners() [8]rl.Vector3 {
	var out [8]rl.Vector3
	ex := rl.Vector3Scale(o.Axes[0], o.HalfSize.X)
	ey := rl.Vector3Scale(o.Axes[1], o.HalfSize.Y)
	ez := rl.Vector3Scale(o.Axes[2], o.HalfSize.Z)

	for i := range out {
		p := o.Center
		p = addSigned(p, ex, i&1 != 0)
		p = addSigned(p, ey, i&2 != 0)
		p = addSigned(p, ez, i&4 != 0)
		out[i] = p
	}
	return out
}

// ClosestPointOnOBB returns the closest point inside or on the OBB to the given point
func ClosestPointOnOBB(o OBB, point rl.Vector3) rl.Vector3 {
	local := rl.Vector3Subtract(point, o.Center)
	result := o.Center

	extents := [3]float32{o.HalfSize.X, o.HalfSize.Y, o.HalfSize.Z}
	for i, axis := range o.Axes {
		d := clamp(rl.Vector3DotProduct(local, axis), -extents[i], extents[i])
		result = rl.Vector3Add(result, rl.Vector3Scale(axis, d))
	}
	return result
}

func addSigned(p, e rl.Vector3, positive bool) rl.Vector3 {
	if positive {
		return rl.Vector3Add(p, e)
	}
	return rl.Vector3Subtract(p, e)
}
