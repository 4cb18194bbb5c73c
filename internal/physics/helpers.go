package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// Vector3Min returns the component-wise minimum.
func Vector3Min(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: minf(a.X, b.X), Y: minf(a.Y, b.Y), Z: minf(a.Z, b.Z)}
}

// Vector3Max returns the component-wise maximum.
func Vector3Max(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: maxf(a.X, b.X), Y: maxf(a.Y, b.Y), Z: maxf(a.Z, b.Z)}
}

// Dot is a dot product with every product rounded to float32 before the sum.
// Go may otherwise fuse a*b+c into one FMA on some targets, and collision
// results must be identical on every platform a replay runs on.
func Dot(a, b rl.Vector3) float32 {
	return float32(a.X*b.X) + float32(a.Y*b.Y) + float32(a.Z*b.Z)
}

// Cross is the cross product under the same rounding rules as Dot.
func Cross(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{
		X: float32(a.Y*b.Z) - float32(a.Z*b.Y),
		Y: float32(a.Z*b.X) - float32(a.X*b.Z),
		Z: float32(a.X*b.Y) - float32(a.Y*b.X),
	}
}

// MultVector33 applies only the upper 3x3 block of m (no translation).
// Normals and offsets go through here, positions through rl.Vector3Transform.
func MultVector33(m rl.Matrix, v rl.Vector3) rl.Vector3 {
	return rl.Vector3{
		X: float32(m.M0*v.X) + float32(m.M4*v.Y) + float32(m.M8*v.Z),
		Y: float32(m.M1*v.X) + float32(m.M5*v.Y) + float32(m.M9*v.Z),
		Z: float32(m.M2*v.X) + float32(m.M6*v.Y) + float32(m.M10*v.Z),
	}
}

// MultVector applies the full affine transform m to a position.
func MultVector(m rl.Matrix, v rl.Vector3) rl.Vector3 {
	return rl.Vector3Add(MultVector33(m, v), Translation(m))
}

// Translation returns the translation column of m.
func Translation(m rl.Matrix) rl.Vector3 {
	return rl.Vector3{X: m.M12, Y: m.M13, Z: m.M14}
}

// SquaredLength avoids the sqrt in rl.Vector3Length.
func SquaredLength(v rl.Vector3) float32 {
	return Dot(v, v)
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float32) bool {
	return f == f && f-f == 0
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// clamp restricts a value to a range
func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
