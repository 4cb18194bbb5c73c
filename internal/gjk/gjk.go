// Package gjk measures how far two convex shapes penetrate each other with
// the Gilbert-Johnson-Keerthi distance algorithm. Each shape is a support
// function inflated by a bounding radius, so spheres and capsules are a
// single point or segment plus a radius.
package gjk

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/physics"
)

// Shape is a convex shape in world space.
type Shape interface {
	// Support returns the point of the shape's core furthest along dir.
	Support(dir rl.Vector3) rl.Vector3
	// BoundingRadius is the margin added around the core.
	BoundingRadius() float32
}

// Transformer is implemented by shapes that follow an object's model
// matrix. speed is the object's velocity for the frame.
type Transformer interface {
	Transform(mat rl.Matrix, scale, speed rl.Vector3)
}

// initialMax seeds the search distance. It is sqrt(MaxFloat32) rounded to
// float32, bit pattern 0x5f7fffff.
var initialMax = math32.Sqrt(math32.MaxFloat32)

const floatEpsilon float32 = 0x1p-23

// Contact is the result of a successful Check.
type Contact struct {
	// Distance runs from PointA to PointB. It points from b into a while
	// the shapes overlap.
	Distance rl.Vector3
	PointA   rl.Vector3
	PointB   rl.Vector3
}

// state is the scratch of one Check. Simplex slots are addressed by bit;
// scales[subset][i] is the unnormalized barycentric weight of vertex i in
// the nearest point of subset.
type state struct {
	flags uint32 // vertices of the current simplex
	idx   uint32 // slot of the newest vertex
	mask  uint32 // 1 << idx
	all   uint32 // flags plus the newest vertex

	s        [4]rl.Vector3
	support1 [4]rl.Vector3
	support2 [4]rl.Vector3
	scales   [16][4]float32
	dots     [4][4]float32
}

// Check reports whether a and b, inflated by their bounding radii, touch.
// It returns false once the search proves a gap between them.
func Check(a, b Shape) (Contact, bool) {
	radA, radB := a.BoundingRadius(), b.BoundingRadius()
	rad := radA + radB
	sqDist := float32(rad * rad)
	bound := initialMax

	var d rl.Vector3
	var st state

	for {
		st.idx, st.mask = 0, 1
		for st.flags&st.mask != 0 {
			st.idx++
			st.mask <<= 1
		}

		st.support1[st.idx] = a.Support(rl.Vector3Negate(d))
		st.support2[st.idx] = b.Support(d)
		p := rl.Vector3Subtract(st.support1[st.idx], st.support2[st.idx])

		max2 := float32(bound * bound)
		dot := physics.Dot(d, p)
		if dot > 0 && float32(dot*dot) > float32(sqDist*max2) {
			return Contact{}, false
		}

		if st.inSimplex(p) || max2-dot < float32(max2*0.000001) {
			return st.contact(d, bound, radA, radB), true
		}

		st.s[st.idx] = p
		st.all = st.flags | st.mask

		if !st.nearestSimplex(&d) {
			return st.contact(d, bound, radA, radB), true
		}

		bound = length(d)
		if max2-float32(bound*bound) <= float32(floatEpsilon*max2) {
			st.nearestEnclosing(&d)
			return st.contact(d, length(d), radA, radB), true
		}

		if st.flags >= 0xf || bound <= floatEpsilon {
			return Contact{}, false
		}
	}
}

func length(v rl.Vector3) float32 {
	return math32.Sqrt(physics.SquaredLength(v))
}

// contact pushes the nearest core points of the simplex out to each
// shape's surface along d, whose length is dLen.
func (st *state) contact(d rl.Vector3, dLen, radA, radB float32) Contact {
	v0, v1 := st.nearestPoints(st.flags)
	v0 = rl.Vector3Subtract(v0, rl.Vector3Scale(d, radA/dLen))
	v1 = rl.Vector3Add(v1, rl.Vector3Scale(d, radB/dLen))
	return Contact{Distance: rl.Vector3Subtract(v1, v0), PointA: v0, PointB: v1}
}

func (st *state) inSimplex(v rl.Vector3) bool {
	for i := 0; i < 4; i++ {
		if st.all&(1<<i) != 0 && st.s[i] == v {
			return true
		}
	}
	return false
}

func (st *state) enclosesOrigin(subset uint32) bool {
	for i := 0; i < 4; i++ {
		if subset&(1<<i) != 0 && st.scales[subset][i] <= 0 {
			return false
		}
	}
	return true
}

// isNearest reports whether subset's nearest point lies strictly inside it
// and no vertex outside subset would pull it closer.
func (st *state) isNearest(subset uint32) bool {
	for i := 0; i < 4; i++ {
		bit := uint32(1) << i
		if st.all&bit == 0 {
			continue
		}
		if subset&bit != 0 {
			if st.scales[subset][i] <= 0 {
				return false
			}
		} else if st.scales[subset|bit][i] > 0 {
			return false
		}
	}
	return true
}

// nearestSimplex shrinks the simplex to the subset holding the point
// nearest the origin, which must include the newest vertex, and writes that
// point to d.
func (st *state) nearestSimplex(d *rl.Vector3) bool {
	st.calcSimplex()

	for i := st.flags; i != 0; i-- {
		if i != i&st.flags || !st.isNearest(i|st.mask) {
			continue
		}
		st.flags = i | st.mask
		*d = st.nearestPoint(st.flags)
		return true
	}

	if st.isNearest(st.mask) {
		st.flags = st.mask
		*d = st.s[st.idx]
		return true
	}
	return false
}

// nearestEnclosing picks, among every subset of the simplex whose weights
// are all positive, the one whose nearest point is closest to the origin.
func (st *state) nearestEnclosing(d *rl.Vector3) {
	var best float32 = math32.MaxFloat32
	for subset := st.all; subset != 0; subset-- {
		if subset != subset&st.all || !st.enclosesOrigin(subset) {
			continue
		}

		p := st.nearestPoint(subset)
		if sq := physics.SquaredLength(p); sq < best {
			st.flags = subset
			*d = p
			best = sq
		}
	}
}

func (st *state) nearestPoint(subset uint32) rl.Vector3 {
	var v rl.Vector3
	var sum float32
	for i := 0; i < 4; i++ {
		if subset&(1<<i) == 0 {
			continue
		}
		w := st.scales[subset][i]
		sum += w
		v = rl.Vector3Add(v, rl.Vector3Scale(st.s[i], w))
	}
	return rl.Vector3Scale(v, 1/sum)
}

func (st *state) nearestPoints(subset uint32) (rl.Vector3, rl.Vector3) {
	var v0, v1 rl.Vector3
	var sum float32
	for i := 0; i < 4; i++ {
		if subset&(1<<i) == 0 {
			continue
		}
		w := st.scales[subset][i]
		sum += w
		v0 = rl.Vector3Add(v0, rl.Vector3Scale(st.support1[i], w))
		v1 = rl.Vector3Add(v1, rl.Vector3Scale(st.support2[i], w))
	}
	inv := 1 / sum
	return rl.Vector3Scale(v0, inv), rl.Vector3Scale(v1, inv)
}

// calcSimplex extends the dot product table with the newest vertex and
// fills the weights of every subset containing it (Johnson's
// sub-algorithm).
func (st *state) calcSimplex() {
	idx := st.idx
	dp := &st.dots

	for i := uint32(0); i < 4; i++ {
		if st.flags&(1<<i) == 0 {
			continue
		}
		r := physics.Dot(st.s[i], st.s[idx])
		dp[idx][i] = r
		dp[i][idx] = r
	}

	st.scales[st.mask][idx] = 1
	dp[idx][idx] = physics.SquaredLength(st.s[idx])

	for i := uint32(0); i < 4; i++ {
		iMask := uint32(1) << i
		if st.flags&iMask == 0 {
			continue
		}

		is := iMask | st.mask
		st.scales[is][i] = dp[idx][idx] - dp[idx][i]
		st.scales[is][idx] = dp[i][i] - dp[i][idx]

		for j := uint32(0); j < i; j++ {
			jMask := uint32(1) << j
			if st.flags&jMask == 0 {
				continue
			}

			js := jMask | st.mask
			ji := jMask | iMask
			ijs := jMask | is
			st.scales[ijs][j] = float32(st.scales[is][i]*(dp[i][i]-dp[i][j])) +
				float32(st.scales[is][idx]*(dp[idx][i]-dp[idx][j]))
			st.scales[ijs][i] = float32(st.scales[js][j]*(dp[j][j]-dp[i][j])) +
				float32(st.scales[js][idx]*(dp[idx][j]-dp[idx][i]))
			st.scales[ijs][idx] = float32(st.scales[ji][j]*(dp[j][j]-dp[j][idx])) +
				float32(st.scales[ji][i]*(dp[i][j]-dp[i][idx]))
		}
	}

	if st.all != 0xf {
		return
	}

	// Full tetrahedron: each weight is built from the triangle opposite it.
	sc := &st.scales
	sc[15][0] = float32((dp[3][1]-dp[3][0])*sc[14][3]) +
		(float32((dp[1][1]-dp[1][0])*sc[14][1]) + float32((dp[2][1]-dp[2][0])*sc[14][2]))
	sc[15][1] = float32((dp[3][0]-dp[3][1])*sc[13][3]) +
		(float32((dp[0][0]-dp[0][1])*sc[13][0]) + float32((dp[2][0]-dp[2][1])*sc[13][2]))
	sc[15][2] = float32((dp[3][0]-dp[3][2])*sc[11][3]) +
		(float32((dp[0][0]-dp[0][2])*sc[11][0]) + float32((dp[1][0]-dp[1][2])*sc[11][1]))
	sc[15][3] = float32((dp[2][0]-dp[2][3])*sc[7][2]) +
		(float32((dp[0][0]-dp[0][3])*sc[7][0]) + float32((dp[1][0]-dp[1][3])*sc[7][1]))
}
