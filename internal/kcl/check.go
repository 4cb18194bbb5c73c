package kcl

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/physics"
)

// Hit is a single prism contact.
type Hit struct {
	Dist      float32    // penetration depth
	Normal    rl.Vector3 // face normal of the prism
	Attribute uint16
}

// checkKind selects the flavor of the sphere-vs-prism test.
type checkKind uint8

const (
	// checkEdge widens the thickness window by the radius. Used to fill the
	// narrow-scope cache, where a prism only has to be able to collide.
	checkEdge checkKind = iota
	checkPlane
	checkMovement
)

// Point checks treat the query as a tiny sphere of this radius.
const pointEpsilon = 0.01

// sphereQuery carries the query parameters shared by every prism test.
type sphereQuery struct {
	pos      rl.Vector3
	movement rl.Vector3
	radius   float32
	mask     TypeMask
}

// CheckSphereTri runs the static sphere-vs-prism test for prism idx.
func (d *Data) CheckSphereTri(idx uint16, pos rl.Vector3, radius float32, mask TypeMask) (Hit, bool) {
	q := sphereQuery{pos: pos, radius: radius, mask: mask}
	return d.checkCollision(&d.prisms[idx], &q, checkPlane)
}

// CheckSphereTriMovement runs the movement-aware test for a sphere that moved from prevPos to pos.
func (d *Data) CheckSphereTriMovement(idx uint16, pos, prevPos rl.Vector3, radius float32, mask TypeMask) (Hit, bool) {
	q := sphereQuery{pos: pos, movement: rl.Vector3Subtract(pos, prevPos), radius: radius, mask: mask}
	return d.checkCollision(&d.prisms[idx], &q, checkMovement)
}

func (d *Data) checkCollision(p *Prism, q *sphereQuery, kind checkKind) (Hit, bool) {
	typeBit := AttributeTypeBit(p.Attribute)
	if typeBit&q.mask == 0 {
		return Hit{}, false
	}

	rel := rl.Vector3Subtract(q.pos, d.vertices[p.PosIdx])
	radius := q.radius

	// Edge normals point out of the triangle.
	enrm1 := d.normals[p.ENrm1Idx]
	distCA := physics.Dot(rel, enrm1)
	if radius <= distCA {
		return Hit{}, false
	}

	enrm2 := d.normals[p.ENrm2Idx]
	distAB := physics.Dot(rel, enrm2)
	if radius <= distAB {
		return Hit{}, false
	}

	enrm3 := d.normals[p.ENrm3Idx]
	distBC := physics.Dot(rel, enrm3) - p.Height
	if radius <= distBC {
		return Hit{}, false
	}

	fnrm := d.normals[p.FNrmIdx]
	planeDist := physics.Dot(rel, fnrm)
	distInPlane := radius - planeDist
	if distInPlane <= 0 {
		return Hit{}, false
	}

	typeDistance := d.header.PrismThickness
	if kind == checkEdge {
		typeDistance += radius
	}
	if distInPlane >= typeDistance {
		return Hit{}, false
	}

	if kind == checkMovement && typeBit&MaskDirectional != 0 && physics.Dot(q.movement, fnrm) > 0 {
		return Hit{}, false
	}

	hit := Hit{Normal: fnrm, Attribute: p.Attribute}

	if distAB <= 0 && distBC <= 0 && distCA <= 0 {
		if kind == checkMovement {
			last := rl.Vector3Subtract(rel, q.movement)
			if planeDist < 0 && physics.Dot(last, fnrm) < 0 {
				return Hit{}, false
			}
		}
		hit.Dist = distInPlane
		return hit, true
	}

	// Pick the furthest edge and the runner-up. The swap flags record how the
	// pair has to be reordered for the corner solve.
	var edgeNrm, otherNrm rl.Vector3
	var edgeDist, otherDist float32
	swap, swapNorms := false, false

	switch {
	case distAB >= distCA && distAB > distBC:
		edgeNrm, edgeDist = enrm2, distAB
		if distCA >= distBC {
			otherNrm, otherDist = enrm1, distCA
			swapNorms = true
		} else {
			otherNrm, otherDist = enrm3, distBC
			swap = true
		}
	case distBC >= distCA:
		edgeNrm, edgeDist = enrm3, distBC
		if distAB >= distCA {
			otherNrm, otherDist = enrm2, distAB
			swapNorms = true
		} else {
			otherNrm, otherDist = enrm1, distCA
			swap = true
		}
	default:
		edgeNrm, edgeDist = enrm1, distCA
		if distBC >= distAB {
			otherNrm, otherDist = enrm3, distBC
			swapNorms = true
		} else {
			otherNrm, otherDist = enrm2, distAB
			swap = true
		}
	}

	cos := physics.Dot(edgeNrm, otherNrm)
	var sqDist float32

	if float32(cos*edgeDist) > otherDist {
		// Nearest feature is the edge itself.
		if kind == checkPlane && edgeDist > planeDist {
			return Hit{}, false
		}
		sqDist = float32(radius*radius) - float32(edgeDist*edgeDist)
	} else {
		// Nearest feature is the corner shared by both edges.
		sqSin := float32(cos*cos) - 1

		if swap {
			edgeDist, otherDist = otherDist, edgeDist
		}
		if swapNorms {
			edgeNrm, otherNrm = otherNrm, edgeNrm
		}

		t := (float32(cos*edgeDist) - otherDist) / sqSin
		s := edgeDist - float32(t*cos)
		corner := rl.Vector3Add(rl.Vector3Scale(edgeNrm, t), rl.Vector3Scale(otherNrm, s))

		cornerSq := physics.SquaredLength(corner)
		if kind == checkPlane && cornerSq > float32(planeDist*planeDist) {
			return Hit{}, false
		}
		sqDist = float32(radius*radius) - cornerSq
	}

	if sqDist < float32(planeDist*planeDist) || sqDist <= 0 {
		return Hit{}, false
	}

	dist := math32.Sqrt(sqDist) - planeDist
	if dist <= 0 {
		return Hit{}, false
	}

	if kind == checkMovement {
		last := rl.Vector3Subtract(rel, q.movement)
		if physics.Dot(last, fnrm) < 0 {
			return Hit{}, false
		}
	}

	hit.Dist = dist
	return hit, true
}

// checkPointCollision is the point variant: the query is a sphere of radius
// pointEpsilon and the thickness window is widened by two epsilons.
func (d *Data) checkPointCollision(p *Prism, q *sphereQuery, movement bool) (Hit, bool) {
	typeBit := AttributeTypeBit(p.Attribute)
	if typeBit&q.mask == 0 {
		return Hit{}, false
	}

	rel := rl.Vector3Subtract(q.pos, d.vertices[p.PosIdx])

	if physics.Dot(rel, d.normals[p.ENrm1Idx]) >= pointEpsilon {
		return Hit{}, false
	}
	if physics.Dot(rel, d.normals[p.ENrm2Idx]) >= pointEpsilon {
		return Hit{}, false
	}
	if physics.Dot(rel, d.normals[p.ENrm3Idx])-p.Height >= pointEpsilon {
		return Hit{}, false
	}

	fnrm := d.normals[p.FNrmIdx]
	distInPlane := pointEpsilon - physics.Dot(rel, fnrm)
	if distInPlane <= 0 {
		return Hit{}, false
	}

	thickness := d.header.PrismThickness
	if thickness <= distInPlane && 2*pointEpsilon+thickness <= distInPlane {
		return Hit{}, false
	}

	if movement && typeBit&MaskDirectional != 0 && physics.Dot(q.movement, fnrm) < 0 {
		return Hit{}, false
	}

	return Hit{Dist: distInPlane, Normal: fnrm, Attribute: p.Attribute}, true
}
