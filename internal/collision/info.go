// Package collision turns raw prism hits into per-query results. Course and
// object managers scale and transform queries onto terrain cursors, the
// drivable director fans queries out to moving terrain found through the
// spatial index, and the Director owns both plus the entry table gameplay
// code reads back.
package collision

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/kcl"
	"kartcol/internal/physics"
)

// floatMin is the smallest normal float32. Distances are reset to its
// negation so that any hit, even a zero-depth one, replaces them.
const floatMin float32 = 0x1p-126

// CollisionInfoPartial keeps only the box of contact offsets.
type CollisionInfoPartial struct {
	BBox       physics.AABB
	TangentOff rl.Vector3
}

// Reset zeroes the box.
func (i *CollisionInfoPartial) Reset() {
	*i = CollisionInfoPartial{}
}

// CollisionInfo is the accumulated result of one full-info query. Floor
// and wall keep the deepest hit of their category.
type CollisionInfo struct {
	BBox       physics.AABB
	TangentOff rl.Vector3

	FloorNrm  rl.Vector3
	WallNrm   rl.Vector3
	FloorDist float32
	WallDist  float32

	MovingFloorDist float32
	RoadVelocity    rl.Vector3

	// Perpendicularity is 1 - dot of the deepest wall normal and a later
	// wall normal, so it approaches 1 in corners.
	Perpendicularity float32
}

// Reset prepares the info for a new query.
func (i *CollisionInfo) Reset() {
	*i = CollisionInfo{
		FloorDist:       -floatMin,
		WallDist:        -floatMin,
		MovingFloorDist: -floatMin,
	}
}

// Update folds one solid hit into the info. offset is the push-out vector
// (normal times depth) and typeBit the hit's category.
func (i *CollisionInfo) Update(dist float32, offset, fnrm rl.Vector3, typeBit kcl.TypeMask) {
	i.BBox.Grow(offset)

	switch {
	case typeBit&kcl.MaskFloor != 0:
		i.UpdateFloor(dist, fnrm)
	case typeBit&kcl.MaskWall != 0:
		if i.WallDist > -floatMin {
			dot := 1 - physics.Dot(i.WallNrm, fnrm)
			if dot > i.Perpendicularity {
				i.Perpendicularity = math32.Min(dot, 1)
			}
		}
		i.UpdateWall(dist, fnrm)
	}
}

// UpdateFloor keeps the deeper of the stored floor hit and this one.
func (i *CollisionInfo) UpdateFloor(dist float32, fnrm rl.Vector3) {
	if dist > i.FloorDist {
		i.FloorDist = dist
		i.FloorNrm = fnrm
	}
}

// UpdateWall keeps the deeper of the stored wall hit and this one.
func (i *CollisionInfo) UpdateWall(dist float32, fnrm rl.Vector3) {
	if dist > i.WallDist {
		i.WallDist = dist
		i.WallNrm = fnrm
	}
}

// TransformInfo merges an info gathered in a model's local space. Box
// corners and normals go through the rotation part of mtx; a floor hit
// deeper than the current moving floor also records vel as the road
// velocity.
func (i *CollisionInfo) TransformInfo(rhs *CollisionInfo, mtx rl.Matrix, vel rl.Vector3) {
	i.BBox.Merge(rhs.BBox.Transform33(mtx))

	if i.FloorDist < rhs.FloorDist {
		i.FloorDist = rhs.FloorDist
		i.FloorNrm = physics.MultVector33(mtx, rhs.FloorNrm)
	}

	if i.WallDist < rhs.WallDist {
		i.WallDist = rhs.WallDist
		i.WallNrm = physics.MultVector33(mtx, rhs.WallNrm)
	}

	if i.MovingFloorDist < rhs.FloorDist {
		i.MovingFloorDist = rhs.FloorDist
		i.RoadVelocity = vel
	}

	i.Perpendicularity = math32.Max(i.Perpendicularity, rhs.Perpendicularity)
}

// NoBounceWallInfo collects hits against soft walls, which push the kart
// out without the usual bounce.
type NoBounceWallInfo struct {
	BBox       physics.AABB
	TangentOff rl.Vector3
	Dist       float32
	FNrm       rl.Vector3
}

// Reset prepares the info for a new query.
func (n *NoBounceWallInfo) Reset() {
	*n = NoBounceWallInfo{Dist: floatMin}
}

func (n *NoBounceWallInfo) update(dist float32, offset, fnrm rl.Vector3) {
	n.BBox.Grow(offset)
	if dist > n.Dist {
		n.Dist = dist
		n.FNrm = fnrm
	}
}
