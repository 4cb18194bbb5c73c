package collision

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/kcl"
	"kartcol/internal/physics"
)

// ObjColMgr queries one object's terrain through its model transform.
// Queries are mapped into model space with the inverse transform and the
// results are mapped back with the forward one.
type ObjColMgr struct {
	course *CourseColMgr
	cursor *kcl.Cursor

	mtx          rl.Matrix
	mtxInv       rl.Matrix
	kclScale     float32
	movingObjVel rl.Vector3
}

// NewObjColMgr wraps data with an identity transform. course runs the
// actual checks and must outlive the manager.
func NewObjColMgr(course *CourseColMgr, data *kcl.Data) *ObjColMgr {
	return &ObjColMgr{
		course:   course,
		cursor:   data.NewCursor(),
		mtx:      rl.MatrixIdentity(),
		mtxInv:   rl.MatrixIdentity(),
		kclScale: 1,
	}
}

// SetTransform sets the model matrix and its inverse.
func (o *ObjColMgr) SetTransform(mtx rl.Matrix) {
	o.mtx = mtx
	o.mtxInv = rl.MatrixInvert(mtx)
}

func (o *ObjColMgr) SetMtx(mtx rl.Matrix)         { o.mtx = mtx }
func (o *ObjColMgr) SetInvMtx(mtx rl.Matrix)      { o.mtxInv = mtx }
func (o *ObjColMgr) SetScale(scale float32)       { o.kclScale = scale }
func (o *ObjColMgr) SetMovingObjVel(v rl.Vector3) { o.movingObjVel = v }

func (o *ObjColMgr) Mtx() rl.Matrix      { return o.mtx }
func (o *ObjColMgr) Scale() float32      { return o.kclScale }
func (o *ObjColMgr) Cursor() *kcl.Cursor { return o.cursor }
func (o *ObjColMgr) Data() *kcl.Data     { return o.cursor.Data() }

// KCLBBoxLowWorld returns the low corner of the terrain box in world space.
func (o *ObjColMgr) KCLBBoxLowWorld() rl.Vector3 {
	return physics.MultVector(o.mtx, rl.Vector3Scale(o.Data().BBox().Min, o.kclScale))
}

// KCLBBoxHighWorld returns the high corner of the terrain box in world space.
func (o *ObjColMgr) KCLBBoxHighWorld() rl.Vector3 {
	return physics.MultVector(o.mtx, rl.Vector3Scale(o.Data().BBox().Max, o.kclScale))
}

// toModel maps a world query into model space. A missing previous position
// stays missing.
func (o *ObjColMgr) toModel(q Query) Query {
	local := q
	local.Pos = physics.MultVector(o.mtxInv, q.Pos)
	if physics.IsFinite(q.PrevPos.Y) {
		local.PrevPos = physics.MultVector(o.mtxInv, q.PrevPos)
	} else {
		local.PrevPos = NoPrevPos
	}
	return local
}

func (o *ObjColMgr) cacheEmpty(kind Check) bool {
	return kind.has(CheckCached) && o.cursor.PrismCache(0) == 0
}

// CheckPartial runs a box-only check against the object's terrain and
// merges the box, rotated back into world space, into info.
func (o *ObjColMgr) CheckPartial(kind Check, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	if o.cacheEmpty(kind) {
		return false
	}

	local := o.toModel(q)
	if info == nil {
		return o.course.CheckPartial(kind, o.kclScale, o.cursor, local, nil, maskOut)
	}

	var tmp CollisionInfoPartial
	if o.course.NoBounceWallInfo() != nil {
		o.course.SetLocalMtx(&o.mtx)
	}
	if !o.course.CheckPartial(kind, o.kclScale, o.cursor, local, &tmp, maskOut) {
		return false
	}

	info.BBox.Merge(tmp.BBox.Transform33(o.mtx))
	return true
}

// CheckFull runs a full-info check against the object's terrain and merges
// the result into info. Floor hits carry the object's velocity as the road
// velocity.
func (o *ObjColMgr) CheckFull(kind Check, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	if o.cacheEmpty(kind) {
		return false
	}

	local := o.toModel(q)
	if info == nil {
		return o.course.CheckFull(kind, o.kclScale, o.cursor, local, nil, maskOut)
	}

	var tmp CollisionInfo
	tmp.Reset()
	if o.course.NoBounceWallInfo() != nil {
		o.course.SetLocalMtx(&o.mtx)
	}
	if !o.course.CheckFull(kind, o.kclScale, o.cursor, local, &tmp, maskOut) {
		return false
	}

	info.TransformInfo(&tmp, o.mtx, o.movingObjVel)
	return true
}

// NarrowScopeLocal fills the object's prism cache around a world position.
func (o *ObjColMgr) NarrowScopeLocal(radius float32, pos rl.Vector3, mask kcl.TypeMask) {
	local := physics.MultVector(o.mtxInv, pos)
	o.course.ScaledNarrowScopeLocal(o.kclScale, radius, o.cursor, local, mask)
}

func (o *ObjColMgr) CheckPointPartial(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(CheckPoint, q, info, maskOut)
}

func (o *ObjColMgr) CheckPointPartialPush(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(CheckPoint|CheckPush, q, info, maskOut)
}

func (o *ObjColMgr) CheckPointFull(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(CheckPoint, q, info, maskOut)
}

func (o *ObjColMgr) CheckPointFullPush(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(CheckPoint|CheckPush, q, info, maskOut)
}

func (o *ObjColMgr) CheckSpherePartial(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(0, q, info, maskOut)
}

func (o *ObjColMgr) CheckSpherePartialPush(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(CheckPush, q, info, maskOut)
}

func (o *ObjColMgr) CheckSphereFull(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(0, q, info, maskOut)
}

func (o *ObjColMgr) CheckSphereFullPush(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(CheckPush, q, info, maskOut)
}

func (o *ObjColMgr) CheckPointCachedPartial(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(CheckPoint|CheckCached, q, info, maskOut)
}

func (o *ObjColMgr) CheckPointCachedPartialPush(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(CheckPoint|CheckCached|CheckPush, q, info, maskOut)
}

func (o *ObjColMgr) CheckPointCachedFull(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(CheckPoint|CheckCached, q, info, maskOut)
}

func (o *ObjColMgr) CheckPointCachedFullPush(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(CheckPoint|CheckCached|CheckPush, q, info, maskOut)
}

func (o *ObjColMgr) CheckSphereCachedPartial(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(CheckCached, q, info, maskOut)
}

func (o *ObjColMgr) CheckSphereCachedPartialPush(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return o.CheckPartial(CheckCached|CheckPush, q, info, maskOut)
}

func (o *ObjColMgr) CheckSphereCachedFull(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(CheckCached, q, info, maskOut)
}

func (o *ObjColMgr) CheckSphereCachedFullPush(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return o.CheckFull(CheckCached|CheckPush, q, info, maskOut)
}
