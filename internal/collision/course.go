package collision

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/kcl"
	"kartcol/internal/physics"
)

// Check selects the shape and side effects of a query.
type Check uint8

const (
	// CheckPoint tests a point instead of a sphere.
	CheckPoint Check = 1 << iota
	// CheckCached walks the cursor's narrow-scope cache instead of the
	// octree leaf at the query position.
	CheckCached
	// CheckPush records every hit in the Director's entry table.
	CheckPush
)

func (c Check) has(f Check) bool { return c&f != 0 }

// Query is one point or sphere query. PrevPos.Y set to +Inf means there is
// no previous position and movement-aware tests fall back to static ones.
type Query struct {
	Radius  float32
	Pos     rl.Vector3
	PrevPos rl.Vector3
	Mask    kcl.TypeMask
}

// NoPrevPos is the previous position of a query without movement.
var NoPrevPos = rl.Vector3{Y: math32.Inf(1)}

// entrySink receives pushed hits. The Director implements it.
type entrySink interface {
	PushCollisionEntry(dist float32, maskOut *kcl.TypeMask, typeBit kcl.TypeMask, attr uint16)
}

// CourseColMgr queries terrain with a uniform scale. Without an explicit
// cursor it uses the course's own.
type CourseColMgr struct {
	cursor   *kcl.Cursor
	entries  entrySink
	kclScale float32

	noBounce *NoBounceWallInfo
	localMtx *rl.Matrix
}

// NewCourseColMgr wraps the course terrain. entries may be nil, in which
// case push checks only fill the output mask.
func NewCourseColMgr(course *kcl.Data, entries entrySink) *CourseColMgr {
	return &CourseColMgr{
		cursor:   course.NewCursor(),
		entries:  entries,
		kclScale: 1,
	}
}

// Cursor returns the cursor over the course terrain.
func (m *CourseColMgr) Cursor() *kcl.Cursor { return m.cursor }

// Data returns the course terrain.
func (m *CourseColMgr) Data() *kcl.Data { return m.cursor.Data() }

// Scale returns the scale of the last check.
func (m *CourseColMgr) Scale() float32 { return m.kclScale }

// SetNoBounceWallInfo makes the following full-info checks record soft wall
// hits into info. The Director clears it after each of its checks.
func (m *CourseColMgr) SetNoBounceWallInfo(info *NoBounceWallInfo) { m.noBounce = info }

func (m *CourseColMgr) NoBounceWallInfo() *NoBounceWallInfo { return m.noBounce }

func (m *CourseColMgr) ClearNoBounceWallInfo() { m.noBounce = nil }

// SetLocalMtx maps the no-bounce normal and offsets of the next check
// through mtx. It is cleared once that check finishes.
func (m *CourseColMgr) SetLocalMtx(mtx *rl.Matrix) { m.localMtx = mtx }

func (m *CourseColMgr) cursorFor(cur *kcl.Cursor) *kcl.Cursor {
	if cur == nil {
		return m.cursor
	}
	return cur
}

func divide(v rl.Vector3, s float32) rl.Vector3 {
	return rl.Vector3{X: v.X / s, Y: v.Y / s, Z: v.Z / s}
}

// ScaledNarrowScopeLocal fills the cursor's prism cache around a world
// position on terrain drawn at the given scale.
func (m *CourseColMgr) ScaledNarrowScopeLocal(scale, radius float32, cur *kcl.Cursor, pos rl.Vector3, mask kcl.TypeMask) {
	m.cursorFor(cur).NarrowScopeLocal(divide(pos, scale), radius/scale, mask)
}

// lookup starts the prism walk for q and returns the hit iterator, or nil
// when a cached check finds the cache empty.
func (m *CourseColMgr) lookup(kind Check, scale float32, cur *kcl.Cursor, q Query) func() (kcl.Hit, bool) {
	if kind.has(CheckCached) && cur.PrismCache(0) == 0 {
		return nil
	}

	m.kclScale = scale
	pos := divide(q.Pos, scale)
	prev := divide(q.PrevPos, scale)

	switch {
	case kind.has(CheckPoint) && kind.has(CheckCached):
		cur.LookupPointCached(pos, prev, q.Mask)
		return cur.CheckPointCollision
	case kind.has(CheckPoint):
		cur.LookupPoint(pos, prev, q.Mask)
		return cur.CheckPointCollision
	case kind.has(CheckCached):
		cur.LookupSphereCached(pos, prev, q.Mask, q.Radius/scale)
	default:
		cur.LookupSphere(q.Radius/scale, pos, prev, q.Mask)
	}
	return cur.CheckSphereCollision
}

// CheckPartial runs a check that grows only a box of offsets. A nil info
// turns it into a mask-only check.
func (m *CourseColMgr) CheckPartial(kind Check, scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	next := m.lookup(kind, scale, m.cursorFor(cur), q)
	if next == nil {
		return false
	}
	if info == nil {
		return m.doCheckMaskOnly(next, kind.has(CheckPush), maskOut)
	}
	return m.doCheck(next, kind.has(CheckPush), maskOut, func(dist float32, offset, _ rl.Vector3, _ kcl.TypeMask) {
		info.BBox.Grow(offset)
	})
}

// CheckFull runs a check that fills floor and wall results. A nil info
// turns it into a mask-only check.
func (m *CourseColMgr) CheckFull(kind Check, scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	next := m.lookup(kind, scale, m.cursorFor(cur), q)
	if next == nil {
		return false
	}
	if info == nil {
		return m.doCheckMaskOnly(next, kind.has(CheckPush), maskOut)
	}
	return m.doCheck(next, kind.has(CheckPush), maskOut, info.Update)
}

// doCheck drains the hit iterator. Every hit is reported through maskOut
// or the entry table; solid hits are also passed to apply.
func (m *CourseColMgr) doCheck(next func() (kcl.Hit, bool), push bool, maskOut *kcl.TypeMask,
	apply func(dist float32, offset, fnrm rl.Vector3, typeBit kcl.TypeMask)) bool {
	defer func() { m.localMtx = nil }()

	hasCol := false
	for {
		hit, ok := next()
		if !ok {
			break
		}

		dist := hit.Dist * m.kclScale
		typeBit := kcl.AttributeTypeBit(hit.Attribute)
		m.report(push, maskOut, dist, typeBit, hit.Attribute)

		if typeBit&kcl.MaskSolidSurface != 0 {
			offset := rl.Vector3Scale(hit.Normal, dist)
			apply(dist, offset, hit.Normal, typeBit)
			m.updateNoBounce(dist, offset, hit.Normal, typeBit, hit.Attribute)
		}
		hasCol = true
	}
	return hasCol
}

func (m *CourseColMgr) doCheckMaskOnly(next func() (kcl.Hit, bool), push bool, maskOut *kcl.TypeMask) bool {
	defer func() { m.localMtx = nil }()

	hasCol := false
	for {
		hit, ok := next()
		if !ok {
			break
		}
		m.report(push, maskOut, hit.Dist*m.kclScale, kcl.AttributeTypeBit(hit.Attribute), hit.Attribute)
		hasCol = true
	}
	return hasCol
}

func (m *CourseColMgr) report(push bool, maskOut *kcl.TypeMask, dist float32, typeBit kcl.TypeMask, attr uint16) {
	if maskOut == nil {
		return
	}
	if push && m.entries != nil {
		m.entries.PushCollisionEntry(dist, maskOut, typeBit, attr)
		return
	}
	*maskOut |= typeBit
}

func (m *CourseColMgr) updateNoBounce(dist float32, offset, fnrm rl.Vector3, typeBit kcl.TypeMask, attr uint16) {
	if m.noBounce == nil || typeBit&kcl.MaskWall == 0 || attr&kcl.SoftWallMask == 0 {
		return
	}
	if m.localMtx != nil {
		offset = physics.MultVector33(*m.localMtx, offset)
		fnrm = physics.MultVector33(*m.localMtx, fnrm)
	}
	m.noBounce.update(dist, offset, fnrm)
}

func (m *CourseColMgr) CheckPointPartial(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(CheckPoint, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckPointPartialPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(CheckPoint|CheckPush, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckPointFull(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(CheckPoint, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckPointFullPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(CheckPoint|CheckPush, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSpherePartial(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(0, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSpherePartialPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(CheckPush, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSphereFull(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(0, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSphereFullPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(CheckPush, scale, cur, q, info, maskOut)
}

// CheckPointCachedPartial and the other cached checks return false without
// touching their outputs when the cursor's cache is empty.
func (m *CourseColMgr) CheckPointCachedPartial(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(CheckPoint|CheckCached, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckPointCachedPartialPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(CheckPoint|CheckCached|CheckPush, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckPointCachedFull(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(CheckPoint|CheckCached, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckPointCachedFullPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(CheckPoint|CheckCached|CheckPush, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSphereCachedPartial(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(CheckCached, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSphereCachedPartialPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return m.CheckPartial(CheckCached|CheckPush, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSphereCachedFull(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(CheckCached, scale, cur, q, info, maskOut)
}

func (m *CourseColMgr) CheckSphereCachedFullPush(scale float32, cur *kcl.Cursor, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return m.CheckFull(CheckCached|CheckPush, scale, cur, q, info, maskOut)
}
