package collision

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/boxcol"
	"kartcol/internal/kcl"
)

// Drivable is a moving object that collides like terrain.
type Drivable interface {
	CheckPartial(kind Check, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool
	CheckFull(kind Check, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool
	NarrowScopeLocal(radius float32, pos rl.Vector3, mask kcl.TypeMask)
}

// DrivableKCL is a drivable backed by its own terrain blob.
type DrivableKCL struct {
	*ObjColMgr

	midpoint rl.Vector3
	halfSide float32
}

// NewDrivableKCL places data in the world with mtx and scale. The midpoint
// and half side of the terrain box in world space are computed once here,
// for sizing the object's spatial index unit.
func NewDrivableKCL(course *CourseColMgr, data *kcl.Data, mtx rl.Matrix, scale float32) *DrivableKCL {
	d := &DrivableKCL{ObjColMgr: NewObjColMgr(course, data)}
	d.SetTransform(mtx)
	d.SetScale(scale)

	low := d.KCLBBoxLowWorld()
	high := d.KCLBBoxHighWorld()
	d.midpoint = rl.Vector3Scale(rl.Vector3Add(high, low), 0.5)
	d.halfSide = math32.Max(math32.Abs(high.X-low.X), math32.Abs(high.Z-low.Z)) * 0.5
	return d
}

func (d *DrivableKCL) Midpoint() rl.Vector3 { return d.midpoint }
func (d *DrivableKCL) HalfSide() float32    { return d.halfSide }

// DrivableDirector routes queries to the drivables near the query sphere,
// found through the spatial index.
type DrivableDirector struct {
	index   *boxcol.Manager
	objects map[boxcol.Handle]Drivable
}

// NewDrivableDirector returns a director with no drivables.
func NewDrivableDirector(index *boxcol.Manager) *DrivableDirector {
	return &DrivableDirector{
		index:   index,
		objects: make(map[boxcol.Handle]Drivable),
	}
}

// AddObject makes obj answer queries for the index unit with handle h.
// The caller inserts the unit with boxcol.Manager.InsertDrivable.
func (d *DrivableDirector) AddObject(h boxcol.Handle, obj Drivable) {
	d.objects[h] = obj
}

func (d *DrivableDirector) RemoveObject(h boxcol.Handle) {
	delete(d.objects, h)
}

func (d *DrivableDirector) ObjectCount() int { return len(d.objects) }

var drivableFlag = boxcol.NewFlag(boxcol.Drivable)

// search fills the index iterators for q and returns the kind to run on
// each drivable. A cached check that misses the index cache runs uncached.
func (d *DrivableDirector) search(kind Check, q Query) Check {
	if kind.has(CheckCached) {
		if d.index.IsSphereInSpatialCache(q.Radius, q.Pos, drivableFlag) {
			d.index.SearchPointCached(q.Radius, q.Pos, drivableFlag)
			return kind
		}
		kind &^= CheckCached
	}
	d.index.SearchPoint(q.Radius, q.Pos, drivableFlag)
	return kind
}

func (d *DrivableDirector) each(fn func(Drivable) bool) bool {
	hasCol := false
	for {
		h, ok := d.index.NextDrivable()
		if !ok {
			return hasCol
		}
		if obj, ok := d.objects[h]; ok && fn(obj) {
			hasCol = true
		}
	}
}

// CheckPartial runs a box-only check on every drivable near q.
func (d *DrivableDirector) CheckPartial(kind Check, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	if len(d.objects) == 0 {
		return false
	}
	kind = d.search(kind, q)
	return d.each(func(obj Drivable) bool {
		return obj.CheckPartial(kind, q, info, maskOut)
	})
}

// CheckFull runs a full-info check on every drivable near q.
func (d *DrivableDirector) CheckFull(kind Check, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	if len(d.objects) == 0 {
		return false
	}
	kind = d.search(kind, q)
	return d.each(func(obj Drivable) bool {
		return obj.CheckFull(kind, q, info, maskOut)
	})
}

// NarrowScopeLocal fills the prism cache of every drivable near pos.
func (d *DrivableDirector) NarrowScopeLocal(radius float32, pos rl.Vector3, mask kcl.TypeMask) {
	if len(d.objects) == 0 {
		return
	}
	d.index.SearchPoint(radius, pos, drivableFlag)
	for {
		h, ok := d.index.NextDrivable()
		if !ok {
			return
		}
		if obj, ok := d.objects[h]; ok {
			obj.NarrowScopeLocal(radius, pos, mask)
		}
	}
}

var _ Drivable = (*ObjColMgr)(nil)
