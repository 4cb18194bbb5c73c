package collision

import (
	"sync"

	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/boxcol"
	"kartcol/internal/kcl"
	"kartcol/internal/logging"
)

var logger = logging.For("collision")

// MaxEntries is the capacity of the entry table. Pushes past it overwrite
// the last slot.
const MaxEntries = 64

// CollisionEntry is one pushed hit.
type CollisionEntry struct {
	TypeMask  kcl.TypeMask
	Attribute uint16
	Dist      float32
}

// Variant returns the variant bits of the entry's attribute.
func (e *CollisionEntry) Variant() uint16 { return kcl.AttributeVariant(e.Attribute) }

// Trickable reports whether the trick bit of the attribute is set.
func (e *CollisionEntry) Trickable() bool { return e.Attribute&trickableBit != 0 }

const (
	variantMask  uint16 = 0xff1f
	trickableBit uint16 = 1 << 13
)

// Director runs every top-level query of a race: course terrain first,
// then the drivables near the query. Pushed hits land in its entry table.
// A Director is single-threaded; give each goroutine its own.
type Director struct {
	course      *CourseColMgr
	courseScale float32
	drivables   *DrivableDirector

	entries    [MaxEntries]CollisionEntry
	count      int
	overflowed bool
	closest    *CollisionEntry
}

// NewDirector builds a director over the course terrain and a spatial
// index of drivables.
func NewDirector(course *kcl.Data, index *boxcol.Manager) *Director {
	d := &Director{courseScale: 1, drivables: NewDrivableDirector(index)}
	d.course = NewCourseColMgr(course, d)
	return d
}

func (d *Director) Course() *CourseColMgr                  { return d.course }
func (d *Director) Drivables() *DrivableDirector           { return d.drivables }
func (d *Director) Entries() []CollisionEntry              { return d.entries[:d.count] }
func (d *Director) ClosestCollisionEntry() *CollisionEntry { return d.closest }

// SetCourseScale sets the uniform scale the course terrain was authored at.
// Drivables carry their own scale.
func (d *Director) SetCourseScale(scale float32) { d.courseScale = scale }

// ResetCollisionEntries empties the table and zeroes *maskOut if given.
func (d *Director) ResetCollisionEntries(maskOut *kcl.TypeMask) {
	if maskOut != nil {
		*maskOut = 0
	}
	d.count = 0
	d.overflowed = false
	d.closest = nil
}

// PushCollisionEntry records a hit and ORs its type bit into *maskOut.
func (d *Director) PushCollisionEntry(dist float32, maskOut *kcl.TypeMask, typeBit kcl.TypeMask, attr uint16) {
	*maskOut |= typeBit

	idx := d.count
	if idx < MaxEntries {
		d.count++
	} else {
		idx = MaxEntries - 1
		if !d.overflowed {
			logger.Warn("collision entry table full, overwriting last entry")
			d.overflowed = true
		}
	}
	d.entries[idx] = CollisionEntry{TypeMask: typeBit, Attribute: attr, Dist: dist}
}

// SetCurrentCollisionVariant rewrites the variant bits of the last entry.
func (d *Director) SetCurrentCollisionVariant(variant uint16) {
	e := d.current()
	e.Attribute = (e.Attribute & variantMask) | (variant << 5)
}

// SetCurrentCollisionTrickable sets or clears the trick bit of the last entry.
func (d *Director) SetCurrentCollisionTrickable(trickable bool) {
	e := d.current()
	e.Attribute &^= trickableBit
	if trickable {
		e.Attribute |= trickableBit
	}
}

func (d *Director) current() *CollisionEntry {
	if d.count == 0 {
		panic("collision: no current collision entry")
	}
	return &d.entries[d.count-1]
}

// FindClosestCollisionEntry picks the deepest entry whose type intersects
// mask. The pick is cleared when none matches.
func (d *Director) FindClosestCollisionEntry(mask kcl.TypeMask) bool {
	d.closest = nil
	bestDist := -floatMin

	for i := range d.entries[:d.count] {
		e := &d.entries[i]
		if e.TypeMask&mask != 0 && e.Dist > bestDist {
			d.closest = e
			bestDist = e.Dist
		}
	}
	return d.closest != nil
}

// CheckCourseColNarrScLocal fills the prism caches of the course and of
// every drivable near pos, for the cached checks that follow.
func (d *Director) CheckCourseColNarrScLocal(radius float32, pos rl.Vector3, mask kcl.TypeMask) {
	d.course.ScaledNarrowScopeLocal(d.courseScale, radius, nil, pos, mask)
	d.drivables.NarrowScopeLocal(radius, pos, mask)
}

func (d *Director) resetMask(kind Check, maskOut *kcl.TypeMask) {
	if kind.has(CheckPush) {
		d.ResetCollisionEntries(maskOut)
	} else if maskOut != nil {
		*maskOut = 0
	}
}

func (d *Director) beginNoBounce() {
	if nb := d.course.NoBounceWallInfo(); nb != nil {
		nb.Reset()
	}
}

func (d *Director) endNoBounce(hasCol bool) {
	if nb := d.course.NoBounceWallInfo(); nb != nil && hasCol {
		nb.TangentOff = rl.Vector3Add(nb.BBox.Min, nb.BBox.Max)
	}
	d.course.ClearNoBounceWallInfo()
}

// CheckPartial runs a box-only sphere or point query against the course
// and the drivables. A zero mask skips the course.
func (d *Director) CheckPartial(kind Check, q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	if info != nil {
		info.Reset()
	}
	d.resetMask(kind, maskOut)
	d.beginNoBounce()

	hasCourseCol := false
	if q.Mask != 0 {
		hasCourseCol = d.course.CheckPartial(kind, d.courseScale, nil, q, info, maskOut)
	}
	hasObjCol := d.drivables.CheckPartial(kind, q, info, maskOut)

	hasCol := hasCourseCol || hasObjCol
	if hasCol && info != nil {
		info.TangentOff = rl.Vector3Add(info.BBox.Min, info.BBox.Max)
	}
	d.endNoBounce(hasCol)
	return hasCol
}

// CheckFull runs a full-info sphere or point query against the course and
// the drivables. A zero mask skips the course.
func (d *Director) CheckFull(kind Check, q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	if info != nil {
		info.Reset()
	}
	d.resetMask(kind, maskOut)
	d.beginNoBounce()

	hasCourseCol := false
	if q.Mask != 0 {
		hasCourseCol = d.course.CheckFull(kind, d.courseScale, nil, q, info, maskOut)
	}
	hasObjCol := d.drivables.CheckFull(kind, q, info, maskOut)

	hasCol := hasCourseCol || hasObjCol
	if hasCol && info != nil {
		info.TangentOff = rl.Vector3Add(info.BBox.Min, info.BBox.Max)
	}
	d.endNoBounce(hasCol)
	return hasCol
}

func (d *Director) CheckSpherePartial(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return d.CheckPartial(0, q, info, maskOut)
}

func (d *Director) CheckSpherePartialPush(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return d.CheckPartial(CheckPush, q, info, maskOut)
}

func (d *Director) CheckSphereFull(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return d.CheckFull(0, q, info, maskOut)
}

func (d *Director) CheckSphereFullPush(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return d.CheckFull(CheckPush, q, info, maskOut)
}

func (d *Director) CheckSphereCachedPartial(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return d.CheckPartial(CheckCached, q, info, maskOut)
}

func (d *Director) CheckSphereCachedPartialPush(q Query, info *CollisionInfoPartial, maskOut *kcl.TypeMask) bool {
	return d.CheckPartial(CheckCached|CheckPush, q, info, maskOut)
}

func (d *Director) CheckSphereCachedFull(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return d.CheckFull(CheckCached, q, info, maskOut)
}

func (d *Director) CheckSphereCachedFullPush(q Query, info *CollisionInfo, maskOut *kcl.TypeMask) bool {
	return d.CheckFull(CheckCached|CheckPush, q, info, maskOut)
}

var (
	instanceMu sync.Mutex
	instance   *Director
)

// CreateInstance builds the process-wide director for a race. It panics if
// one already exists.
func CreateInstance(course *kcl.Data, index *boxcol.Manager) *Director {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance != nil {
		panic("collision: director instance already exists")
	}
	instance = NewDirector(course, index)
	logger.Info("director created", "prisms", course.PrismCount())
	return instance
}

// Instance returns the process-wide director, or nil outside a race.
func Instance() *Director {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance
}

// DestroyInstance drops the process-wide director. It panics if there is
// none.
func DestroyInstance() {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		panic("collision: no director instance to destroy")
	}
	instance = nil
	logger.Info("director destroyed")
}
