package boxcol

import (
	"fmt"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/logging"
)

// MaxUnits is the pool size, the two bound sentinels included.
const MaxUnits = 256

// spatialBound places the sentinels beyond any course.
const spatialBound = 999999.9

var logger = logging.For("boxcol")

// envelope narrows iteration over a cached result to a smaller query.
type envelope struct {
	xLow, xHigh float32
	zLow, zHigh float32
	flag        Flag
}

// Manager owns the unit pool and keeps one array of high Z points and one of
// low Z points sorted, so a search only walks the units whose Z extents can
// reach the query. Calc must run once per frame before searching.
type Manager struct {
	highs [MaxUnits]highPoint
	lows  [MaxUnits]lowPoint
	pool  [MaxUnits]Unit
	units [MaxUnits]*Unit // last search result
	free  [MaxUnits]int   // free list links, indexed by pool slot

	position PositionFunc

	unitCount      int
	nextUnitID     int
	nextObjectID   int
	nextDrivableID int
	maxID          int

	cacheQueryUnit *Unit
	cachePoint     rl.Vector3
	cacheRadius    float32
	cacheFlag      Flag
	filter         *envelope

	scans int
}

// NewManager returns a manager holding only its two intangible bound units.
func NewManager(position PositionFunc) *Manager {
	m := &Manager{position: position}
	for i := range m.free {
		m.free[i] = i + 1
	}
	for i := range m.pool {
		m.pool[i].id = i
	}
	m.Clear()

	upper := rl.Vector3{X: spatialBound, Y: spatialBound, Z: spatialBound}
	lower := rl.Vector3{X: -spatialBound, Y: -spatialBound, Z: -spatialBound}
	for _, pos := range []rl.Vector3{upper, lower} {
		u := m.insert(1, 0, pos, Flag{}, -1)
		u.flag.SetBit(Intangible)
		u.pinned = true
		u.pinnedPos = pos
	}
	return m
}

// UnitCount is the number of indexed units, sentinels included.
func (m *Manager) UnitCount() int {
	return m.unitCount
}

// Scans counts the searches that walked the index. Cache hits do not count.
func (m *Manager) Scans() int {
	return m.scans
}

// Clear drops the last search result and the query cache.
func (m *Manager) Clear() {
	m.nextObjectID = MaxUnits
	m.nextDrivableID = MaxUnits
	m.maxID = 0
	m.cacheQueryUnit = nil
	m.cacheRadius = -1
	m.cacheFlag.MakeAllZero()
	m.filter = nil
}

func (m *Manager) positionOf(u *Unit) rl.Vector3 {
	if u.pinned {
		return u.pinnedPos
	}
	return m.position(u.handle)
}

// Calc refreshes the extents of active units flagged PermRecalcAABB or
// TempRecalcAABB, then restores the order of both point arrays. Insertion
// sort keeps this close to linear while units only drift a little per frame.
func (m *Manager) Calc() {
	m.Clear()

	for i := range m.pool {
		u := &m.pool[i]
		if u.flag.OffBit(Active) || u.flag.OffBit(PermRecalcAABB, TempRecalcAABB) {
			continue
		}

		pos := m.positionOf(u)
		u.xMax = pos.X + u.rng
		u.xMin = pos.X - u.rng
		m.highs[u.highIdx].z = pos.Z + u.rng
		m.lows[u.lowIdx].z = pos.Z - u.rng

		u.flag.ResetBit(TempRecalcAABB)
	}

	m.sortHighs()
	m.sortLows()
}

func (m *Manager) sortHighs() {
	for i := 1; i < m.unitCount; i++ {
		for j := i; j >= 1 && m.highs[j-1].z > m.highs[j].z; j-- {
			m.highs[j-1], m.highs[j] = m.highs[j], m.highs[j-1]
			upper := &m.highs[j]
			lower := &m.highs[j-1]

			upperLow := &m.lows[upper.lowPoint]
			lowerLow := &m.lows[lower.lowPoint]
			upperLow.highPoint++
			lowerLow.highPoint--
			m.pool[upperLow.unitID].highIdx++
			m.pool[lowerLow.unitID].highIdx--

			// The unit that moved down may have been the minimum above j.
			if upper.minLowPoint == lower.lowPoint {
				next := upper.minLowPoint + 1
				for m.lows[next].highPoint < j {
					next++
				}
				upper.minLowPoint = next
			}

			lower.minLowPoint = min(lower.minLowPoint, upper.lowPoint)
		}
	}
}

func (m *Manager) sortLows() {
	for i := 1; i < m.unitCount; i++ {
		for j := i; j >= 1 && m.lows[j-1].z > m.lows[j].z; j-- {
			m.lows[j-1], m.lows[j] = m.lows[j], m.lows[j-1]
			upper := &m.lows[j]
			lower := &m.lows[j-1]

			m.highs[upper.highPoint].lowPoint++
			m.highs[lower.highPoint].lowPoint--
			m.pool[upper.unitID].lowIdx++
			m.pool[lower.unitID].lowIdx--

			if upper.highPoint > lower.highPoint {
				for k := upper.highPoint; k > lower.highPoint && m.highs[k].minLowPoint == j-1; k-- {
					m.highs[k].minLowPoint++
				}
			} else {
				for k := lower.highPoint; k > upper.highPoint && m.highs[k].minLowPoint == j; k-- {
					m.highs[k].minLowPoint--
				}
			}
		}
	}
}

// InsertDriver indexes a kart. alwaysRecalc sets PermRecalcAABB.
// It returns nil when the pool is full.
func (m *Manager) InsertDriver(radius, maxSpeed float32, h Handle, alwaysRecalc bool) *Unit {
	return m.insertKind(Driver, radius, maxSpeed, h, alwaysRecalc)
}

func (m *Manager) InsertObject(radius, maxSpeed float32, h Handle, alwaysRecalc bool) *Unit {
	return m.insertKind(Object, radius, maxSpeed, h, alwaysRecalc)
}

func (m *Manager) InsertDrivable(radius, maxSpeed float32, h Handle, alwaysRecalc bool) *Unit {
	return m.insertKind(Drivable, radius, maxSpeed, h, alwaysRecalc)
}

func (m *Manager) insertKind(kind FlagBit, radius, maxSpeed float32, h Handle, alwaysRecalc bool) *Unit {
	flag := NewFlag(kind)
	if alwaysRecalc {
		flag.SetBit(PermRecalcAABB)
	}
	return m.insert(radius, maxSpeed, m.position(h), flag, h)
}

// halvingSearch returns the length of the prefix of [0, n) for which pred
// holds. pred must be true on a prefix and false after it.
func halvingSearch(n int, pred func(int) bool) int {
	if n == 0 {
		return 0
	}

	idx := 0
	for step := n; ; step = (step + 1) / 2 {
		if idx+step <= n && pred(idx+step-1) {
			idx += step
		}
		if step == 1 {
			return idx
		}
	}
}

func (m *Manager) insert(radius, maxSpeed float32, pos rl.Vector3, flag Flag, h Handle) *Unit {
	n := m.unitCount
	if n >= MaxUnits {
		logger.Warn("unit pool full", "units", n, "handle", h)
		return nil
	}

	id := m.nextUnitID
	u := &m.pool[id]
	u.init(radius, maxSpeed, pos, flag, h)
	m.nextUnitID = m.free[id]

	zHigh := pos.Z + u.rng
	zLow := pos.Z - u.rng

	hi := halvingSearch(n, func(i int) bool { return zHigh > m.highs[i].z })
	lo := halvingSearch(n, func(i int) bool { return zLow > m.lows[i].z })
	u.highIdx = hi
	u.lowIdx = lo

	for i := n; i > hi; i-- {
		m.highs[i] = m.highs[i-1]
		high := &m.highs[i]
		low := &m.lows[high.lowPoint]

		low.highPoint++
		m.pool[low.unitID].highIdx++

		if high.minLowPoint >= lo {
			high.minLowPoint++
		}
	}

	m.highs[hi].lowPoint = lo
	m.highs[hi].z = zHigh

	if hi == n || m.highs[hi+1].minLowPoint > lo {
		m.highs[hi].minLowPoint = lo
		for i := hi - 1; i >= 0 && m.highs[i].minLowPoint > lo; i-- {
			m.highs[i].minLowPoint = lo
		}
	} else {
		m.highs[hi].minLowPoint = m.highs[hi+1].minLowPoint
	}

	for i := n; i > lo; i-- {
		m.lows[i] = m.lows[i-1]
		low := &m.lows[i]
		m.highs[low.highPoint].lowPoint++
		m.pool[low.unitID].lowIdx++
	}

	m.lows[lo] = lowPoint{z: zLow, highPoint: hi, unitID: id}
	m.unitCount++

	return u
}

func (m *Manager) owns(u *Unit) bool {
	return u.id >= 0 && u.id < MaxUnits && &m.pool[u.id] == u
}

// Remove takes u out of the index and returns its slot to the pool. Removing
// an inactive unit does nothing. The caller must drop its reference.
func (m *Manager) Remove(u *Unit) {
	if u == nil || u.flag.OffBit(Active) {
		return
	}
	if !m.owns(u) {
		panic(fmt.Sprintf("boxcol: unit %d (handle %d) belongs to another manager", u.id, u.handle))
	}

	hi, lo := u.highIdx, u.lowIdx
	n := m.unitCount

	for i := hi; i < n-1; i++ {
		m.highs[i] = m.highs[i+1]
		high := &m.highs[i]
		low := &m.lows[high.lowPoint]

		low.highPoint--
		m.pool[low.unitID].highIdx--

		if high.minLowPoint > lo {
			high.minLowPoint--
		}
	}

	for i := lo; i < n-1; i++ {
		m.lows[i] = m.lows[i+1]
		low := &m.lows[i]
		m.highs[low.highPoint].lowPoint--
		m.pool[low.unitID].lowIdx--

		if low.highPoint >= hi {
			continue
		}

		// High points below the removed one whose minimum was the removed
		// low point take the next low point that reaches them.
		high := &m.highs[low.highPoint]
		if high.minLowPoint != lo {
			continue
		}
		next := lo
		for m.lows[next].highPoint < low.highPoint {
			next++
		}
		high.minLowPoint = next
	}

	u.flag.ResetBit(Active)
	m.free[u.id] = m.nextUnitID
	m.nextUnitID = u.id
	m.unitCount--
}

// Reinsert removes and inserts u again, keeping its flags, and returns the
// unit now holding it.
func (m *Manager) Reinsert(u *Unit) *Unit {
	radius := u.radius
	maxSpeed := u.rng - radius
	h := u.handle
	flag := u.flag
	pos := m.positionOf(u)
	pinned := u.pinned

	m.Remove(u)

	nu := m.insert(radius, maxSpeed, pos, Flag{}, h)
	if nu == nil {
		return nil
	}
	nu.flag = flag
	nu.pinned = pinned
	nu.pinnedPos = pos
	return nu
}

// Resize changes the radius and speed of u. The extents follow on the next Calc.
func (m *Manager) Resize(u *Unit, radius, maxSpeed float32) {
	u.radius = radius
	u.rng = radius + maxSpeed
	u.flag.SetBit(TempRecalcAABB)
}

// Search collects the units whose extents overlap those of u and which carry
// any bit of flag, then resets the iterators. u itself is never collected.
func (m *Manager) Search(u *Unit, flag Flag) {
	m.searchUnit(u, flag)
	m.ResetIterators()
}

// SearchPoint collects the units whose extents overlap the square of half
// width radius around pos on the XZ plane.
func (m *Manager) SearchPoint(radius float32, pos rl.Vector3, flag Flag) {
	m.searchPoint(radius, pos, flag)
	m.ResetIterators()
}

// SearchPointCached reuses the previous point search when IsSphereInSpatialCache
// holds, narrowing its result to the new query instead of scanning again.
func (m *Manager) SearchPointCached(radius float32, pos rl.Vector3, flag Flag) {
	if !m.IsSphereInSpatialCache(radius, pos, flag) {
		m.SearchPoint(radius, pos, flag)
		return
	}

	m.filter = &envelope{
		xLow:  pos.X - radius,
		xHigh: pos.X + radius,
		zLow:  pos.Z - radius,
		zHigh: pos.Z + radius,
		flag:  flag,
	}
	m.ResetIterators()
}

// IsSphereInSpatialCache reports whether a point search for (radius, pos,
// flag) is answered by the previous one: its square must contain the new
// square and its flag must contain every bit of flag.
func (m *Manager) IsSphereInSpatialCache(radius float32, pos rl.Vector3, flag Flag) bool {
	if m.cacheRadius == -1 {
		return false
	}
	if !m.cacheFlag.OnAll(flag.Bits()) {
		return false
	}

	diff := m.cacheRadius - radius
	return math32.Abs(pos.X-m.cachePoint.X) <= diff && math32.Abs(pos.Z-m.cachePoint.Z) <= diff
}

func (m *Manager) beginScan(flag Flag) {
	m.scans++
	m.maxID = 0
	m.cacheFlag = flag
	m.filter = nil
}

func (m *Manager) searchUnit(u *Unit, flag Flag) {
	m.beginScan(flag)
	m.cacheQueryUnit = u
	m.cacheRadius = -1

	if u.flag.OffBit(Active) {
		return
	}

	hi, lo := u.highIdx, u.lowIdx
	highZ := m.highs[hi].z
	lowZ := m.lows[lo].z
	maxIdx := m.unitCount - 1

	for hi > 7 && m.highs[hi-8].z >= lowZ {
		hi -= 8
	}
	for hi > 0 && m.highs[hi-1].z >= lowZ {
		hi--
	}
	for lo < maxIdx-7 && m.lows[lo+8].z <= highZ {
		lo += 8
	}
	for lo < maxIdx && m.lows[lo+1].z <= highZ {
		lo++
	}

	m.collect(hi, lo, u.lowIdx, u.xMin, u.xMax, flag)
}

func (m *Manager) searchPoint(radius float32, pos rl.Vector3, flag Flag) {
	m.beginScan(flag)
	m.cacheQueryUnit = nil
	m.cachePoint = pos
	m.cacheRadius = radius

	zHigh := pos.Z + radius
	zLow := pos.Z - radius
	n := m.unitCount

	hi := halvingSearch(n, func(i int) bool { return zLow > m.highs[i].z })
	lo := halvingSearch(n, func(i int) bool { return m.lows[i].z <= zHigh }) - 1
	if hi >= n || lo < 0 {
		return
	}

	m.collect(hi, lo, -1, pos.X-radius, pos.X+radius, flag)
}

// collect walks low points from lo down to the minimum low point of high
// point hi, keeping units whose high point is at or above hi.
func (m *Manager) collect(hi, lo, skip int, xLow, xHigh float32, flag Flag) {
	for i := lo; i >= m.highs[hi].minLowPoint; i-- {
		low := &m.lows[i]
		if i == skip || low.highPoint < hi {
			continue
		}

		u := &m.pool[low.unitID]
		if u.xMax < xLow || u.xMin > xHigh {
			continue
		}
		if u.flag.Off(flag.Bits()) || u.flag.OnBit(Intangible) {
			continue
		}

		m.units[m.maxID] = u
		m.maxID++
		if m.maxID == MaxUnits {
			return
		}
	}
}

func (m *Manager) accepts(u *Unit) bool {
	f := m.filter
	if f == nil {
		return true
	}
	if u.xMax < f.xLow || u.xMin > f.xHigh {
		return false
	}
	if m.highs[u.highIdx].z < f.zLow || m.lows[u.lowIdx].z > f.zHigh {
		return false
	}
	return u.flag.On(f.flag.Bits())
}

// ResetIterators rewinds NextObject and NextDrivable to the start of the
// current result.
func (m *Manager) ResetIterators() {
	m.nextObjectID = -1
	m.iterate(&m.nextObjectID, Object)

	m.nextDrivableID = -1
	m.iterate(&m.nextDrivableID, Drivable)
}

func (m *Manager) iterate(iter *int, bit FlagBit) {
	for *iter++; *iter < m.maxID; *iter++ {
		u := m.units[*iter]
		if u.flag.OnBit(bit) && m.accepts(u) {
			return
		}
	}
	*iter = MaxUnits
}

func (m *Manager) next(iter *int, bit FlagBit) (Handle, bool) {
	if *iter == MaxUnits {
		return 0, false
	}
	u := m.units[*iter]
	m.iterate(iter, bit)
	return u.handle, true
}

// NextObject returns the next Object unit of the current result.
func (m *Manager) NextObject() (Handle, bool) {
	return m.next(&m.nextObjectID, Object)
}

// NextDrivable returns the next Drivable unit of the current result.
func (m *Manager) NextDrivable() (Handle, bool) {
	return m.next(&m.nextDrivableID, Drivable)
}

// Results returns the units of the current result, narrowed by a cached
// point search if one is in effect.
func (m *Manager) Results() []*Unit {
	out := make([]*Unit, 0, m.maxID)
	for _, u := range m.units[:m.maxID] {
		if m.accepts(u) {
			out = append(out, u)
		}
	}
	return out
}
