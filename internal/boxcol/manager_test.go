package boxcol

import (
	"io"
	"math/rand"
	"slices"
	"sort"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/samber/lo"

	"kartcol/internal/logging"
)

func init() {
	logging.SetOutput(io.Discard)
}

// world is a caller-owned entity table addressed by handle.
type world struct {
	pos []rl.Vector3
}

func (w *world) add(p rl.Vector3) Handle {
	w.pos = append(w.pos, p)
	return Handle(len(w.pos) - 1)
}

func (w *world) lookup(h Handle) rl.Vector3 {
	return w.pos[h]
}

func handles(units []*Unit) []Handle {
	out := lo.Map(units, func(u *Unit, _ int) Handle { return u.Handle() })
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sameSet(t *testing.T, what string, got, want []Handle) {
	t.Helper()
	missing, extra := lo.Difference(want, got)
	if len(missing) != 0 || len(extra) != 0 {
		t.Errorf("%s: missing %v, unexpected %v", what, missing, extra)
	}
}

// checkIndex verifies ordering and every cross reference of the two arrays.
func checkIndex(t *testing.T, m *Manager) {
	t.Helper()
	n := m.unitCount

	for i := 1; i < n; i++ {
		if m.highs[i-1].z > m.highs[i].z {
			t.Fatalf("high points out of order at %d: %v > %v", i, m.highs[i-1].z, m.highs[i].z)
		}
		if m.lows[i-1].z > m.lows[i].z {
			t.Fatalf("low points out of order at %d: %v > %v", i, m.lows[i-1].z, m.lows[i].z)
		}
	}

	for i := 0; i < n; i++ {
		high := m.highs[i]
		if m.lows[high.lowPoint].highPoint != i {
			t.Fatalf("high %d points at low %d which points back at %d", i, high.lowPoint, m.lows[high.lowPoint].highPoint)
		}
		low := m.lows[i]
		u := &m.pool[low.unitID]
		if u.lowIdx != i || u.highIdx != low.highPoint {
			t.Fatalf("unit %d caches (%d,%d), arrays say (%d,%d)", low.unitID, u.highIdx, u.lowIdx, low.highPoint, i)
		}
	}

	suffix := n
	for i := n - 1; i >= 0; i-- {
		suffix = min(suffix, m.highs[i].lowPoint)
		if m.highs[i].minLowPoint != suffix {
			t.Fatalf("high %d minLowPoint %d, expected %d", i, m.highs[i].minLowPoint, suffix)
		}
	}
}

type extent struct {
	xMin, xMax, zMin, zMax float32
}

func extentOf(w *world, u *Unit) extent {
	p := w.lookup(u.Handle())
	return extent{p.X - u.Range(), p.X + u.Range(), p.Z - u.Range(), p.Z + u.Range()}
}

func (a extent) overlaps(b extent) bool {
	return a.zMax >= b.zMin && a.zMin <= b.zMax && a.xMax >= b.xMin && a.xMin <= b.xMax
}

func TestEmptyManager(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	if m.UnitCount() != 2 {
		t.Errorf("Expected 2 sentinel units, got %d", m.UnitCount())
	}

	m.Calc()
	m.SearchPoint(100, rl.Vector3{}, NewFlag(Driver, Object, Drivable))
	if got := m.Results(); len(got) != 0 {
		t.Errorf("Expected no results, got %d", len(got))
	}
	if _, ok := m.NextObject(); ok {
		t.Error("Expected no object")
	}
	if _, ok := m.NextDrivable(); ok {
		t.Error("Expected no drivable")
	}
	checkIndex(t, m)
}

func TestScenarioThreeUnits(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	byZ := map[Handle]float32{}
	for _, z := range []float32{0, 100, 200} {
		h := w.add(rl.Vector3{Z: z})
		byZ[h] = z
		if m.InsertObject(50, 0, h, false) == nil {
			t.Fatalf("insert of unit at z=%v failed", z)
		}
	}
	m.Calc()
	checkIndex(t, m)

	all := NewFlag(Driver, Object, Drivable)
	m.SearchPoint(60, rl.Vector3{Z: 150}, all)

	var got []float32
	for {
		h, ok := m.NextObject()
		if !ok {
			break
		}
		got = append(got, byZ[h])
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	if len(got) != 2 || got[0] != 100 || got[1] != 200 {
		t.Errorf("Expected units at z=100 and z=200, got %v", got)
	}
}

func TestUnitSearchExcludesSelf(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	a := m.InsertDriver(10, 0, w.add(rl.Vector3{}), true)
	m.InsertObject(10, 0, w.add(rl.Vector3{X: 15}), true)
	m.InsertObject(10, 0, w.add(rl.Vector3{X: 50}), true)
	m.Calc()

	m.Search(a, NewFlag(Object, Driver))
	sameSet(t, "unit search", handles(m.Results()), []Handle{1})
}

func TestIntangibleNeverMatches(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	u := m.InsertObject(10, 0, w.add(rl.Vector3{}), false)
	u.flag.SetBit(Intangible)
	m.Calc()

	m.SearchPoint(100, rl.Vector3{}, NewFlag(Object, Intangible))
	if got := m.Results(); len(got) != 0 {
		t.Errorf("Expected intangible unit to be skipped, got %d results", len(got))
	}
}

func TestFlagFilter(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	m.InsertObject(10, 0, w.add(rl.Vector3{}), false)
	m.InsertDrivable(10, 0, w.add(rl.Vector3{X: 1}), false)
	m.Calc()

	m.SearchPoint(20, rl.Vector3{}, NewFlag(Drivable))
	if _, ok := m.NextObject(); ok {
		t.Error("Object should not match a drivable search")
	}
	h, ok := m.NextDrivable()
	if !ok || h != 1 {
		t.Errorf("Expected drivable 1, got %d (%v)", h, ok)
	}
	if _, ok := m.NextDrivable(); ok {
		t.Error("Expected a single drivable")
	}
}

func TestFreeList(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)
	const n = MaxUnits - 2

	insertAll := func() []*Unit {
		units := make([]*Unit, 0, n)
		for i := 0; i < n; i++ {
			u := m.InsertObject(1, 0, w.add(rl.Vector3{X: float32(i), Z: float32(-i)}), false)
			if u == nil {
				t.Fatalf("insert %d failed", i)
			}
			units = append(units, u)
		}
		return units
	}

	units := insertAll()
	if m.InsertObject(1, 0, w.add(rl.Vector3{}), false) != nil {
		t.Error("Expected insert into a full pool to fail")
	}
	checkIndex(t, m)

	for _, u := range units {
		m.Remove(u)
	}
	if m.UnitCount() != 2 {
		t.Errorf("Expected only sentinels after removal, got %d", m.UnitCount())
	}
	checkIndex(t, m)

	units = insertAll()
	if m.UnitCount() != n+2 {
		t.Errorf("Expected %d units, got %d", n+2, m.UnitCount())
	}

	ids := lo.Map(units, func(u *Unit, _ int) int { return u.id })
	if len(lo.Uniq(ids)) != n {
		t.Error("Expected every live unit in its own pool slot")
	}
	checkIndex(t, m)
}

func TestRemoveInactiveIsNoop(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	u := m.InsertObject(1, 0, w.add(rl.Vector3{}), false)
	m.Remove(u)
	m.Remove(u)
	m.Remove(nil)

	if m.UnitCount() != 2 {
		t.Errorf("Expected 2 units, got %d", m.UnitCount())
	}
}

func TestRemoveForeignUnitPanics(t *testing.T) {
	w := &world{}
	a := NewManager(w.lookup)
	b := NewManager(w.lookup)

	u := a.InsertObject(1, 0, w.add(rl.Vector3{}), false)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when removing a unit of another manager")
		}
	}()
	b.Remove(u)
}

func TestReinsertKeepsFlags(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	u := m.InsertDrivable(5, 3, w.add(rl.Vector3{Z: 10}), true)
	w.pos[u.Handle()] = rl.Vector3{Z: 500}

	nu := m.Reinsert(u)
	if nu == nil {
		t.Fatal("Reinsert failed")
	}
	if !nu.Flag().OnBit(Drivable, PermRecalcAABB) || !nu.Active() {
		t.Errorf("Expected flags to survive, got %#x", nu.Flag().Bits())
	}
	if nu.Range() != 8 {
		t.Errorf("Expected range 8, got %v", nu.Range())
	}
	if m.UnitCount() != 3 {
		t.Errorf("Expected 3 units, got %d", m.UnitCount())
	}

	m.SearchPoint(1, rl.Vector3{Z: 500}, NewFlag(Drivable))
	sameSet(t, "after reinsert", handles(m.Results()), []Handle{0})
	checkIndex(t, m)
}

func TestResizeAppliesOnNextCalc(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	u := m.InsertObject(1, 0, w.add(rl.Vector3{}), false)
	m.Calc()

	m.SearchPoint(1, rl.Vector3{X: 20}, NewFlag(Object))
	if len(m.Results()) != 0 {
		t.Fatal("Small unit should not reach x=20")
	}

	m.Resize(u, 15, 5)
	if u.Flag().OffBit(TempRecalcAABB) {
		t.Error("Resize should request a one-off recalculation")
	}
	m.Calc()
	if u.Flag().OnBit(TempRecalcAABB) {
		t.Error("Calc should clear the one-off recalculation")
	}

	m.SearchPoint(1, rl.Vector3{X: 20}, NewFlag(Object))
	if len(m.Results()) != 1 {
		t.Error("Resized unit should reach x=20")
	}
}

func TestSpatialCache(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)

	for i := 0; i < 20; i++ {
		m.InsertDrivable(5, 0, w.add(rl.Vector3{X: float32(i * 10), Z: float32(i%4) * 10}), false)
	}
	m.InsertObject(5, 0, w.add(rl.Vector3{X: 40}), false)
	m.Calc()

	if m.IsSphereInSpatialCache(1, rl.Vector3{}, NewFlag(Drivable)) {
		t.Error("Calc should invalidate the cache")
	}

	m.SearchPoint(80, rl.Vector3{X: 60}, NewFlag(Drivable, Object))
	scans := m.Scans()

	if !m.IsSphereInSpatialCache(20, rl.Vector3{X: 50, Z: 10}, NewFlag(Drivable)) {
		t.Fatal("Expected contained query to hit the cache")
	}
	if m.IsSphereInSpatialCache(20, rl.Vector3{X: 130}, NewFlag(Drivable)) {
		t.Error("Query leaving the cached square should miss")
	}
	if m.IsSphereInSpatialCache(20, rl.Vector3{X: 60}, NewFlag(Driver)) {
		t.Error("Query with a flag outside the cached one should miss")
	}

	m.SearchPointCached(20, rl.Vector3{X: 50, Z: 10}, NewFlag(Drivable))
	cached := handles(m.Results())
	var iterated []Handle
	for {
		h, ok := m.NextDrivable()
		if !ok {
			break
		}
		iterated = append(iterated, h)
	}
	if m.Scans() != scans {
		t.Errorf("Cache hit should not scan, scans went from %d to %d", scans, m.Scans())
	}

	m.SearchPoint(20, rl.Vector3{X: 50, Z: 10}, NewFlag(Drivable))
	fresh := handles(m.Results())
	if m.Scans() != scans+1 {
		t.Errorf("Expected one more scan, got %d", m.Scans()-scans)
	}

	if len(fresh) == 0 {
		t.Fatal("Expected the fresh query to find drivables")
	}
	sameSet(t, "cached vs fresh", cached, fresh)
	sameSet(t, "iterated vs fresh", iterated, fresh)
}

// space draws positions, ranges and per-step moves for a coherence run.
type space struct {
	pos   func(rng *rand.Rand) rl.Vector3
	rng   func(rng *rand.Rand) float32
	speed func(rng *rand.Rand) float32
	shift func(rng *rand.Rand) float32
}

var continuousSpace = space{
	pos: func(rng *rand.Rand) rl.Vector3 {
		return rl.Vector3{X: rng.Float32()*2000 - 1000, Z: rng.Float32()*2000 - 1000}
	},
	rng:   func(rng *rand.Rand) float32 { return 1 + rng.Float32()*50 },
	speed: func(rng *rand.Rand) float32 { return rng.Float32() * 20 },
	shift: func(rng *rand.Rand) float32 { return rng.Float32()*60 - 30 },
}

// gridSpace snaps everything to multiples of 10 so bounds tie and boxes
// touch edge to edge.
var gridSpace = space{
	pos: func(rng *rand.Rand) rl.Vector3 {
		return rl.Vector3{X: float32(rng.Intn(20))*10 - 100, Z: float32(rng.Intn(20))*10 - 100}
	},
	rng:   func(rng *rand.Rand) float32 { return float32(1+rng.Intn(4)) * 10 },
	speed: func(rng *rand.Rand) float32 { return float32(rng.Intn(2)) * 10 },
	shift: func(rng *rand.Rand) float32 { return float32(rng.Intn(3)-1) * 10 },
}

func runCoherence(t *testing.T, seed int64, sp space) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	w := &world{}
	m := NewManager(w.lookup)

	live := map[Handle]*Unit{}
	var order []Handle
	kinds := []FlagBit{Driver, Object, Drivable}
	all := NewFlag(Driver, Object, Drivable)

	for step := 0; step < 300; step++ {
		switch op := rng.Intn(10); {
		case op < 4 && len(live) < 120:
			h := w.add(sp.pos(rng))
			var u *Unit
			switch kinds[rng.Intn(len(kinds))] {
			case Driver:
				u = m.InsertDriver(sp.rng(rng), sp.speed(rng), h, true)
			case Object:
				u = m.InsertObject(sp.rng(rng), sp.speed(rng), h, true)
			default:
				u = m.InsertDrivable(sp.rng(rng), sp.speed(rng), h, true)
			}
			live[h] = u
			order = append(order, h)
		case op < 6 && len(live) > 0:
			i := rng.Intn(len(order))
			h := order[i]
			m.Remove(live[h])
			delete(live, h)
			order = append(order[:i], order[i+1:]...)
		case op < 7 && len(live) > 0:
			h := order[rng.Intn(len(order))]
			m.Resize(live[h], sp.rng(rng), sp.speed(rng))
		default:
			for _, h := range order {
				p := w.pos[h]
				p.X += sp.shift(rng)
				p.Z += sp.shift(rng)
				w.pos[h] = p
			}
		}

		m.Calc()
		checkIndex(t, m)

		if m.UnitCount() != len(live)+2 {
			t.Fatalf("seed %d step %d: expected %d units, got %d", seed, step, len(live)+2, m.UnitCount())
		}

		for _, h := range order {
			u := live[h]
			self := extentOf(w, u)
			var want []Handle
			for _, oh := range order {
				if oh != h && self.overlaps(extentOf(w, live[oh])) {
					want = append(want, oh)
				}
			}

			m.Search(u, all)
			sameSet(t, "unit search", handles(m.Results()), want)
		}

		center := sp.pos(rng)
		radius := sp.rng(rng) * 6
		query := extent{center.X - radius, center.X + radius, center.Z - radius, center.Z + radius}
		var want []Handle
		for _, h := range order {
			if query.overlaps(extentOf(w, live[h])) {
				want = append(want, h)
			}
		}
		m.SearchPoint(radius, center, all)
		sameSet(t, "point search", handles(m.Results()), want)

		if t.Failed() {
			t.Fatalf("seed %d diverged at step %d", seed, step)
		}
	}
}

func TestCoherenceAgainstBruteForce(t *testing.T) {
	runCoherence(t, 7, continuousSpace)
}

func TestCoherenceOnGrid(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 7, 42} {
		runCoherence(t, seed, gridSpace)
	}
}

func TestTouchingBoxesOverlap(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)
	a := m.InsertDriver(10, 0, w.add(rl.Vector3{}), true)
	b := m.InsertDriver(10, 0, w.add(rl.Vector3{X: 20}), true)
	c := m.InsertDriver(10, 0, w.add(rl.Vector3{Z: 20}), true)
	m.InsertDriver(10, 0, w.add(rl.Vector3{X: 20.5, Z: 20.5}), true)
	m.Calc()
	checkIndex(t, m)

	m.Search(a, NewFlag(Driver))
	sameSet(t, "touching", handles(m.Results()), []Handle{b.Handle(), c.Handle()})
}

func TestTiedBoundsStayStable(t *testing.T) {
	w := &world{}
	m := NewManager(w.lookup)
	var units []*Unit
	for i := 0; i < 6; i++ {
		units = append(units, m.InsertDriver(10, 0, w.add(rl.Vector3{X: float32(i) * 5}), true))
	}
	m.Calc()
	checkIndex(t, m)

	lowOrder := func() []int {
		return lo.Map(m.lows[:m.unitCount], func(p lowPoint, _ int) int { return p.unitID })
	}
	before := lowOrder()
	m.Calc()
	if after := lowOrder(); !slices.Equal(before, after) {
		t.Errorf("Expected tied low points to keep their order, got %v then %v", before, after)
	}

	// Removing units that share a low edge rebuilds minLowPoint.
	for _, i := range []int{2, 0, 5} {
		m.Remove(units[i])
		checkIndex(t, m)
		m.Calc()
		checkIndex(t, m)
	}

	m.Search(units[1], NewFlag(Driver))
	sameSet(t, "after removals", handles(m.Results()), []Handle{units[3].Handle(), units[4].Handle()})
}

func TestHalvingSearch(t *testing.T) {
	keys := []int{1, 3, 3, 5, 8, 13, 21}

	for n := 0; n <= len(keys); n++ {
		for x := 0; x < 25; x++ {
			want := sort.Search(n, func(i int) bool { return keys[i] >= x })
			got := halvingSearch(n, func(i int) bool { return keys[i] < x })
			if got != want {
				t.Errorf("n=%d x=%d: expected %d, got %d", n, x, want, got)
			}
		}
	}
}
