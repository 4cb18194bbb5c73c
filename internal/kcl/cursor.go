package kcl

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/physics"
)

// PrismCacheSize bounds the narrow-scope cache, terminator included.
const PrismCacheSize = 256

type iterSource uint8

const (
	iterNone iterSource = iota
	iterBlock
	iterCache
)

// prismIter walks a zero-terminated prism list. pos is advanced before each
// read, so a fresh iterator sits one slot before the first entry.
type prismIter struct {
	src iterSource
	pos int
}

// Cursor holds the mutable state of queries against one Data: the current
// query, the resumable prism iterator and the narrow-scope prism cache.
// A Cursor must not be shared between goroutines; give each its own.
type Cursor struct {
	data *Data

	pos      rl.Vector3
	prevPos  rl.Vector3
	movement rl.Vector3
	radius   float32
	typeMask TypeMask

	iter prismIter

	cache        [PrismCacheSize]uint16
	cacheTop     int
	cachedPos    rl.Vector3
	cachedRadius float32
}

// NewCursor returns a cursor over d with an empty cache.
func (d *Data) NewCursor() *Cursor {
	return &Cursor{data: d}
}

// Data returns the terrain the cursor reads.
func (c *Cursor) Data() *Data {
	return c.data
}

// PrismCache returns cache slot i. Slot 0 being zero means the cache is empty.
func (c *Cursor) PrismCache(i int) uint16 {
	return c.cache[i]
}

// CachedPrisms returns the prisms currently held by the narrow-scope cache.
func (c *Cursor) CachedPrisms() []uint16 {
	return c.cache[:c.cacheTop]
}

func (c *Cursor) startBlock(pos rl.Vector3) {
	if leaf, ok := c.data.SearchBlock(pos); ok {
		c.iter = prismIter{src: iterBlock, pos: leaf}
		return
	}
	c.iter = prismIter{}
}

func (c *Cursor) startCache() {
	c.iter = prismIter{src: iterCache, pos: -1}
}

// next advances the iterator and returns the next prism index, or 0 when the
// list is exhausted. Indices past the prism table read as the terminator.
func (c *Cursor) next() uint16 {
	var idx uint16
	switch c.iter.src {
	case iterBlock:
		c.iter.pos += 2
		idx = c.data.leafEntry(c.iter.pos)
	case iterCache:
		c.iter.pos++
		if c.iter.pos < PrismCacheSize {
			idx = c.cache[c.iter.pos]
		}
	}
	if int(idx) >= len(c.data.prisms) {
		return 0
	}
	return idx
}

func (c *Cursor) current() uint16 {
	switch c.iter.src {
	case iterBlock:
		return c.data.leafEntry(c.iter.pos)
	case iterCache:
		return c.cache[c.iter.pos]
	}
	return 0
}

func (c *Cursor) query() sphereQuery {
	return sphereQuery{pos: c.pos, movement: c.movement, radius: c.radius, mask: c.typeMask}
}

// LookupPoint prepares point checks at pos. A prevPos with an infinite Y
// selects the static variants.
func (c *Cursor) LookupPoint(pos, prevPos rl.Vector3, mask TypeMask) {
	c.startBlock(pos)
	c.pos = pos
	c.prevPos = prevPos
	c.movement = rl.Vector3Subtract(pos, prevPos)
	c.typeMask = mask
}

// LookupSphere prepares sphere checks. The radius is clamped to the terrain's
// maximum sphere radius.
func (c *Cursor) LookupSphere(radius float32, pos, prevPos rl.Vector3, mask TypeMask) {
	c.startBlock(pos)
	c.pos = pos
	c.prevPos = prevPos
	c.movement = rl.Vector3Subtract(pos, prevPos)
	c.radius = math32.Min(radius, c.data.header.SphereRadius)
	c.typeMask = mask
}

// LookupSphereCached reuses the narrow-scope cache when the sphere (pos,
// radius) lies strictly inside the sphere the cache was built for, and falls
// back to an octree lookup otherwise.
func (c *Cursor) LookupSphereCached(pos, prevPos rl.Vector3, mask TypeMask, radius float32) {
	if c.insideCachedSphere(pos, radius) {
		c.radius = radius
		c.startCache()
	} else {
		c.startBlock(pos)
		c.radius = math32.Min(c.data.header.SphereRadius, radius)
	}

	c.pos = pos
	c.prevPos = prevPos
	c.movement = rl.Vector3Subtract(pos, prevPos)
	c.typeMask = mask
}

// LookupPointCached is LookupPoint over the narrow-scope cache when pos
// lies strictly inside the cached sphere.
func (c *Cursor) LookupPointCached(pos, prevPos rl.Vector3, mask TypeMask) {
	if c.insideCachedSphere(pos, 0) {
		c.startCache()
	} else {
		c.startBlock(pos)
	}

	c.pos = pos
	c.prevPos = prevPos
	c.movement = rl.Vector3Subtract(pos, prevPos)
	c.typeMask = mask
}

func (c *Cursor) insideCachedSphere(pos rl.Vector3, radius float32) bool {
	diff := c.cachedRadius - radius
	if diff < 0 {
		return false
	}
	return physics.SquaredLength(rl.Vector3Subtract(c.cachedPos, pos)) < float32(diff*diff)
}

// NarrowScopeLocal fills the prism cache with every prism near pos that could
// collide with a sphere of radius. Nothing is cached when radius exceeds the
// terrain's maximum sphere radius. Past PrismCacheSize-1 entries the rest
// is dropped.
func (c *Cursor) NarrowScopeLocal(pos rl.Vector3, radius float32, mask TypeMask) {
	c.cacheTop = 0
	c.pos = pos
	c.radius = radius
	c.typeMask = mask
	c.cachedPos = pos
	c.cachedRadius = radius

	if radius <= c.data.header.SphereRadius {
		c.startBlock(pos)
		c.narrowPolygonEachBlock()
	}

	c.cache[c.cacheTop] = 0
}

func (c *Cursor) narrowPolygonEachBlock() {
	for {
		if _, ok := c.CheckSphereSingle(); !ok {
			return
		}

		c.cache[c.cacheTop] = c.current()
		c.cacheTop++

		if c.cacheTop == PrismCacheSize {
			c.cacheTop--
			logger.Warn("prism cache full, truncating", "pos", c.pos, "radius", c.radius)
			return
		}
	}
}

func (c *Cursor) inCache(idx uint16) bool {
	for _, cached := range c.cache[:c.cacheTop] {
		if cached == idx {
			return true
		}
	}
	return false
}

// CheckSphereCollision returns the next sphere hit, using the movement test
// when the lookup was given a finite previous position.
func (c *Cursor) CheckSphereCollision() (Hit, bool) {
	if physics.IsFinite(c.prevPos.Y) {
		return c.CheckSphereMovement()
	}
	return c.CheckSphere()
}

// CheckPointCollision is CheckSphereCollision for point lookups.
func (c *Cursor) CheckPointCollision() (Hit, bool) {
	if physics.IsFinite(c.prevPos.Y) {
		return c.CheckPointMovement()
	}
	return c.CheckPoint()
}

// CheckSphere resumes the current prism list and returns the next hit. Once
// the list is exhausted it returns false until the next lookup.
func (c *Cursor) CheckSphere() (Hit, bool) {
	return c.scan(func(p *Prism, q *sphereQuery) (Hit, bool) {
		return c.data.checkCollision(p, q, checkPlane)
	}, false)
}

// CheckSphereSingle is CheckSphere with the wider edge test, skipping prisms
// already held by the narrow-scope cache.
func (c *Cursor) CheckSphereSingle() (Hit, bool) {
	return c.scan(func(p *Prism, q *sphereQuery) (Hit, bool) {
		return c.data.checkCollision(p, q, checkEdge)
	}, true)
}

func (c *Cursor) CheckSphereMovement() (Hit, bool) {
	return c.scan(func(p *Prism, q *sphereQuery) (Hit, bool) {
		return c.data.checkCollision(p, q, checkMovement)
	}, false)
}

func (c *Cursor) CheckPoint() (Hit, bool) {
	return c.scan(func(p *Prism, q *sphereQuery) (Hit, bool) {
		return c.data.checkPointCollision(p, q, false)
	}, false)
}

func (c *Cursor) CheckPointMovement() (Hit, bool) {
	return c.scan(func(p *Prism, q *sphereQuery) (Hit, bool) {
		return c.data.checkPointCollision(p, q, true)
	}, false)
}

func (c *Cursor) scan(test func(*Prism, *sphereQuery) (Hit, bool), skipCached bool) (Hit, bool) {
	if c.iter.src == iterNone {
		return Hit{}, false
	}

	q := c.query()
	for idx := c.next(); idx != 0; idx = c.next() {
		if skipCached && c.inCache(idx) {
			continue
		}
		if hit, ok := test(&c.data.prisms[idx], &q); ok {
			return hit, true
		}
	}

	c.iter = prismIter{}
	return Hit{}, false
}
