// Package boxcol is the broad phase for everything that moves: a pool of
// units indexed by two sorted arrays of Z extents, searched by unit or by
// sphere and filtered on X extents and type flags.
package boxcol

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/bitflag"
)

// FlagBit names a bit of a unit's flag. The low byte is the unit type and
// the rest is state.
type FlagBit uint8

const (
	Driver         FlagBit = 0
	Object         FlagBit = 3
	Drivable       FlagBit = 4
	PermRecalcAABB FlagBit = 8  // recompute extents every Calc
	Intangible     FlagBit = 9  // never returned by a search
	Active         FlagBit = 10 // indexed
	TempRecalcAABB FlagBit = 11 // recompute extents on the next Calc only
)

type Flag = bitflag.Flag[uint32, FlagBit]

// NewFlag returns a flag with the given bits set.
func NewFlag(bits ...FlagBit) Flag {
	return bitflag.New[uint32](bits...)
}

// Handle identifies the caller's entity behind a unit. The manager never
// interprets it beyond passing it to the PositionFunc.
type Handle int

// PositionFunc reports the current position of an entity. It is called on
// insert and on every Calc for units that recompute their extents, so the
// caller must keep it answering for as long as the unit is indexed.
type PositionFunc func(Handle) rl.Vector3

// Unit is one entry of the pool.
type Unit struct {
	id     int
	handle Handle
	radius float32
	rng    float32 // radius + max speed
	flag   Flag

	highIdx int
	lowIdx  int
	xMax    float32
	xMin    float32

	pinned    bool
	pinnedPos rl.Vector3
}

func (u *Unit) init(radius, maxSpeed float32, pos rl.Vector3, flag Flag, h Handle) {
	u.handle = h
	u.radius = radius
	u.rng = radius + maxSpeed
	u.flag = flag
	u.flag.SetBit(Active)
	u.pinned = false
	u.xMax = pos.X + u.rng
	u.xMin = pos.X - u.rng
}

func (u *Unit) Handle() Handle  { return u.handle }
func (u *Unit) Radius() float32 { return u.radius }
func (u *Unit) Range() float32  { return u.rng }
func (u *Unit) Flag() Flag      { return u.flag }
func (u *Unit) Active() bool    { return u.flag.OnBit(Active) }

// XRange returns the X extent computed on the last insert or Calc.
func (u *Unit) XRange() (lo, hi float32) {
	return u.xMin, u.xMax
}

type lowPoint struct {
	z         float32
	highPoint int
	unitID    int
}

// highPoint.minLowPoint is the smallest lowPoint index over this high point
// and every high point above it. Searches scan low points from there.
type highPoint struct {
	z           float32
	lowPoint    int
	minLowPoint int
}
