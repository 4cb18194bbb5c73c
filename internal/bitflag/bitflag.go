// Package bitflag provides a typed bit set whose bits are named by an enum of bit positions.
package bitflag

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Flag stores bits of type T addressed by positions of enum type E.
// The zero value has no bits set.
type Flag[T constraints.Unsigned, E constraints.Integer] struct {
	bits T
}

// New returns a flag with the given positions set.
func New[T constraints.Unsigned, E constraints.Integer](es ...E) Flag[T, E] {
	var f Flag[T, E]
	f.SetBit(es...)
	return f
}

// FromMask wraps a raw mask.
func FromMask[T constraints.Unsigned, E constraints.Integer](mask T) Flag[T, E] {
	return Flag[T, E]{bits: mask}
}

// Capacity is the number of addressable bit positions.
func (f Flag[T, E]) Capacity() int {
	return bits.Len64(uint64(^T(0)))
}

func (f Flag[T, E]) bit(e E) T {
	if e < 0 || int(e) >= f.Capacity() {
		panic(fmt.Sprintf("bitflag: position %d out of range for %d-bit flag", e, f.Capacity()))
	}
	return T(1) << uint(e)
}

// MakeMask combines positions into a raw mask without touching f.
func (f Flag[T, E]) MakeMask(es ...E) T {
	var mask T
	for _, e := range es {
		mask |= f.bit(e)
	}
	return mask
}

func (f *Flag[T, E]) SetBit(es ...E) *Flag[T, E] {
	return f.Set(f.MakeMask(es...))
}

func (f *Flag[T, E]) ResetBit(es ...E) *Flag[T, E] {
	return f.Reset(f.MakeMask(es...))
}

func (f *Flag[T, E]) ToggleBit(es ...E) *Flag[T, E] {
	f.bits ^= f.MakeMask(es...)
	return f
}

func (f *Flag[T, E]) ChangeBit(on bool, es ...E) *Flag[T, E] {
	return f.Change(on, f.MakeMask(es...))
}

// OnBit reports whether any of the positions is set.
func (f Flag[T, E]) OnBit(es ...E) bool {
	return f.On(f.MakeMask(es...))
}

// OffBit reports whether all of the positions are clear.
func (f Flag[T, E]) OffBit(es ...E) bool {
	return f.Off(f.MakeMask(es...))
}

// MaskBit returns the subset of the positions that are set.
func (f Flag[T, E]) MaskBit(es ...E) T {
	return f.bits & f.MakeMask(es...)
}

func (f *Flag[T, E]) Set(mask T) *Flag[T, E] {
	f.bits |= mask
	return f
}

func (f *Flag[T, E]) Reset(mask T) *Flag[T, E] {
	f.bits &^= mask
	return f
}

func (f *Flag[T, E]) Change(on bool, mask T) *Flag[T, E] {
	if on {
		return f.Set(mask)
	}
	return f.Reset(mask)
}

// On reports whether any bit of mask is set.
func (f Flag[T, E]) On(mask T) bool {
	return f.bits&mask != 0
}

// OnAll reports whether every bit of mask is set.
func (f Flag[T, E]) OnAll(mask T) bool {
	return f.bits&mask == mask
}

// Off reports whether no bit of mask is set.
func (f Flag[T, E]) Off(mask T) bool {
	return f.bits&mask == 0
}

func (f *Flag[T, E]) MakeAllZero() {
	f.bits = 0
}

func (f Flag[T, E]) Bits() T {
	return f.bits
}

func (f *Flag[T, E]) SetBits(mask T) {
	f.bits = mask
}
