// Package kcltest encodes small collision blobs in memory for tests and tools.
package kcltest

import (
	"bytes"
	"encoding/binary"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	headerSize = 0x3c
	prismSize  = 0x10
)

type prism struct {
	Height    float32
	PosIdx    uint16
	FNrmIdx   uint16
	ENrm1Idx  uint16
	ENrm2Idx  uint16
	ENrm3Idx  uint16
	Attribute uint16
}

// Builder accumulates prisms and encodes them as a blob. By default every
// prism goes into one root leaf covering a cube of width 1<<AreaShift
// starting at AreaMin.
type Builder struct {
	Thickness    float32
	SphereRadius float32
	AreaMin      rl.Vector3
	AreaShift    uint32

	// Blocks, when set, replaces the generated octree. The shift fields are
	// written to the header as-is in that case.
	Blocks            []byte
	BlockWidthShift   uint32
	AreaXBlocksShift  uint32
	AreaXYBlocksShift uint32

	vertices []rl.Vector3
	normals  []rl.Vector3
	prisms   []prism
}

// New returns a builder with a 1024-wide area centered on the origin.
func New() *Builder {
	return &Builder{
		Thickness:    30,
		SphereRadius: 250,
		AreaMin:      rl.Vector3{X: -512, Y: -512, Z: -512},
		AreaShift:    10,
	}
}

// AddPrism appends a raw prism and returns its one-based index.
func (b *Builder) AddPrism(height float32, v1, fnrm, enrm1, enrm2, enrm3 rl.Vector3, attr uint16) uint16 {
	base := uint16(len(b.normals))
	b.vertices = append(b.vertices, v1)
	b.normals = append(b.normals, fnrm, enrm1, enrm2, enrm3)
	b.prisms = append(b.prisms, prism{
		Height:    height,
		PosIdx:    uint16(len(b.vertices) - 1),
		FNrmIdx:   base,
		ENrm1Idx:  base + 1,
		ENrm2Idx:  base + 2,
		ENrm3Idx:  base + 3,
		Attribute: attr,
	})
	return uint16(len(b.prisms))
}

// AddTriangle derives the prism normals for triangle a, b, c. The face
// normal follows (b-a) x (c-a) and every edge normal points away from the
// opposite vertex.
func (b *Builder) AddTriangle(a, bv, c rl.Vector3, attr uint16) uint16 {
	fnrm := rl.Vector3Normalize(rl.Vector3CrossProduct(rl.Vector3Subtract(bv, a), rl.Vector3Subtract(c, a)))

	enrm1 := edgeNormal(c, a, bv, fnrm)
	enrm2 := edgeNormal(a, bv, c, fnrm)
	enrm3 := edgeNormal(bv, c, a, fnrm)
	height := rl.Vector3DotProduct(rl.Vector3Subtract(bv, a), enrm3)

	return b.AddPrism(height, a, fnrm, enrm1, enrm2, enrm3, attr)
}

// AddQuad splits a, b, c, d into two triangles sharing the a-c diagonal.
func (b *Builder) AddQuad(a, bv, c, d rl.Vector3, attr uint16) (uint16, uint16) {
	return b.AddTriangle(a, bv, c, attr), b.AddTriangle(a, c, d, attr)
}

// AddFloor tiles an n by n grid of cells of the given size at height y,
// facing up, starting at (x0, z0).
func (b *Builder) AddFloor(x0, z0, y, size float32, n int, attr uint16) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := x0 + float32(i)*size
			z := z0 + float32(j)*size
			b.AddQuad(
				rl.Vector3{X: x, Y: y, Z: z},
				rl.Vector3{X: x, Y: y, Z: z + size},
				rl.Vector3{X: x + size, Y: y, Z: z + size},
				rl.Vector3{X: x + size, Y: y, Z: z},
				attr,
			)
		}
	}
}

func edgeNormal(p, q, opposite, fnrm rl.Vector3) rl.Vector3 {
	n := rl.Vector3Normalize(rl.Vector3CrossProduct(rl.Vector3Subtract(q, p), fnrm))
	if rl.Vector3DotProduct(n, rl.Vector3Subtract(opposite, p)) > 0 {
		n = rl.Vector3Negate(n)
	}
	return n
}

// Leaf encodes a leaf list: a leading pad slot, the indices, a terminator.
func Leaf(indices ...uint16) []byte {
	out := make([]byte, 2*(len(indices)+2))
	for i, idx := range indices {
		binary.BigEndian.PutUint16(out[2*(i+1):], idx)
	}
	return out
}

// Bytes encodes the blob.
func (b *Builder) Bytes() []byte {
	normals := b.normals
	for len(normals)*12 < prismSize {
		normals = append(normals, rl.Vector3{})
	}

	posOff := uint32(headerSize)
	nrmOff := posOff + uint32(len(b.vertices))*12
	prismOff := nrmOff + uint32(len(normals))*12 - prismSize
	blockOff := prismOff + uint32(len(b.prisms)+1)*prismSize

	blocks := b.Blocks
	widthShift, xShift, xyShift := b.BlockWidthShift, b.AreaXBlocksShift, b.AreaXYBlocksShift
	if blocks == nil {
		indices := make([]uint16, len(b.prisms))
		for i := range indices {
			indices[i] = uint16(i + 1)
		}
		blocks = make([]byte, 4)
		binary.BigEndian.PutUint32(blocks, 0x80000000|4)
		blocks = append(blocks, Leaf(indices...)...)
		widthShift, xShift, xyShift = b.AreaShift, 0, 0
	}

	mask := ^uint32(0) << b.AreaShift

	var buf bytes.Buffer
	write := func(v any) {
		_ = binary.Write(&buf, binary.BigEndian, v)
	}

	write(posOff)
	write(nrmOff)
	write(prismOff)
	write(blockOff)
	write(b.Thickness)
	write([3]float32{b.AreaMin.X, b.AreaMin.Y, b.AreaMin.Z})
	write([3]uint32{mask, mask, mask})
	write([3]uint32{widthShift, xShift, xyShift})
	write(b.SphereRadius)

	for _, v := range b.vertices {
		write([3]float32{v.X, v.Y, v.Z})
	}
	// The last prismSize bytes of the normal section double as prism 0.
	for _, n := range normals {
		write([3]float32{n.X, n.Y, n.Z})
	}
	for _, p := range b.prisms {
		write(p)
	}
	buf.Write(blocks)

	return buf.Bytes()
}
