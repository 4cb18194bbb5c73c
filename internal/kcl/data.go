// Package kcl reads the course collision format: a flat big-endian blob of
// triangular prisms indexed by an octree of blocks.
package kcl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"kartcol/internal/logging"
	"kartcol/internal/physics"
)

const (
	headerSize = 0x3c
	prismSize  = 0x10
	vec3Size   = 0xc
)

var (
	ErrTruncated  = errors.New("kcl: blob truncated")
	ErrBadOffsets = errors.New("kcl: section offsets out of order")
	ErrBadPrism   = errors.New("kcl: prism references missing data")
)

var logger = logging.For("kcl")

// Header mirrors the 0x3c-byte file header.
type Header struct {
	PosOffset         uint32
	NrmOffset         uint32
	PrismOffset       uint32 // one prism before the first real one
	BlockOffset       uint32
	PrismThickness    float32
	AreaMinPos        [3]float32
	AreaXWidthMask    uint32
	AreaYWidthMask    uint32
	AreaZWidthMask    uint32
	BlockWidthShift   uint32
	AreaXBlocksShift  uint32
	AreaXYBlocksShift uint32
	SphereRadius      float32
}

// Prism is one triangular prism. Only the first vertex is stored; the other
// two are reconstructed from the normals and the height.
type Prism struct {
	Height    float32
	PosIdx    uint16
	FNrmIdx   uint16
	ENrm1Idx  uint16
	ENrm2Idx  uint16
	ENrm3Idx  uint16
	Attribute uint16
}

// Data is an immutable parsed terrain. All mutable query state lives in Cursor,
// so one Data may be shared by any number of cursors.
type Data struct {
	header Header

	areaMinPos rl.Vector3
	blocks     []byte
	prisms     []Prism // index 0 is unused
	normals    []rl.Vector3
	vertices   []rl.Vector3

	bbox physics.AABB
}

// Parse decodes blob. The blob is not retained beyond the octree section.
func Parse(blob []byte) (*Data, error) {
	if len(blob) < headerSize {
		return nil, fmt.Errorf("failed to read header (%d bytes): %w", len(blob), ErrTruncated)
	}

	var h Header
	if err := binary.Read(bytes.NewReader(blob[:headerSize]), binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}

	size := uint64(len(blob))
	switch {
	case uint64(h.PosOffset) > uint64(h.NrmOffset),
		uint64(h.NrmOffset) > uint64(h.PrismOffset)+prismSize,
		uint64(h.PrismOffset) > uint64(h.BlockOffset):
		return nil, fmt.Errorf("failed to validate header %+v: %w", h, ErrBadOffsets)
	case uint64(h.BlockOffset) >= size, uint64(h.PrismOffset)+prismSize > size:
		return nil, fmt.Errorf("failed to locate blocks at %#x of %#x: %w", h.BlockOffset, size, ErrTruncated)
	}

	d := &Data{
		header:     h,
		areaMinPos: rl.Vector3{X: h.AreaMinPos[0], Y: h.AreaMinPos[1], Z: h.AreaMinPos[2]},
		blocks:     blob[h.BlockOffset:],
	}

	d.vertices = readVectors(blob[h.PosOffset:h.NrmOffset])
	d.normals = readVectors(blob[h.NrmOffset : uint64(h.PrismOffset)+prismSize])
	if err := d.readPrisms(blob[h.PrismOffset:h.BlockOffset]); err != nil {
		return nil, err
	}
	d.computeBBox()

	logger.Debug("parsed terrain", "prisms", len(d.prisms)-1, "normals", len(d.normals),
		"vertices", len(d.vertices), "thickness", h.PrismThickness, "sphereRadius", h.SphereRadius)

	return d, nil
}

func readVectors(b []byte) []rl.Vector3 {
	out := make([]rl.Vector3, len(b)/vec3Size)
	for i := range out {
		out[i] = readVec3(b[i*vec3Size:])
	}
	return out
}

func readVec3(b []byte) rl.Vector3 {
	return rl.Vector3{X: readF32(b), Y: readF32(b[4:]), Z: readF32(b[8:])}
}

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

func (d *Data) readPrisms(b []byte) error {
	count := len(b) / prismSize
	if count == 0 {
		d.prisms = make([]Prism, 1)
		return nil
	}

	d.prisms = make([]Prism, count)
	for i := 1; i < count; i++ {
		r := b[i*prismSize:]
		p := Prism{
			Height:    readF32(r),
			PosIdx:    binary.BigEndian.Uint16(r[4:]),
			FNrmIdx:   binary.BigEndian.Uint16(r[6:]),
			ENrm1Idx:  binary.BigEndian.Uint16(r[8:]),
			ENrm2Idx:  binary.BigEndian.Uint16(r[10:]),
			ENrm3Idx:  binary.BigEndian.Uint16(r[12:]),
			Attribute: binary.BigEndian.Uint16(r[14:]),
		}

		nrms := len(d.normals)
		if int(p.PosIdx) >= len(d.vertices) || int(p.FNrmIdx) >= nrms ||
			int(p.ENrm1Idx) >= nrms || int(p.ENrm2Idx) >= nrms || int(p.ENrm3Idx) >= nrms {
			return fmt.Errorf("failed to load prism %d %+v: %w", i, p, ErrBadPrism)
		}
		d.prisms[i] = p
	}
	return nil
}

// GetVertex reconstructs a prism corner from vertex 1: the corner lies along
// fnrm x enrm at the distance where it reaches height along enrm3.
func GetVertex(height float32, v1, fnrm, enrm3, enrm rl.Vector3) rl.Vector3 {
	cross := physics.Cross(fnrm, enrm)
	dp := physics.Dot(cross, enrm3)
	cross = rl.Vector3Scale(cross, height/dp)
	return rl.Vector3Add(cross, v1)
}

// Vertices returns the three corners of prism idx.
func (d *Data) Vertices(idx uint16) [3]rl.Vector3 {
	p := &d.prisms[idx]
	fnrm := d.normals[p.FNrmIdx]
	enrm3 := d.normals[p.ENrm3Idx]
	v1 := d.vertices[p.PosIdx]

	return [3]rl.Vector3{
		v1,
		GetVertex(p.Height, v1, fnrm, enrm3, d.normals[p.ENrm1Idx]),
		GetVertex(p.Height, v1, fnrm, enrm3, d.normals[p.ENrm2Idx]),
	}
}

func (d *Data) computeBBox() {
	d.bbox = physics.EmptyAABB()
	for i := 1; i < len(d.prisms); i++ {
		for _, v := range d.Vertices(uint16(i)) {
			d.bbox.Grow(v)
		}
	}
}

// SearchBlock walks the octree to the leaf containing point. The returned
// offset addresses the slot before the first prism index of the leaf list,
// relative to the start of the block section. ok is false when point is
// outside the area or the tree is malformed.
func (d *Data) SearchBlock(point rl.Vector3) (leaf int, ok bool) {
	h := &d.header

	x := uint32(int32(point.X - d.areaMinPos.X))
	y := uint32(int32(point.Y - d.areaMinPos.Y))
	z := uint32(int32(point.Z - d.areaMinPos.Z))

	if x&h.AreaXWidthMask != 0 || y&h.AreaYWidthMask != 0 || z&h.AreaZWidthMask != 0 {
		return 0, false
	}

	shift := h.BlockWidthShift
	cur := 0
	index := 4 * ((z>>shift)<<h.AreaXYBlocksShift | (y>>shift)<<h.AreaXBlocksShift | x>>shift)

	for {
		at := cur + int(index)
		if at < 0 || at+4 > len(d.blocks) {
			return 0, false
		}

		offset := binary.BigEndian.Uint32(d.blocks[at:])
		if offset&0x80000000 != 0 {
			return cur + int(offset&0x7fffffff), true
		}

		if shift == 0 {
			return 0, false
		}
		shift--
		cur += int(offset)

		index = 4 * ((x>>shift)&1 | ((y>>shift)&1)<<1 | ((z>>shift)&1)<<2)
	}
}

// leafEntry reads the prism index at byte offset pos of the block section,
// treating anything past the end as the terminator.
func (d *Data) leafEntry(pos int) uint16 {
	if pos < 0 || pos+2 > len(d.blocks) {
		return 0
	}
	return binary.BigEndian.Uint16(d.blocks[pos:])
}

// LeafPrisms collects the prism indices of the leaf list at offset.
func (d *Data) LeafPrisms(leaf int) []uint16 {
	var out []uint16
	for pos := leaf + 2; ; pos += 2 {
		idx := d.leafEntry(pos)
		if idx == 0 {
			return out
		}
		out = append(out, idx)
	}
}

func (d *Data) Header() Header { return d.header }
func (d *Data) BBox() physics.AABB { return d.bbox }
func (d *Data) PrismThickness() float32 { return d.header.PrismThickness }
func (d *Data) SphereRadius() float32 { return d.header.SphereRadius }
func (d *Data) PrismCount() int { return len(d.prisms) - 1 }
func (d *Data) Prism(idx uint16) Prism { return d.prisms[idx] }
func (d *Data) Normal(idx uint16) rl.Vector3 { return d.normals[idx] }
func (d *Data) Vertex(idx uint16) rl.Vector3 { return d.vertices[idx] }
