package bitflag

import "testing"

type testBit int

const (
	bitA testBit = 0
	bitB testBit = 3
	bitC testBit = 7
)

func TestSetResetToggle(t *testing.T) {
	f := New[uint8](bitA, bitC)

	if f.Bits() != 0x81 {
		t.Errorf("Expected 0x81, got %#x", f.Bits())
	}

	f.SetBit(bitB)
	if !f.OnBit(bitB) {
		t.Error("Expected bitB to be on after SetBit")
	}

	f.ResetBit(bitA)
	if f.OnBit(bitA) {
		t.Error("Expected bitA to be off after ResetBit")
	}

	f.ToggleBit(bitA, bitC)
	if f.Bits() != 0x09 {
		t.Errorf("Expected 0x09 after toggle, got %#x", f.Bits())
	}

	f.ChangeBit(false, bitB)
	if !f.OffBit(bitB, bitC) {
		t.Error("Expected bitB and bitC off")
	}
}

func TestMaskQueries(t *testing.T) {
	f := FromMask[uint32, testBit](0x0f)

	if !f.On(0x10 | 0x01) {
		t.Error("On should be true when any bit matches")
	}
	if f.OnAll(0x11) {
		t.Error("OnAll should be false when one bit is missing")
	}
	if !f.OnAll(0x03) {
		t.Error("OnAll should be true for a subset")
	}
	if !f.Off(0xf0) {
		t.Error("Off should be true for disjoint mask")
	}
	if f.MaskBit(bitA, bitC) != 0x01 {
		t.Errorf("Expected MaskBit 0x01, got %#x", f.MaskBit(bitA, bitC))
	}

	f.MakeAllZero()
	if f.Bits() != 0 {
		t.Errorf("Expected zero after MakeAllZero, got %#x", f.Bits())
	}
}

func TestCapacityBound(t *testing.T) {
	var f Flag[uint8, testBit]
	if f.Capacity() != 8 {
		t.Errorf("Expected capacity 8, got %d", f.Capacity())
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for out-of-range position")
		}
	}()
	f.SetBit(testBit(8))
}
