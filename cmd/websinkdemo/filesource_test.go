package main

import (
	"bytes"
	"testing"
)

func TestSplitAnnexBFourByteStartCodes(t *testing.T) {
	data := []byte{
		0, 0, 0, 1, 0x67, 0xAA, 0xBB, // SPS-ish
		0, 0, 0, 1, 0x68, 0xCC, // PPS-ish
		0, 0, 0, 1, 0x65, 0xDD, 0xEE, 0xFF, // IDR-ish
	}
	units, err := splitAnnexB(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("splitAnnexB: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}
	if !bytes.Equal(units[0], []byte{0x67, 0xAA, 0xBB}) {
		t.Errorf("unit 0 = %x, want 67aabb", units[0])
	}
	if !bytes.Equal(units[2], []byte{0x65, 0xDD, 0xEE, 0xFF}) {
		t.Errorf("unit 2 = %x, want 65ddeeff", units[2])
	}
}

func TestSplitAnnexBMixedStartCodeLengths(t *testing.T) {
	data := []byte{
		0, 0, 1, 0x67, 0xAA, // 3-byte start code
		0, 0, 0, 1, 0x65, 0xBB, // 4-byte start code
	}
	units, err := splitAnnexB(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("splitAnnexB: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
}

func TestSplitAnnexBEmptyInput(t *testing.T) {
	units, err := splitAnnexB(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("splitAnnexB: %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("got %d units, want 0", len(units))
	}
}
