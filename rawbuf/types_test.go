/*
NAME
  types_test.go

DESCRIPTION
  types_test.go covers the padding law and DNG CFA reorder invariants
  from spec §8, plus the metadata validation rules from §3.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package rawbuf

import "testing"

func TestPaddedDimsMultipleOf64(t *testing.T) {
	cases := [][2]int{{1000, 750}, {64, 64}, {1, 1}, {4032, 3024}}
	for _, c := range cases {
		w, h, ex, ey := PaddedDims(c[0], c[1], 6)
		if w%64 != 0 || h%64 != 0 {
			t.Fatalf("PaddedDims(%d,%d): got (%d,%d) not multiples of 64", c[0], c[1], w, h)
		}
		if w != c[0]/2+ex || h != c[1]/2+ey {
			t.Fatalf("PaddedDims(%d,%d): extend inconsistent with padded dims", c[0], c[1])
		}
	}
}

func TestRGGBPlaneOrderBGGR(t *testing.T) {
	got := RGGBPlaneOrder(BGGR)
	want := [4]int{3, 1, 2, 0}
	if got != want {
		t.Fatalf("RGGBPlaneOrder(BGGR) = %v, want %v", got, want)
	}
}

func TestRGGBPlaneOrderIdentityForRGGB(t *testing.T) {
	got := RGGBPlaneOrder(RGGB)
	want := [4]int{0, 1, 2, 3}
	if got != want {
		t.Fatalf("RGGBPlaneOrder(RGGB) = %v, want %v", got, want)
	}
}

func TestAsShotValidation(t *testing.T) {
	md := RawImageMetadata{AsShot: Vec3{0, 0, 0}}
	for i := range md.LensShadingMap {
		md.LensShadingMap[i] = Grid{Width: 2, Height: 2, Data: make([]float32, 4)}
	}
	if err := md.Validate(); err == nil {
		t.Fatal("expected error for all-zero asShot")
	}

	md.AsShot = Vec3{1, 1, 1}
	if err := md.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	md.LensShadingMap[2] = Grid{Width: 3, Height: 2, Data: make([]float32, 6)}
	if err := md.Validate(); err == nil {
		t.Fatal("expected error for mismatched lens-shading dimensions")
	}
}
