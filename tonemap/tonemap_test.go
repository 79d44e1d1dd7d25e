/*
NAME
  tonemap_test.go

DESCRIPTION
  tonemap_test.go checks the crop/dimension invariant from spec §8
  ("Padding law": final RGB output is 2*halfWidth by 2*halfHeight)
  and the preview renderer's invalid-scale rejection from §4.9.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tonemap

import (
	"testing"

	"github.com/ausocean/motioncam/colorprofile"
	"github.com/ausocean/motioncam/rawbuf"
)

func neutralInput(paddedW, paddedH, offsetX, offsetY int) Input {
	var planes [4]rawbuf.Plane16
	for i := range planes {
		p := rawbuf.NewPlane16(paddedW, paddedH)
		for j := range p.Pix {
			p.Pix[j] = 4096
		}
		planes[i] = p
	}
	var md rawbuf.RawImageMetadata
	md.AsShot = rawbuf.Vec3{1, 1, 1}
	for i := range md.LensShadingMap {
		g := rawbuf.Grid{Width: 2, Height: 2, Data: make([]float32, 4)}
		for j := range g.Data {
			g.Data[j] = 1
		}
		md.LensShadingMap[i] = g
	}

	cam := rawbuf.RawCameraMetadata{
		SensorArrangement: rawbuf.RGGB,
		BlackLevel:        [4]uint16{64, 64, 64, 64},
		WhiteLevel:        1023,
		ColorMatrix1:      rawbuf.Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		ColorMatrix2:      rawbuf.Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		ForwardMatrix1:    rawbuf.Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		ForwardMatrix2:    rawbuf.Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		ColorIlluminant1:  rawbuf.IlluminantD65,
		ColorIlluminant2:  rawbuf.IlluminantD50,
	}

	settings := rawbuf.PostProcessSettings{
		Gamma: 2.2, WhitePoint: 1, Contrast: 0, Saturation: 1,
		BlueSaturation: 1, GreenSaturation: 1, JPEGQuality: 90,
	}

	profile, err := colorprofile.FromAsShot(cam, md.AsShot)
	if err != nil {
		panic(err)
	}

	return Input{Planes: planes, OffsetX: offsetX, OffsetY: offsetY, Frame: md, Camera: cam, Settings: settings, Profile: profile}
}

func TestProcessCropDimensions(t *testing.T) {
	in := neutralInput(512, 384, 6, 4)
	img := Process(in)
	wantW := (512 - 6) * 2
	wantH := (384 - 4) * 2
	b := img.Bounds()
	if b.Dx() != wantW || b.Dy() != wantH {
		t.Fatalf("Process() dims = %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
}

func TestRenderPreviewRejectsInvalidScale(t *testing.T) {
	in := neutralInput(64, 64, 0, 0)
	if _, err := RenderPreview(in, 3, rawbuf.Landscape); err == nil {
		t.Fatal("expected error for invalid scale")
	}
}

func TestRenderPreviewDimensions(t *testing.T) {
	in := neutralInput(64, 64, 0, 0)
	img, err := RenderPreview(in, 4, rawbuf.Landscape)
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if img.Width != 16 || img.Height != 16 {
		t.Fatalf("RenderPreview() dims = %dx%d, want 16x16", img.Width, img.Height)
	}
}

func TestRenderPreviewPortraitSwapsDimensions(t *testing.T) {
	in := neutralInput(64, 32, 0, 0)
	img, err := RenderPreview(in, 2, rawbuf.Portrait)
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if img.Width != 16 || img.Height != 32 {
		t.Fatalf("RenderPreview() rotated dims = %dx%d, want 16x32", img.Width, img.Height)
	}
}
