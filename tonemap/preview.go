/*
NAME
  preview.go

DESCRIPTION
  preview.go implements the preview renderer of §4.9: a lower-cost
  variant of the tonemap pipeline operating at 1/2, 1/4, or 1/8 of
  half-resolution, skipping the chroma-smoothing and sharpening passes,
  and producing a BGRA image rotated/flipped for one of the four
  screen orientations. Twelve variants exist (4 orientations x 3
  scales); RenderPreview dispatches to whichever the caller asks for
  and fails on an unrecognized scale.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tonemap

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	ximagedraw "golang.org/x/image/draw"

	"github.com/pkg/errors"

	"github.com/ausocean/motioncam/rawbuf"
)

// BGRA is a packed BGRA image, the pixel layout §4.9 specifies for
// preview output.
type BGRA struct {
	Width, Height int
	Pix           []byte // Stride 4: B, G, R, A per pixel.
}

func newBGRA(w, h int) *BGRA { return &BGRA{Width: w, Height: h, Pix: make([]byte, w*h*4)} }

func (im *BGRA) set(x, y int, r, g, b uint8) {
	i := (y*im.Width + x) * 4
	im.Pix[i+0] = b
	im.Pix[i+1] = g
	im.Pix[i+2] = r
	im.Pix[i+3] = 255
}

// validScales are the only downscale factors §4.9 recognizes.
var validScales = map[int]bool{2: true, 4: true, 8: true}

// RenderPreview renders in at 1/scale of half-resolution and rotates/
// flips the result to match orientation, per §4.9. scale must be one
// of 2, 4, 8.
func RenderPreview(in Input, scale int, orientation rawbuf.ScreenOrientation) (*BGRA, error) {
	if !validScales[scale] {
		return nil, errors.New("invalid input: unsupported preview downscale factor")
	}

	planeW, planeH := in.Planes[0].Width, in.Planes[0].Height
	outW, outH := planeW/scale, planeH/scale
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	small := reconstructLinearRGBSubsampled(in, outW, outH)
	applyToneCurveAndColor(small, outW, outH, in.Settings)
	// The preview is a cheap variant: no chroma smoothing, no
	// sharpening (§4.9).

	img := newBGRA(outW, outH)
	gamma := in.Settings.Gamma
	if gamma <= 0 {
		gamma = 2.4
	}
	invGamma := 1 / gamma
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			idx := y*outW + x
			img.set(x, y, gammaByte(small.r[idx], invGamma), gammaByte(small.g[idx], invGamma), gammaByte(small.b[idx], invGamma))
		}
	}

	return orient(img, orientation, in.Settings.Flipped), nil
}

func gammaByte(v, invGamma float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	scaled := math.Pow(v, invGamma) * 255
	if scaled > 255 {
		scaled = 255
	}
	return uint8(scaled + 0.5)
}

// scalePlane16 downscales p to outW x outH with x/image/draw's
// bilinear scaler, the same high-quality downsample the deinterleaver's
// luma preview uses (§4.1), rather than a manual stride.
func scalePlane16(p *rawbuf.Plane16, outW, outH int) rawbuf.Plane16 {
	src := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			src.SetGray16(x, y, color.Gray16{Y: p.At(x, y)})
		}
	}

	dst := image.NewGray16(image.Rect(0, 0, outW, outH))
	ximagedraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := rawbuf.NewPlane16(outW, outH)
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			out.Set(x, y, dst.Gray16At(x, y).Y)
		}
	}
	return out
}

// reconstructLinearRGBSubsampled is reconstructLinearRGB's cheap
// sibling: it reconstructs on a bilinearly-downscaled copy of each CFA
// plane instead of every full-resolution pixel, trading resolution for
// speed as the preview renderer's contract requires, per §4.9.
func reconstructLinearRGBSubsampled(in Input, outW, outH int) *rgbPlane {
	order := rawbuf.RGGBPlaneOrder(in.Camera.SensorArrangement)
	rIdx, g1Idx, g2Idx, bIdx := order[0], order[1], order[2], order[3]

	black := in.Camera.BlackLevel
	whiteRange := float64(in.Camera.WhiteLevel) - float64(black[rIdx])
	if whiteRange <= 0 {
		whiteRange = 1
	}

	small := [4]rawbuf.Plane16{
		scalePlane16(&in.Planes[rIdx], outW, outH),
		scalePlane16(&in.Planes[g1Idx], outW, outH),
		scalePlane16(&in.Planes[g2Idx], outW, outH),
		scalePlane16(&in.Planes[bIdx], outW, outH),
	}

	out := newRGBPlane(outW, outH)
	for y := 0; y < outH; y++ {
		v := 0.0
		if outH > 1 {
			v = float64(y) / float64(outH-1)
		}
		for x := 0; x < outW; x++ {
			u := 0.0
			if outW > 1 {
				u = float64(x) / float64(outW-1)
			}

			rv := normalize(small[0].At(x, y), black[rIdx], whiteRange)
			g1v := normalize(small[1].At(x, y), black[g1Idx], whiteRange)
			g2v := normalize(small[2].At(x, y), black[g2Idx], whiteRange)
			bv := normalize(small[3].At(x, y), black[bIdx], whiteRange)
			gv := (g1v + g2v) / 2

			rv *= in.Frame.LensShadingMap[rIdx].Sample(u, v)
			gv *= (in.Frame.LensShadingMap[g1Idx].Sample(u, v) + in.Frame.LensShadingMap[g2Idx].Sample(u, v)) / 2
			bv *= in.Frame.LensShadingMap[bIdx].Sample(u, v)

			white := in.Profile.CameraWhite
			rv /= nz(white[0])
			gv /= nz(white[1])
			bv /= nz(white[2])

			srgb := in.Profile.Apply(rawbuf.Vec3{rv, gv, bv})
			idx := y*outW + x
			out.r[idx], out.g[idx], out.b[idx] = srgb[0], srgb[1], srgb[2]
		}
	}
	return out
}

// orient rotates/flips img for one of the four screen orientations,
// per the intended mapping of §4.9/open-questions: downscaleFactor
// selects the scale, orientation independently selects the rotation,
// with an additional horizontal flip when flipped is set.
func orient(img *BGRA, orientation rawbuf.ScreenOrientation, flipped bool) *BGRA {
	rotated := img
	switch orientation {
	case rawbuf.Landscape:
		// No rotation.
	case rawbuf.Portrait:
		rotated = rotate90(img)
	case rawbuf.ReverseLandscape:
		rotated = rotate180(img)
	case rawbuf.ReversePortrait:
		rotated = rotate270(img)
	}
	if flipped {
		rotated = flipHorizontal(rotated)
	}
	return rotated
}

func rotate90(img *BGRA) *BGRA {
	out := newBGRA(img.Height, img.Width)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := (y*img.Width + x) * 4
			nx, ny := img.Height-1-y, x
			out.set(nx, ny, img.Pix[i+2], img.Pix[i+1], img.Pix[i+0])
		}
	}
	return out
}

func rotate180(img *BGRA) *BGRA {
	out := newBGRA(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := (y*img.Width + x) * 4
			nx, ny := img.Width-1-x, img.Height-1-y
			out.set(nx, ny, img.Pix[i+2], img.Pix[i+1], img.Pix[i+0])
		}
	}
	return out
}

func rotate270(img *BGRA) *BGRA {
	out := newBGRA(img.Height, img.Width)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := (y*img.Width + x) * 4
			nx, ny := y, img.Width-1-x
			out.set(nx, ny, img.Pix[i+2], img.Pix[i+1], img.Pix[i+0])
		}
	}
	return out
}

func flipHorizontal(img *BGRA) *BGRA {
	out := newBGRA(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := (y*img.Width + x) * 4
			out.set(img.Width-1-x, y, img.Pix[i+2], img.Pix[i+1], img.Pix[i+0])
		}
	}
	return out
}
