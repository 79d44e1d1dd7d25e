/*
NAME
  tonemap.go

DESCRIPTION
  tonemap.go implements the postprocess pixel pipeline of §4.8: CFA
  reconstruction from the 4 denoised planes, black-level subtraction
  and lens-shading correction, white balance, camera-to-sRGB
  conversion, exposure and tone-curve shaping, chroma-aware saturation
  and sharpening, and gamma encode to 8-bit.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tonemap converts the 4-plane denoised Bayer image into a
// display-referred 8-bit RGB image: lens-shading correction, white
// balance, color-matrix conversion, local tone mapping, chroma
// smoothing and sharpening, matching the camera's on-device JPEG
// pipeline closely enough to use the same color profile.
package tonemap

import (
	"image"
	"image/color"
	"math"

	"github.com/ausocean/motioncam/colorprofile"
	"github.com/ausocean/motioncam/rawbuf"
)

// Input bundles everything the tonemap pipeline needs for one frame.
type Input struct {
	Planes       [4]rawbuf.Plane16 // Positional TL/TR/BL/BR, padded.
	OffsetX, OffsetY int           // Half-res right/bottom padding to crop off.
	Frame        rawbuf.RawImageMetadata
	Camera       rawbuf.RawCameraMetadata
	Settings     rawbuf.PostProcessSettings
	Profile      colorprofile.Profile
}

// Process runs the full pipeline of §4.8 and returns a cropped,
// gamma-encoded 8-bit RGB image sized (2*halfWidth, 2*halfHeight).
func Process(in Input) *image.RGBA {
	planeW, planeH := in.Planes[0].Width, in.Planes[0].Height
	cropW := planeW - in.OffsetX
	cropH := planeH - in.OffsetY
	fullW, fullH := cropW*2, cropH*2

	linear := reconstructLinearRGB(in, cropW, cropH)
	applyToneCurveAndColor(linear, cropW, cropH, in.Settings)
	applyChromaAndSharpen(linear, cropW, cropH, in.Settings)

	img := image.NewRGBA(image.Rect(0, 0, fullW, fullH))
	gammaEncode(linear, img, cropW, cropH, in.Settings.Gamma)
	return img
}

type rgbPlane struct {
	w, h int
	r, g, b []float64
}

func newRGBPlane(w, h int) *rgbPlane {
	return &rgbPlane{w: w, h: h, r: make([]float64, w*h), g: make([]float64, w*h), b: make([]float64, w*h)}
}

// reconstructLinearRGB implements §4.8 steps 1-4: CFA-position-aware
// reconstruction, black-level/white-level normalization, lens-shading
// correction and white balance, then the camera-to-sRGB matrix.
func reconstructLinearRGB(in Input, cropW, cropH int) *rgbPlane {
	order := rawbuf.RGGBPlaneOrder(in.Camera.SensorArrangement)
	rIdx, g1Idx, g2Idx, bIdx := order[0], order[1], order[2], order[3]

	black := in.Camera.BlackLevel
	whiteRange := float64(in.Camera.WhiteLevel) - float64(black[rIdx])
	if whiteRange <= 0 {
		whiteRange = 1
	}

	out := newRGBPlane(cropW, cropH)

	for y := 0; y < cropH; y++ {
		py := y
		for x := 0; x < cropW; x++ {
			px := x
			rv := normalize(in.Planes[rIdx].At(px, py), black[rIdx], whiteRange)
			g1v := normalize(in.Planes[g1Idx].At(px, py), black[g1Idx], whiteRange)
			g2v := normalize(in.Planes[g2Idx].At(px, py), black[g2Idx], whiteRange)
			bv := normalize(in.Planes[bIdx].At(px, py), black[bIdx], whiteRange)
			gv := (g1v + g2v) / 2

			u, v := float64(px)/float64(in.Planes[0].Width-1), float64(py)/float64(in.Planes[0].Height-1)
			rv *= in.Frame.LensShadingMap[rIdx].Sample(u, v)
			gv *= (in.Frame.LensShadingMap[g1Idx].Sample(u, v) + in.Frame.LensShadingMap[g2Idx].Sample(u, v)) / 2
			bv *= in.Frame.LensShadingMap[bIdx].Sample(u, v)

			white := in.Profile.CameraWhite
			rv /= nz(white[0])
			gv /= nz(white[1])
			bv /= nz(white[2])

			srgb := in.Profile.Apply(rawbuf.Vec3{rv, gv, bv})

			idx := y*cropW + x
			out.r[idx], out.g[idx], out.b[idx] = srgb[0], srgb[1], srgb[2]
		}
	}
	return out
}

func normalize(v uint16, black uint16, whiteRange float64) float64 {
	return (float64(v) - float64(black)) / whiteRange
}

func nz(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// applyToneCurveAndColor implements §4.8 step 5: exposure scaling
// then a shadow-lift tone curve parameterized by shadows/blacks/
// whitePoint/tonemapVariance, with contrast applied about 0.5.
func applyToneCurveAndColor(p *rgbPlane, w, h int, s rawbuf.PostProcessSettings) {
	exposureGain := math.Pow(2, s.Exposure)
	for i := range p.r {
		p.r[i] = toneCurve(p.r[i]*exposureGain, s)
		p.g[i] = toneCurve(p.g[i]*exposureGain, s)
		p.b[i] = toneCurve(p.b[i]*exposureGain, s)
	}
}

// toneCurve applies a shadow-lift and highlight roll-off curve, then
// contrast about the midpoint 0.5.
func toneCurve(v float64, s rawbuf.PostProcessSettings) float64 {
	black := s.Blacks
	white := s.WhitePoint
	if white <= black {
		white = black + 0.01
	}

	// Shadow lift: raise the low end by an amount controlled by
	// shadows/tonemapVariance, tapering to zero at v = 1.
	lift := (s.Shadows / 100) * math.Exp(-v*s.TonemapVariance*4) * (1 - v)
	v += lift

	// Remap [black, white] to [0, 1]; values above whitePoint are
	// already intended to clip, per the sensor's native white point.
	v = (v - black) / (white - black)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	// Contrast about 0.5.
	v = 0.5 + (v-0.5)*(1+s.Contrast)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// applyChromaAndSharpen implements §4.8 step 6: conversion to a
// perceptual space for band-selective saturation, chroma-aware
// smoothing via chromaEps, and multi-scale luminance unsharp masking.
func applyChromaAndSharpen(p *rgbPlane, w, h int, s rawbuf.PostProcessSettings) {
	lum := make([]float64, w*h)
	for i := range p.r {
		lum[i] = luminance(p.r[i], p.g[i], p.b[i])
	}

	for i := range p.r {
		l := lum[i]
		cr, cg, cb := p.r[i]-l, p.g[i]-l, p.b[i]-l

		cr *= s.Saturation
		cg *= s.Saturation * s.GreenSaturation
		cb *= s.Saturation * s.BlueSaturation

		p.r[i] = l + cr
		p.g[i] = l + cg
		p.b[i] = l + cb
	}

	if s.ChromaEps > 0 {
		smoothChroma(p, w, h, s.ChromaEps, lum)
	}

	if s.Sharpen0 > 0 || s.Sharpen1 > 0 {
		sharpenLuma(p, w, h, s.Sharpen0, s.Sharpen1, lum)
	}
}

func luminance(r, g, b float64) float64 { return 0.2126*r + 0.7152*g + 0.0722*b }

// smoothChroma blurs chroma (not luminance) with a box filter whose
// radius grows with chromaEps, suppressing color noise while
// preserving edges in luminance.
func smoothChroma(p *rgbPlane, w, h int, eps float64, lum []float64) {
	radius := int(eps * 2)
	if radius < 1 {
		radius = 1
	}
	cr := make([]float64, w*h)
	cg := make([]float64, w*h)
	cb := make([]float64, w*h)
	for i := range p.r {
		cr[i] = p.r[i] - lum[i]
		cg[i] = p.g[i] - lum[i]
		cb[i] = p.b[i] - lum[i]
	}

	blur := func(src []float64) []float64 {
		out := make([]float64, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var sum float64
				var n float64
				for dy := -radius; dy <= radius; dy++ {
					yy := y + dy
					if yy < 0 || yy >= h {
						continue
					}
					for dx := -radius; dx <= radius; dx++ {
						xx := x + dx
						if xx < 0 || xx >= w {
							continue
						}
						sum += src[yy*w+xx]
						n++
					}
				}
				out[y*w+x] = sum / n
			}
		}
		return out
	}

	crB, cgB, cbB := blur(cr), blur(cg), blur(cb)
	for i := range p.r {
		p.r[i] = lum[i] + crB[i]
		p.g[i] = lum[i] + cgB[i]
		p.b[i] = lum[i] + cbB[i]
	}
}

// sharpenLuma applies a two-scale unsharp mask to luminance, adding
// the residual back into each channel so hue is preserved.
func sharpenLuma(p *rgbPlane, w, h int, gain0, gain1 float64, lum []float64) {
	blurSmall := boxBlur(lum, w, h, 1)
	blurLarge := boxBlur(lum, w, h, 3)

	for i := range p.r {
		detailSmall := lum[i] - blurSmall[i]
		detailLarge := blurSmall[i] - blurLarge[i]
		add := gain0*detailSmall + gain1*detailLarge
		p.r[i] += add
		p.g[i] += add
		p.b[i] += add
	}
}

func boxBlur(src []float64, w, h, radius int) []float64 {
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			var n float64
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					sum += src[yy*w+xx]
					n++
				}
			}
			out[y*w+x] = sum / n
		}
	}
	return out
}

// gammaEncode converts linear RGB to sRGB-gamma-encoded 8-bit, nearest
// neighbor upsampling each reconstructed sample to the 2x2 block of
// full-resolution output pixels it represents, and writes the result
// into img.
func gammaEncode(p *rgbPlane, img *image.RGBA, w, h int, gamma float64) {
	if gamma <= 0 {
		gamma = 2.4
	}
	invGamma := 1 / gamma
	encode := func(v float64) uint8 {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return uint8(math.Round(math.Pow(v, invGamma) * 255))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			r := encode(p.r[idx])
			g := encode(p.g[idx])
			b := encode(p.b[idx])
			c := color.RGBA{R: r, G: g, B: b, A: 255}
			for oy := 0; oy < 2; oy++ {
				for ox := 0; ox < 2; ox++ {
					img.SetRGBA(2*x+ox, 2*y+oy, c)
				}
			}
		}
	}
}
