/*
NAME
  scene.go

DESCRIPTION
  scene.go implements the histogram-based scene analyzer of §4.7: the
  exposure-compensation, shadows, blacks/white-point/scene-luminance
  and global noise-sigma estimators, each a pure function of the
  reference frame's data and metadata.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package scene provides the histogram-based scene estimators that
// derive tonemap settings (shadows, blacks, white point, scene
// luminance, noise sigma) and exposure compensation from a
// downscaled preview of the reference frame.
package scene

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/motioncam/rawbuf"
)

const histBins = 255

// histogram builds a 255-bin histogram over [0,256) of vals.
func histogram(vals []float64) [histBins]int {
	var h [histBins]int
	for _, v := range vals {
		b := int(v / 256 * histBins)
		if b < 0 {
			b = 0
		}
		if b >= histBins {
			b = histBins - 1
		}
		h[b]++
	}
	return h
}

// EstimateExposureCompensation computes a 3-channel histogram over
// the linearized preview and returns log2(histBins/(bin+1)) of the
// channel whose top-down accumulated count first exceeds
// 1e-4*(W*H/4), maxed over channels (§4.7).
func EstimateExposureCompensation(channels [3][]float64, w, h int) float64 {
	threshold := 1e-4 * float64(w*h) / 4
	var maxResult float64
	for _, ch := range channels {
		hist := histogram(ch)
		var acc int
		bin := histBins - 1
		for bin >= 0 {
			acc += hist[bin]
			if float64(acc) > threshold {
				break
			}
			bin--
		}
		if bin < 0 {
			bin = 0
		}
		result := math.Log2(float64(histBins) / float64(bin+1))
		if result > maxResult {
			maxResult = result
		}
	}
	return maxResult
}

// PreviewRenderer renders a luminance preview at a given shadows
// setting and 1/scale of the source resolution; the scene analyzer
// is agnostic to how that preview is produced, so this is supplied by
// the caller (normally the tonemap package's cheap preview path).
type PreviewRenderer func(shadows float64, scale int) (luma []float64, w, h int)

// EstimateShadows sweeps shadows in {2,4,...,14}; at each step it
// renders a 1/8-scale preview and measures mean luminance; it stops
// when the growth ratio against the previous step falls below 1.03,
// returning max(2, shadows-2) (§4.7).
func EstimateShadows(render PreviewRenderer) float64 {
	var prevMean float64
	var stopAt float64 = 14
	for shadows := 2.0; shadows <= 14; shadows += 2 {
		luma, _, _ := render(shadows, 8)
		mean, _ := stat.MeanVariance(luma, nil)
		if shadows > 2 && prevMean > 0 && mean/prevMean < 1.03 {
			stopAt = shadows
			break
		}
		prevMean = mean
	}
	result := stopAt - 2
	if result < 2 {
		result = 2
	}
	return result
}

// Settings is the result of EstimateSettings:
// blacks, white point and scene luminance derived from a preview's
// luma histogram.
type Settings struct {
	Blacks         float64
	WhitePoint     float64
	SceneLuminance float64
}

// EstimateSettings renders a preview at 1/scale (8 for "basic", 4 for
// "full") and derives blacks, white point, and scene luminance from
// its luma histogram (§4.7).
func EstimateSettings(render PreviewRenderer, scale int) Settings {
	luma, w, h := render(0, scale)
	hist := histogram(luma)
	total := w * h

	blacksBin := 0
	var cum int
	for bin := 0; bin <= 7 && bin < histBins; bin++ {
		cum += hist[bin]
		if float64(cum) <= 0.07*float64(total) {
			blacksBin = bin
		}
	}
	blacks := float64(blacksBin) / float64(histBins-1)
	if blacks < 0.02 {
		blacks = 0.02
	}

	whiteBin := histBins - 1
	cum = 0
	for bin := histBins - 1; bin >= 192; bin-- {
		cum += hist[bin]
		if float64(cum) <= 0.005*float64(total) {
			whiteBin = bin
		}
	}
	whitePoint := float64(whiteBin) / float64(histBins-1)

	var logSum float64
	for _, l := range luma {
		logSum += math.Log(l + 1e-3)
	}
	sceneLuminance := math.Exp(logSum / float64(len(luma)))

	return Settings{Blacks: blacks, WhitePoint: whitePoint, SceneLuminance: sceneLuminance}
}

// laplacianOfLaplacian is the 3x3 kernel used by EstimateNoiseSigma,
// the discrete squared-Laplacian operator whose response variance is
// a classic non-reference noise estimator (Immerkaer 1996).
var laplacianOfLaplacian = [3][3]float64{
	{1, -2, 1},
	{-2, 4, -2},
	{1, -2, 1},
}

// EstimateNoiseSigma applies laplacianOfLaplacian to a raw plane and
// scales the summed absolute response by
// sqrt(pi/2) / (6*(W-2)*(H-2)) to estimate the global sensor noise
// sigma (§4.7).
func EstimateNoiseSigma(p *rawbuf.Plane16) float64 {
	if p.Width <= 2 || p.Height <= 2 {
		return 0
	}
	var sum float64
	for y := 1; y < p.Height-1; y++ {
		for x := 1; x < p.Width-1; x++ {
			var resp float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					resp += laplacianOfLaplacian[dy+1][dx+1] * float64(p.At(x+dx, y+dy))
				}
			}
			sum += math.Abs(resp)
		}
	}
	scale := math.Sqrt(math.Pi/2) / (6 * float64(p.Width-2) * float64(p.Height-2))
	return scale * sum
}
