/*
NAME
  wavelet.go

DESCRIPTION
  wavelet.go implements the L=6 level separable wavelet transform used
  to decompose each deinterleaved CFA plane into a pyramid of LL/LH/
  HL/HH sub-bands (§4.3), the inverse transform with per-level soft-
  threshold shrinkage (§4.6), and the HH-band noise estimator (§4.3,
  §4.7's MAD estimator).

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wavelet implements the forward and inverse CDF 5/3
// biorthogonal wavelet transform used to decompose and reconstruct
// each color plane of the burst denoiser, and the HH-band MAD noise
// estimator the fusion and shrinkage stages depend on.
package wavelet

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/ausocean/motioncam/rawbuf"
)

// Levels is the pyramid depth L the spec fixes at 6.
const Levels = 6

// ExpandedRange is the internal linear code space the inverse
// transform's final clamp targets (§4.6, glossary).
const ExpandedRange = 16384

// Level holds one pyramid level's four sub-bands plus the weight
// accumulator fusion writes into.
type Level struct {
	Width, Height int
	LL, LH, HL, HH []float64
	Weight         []float64 // Cumulative fusion contribution, same size as LL.
}

func newLevel(w, h int) Level {
	n := w * h
	return Level{
		Width: w, Height: h,
		LL: make([]float64, n), LH: make([]float64, n),
		HL: make([]float64, n), HH: make([]float64, n),
		Weight: make([]float64, n),
	}
}

// Pyramid is the full L-level decomposition of one color plane.
type Pyramid struct {
	SourceWidth, SourceHeight int
	Level                     [Levels]Level
}

// Forward decomposes a single CFA plane into an L-level pyramid. The
// plane's dimensions must already be a multiple of 2^Levels, which
// the deinterleaver's padding guarantees.
func Forward(p *rawbuf.Plane16) (*Pyramid, error) {
	if p.Width%(1<<Levels) != 0 || p.Height%(1<<Levels) != 0 {
		return nil, errors.New("invalid state: plane dimensions not a multiple of 2^levels")
	}

	pyr := &Pyramid{SourceWidth: p.Width, SourceHeight: p.Height}

	cur := make([]float64, p.Width*p.Height)
	for i, v := range p.Pix {
		cur[i] = float64(v)
	}
	w, h := p.Width, p.Height

	for k := 0; k < Levels; k++ {
		lvl := newLevel(w/2, h/2)
		decomposeOnce(cur, w, h, &lvl)
		pyr.Level[k] = lvl
		cur = lvl.LL
		w, h = w/2, h/2
	}
	return pyr, nil
}

// decomposeOnce applies one level of the separable 2D wavelet
// transform to src (w x h), writing the four sub-bands into lvl.
func decomposeOnce(src []float64, w, h int, lvl *Level) {
	// Horizontal pass: each row -> low (w/2) and high (w/2) bands.
	low := make([]float64, (w/2)*h)
	high := make([]float64, (w/2)*h)
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		copy(row, src[y*w:(y+1)*w])
		l, hh := forward1D(row)
		copy(low[y*(w/2):(y+1)*(w/2)], l)
		copy(high[y*(w/2):(y+1)*(w/2)], hh)
	}

	// Vertical pass on each of low/high -> LL/LH and HL/HH.
	col := make([]float64, h)
	ww := w / 2
	for x := 0; x < ww; x++ {
		for y := 0; y < h; y++ {
			col[y] = low[y*ww+x]
		}
		l, hi := forward1D(col)
		for y := 0; y < h/2; y++ {
			lvl.LL[y*ww+x] = l[y]
			lvl.LH[y*ww+x] = hi[y]
		}
		for y := 0; y < h; y++ {
			col[y] = high[y*ww+x]
		}
		l, hi = forward1D(col)
		for y := 0; y < h/2; y++ {
			lvl.HL[y*ww+x] = l[y]
			lvl.HH[y*ww+x] = hi[y]
		}
	}
}

// Inverse reconstructs a spatial-domain plane from pyr, applying at
// each level a soft-threshold shrinkage on the detail sub-bands with
// threshold tau = shrinkage.SpatialWeight * Sigma / sqrt(M) (the same
// per-channel sigma at every level, per §4.6), then clamping the
// final result to [blackLevel, ExpandedRange].
type ShrinkParams struct {
	SpatialWeight float64 // 0 disables shrinkage.
	Sigma         float64 // Per-channel noise sigma, from EstimateSigma on the finest level.
	FusedFrames   int     // M, the number of frames fused into this pyramid.
	BlackLevel    float64
}

func Inverse(pyr *Pyramid, sp ShrinkParams) rawbuf.Plane16 {
	m := sp.FusedFrames
	if m < 1 {
		m = 1
	}

	tau := 0.0
	if sp.SpatialWeight > 0 {
		tau = sp.SpatialWeight * sp.Sigma / math.Sqrt(float64(m))
	}

	// Walk from coarsest to finest, reconstructing LL at each step.
	// Each level's sub-bands are first divided by their accumulated
	// fusion weight (§2, §4.5's "Σ weight_applied" normalization) —
	// only the coarsest level's LL needs this, since every finer
	// level's LL is `cur`, the already-reconstructed result of the
	// next coarser level, not a raw sub-band.
	var cur []float64
	var w, h int
	for k := Levels - 1; k >= 0; k-- {
		lvl := pyr.Level[k]
		var ll []float64
		if k == Levels-1 {
			ll = normalize(lvl.LL, lvl.Weight)
		} else {
			ll = cur
		}
		lh := shrink(normalize(lvl.LH, lvl.Weight), tau)
		hl := shrink(normalize(lvl.HL, lvl.Weight), tau)
		hh := shrink(normalize(lvl.HH, lvl.Weight), tau)
		cur = reconstructOnce(ll, lh, hl, hh, lvl.Width, lvl.Height)
		w, h = lvl.Width*2, lvl.Height*2
	}

	out := rawbuf.NewPlane16(w, h)
	for i, v := range cur {
		if v < sp.BlackLevel {
			v = sp.BlackLevel
		}
		if v > ExpandedRange {
			v = ExpandedRange
		}
		out.Pix[i] = uint16(math.Round(v))
	}
	return out
}

// normalize divides each fused coefficient by its accumulated fusion
// weight, returning a new slice so the pyramid's own buffers stay
// untouched. A zero weight (a pixel no fusion step ever wrote to)
// normalizes as a no-op rather than dividing by zero.
func normalize(c, weight []float64) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		wt := weight[i]
		if wt <= 0 {
			wt = 1
		}
		out[i] = v / wt
	}
	return out
}

// shrink applies sign(c)*max(0, |c|-tau) element-wise, returning a new
// slice so the pyramid's own buffers stay untouched (they may be
// read again by a later stage, e.g. tests inspecting the pyramid).
func shrink(c []float64, tau float64) []float64 {
	if tau == 0 {
		return c
	}
	out := make([]float64, len(c))
	for i, v := range c {
		a := math.Abs(v) - tau
		if a < 0 {
			a = 0
		}
		if v < 0 {
			a = -a
		}
		out[i] = a
	}
	return out
}

// reconstructOnce inverts one level of the separable transform: LL/LH
// combine vertically to `low`, HL/HH combine vertically to `high`,
// then low/high combine horizontally to the full-resolution band.
func reconstructOnce(ll, lh, hl, hh []float64, w, h int) []float64 {
	low := make([]float64, w*h*2)
	high := make([]float64, w*h*2)
	colL := make([]float64, h)
	colH := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			colL[y] = ll[y*w+x]
			colH[y] = lh[y*w+x]
		}
		rec := inverse1D(colL, colH)
		for y := 0; y < 2*h; y++ {
			low[y*w+x] = rec[y]
		}
		for y := 0; y < h; y++ {
			colL[y] = hl[y*w+x]
			colH[y] = hh[y*w+x]
		}
		rec = inverse1D(colL, colH)
		for y := 0; y < 2*h; y++ {
			high[y*w+x] = rec[y]
		}
	}

	out := make([]float64, w*2*h*2)
	rowL := make([]float64, w)
	rowH := make([]float64, w)
	for y := 0; y < 2*h; y++ {
		copy(rowL, low[y*w:(y+1)*w])
		copy(rowH, high[y*w:(y+1)*w])
		rec := inverse1D(rowL, rowH)
		copy(out[y*w*2:(y+1)*w*2], rec)
	}
	return out
}

// EstimateSigma estimates the per-channel noise sigma from a level's
// HH sub-band via the canonical MAD estimator: median(|HH|) / 0.6745
// (§4.3).
func EstimateSigma(lvl Level) float64 {
	abs := make([]float64, len(lvl.HH))
	for i, v := range lvl.HH {
		abs[i] = math.Abs(v)
	}
	sort.Float64s(abs)
	if len(abs) == 0 {
		return 0
	}
	med := abs[len(abs)/2]
	if len(abs)%2 == 0 && len(abs) > 0 {
		med = (abs[len(abs)/2-1] + abs[len(abs)/2]) / 2
	}
	return med / 0.6745
}
