/*
NAME
  wavelet_test.go

DESCRIPTION
  wavelet_test.go exercises the round-trip and noise-estimator
  invariants listed in spec §8: forward/inverse reproduces the input
  plane to within 1 LSB when shrinkage is disabled, and the MAD
  estimator is monotonically non-decreasing as injected noise grows.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package wavelet

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ausocean/motioncam/rawbuf"
)

func syntheticPlane(w, h int, seed int64) *rawbuf.Plane16 {
	p := rawbuf.NewPlane16(w, h)
	r := rand.New(rand.NewSource(seed))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 4096 + 2000*math.Sin(float64(x)/7) + 2000*math.Cos(float64(y)/11) + r.Float64()*50
			if v < 0 {
				v = 0
			}
			if v > 16383 {
				v = 16383
			}
			p.Set(x, y, uint16(v))
		}
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	p := syntheticPlane(64, 64, 1)
	pyr, err := Forward(p)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	out := Inverse(pyr, ShrinkParams{SpatialWeight: 0, FusedFrames: 1})
	for i := range p.Pix {
		diff := int(p.Pix[i]) - int(out.Pix[i])
		if diff < -1 || diff > 1 {
			t.Fatalf("pixel %d: want %d got %d (diff %d)", i, p.Pix[i], out.Pix[i], diff)
		}
	}
}

func TestForwardRejectsBadDimensions(t *testing.T) {
	p := rawbuf.NewPlane16(10, 10)
	if _, err := Forward(p); err == nil {
		t.Fatal("expected error for non-multiple-of-64 dimensions")
	}
}

func TestNoiseEstimatorMonotonic(t *testing.T) {
	clean := syntheticPlane(128, 128, 2)
	sigmas := []float64{0, 5, 15, 40, 100}
	var prev float64
	for i, sigma := range sigmas {
		r := rand.New(rand.NewSource(42))
		noisy := rawbuf.NewPlane16(clean.Width, clean.Height)
		for j, v := range clean.Pix {
			nv := float64(v) + r.NormFloat64()*sigma
			if nv < 0 {
				nv = 0
			}
			if nv > 16383 {
				nv = 16383
			}
			noisy.Pix[j] = uint16(nv)
		}
		pyr, err := Forward(noisy)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		est := EstimateSigma(pyr.Level[0])
		if i > 0 && est < prev-1e-6 {
			t.Fatalf("noise estimate decreased: sigma=%v est=%v prev=%v", sigma, est, prev)
		}
		prev = est
	}
}
