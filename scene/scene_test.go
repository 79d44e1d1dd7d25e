/*
NAME
  scene_test.go

DESCRIPTION
  scene_test.go covers end-to-end scenario 6 from spec §8: a
  synthetic preview whose mean luminance grows by a fixed percentage
  per shadows step, checking that EstimateShadows stops at the first
  step where growth falls below 1.03x.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package scene

import (
	"math"
	"testing"
)

func TestEstimateShadowsStopsOnLowGrowth(t *testing.T) {
	// Grow by 5% per step for the first three steps (2,4,6), then by
	// 1% (below the 1.03 threshold) at step 8: the estimator should
	// stop there and return max(2, 8-2) = 6.
	growth := map[float64]float64{2: 1.0, 4: 1.05, 6: 1.05 * 1.05, 8: 1.05 * 1.05 * 1.01}
	base := 100.0

	render := func(shadows float64, scale int) ([]float64, int, int) {
		mean := base * growth[shadows]
		return []float64{mean, mean, mean, mean}, 2, 2
	}

	got := EstimateShadows(render)
	if got != 6 {
		t.Fatalf("EstimateShadows() = %v, want 6", got)
	}
}

func TestEstimateShadowsFloorsAtTwo(t *testing.T) {
	render := func(shadows float64, scale int) ([]float64, int, int) {
		return []float64{100, 100}, 2, 1
	}
	got := EstimateShadows(render)
	if got != 2 {
		t.Fatalf("EstimateShadows() = %v, want floor 2", got)
	}
}

// TestEstimateExposureCompensationWorkedExample follows §4.7's formula
// by hand on a 2x2 preview: a channel pegged at 0 lands every sample
// in histogram bin 0, so the topmost-down scan only stops once it
// reaches bin 0, giving log2(histBins/(0+1)). A channel pegged at 255
// lands in the topmost bin (254) immediately, giving log2(255/255)=0,
// so the all-zero channel's result wins the max-over-channels.
func TestEstimateExposureCompensationWorkedExample(t *testing.T) {
	w, h := 2, 2
	zero := []float64{0, 0, 0, 0}
	full := []float64{255, 255, 255, 255}

	got := EstimateExposureCompensation([3][]float64{zero, full, full}, w, h)
	want := math.Log2(255)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EstimateExposureCompensation() = %v, want %v", got, want)
	}
}

// TestEstimateExposureCompensationAccumulatesAcrossBins uses a large
// enough w*h that the threshold (1e-4*w*h/4 = 1.125) takes two single-
// pixel bins to exceed, exercising the accumulate-while-walking-down
// behavior rather than stopping at the first non-empty bin.
func TestEstimateExposureCompensationAccumulatesAcrossBins(t *testing.T) {
	w, h := 300, 150
	ch := make([]float64, w*h)
	ch[0] = 255 // bin 254
	ch[1] = 254 // bin 253
	full := make([]float64, w*h)
	for i := range full {
		full[i] = 255 // bin 254, breaks immediately -> log2(255/255) = 0
	}

	got := EstimateExposureCompensation([3][]float64{ch, full, full}, w, h)
	want := math.Log2(255.0 / 254.0)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EstimateExposureCompensation() = %v, want %v", got, want)
	}
}
