/*
NAME
  flow.go

DESCRIPTION
  flow.go defines the dense optical flow contract of §4.4: a field of
  per-pixel (u,v) displacements between a reference and candidate
  preview plane, plus the downscaled motion-magnitude statistic the
  fusion kernel's weight regime selection depends on.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package flow computes dense optical flow between a reference and a
// candidate preview plane, and summarizes the result into the scene
// motion statistic the fusion kernel needs to pick its weight regime.
package flow

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/motioncam/rawbuf"
)

// Settings are the dense inverse-search flow parameters fixed by the
// contract in §4.4: downstream fusion heuristics depend on these
// exact values, so they are not configurable per call.
var Settings = struct {
	PatchSize              int
	PatchStride             int
	SpatialPropagation      bool
	GradientIterations      int
	VariationalRefinements  int
	Downscale               int
}{
	PatchSize:             16,
	PatchStride:            8,
	SpatialPropagation:     true,
	GradientIterations:     16,
	VariationalRefinements: 5,
	Downscale:              4,
}

// Field is a dense (u,v) displacement field at preview resolution.
type Field struct {
	Width, Height int
	U, V          []float32
}

// At returns the flow vector at (x, y), clamped to the field bounds.
func (f *Field) At(x, y int) (u, v float32) {
	if x < 0 {
		x = 0
	}
	if x >= f.Width {
		x = f.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= f.Height {
		y = f.Height - 1
	}
	i := y*f.Width + x
	return f.U[i], f.V[i]
}

// StdDev downscales the field by Settings.Downscale and returns the
// standard deviation of its magnitude, the flowStdDev statistic the
// fusion kernel's weight table keys on (§4.4, §4.5).
func StdDev(f *Field) float64 {
	ds := Settings.Downscale
	dw, dh := f.Width/ds, f.Height/ds
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	mags := make([]float64, 0, dw*dh)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			u, v := f.At(x*ds, y*ds)
			mags = append(mags, math.Hypot(float64(u), float64(v)))
		}
	}
	if len(mags) == 0 {
		return 0
	}
	_, variance := stat.MeanVariance(mags, nil)
	return math.Sqrt(variance)
}
