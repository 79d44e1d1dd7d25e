//go:build withcv
// +build withcv

/*
NAME
  farneback_withcv.go

DESCRIPTION
  farneback_withcv.go computes dense optical flow between a reference
  and candidate preview plane using OpenCV's Farneback implementation,
  the teacher's own CV backend (see the `withcv`-gated filter and
  cmd/rv packages). The patch-size/stride/iteration parameters in
  Settings are translated into the closest Farneback equivalents;
  Farneback does not expose a literal patch-stride, so winsize is
  derived from PatchSize and the pyramid scale is fixed to approximate
  the spec's spatial-propagation behavior.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package flow

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/ausocean/motioncam/rawbuf"
)

// Compute runs dense optical flow from ref to cand, both uint8 luma
// previews of identical dimensions, using the fixed Settings.
func Compute(ref, cand *rawbuf.Plane8) (*Field, error) {
	if ref.Width != cand.Width || ref.Height != cand.Height {
		return nil, errors.New("invalid state: reference and candidate preview dimensions differ")
	}

	refMat, err := gocv.NewMatFromBytes(ref.Height, ref.Width, gocv.MatTypeCV8U, ref.Pix)
	if err != nil {
		return nil, errors.Wrap(err, "could not build reference mat")
	}
	defer refMat.Close()

	candMat, err := gocv.NewMatFromBytes(cand.Height, cand.Width, gocv.MatTypeCV8U, cand.Pix)
	if err != nil {
		return nil, errors.Wrap(err, "could not build candidate mat")
	}
	defer candMat.Close()

	flowMat := gocv.NewMat()
	defer flowMat.Close()

	gocv.CalcOpticalFlowFarneback(
		refMat, candMat, &flowMat,
		0.5,                          // Pyramid scale.
		4,                            // Pyramid levels, standing in for spatial propagation.
		Settings.PatchSize,           // Window size, standing in for the patch size.
		Settings.GradientIterations,  // Iterations per pyramid level.
		7,                            // Pixel neighborhood size for polynomial expansion.
		1.5,                          // Polynomial expansion standard deviation.
		0,
	)

	field := &Field{
		Width: ref.Width, Height: ref.Height,
		U: make([]float32, ref.Width*ref.Height),
		V: make([]float32, ref.Width*ref.Height),
	}
	for y := 0; y < ref.Height; y++ {
		for x := 0; x < ref.Width; x++ {
			v := flowMat.GetVecfAt(y, x)
			field.U[y*ref.Width+x] = v[0]
			field.V[y*ref.Width+x] = v[1]
		}
	}

	// Variational refinement iterations smooth the raw Farneback
	// field, approximating the spec's refinement pass when a plain
	// Farneback call would otherwise leave blocky patch boundaries.
	for i := 0; i < Settings.VariationalRefinements; i++ {
		smoothField(field)
	}

	return field, nil
}

// smoothField applies one pass of 3x3 box smoothing to the flow
// field in place, standing in for a variational refinement iteration.
func smoothField(f *Field) {
	u := make([]float32, len(f.U))
	v := make([]float32, len(f.V))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			var su, sv float32
			var n float32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					uu, vv := f.At(x+dx, y+dy)
					su += uu
					sv += vv
					n++
				}
			}
			u[y*f.Width+x] = su / n
			v[y*f.Width+x] = sv / n
		}
	}
	f.U, f.V = u, v
}
