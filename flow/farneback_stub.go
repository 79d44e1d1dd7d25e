//go:build !withcv
// +build !withcv

/*
NAME
  farneback_stub.go

DESCRIPTION
  farneback_stub.go is the fallback Compute implementation built when
  the withcv tag is absent, so the rest of the module builds and
  tests without a system OpenCV install. It mirrors the teacher's
  filter/filters_circleci.go pattern of a same-signature stub for
  environments without gocv.

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

	"github.com/ausocean/motioncam/rawbuf"
)

// Compute returns an error; build with -tags withcv for a real dense
// optical flow implementation.
func Compute(ref, cand *rawbuf.Plane8) (*Field, error) {
	return nil, errors.New("flow: not built with cv support, rebuild with -tags withcv")
}
