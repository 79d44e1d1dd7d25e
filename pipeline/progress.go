/*
NAME
  progress.go

DESCRIPTION
  progress.go tracks the orchestrator's progress reporting: 75% of the
  run is divided evenly across each (channel, frame) fused, per
  §4.10's 75/(N*4) formula, with the postprocess and finalization
  stages jumping straight to 95% and 100%. onProgressUpdate is never
  called with a value lower than the last one reported.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import "github.com/ausocean/motioncam/container"

// progressTracker accumulates fused-(channel,frame) steps into the
// 0-75% range and clamps every report to be non-decreasing.
type progressTracker struct {
	listener    container.ProgressListener
	totalSteps  int
	done        int
	lastPercent int
}

// newProgressTracker allocates a tracker for a burst of numFrames
// frames, each contributing 4 channel steps (§4.10).
func newProgressTracker(listener container.ProgressListener, numFrames int) *progressTracker {
	return &progressTracker{listener: listener, totalSteps: numFrames * 4}
}

// step reports one more (channel, frame) fused.
func (t *progressTracker) step() {
	t.done++
	percent := 0
	if t.totalSteps > 0 {
		percent = t.done * 75 / t.totalSteps
	}
	t.jumpTo(percent)
}

// jumpTo reports percent directly, clamped to [lastPercent, 100].
func (t *progressTracker) jumpTo(percent int) {
	if percent < t.lastPercent {
		percent = t.lastPercent
	}
	if percent > 100 {
		percent = 100
	}
	t.lastPercent = percent
	t.listener.OnProgressUpdate(percent)
}
