/*
NAME
  fusion_test.go

DESCRIPTION
  fusion_test.go checks the weight-regime selection table against the
  thresholds fixed by spec §4.5, as required by the testable property
  in §8 ("Weight-regime selection").

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package fusion

import "testing"

func TestSelectWeights(t *testing.T) {
	cases := []struct {
		name           string
		iso            int
		exposureTimeNs int64
		flowStdDev     float64
		want           Weights
	}{
		{"low light low motion", 1600, 10_000_000, 4, Weights{16, 16}},
		{"low light boundary", 800, 8_000_000, 9.99, Weights{16, 16}},
		{"bright fast shutter", 100, 1_000_000, 0, Weights{4, 4}},
		{"bright boundary", 200, 1_250_000, 0, Weights{4, 4}},
		{"high motion", 400, 4_000_000, 10.01, Weights{2, 8}},
		{"default", 400, 4_000_000, 5, Weights{16, 8}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := SelectWeights(c.iso, c.exposureTimeNs, c.flowStdDev)
			if got != c.want {
				t.Errorf("SelectWeights(%d, %d, %v) = %+v, want %+v", c.iso, c.exposureTimeNs, c.flowStdDev, got, c.want)
			}
		})
	}
}
