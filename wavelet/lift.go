/*
NAME
  lift.go

DESCRIPTION
  lift.go implements the 1D CDF 5/3 lifting steps the separable 2D
  transform in wavelet.go applies along rows and columns. The
  floating-point lifting scheme is exactly invertible by construction
  (predict and update are each undone by negating the same step), so
  inverse(forward(x)) reproduces x up to floating-point rounding only.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package wavelet

// forward1D applies one level of the CDF 5/3 lifting transform to x
// (even length), returning the low (approximation) and high (detail)
// bands, each of length len(x)/2.
func forward1D(x []float64) (low, high []float64) {
	n := len(x)
	half := n / 2
	even := make([]float64, half)
	odd := make([]float64, half)
	for i := 0; i < half; i++ {
		even[i] = x[2*i]
		odd[i] = x[2*i+1]
	}

	d := make([]float64, half)
	for i := 0; i < half; i++ {
		e1 := even[clampIdx(i+1, half)]
		d[i] = odd[i] - 0.5*(even[i]+e1)
	}

	s := make([]float64, half)
	for i := 0; i < half; i++ {
		dPrev := d[clampIdx(i-1, half)]
		s[i] = even[i] + 0.25*(dPrev+d[i])
	}

	return s, d
}

// inverse1D undoes forward1D, interleaving the reconstructed even/odd
// samples back into a full-length signal.
func inverse1D(low, high []float64) []float64 {
	half := len(low)
	even := make([]float64, half)
	for i := 0; i < half; i++ {
		dPrev := high[clampIdx(i-1, half)]
		even[i] = low[i] - 0.25*(dPrev+high[i])
	}

	odd := make([]float64, half)
	for i := 0; i < half; i++ {
		e1 := even[clampIdx(i+1, half)]
		odd[i] = high[i] + 0.5*(even[i]+e1)
	}

	out := make([]float64, half*2)
	for i := 0; i < half; i++ {
		out[2*i] = even[i]
		out[2*i+1] = odd[i]
	}
	return out
}

// clampIdx clamps i into [0, n) by edge replication, the boundary
// extension used at the start/end of each row or column.
func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
