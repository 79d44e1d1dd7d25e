/*
NAME
  colorprofile.go

DESCRIPTION
  colorprofile.go implements the camera color profile contract of
  §4.2: given either an illuminant temperature+tint or an as-shot
  neutral vector, produce the camera-to-sRGB matrix and camera white
  used by the tonemap stage.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package colorprofile builds the camera-to-sRGB conversion matrix
// and per-frame neutral white point from a camera's dual-illuminant
// calibration and either a requested color temperature/tint or an
// as-shot neutral vector.
package colorprofile

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/ausocean/motioncam/rawbuf"
)

// illuminantTemp maps a DNG/EXIF calibration illuminant to its
// reference correlated color temperature in Kelvin, the same table
// Adobe's DNG SDK and most raw pipelines use.
var illuminantTemp = map[rawbuf.Illuminant]float64{
	rawbuf.IlluminantStandardA: 2856,
	rawbuf.IlluminantStandardB: 4874,
	rawbuf.IlluminantStandardC: 6774,
	rawbuf.IlluminantD50:       5003,
	rawbuf.IlluminantD55:       5503,
	rawbuf.IlluminantD65:       6504,
	rawbuf.IlluminantD75:       7504,
}

// sRGBFromXYZ is the Bradford-adapted XYZ(D50) to linear sRGB matrix,
// used to compose the forward-matrix path into a single camera-to-sRGB
// transform.
var sRGBFromXYZ = rawbuf.Mat3{
	{3.1338561, -1.6168667, -0.4906146},
	{-0.9787684, 1.9161415, 0.0334540},
	{0.0719453, -0.2289914, 1.4052427},
}

// Profile is the resolved camera-to-sRGB matrix and neutral white for
// one frame.
type Profile struct {
	CameraToSRGB rawbuf.Mat3
	CameraWhite  rawbuf.Vec3
}

// FromTemperature builds a profile by blending the camera's two
// calibrated illuminants by the fraction of the requested temperature
// between them, per §4.2.
func FromTemperature(cam rawbuf.RawCameraMetadata, temperature, tint float64) (Profile, error) {
	t1, ok1 := illuminantTemp[cam.ColorIlluminant1]
	t2, ok2 := illuminantTemp[cam.ColorIlluminant2]
	if !ok1 || !ok2 {
		return Profile{}, errors.New("invalid input: unrecognized calibration illuminant")
	}

	frac := interpolationFraction(t1, t2, temperature)

	forwardMatrix := blend(cam.ForwardMatrix1, cam.ForwardMatrix2, frac)

	// The forward matrix maps white-balanced camera RGB to the PCS
	// (XYZ D50); tint perturbs the green channel of the neutral used
	// to white-balance before that mapping, matching how DNG tint
	// correction is conventionally applied.
	neutral := rawbuf.Vec3{1, 1 + tint*greenTintScale, 1}

	cameraToSRGB := matMul(sRGBFromXYZ, forwardMatrix)

	return Profile{
		CameraToSRGB: cameraToSRGB,
		CameraWhite:  neutral,
	}, nil
}

// greenTintScale converts the small dimensionless tint value DNG
// stores into a green-channel gain perturbation.
const greenTintScale = 0.05

// FromAsShot builds a profile from a camera-neutral vector captured
// at exposure time: normalize by its max, invert the
// temperature-from-vector mapping to recover an equivalent
// temperature+tint, then defer to FromTemperature, per §4.2.
func FromAsShot(cam rawbuf.RawCameraMetadata, asShot rawbuf.Vec3) (Profile, error) {
	maxc := asShot[0]
	for _, c := range asShot {
		if c > maxc {
			maxc = c
		}
	}
	if maxc <= 0 {
		return Profile{}, errors.New("invalid input: as-shot vector is all-zero")
	}
	norm := rawbuf.Vec3{asShot[0] / maxc, asShot[1] / maxc, asShot[2] / maxc}

	temperature, tint := temperatureFromNeutral(cam, norm)
	profile, err := FromTemperature(cam, temperature, tint)
	if err != nil {
		return Profile{}, err
	}
	profile.CameraWhite = norm
	return profile, nil
}

// temperatureFromNeutral inverts the illuminant blend by bisecting
// over the two calibrated illuminants' temperature range, searching
// for the fraction whose resulting camera white best matches norm in
// the red/blue ratio (tint is derived from the residual green error).
func temperatureFromNeutral(cam rawbuf.RawCameraMetadata, norm rawbuf.Vec3) (temperature, tint float64) {
	t1 := illuminantTemp[cam.ColorIlluminant1]
	t2 := illuminantTemp[cam.ColorIlluminant2]
	lo, hi := math.Min(t1, t2), math.Max(t1, t2)

	targetRB := norm[0] / math.Max(norm[2], 1e-9)

	const iterations = 24
	for i := 0; i < iterations; i++ {
		mid := (lo + hi) / 2
		frac := interpolationFraction(t1, t2, mid)
		cm := blend(cam.ColorMatrix1, cam.ColorMatrix2, frac)
		// Approximate the neutral-to-temperature relationship via the
		// color matrix's R and B row sums, which move monotonically
		// with the correlated color temperature for any real sensor
		// calibration.
		rSum := cm[0][0] + cm[0][1] + cm[0][2]
		bSum := cm[2][0] + cm[2][1] + cm[2][2]
		rb := rSum / math.Max(bSum, 1e-9)
		if rb > targetRB {
			lo = mid
		} else {
			hi = mid
		}
	}
	temperature = (lo + hi) / 2

	frac := interpolationFraction(t1, t2, temperature)
	cm := blend(cam.ColorMatrix1, cam.ColorMatrix2, frac)
	gSum := cm[1][0] + cm[1][1] + cm[1][2]
	tint = (norm[1] - gSum) / greenTintScale
	return temperature, tint
}

// interpolationFraction returns the fraction of t between t1 and t2,
// expressed in inverse-temperature (mired) space as DNG specifies,
// clamped to [0,1].
func interpolationFraction(t1, t2, t float64) float64 {
	m1, m2, m := 1e6/t1, 1e6/t2, 1e6/t
	var f float64
	if m2 != m1 {
		f = (m - m1) / (m2 - m1)
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f
}

func blend(a, b rawbuf.Mat3, frac float64) rawbuf.Mat3 {
	var out rawbuf.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j] + (b[i][j]-a[i][j])*frac
		}
	}
	return out
}

func matMul(a, b rawbuf.Mat3) rawbuf.Mat3 {
	da := mat.NewDense(3, 3, flatten(a))
	db := mat.NewDense(3, 3, flatten(b))
	var dc mat.Dense
	dc.Mul(da, db)
	var out rawbuf.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = dc.At(i, j)
		}
	}
	return out
}

func flatten(m rawbuf.Mat3) []float64 {
	return []float64{m[0][0], m[0][1], m[0][2], m[1][0], m[1][1], m[1][2], m[2][0], m[2][1], m[2][2]}
}

// Apply transforms a white-balanced camera-space RGB triple to linear
// sRGB using the profile's matrix.
func (p Profile) Apply(rgb rawbuf.Vec3) rawbuf.Vec3 {
	m := p.CameraToSRGB
	return rawbuf.Vec3{
		m[0][0]*rgb[0] + m[0][1]*rgb[1] + m[0][2]*rgb[2],
		m[1][0]*rgb[0] + m[1][1]*rgb[1] + m[1][2]*rgb[2],
		m[2][0]*rgb[0] + m[2][1]*rgb[1] + m[2][2]*rgb[2],
	}
}
