/*
NAME
  types.go

DESCRIPTION
  types.go defines the buffer and metadata model shared by every stage
  of the burst denoiser: the raw sensor buffer as read from a
  container, per-frame and per-camera metadata, the settings a caller
  supplies for post-processing, and the deinterleaved intermediate
  form each frame is reduced to before it contributes to the fused
  pyramid.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package rawbuf provides the typed containers that flow between the
// stages of the burst denoiser: raw sensor buffers, per-frame and
// per-camera metadata, post-process settings, and the deinterleaved
// per-frame intermediate.
package rawbuf

import (
	"sync"

	"github.com/pkg/errors"
)

// PixelFormat enumerates the packed sensor formats the deinterleaver
// recognises.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatRaw10
	PixelFormatRaw16
	PixelFormatYUV420Bayer
)

// SensorArrangement is the CFA tile layout of the sensor.
type SensorArrangement int

const (
	RGGB SensorArrangement = iota
	GRBG
	GBRG
	BGGR
)

// Illuminant is one of the DNG/EXIF calibration illuminants a camera
// profile's two color matrices are referenced to.
type Illuminant int

const (
	IlluminantStandardA Illuminant = iota
	IlluminantStandardB
	IlluminantStandardC
	IlluminantD50
	IlluminantD55
	IlluminantD65
	IlluminantD75
)

// ScreenOrientation is the orientation the device screen was in at
// capture time.
type ScreenOrientation int

const (
	Landscape ScreenOrientation = iota
	Portrait
	ReverseLandscape
	ReversePortrait
)

// Mat3 is a row-major 3x3 matrix, used for color matrices and
// forward matrices.
type Mat3 [3][3]float64

// Vec3 is a 3-component vector, used for as-shot neutrals and camera
// whites.
type Vec3 [3]float64

// Grid is a 2-D float grid, used for lens-shading maps.
type Grid struct {
	Width, Height int
	Data          []float32
}

// At returns the grid value at integer coordinates (x, y), with x and
// y clamped to [0, Width-1] and [0, Height-1] respectively.
func (g *Grid) At(x, y int) float32 {
	if x < 0 {
		x = 0
	}
	if x >= g.Width {
		x = g.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= g.Height {
		y = g.Height - 1
	}
	return g.Data[y*g.Width+x]
}

// Sample bilinearly interpolates the grid at normalized coordinates
// u, v in [0,1].
func (g *Grid) Sample(u, v float64) float64 {
	fx := u * float64(g.Width-1)
	fy := v * float64(g.Height-1)
	x0 := int(fx)
	y0 := int(fy)
	x1, y1 := x0+1, y0+1
	tx, ty := fx-float64(x0), fy-float64(y0)

	v00 := float64(g.At(x0, y0))
	v10 := float64(g.At(x1, y0))
	v01 := float64(g.At(x0, y1))
	v11 := float64(g.At(x1, y1))

	top := v00 + (v10-v00)*tx
	bot := v01 + (v11-v01)*tx
	return top + (bot-top)*ty
}

// RawImageMetadata is the per-frame metadata a container supplies
// alongside a frame's pixel data.
type RawImageMetadata struct {
	ISO                   int
	ExposureTime          int64 // Nanoseconds.
	ExposureCompensation  Ratio
	AsShot                Vec3
	ColorCorrection       [4]float32
	LensShadingMap        [4]Grid
	ScreenOrientation     ScreenOrientation
}

// Ratio is a fixed-point numerator/denominator pair.
type Ratio struct {
	Num, Den int64
}

// Float returns the ratio as a float64; a zero denominator yields 0.
func (r Ratio) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Validate checks the invariants §3 places on per-frame metadata.
func (m *RawImageMetadata) Validate() error {
	maxc := m.AsShot[0]
	for _, c := range m.AsShot {
		if c < 0 {
			return errors.New("invalid state: asShot component negative")
		}
		if c > maxc {
			maxc = c
		}
	}
	if maxc <= 0 {
		return errors.New("invalid input: asShot vector is all-zero")
	}
	w, h := m.LensShadingMap[0].Width, m.LensShadingMap[0].Height
	for i := 1; i < 4; i++ {
		if m.LensShadingMap[i].Width != w || m.LensShadingMap[i].Height != h {
			return errors.New("invalid input: lensShadingMap planes have mismatched dimensions")
		}
	}
	return nil
}

// RawCameraMetadata is the per-camera (not per-frame) metadata that
// does not change across a burst.
type RawCameraMetadata struct {
	SensorArrangement                   SensorArrangement
	BlackLevel                          [4]uint16
	WhiteLevel                          uint16
	ColorMatrix1, ColorMatrix2          Mat3
	ForwardMatrix1, ForwardMatrix2      Mat3
	ColorIlluminant1, ColorIlluminant2  Illuminant
	Apertures, FocalLengths             []float64
}

// PostProcessSettings configures the tonemap stage (§4.8) and the
// final JPEG encode.
type PostProcessSettings struct {
	Temperature, Tint float64 // If both zero, per-frame AsShot is used.
	Exposure          float64
	Shadows           float64
	Blacks            float64
	WhitePoint        float64 // In [0,1].
	Gamma             float64
	Contrast          float64
	Saturation        float64
	BlueSaturation    float64
	GreenSaturation   float64
	TonemapVariance   float64
	Sharpen0          float64
	Sharpen1          float64
	ChromaEps         float64
	SceneLuminance    float64
	NoiseSigma        float64
	JPEGQuality       int // In [1,100].
	SpatialDenoiseAggressiveness float64
	Flipped           bool
}

// RawImageBuffer is a single packed sensor frame as delivered by a
// container, along with its row layout and the metadata captured
// alongside it.
type RawImageBuffer struct {
	Width, Height int
	RowStride     int
	PixelFormat   PixelFormat
	Metadata      RawImageMetadata

	mu   sync.Mutex
	data []byte
}

// NewRawImageBuffer constructs a buffer over data without copying it.
func NewRawImageBuffer(width, height, rowStride int, format PixelFormat, data []byte, md RawImageMetadata) *RawImageBuffer {
	return &RawImageBuffer{Width: width, Height: height, RowStride: rowStride, PixelFormat: format, Metadata: md, data: data}
}

// ScopedAccessor is a handle on a RawImageBuffer's backing bytes, held
// while the lock is acquired. Release must be called exactly once on
// every exit path.
type ScopedAccessor struct {
	buf  *RawImageBuffer
	data []byte
}

// Lock acquires the buffer's scoped accessor. The caller must call
// Release on all exit paths, including error returns.
func (b *RawImageBuffer) Lock() *ScopedAccessor {
	b.mu.Lock()
	return &ScopedAccessor{buf: b, data: b.data}
}

// Bytes returns the locked backing data.
func (a *ScopedAccessor) Bytes() []byte { return a.data }

// Release unlocks the buffer. Safe to call once; a nil receiver is a
// no-op so callers can defer Release unconditionally after a
// potentially-failed Lock sequence.
func (a *ScopedAccessor) Release() {
	if a == nil {
		return
	}
	a.buf.mu.Unlock()
}

// RawData is the per-frame intermediate the deinterleaver produces:
// four half-resolution, edge-padded planes plus a luma preview, all
// at the same padded dimensions. It is owned by the fusion loop for
// exactly the duration of one frame's contribution and released
// immediately after.
type RawData struct {
	Planes      [4]Plane16 // Canonical CFA order: TL, TR, BL, BR.
	Preview     Plane8
	Metadata    RawImageMetadata
}

// Plane16 is a single uint16 image plane with explicit dimensions.
type Plane16 struct {
	Width, Height int
	Pix           []uint16
}

// NewPlane16 allocates a zeroed plane of the given dimensions.
func NewPlane16(w, h int) Plane16 { return Plane16{Width: w, Height: h, Pix: make([]uint16, w*h)} }

// At returns the value at (x, y) with edge-clamped coordinates.
func (p *Plane16) At(x, y int) uint16 {
	x, y = clamp(x, p.Width), clamp(y, p.Height)
	return p.Pix[y*p.Width+x]
}

// Set writes the value at (x, y).
func (p *Plane16) Set(x, y int, v uint16) { p.Pix[y*p.Width+x] = v }

// Plane8 is a single uint8 image plane, used for luma previews.
type Plane8 struct {
	Width, Height int
	Pix           []uint8
}

// NewPlane8 allocates a zeroed plane of the given dimensions.
func NewPlane8(w, h int) Plane8 { return Plane8{Width: w, Height: h, Pix: make([]uint8, w*h)} }

// At returns the value at (x, y) with edge-clamped coordinates.
func (p *Plane8) At(x, y int) uint8 {
	x, y = clamp(x, p.Width), clamp(y, p.Height)
	return p.Pix[y*p.Width+x]
}

// Set writes the value at (x, y).
func (p *Plane8) Set(x, y int, v uint8) { p.Pix[y*p.Width+x] = v }

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// RGGBPlaneOrder returns, for a sensor's native arrangement, the
// indices into a positionally-ordered plane array (0=TL, 1=TR, 2=BL,
// 3=BR of the 2x2 CFA tile) that yield [R, G, G, B] plane order —
// the swap rule §4.10 and §8's "DNG CFA reorder" test apply when
// writing a DNG or reconstructing RGB during tonemap. This table is
// authoritative; it is not re-derived at each call site.
func RGGBPlaneOrder(arr SensorArrangement) [4]int {
	switch arr {
	case RGGB:
		return [4]int{0, 1, 2, 3}
	case GRBG:
		return [4]int{1, 0, 3, 2}
	case GBRG:
		return [4]int{2, 0, 3, 1}
	case BGGR:
		return [4]int{3, 1, 2, 0}
	default:
		return [4]int{0, 1, 2, 3}
	}
}

// PaddedDims returns (halfWidth+extendX, halfHeight+extendY) for a
// full-resolution frame of (width, height), rounded up so each
// dimension is a multiple of 2^levels, per the padding law in §3/§8.
func PaddedDims(width, height, levels int) (w, h, extendX, extendY int) {
	halfW, halfH := width/2, height/2
	m := 1 << uint(levels)
	w = ((halfW + m - 1) / m) * m
	h = ((halfH + m - 1) / m) * m
	return w, h, w - halfW, h - halfH
}
