/*
NAME
  deinterleave.go

DESCRIPTION
  deinterleave.go converts a packed Bayer sensor frame into four
  half-resolution color planes plus a luma preview, per §4.1. Planes
  are edge-padded to a multiple of 2^L by clamp-replicating the right
  and bottom border.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package deinterleave reads packed raw sensor bytes and produces the
// four half-resolution CFA planes, edge-padded to the wavelet
// pyramid's tile size, plus a downscaled luma preview.
package deinterleave

import (
	"image"
	"image/color"
	"image/draw"

	ximagedraw "golang.org/x/image/draw"

	"github.com/pkg/errors"

	"github.com/ausocean/motioncam/rawbuf"
)

// lumaWeights are the per-plane weights used to build the luma
// preview from the four deinterleaved CFA planes. Every tile position
// is weighted equally, so the two green samples of each tile together
// supply half of the luma value.
var lumaWeights = [4]float64{0.25, 0.25, 0.25, 0.25}

// Options configures one deinterleave call.
type Options struct {
	HalfWidth, HalfHeight int
	ExtendX, ExtendY      int // Half-resolution padding to add, i.e. extendX/2, extendY/2 in full-res terms.
	SensorArrangement     rawbuf.SensorArrangement
	PixelFormat           rawbuf.PixelFormat
	RowStride             int
	WhiteLevel            uint16
	BlackLevel            [4]uint16
	ScalePreview          int // Downscale factor for the luma preview, >=1.
}

// recognizedFormats lists the pixel formats this deinterleaver can
// unpack.
var recognizedFormats = map[rawbuf.PixelFormat]bool{
	rawbuf.PixelFormatRaw10:       true,
	rawbuf.PixelFormatRaw16:       true,
	rawbuf.PixelFormatYUV420Bayer: true,
}

// Deinterleave unpacks a packed Bayer frame into rawbuf.RawData: four
// CFA planes in canonical order (top-left, top-right, bottom-left,
// bottom-right of the 2x2 tile) and a luma preview, all padded to
// (HalfWidth+ExtendX, HalfHeight+ExtendY).
func Deinterleave(data []byte, opt Options, md rawbuf.RawImageMetadata) (*rawbuf.RawData, error) {
	if !recognizedFormats[opt.PixelFormat] {
		return nil, errors.New("invalid input: unrecognized pixel format")
	}
	if opt.HalfWidth <= 0 || opt.HalfHeight <= 0 {
		return nil, errors.New("invalid input: halfWidth*halfHeight is zero")
	}
	if opt.ExtendX < 0 || opt.ExtendY < 0 {
		return nil, errors.New("invalid input: negative extend")
	}
	if opt.ScalePreview <= 0 {
		opt.ScalePreview = 1
	}

	w := opt.HalfWidth + opt.ExtendX
	h := opt.HalfHeight + opt.ExtendY

	var planes [4]rawbuf.Plane16
	for i := range planes {
		planes[i] = rawbuf.NewPlane16(w, h)
	}

	read := pixelReader(opt.PixelFormat, opt.RowStride, data)

	// Planes are filled by tile *position*, not by color identity:
	// plane 0 is always the tile's top-left sample, plane 1 top-right,
	// plane 2 bottom-left, plane 3 bottom-right, regardless of
	// sensorArrangement (§4.1). Which position holds which color is
	// resolved downstream via rawbuf.RGGBPlaneOrder.
	for y := 0; y < opt.HalfHeight; y++ {
		for x := 0; x < opt.HalfWidth; x++ {
			planes[0].Set(x, y, read(2*x, 2*y))
			planes[1].Set(x, y, read(2*x+1, 2*y))
			planes[2].Set(x, y, read(2*x, 2*y+1))
			planes[3].Set(x, y, read(2*x+1, 2*y+1))
		}
	}

	extendPlanes(&planes, opt.HalfWidth, opt.HalfHeight)

	preview := buildPreview(&planes, opt.HalfWidth, opt.HalfHeight, w, h, opt.ScalePreview, opt.BlackLevel, opt.WhiteLevel)

	return &rawbuf.RawData{
		Planes:   planes,
		Preview:  preview,
		Metadata: md,
	}, nil
}

// pixelReader returns a function reading the sensor value at packed
// pixel coordinates (px, py) for the given pixel format.
func pixelReader(format rawbuf.PixelFormat, rowStride int, data []byte) func(px, py int) uint16 {
	switch format {
	case rawbuf.PixelFormatRaw16, rawbuf.PixelFormatYUV420Bayer:
		return func(px, py int) uint16 {
			off := py*rowStride + px*2
			return uint16(data[off]) | uint16(data[off+1])<<8
		}
	case rawbuf.PixelFormatRaw10:
		// Packed 4 pixels into 5 bytes (MIPI RAW10): the first four
		// bytes hold the 8 MSBs of each pixel, the fifth byte holds
		// the 2 LSBs of each, packed LSB-first per pixel.
		return func(px, py int) uint16 {
			group := px / 4
			idx := px % 4
			base := py*rowStride + group*5
			msb := uint16(data[base+idx])
			lsb := (uint16(data[base+4]) >> uint(idx*2)) & 0x3
			return msb<<2 | lsb
		}
	default:
		return func(px, py int) uint16 { return 0 }
	}
}

// extendPlanes fills the right and bottom padding region of each
// plane by edge-clamp replication of the last valid row/column.
func extendPlanes(planes *[4]rawbuf.Plane16, validW, validH int) {
	for i := range planes {
		p := &planes[i]
		for y := 0; y < p.Height; y++ {
			sy := y
			if sy >= validH {
				sy = validH - 1
			}
			for x := validW; x < p.Width; x++ {
				p.Set(x, y, p.At(validW-1, sy))
			}
		}
		for y := validH; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, p.At(x, validH-1))
			}
		}
	}
}

// buildPreview derives a downscaled luma plane from the four CFA
// planes using lumaWeights, covering the full padded extent. Each
// plane's sample is normalized to [0,1] against the sensor's actual
// black/white levels before weighting, so the preview (and therefore
// the optical flow and scene-analyzer statistics computed from it,
// §4.4, §4.7) scales correctly regardless of the sensor's native bit
// depth. The full-resolution luma is built once, then reduced to
// (paddedW/scale, paddedH/scale) with golang.org/x/image/draw's
// bilinear scaler, the same high-quality downsample the preview
// renderer's scale variants rely on (§4.1, §4.9).
func buildPreview(planes *[4]rawbuf.Plane16, validW, validH, paddedW, paddedH, scale int, blackLevel [4]uint16, whiteLevel uint16) rawbuf.Plane8 {
	pw, ph := paddedW/scale, paddedH/scale
	if pw < 1 {
		pw = 1
	}
	if ph < 1 {
		ph = 1
	}

	var whiteRange [4]float64
	for i := 0; i < 4; i++ {
		whiteRange[i] = float64(whiteLevel) - float64(blackLevel[i])
		if whiteRange[i] <= 0 {
			whiteRange[i] = 1
		}
	}

	full := image.NewGray(image.Rect(0, 0, paddedW, paddedH))
	for y := 0; y < paddedH; y++ {
		for x := 0; x < paddedW; x++ {
			var acc float64
			for i := 0; i < 4; i++ {
				norm := (float64(planes[i].At(x, y)) - float64(blackLevel[i])) / whiteRange[i]
				acc += lumaWeights[i] * norm
			}
			v := acc * 255
			if v > 255 {
				v = 255
			}
			if v < 0 {
				v = 0
			}
			full.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}

	small := image.NewGray(image.Rect(0, 0, pw, ph))
	ximagedraw.BiLinear.Scale(small, small.Bounds(), full, full.Bounds(), draw.Src, nil)

	preview := rawbuf.NewPlane8(pw, ph)
	copy(preview.Pix, small.Pix)
	return preview
}
