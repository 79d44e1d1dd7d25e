/*
NAME
  jpegenc.go

DESCRIPTION
  jpegenc.go is the default JPEGEncoder implementation: it satisfies
  the interface declared in container.go using stdlib image/jpeg.
  Real EXIF embedding is outside this module's scope (§1, §6) — this
  default passes the requested fields and thumbnail to an optional
  caller-supplied Embed function rather than writing APP1 segments
  itself; without one it returns the bare JPEG and the fields are
  not written.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package container

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

// StdJPEGEncoder is the default JPEGEncoder, built on stdlib
// image/jpeg. It does not itself serialize EXIF; an embedder that
// rewrites the APP1 segment is expected to wrap it (§6 treats EXIF
// serialization as a separate consumed collaborator).
type StdJPEGEncoder struct {
	// Embed, if set, is called with the bare JPEG bytes and the
	// requested fields/thumbnail, and returns the final bytes with
	// EXIF embedded. If nil, Encode returns the bare JPEG unchanged.
	Embed func(jpegBytes []byte, fields EXIFFields, thumbnail []byte) ([]byte, error)
}

// Encode implements JPEGEncoder.
func (e *StdJPEGEncoder) Encode(rgb image.Image, quality int, fields EXIFFields, thumbnail []byte) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, errors.New("invalid input: jpegQuality out of [1,100]")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "jpeg encode failed")
	}

	if e.Embed == nil {
		return buf.Bytes(), nil
	}
	out, err := e.Embed(buf.Bytes(), fields, thumbnail)
	if err != nil {
		return nil, errors.Wrap(err, "exif embed failed")
	}
	return out, nil
}

// Thumbnail builds a 320-wide thumbnail preserving aspect ratio,
// encoded as its own JPEG, per §4.10 step 7.
func Thumbnail(src image.Image, quality int) ([]byte, error) {
	b := src.Bounds()
	const targetW = 320
	targetH := b.Dy() * targetW / b.Dx()
	if targetH < 1 {
		targetH = 1
	}

	small := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	for y := 0; y < targetH; y++ {
		sy := y * b.Dy() / targetH
		for x := 0; x < targetW; x++ {
			sx := x * b.Dx() / targetW
			small.Set(x, y, src.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "thumbnail encode failed")
	}
	return buf.Bytes(), nil
}
