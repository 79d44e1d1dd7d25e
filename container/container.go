/*
NAME
  container.go

DESCRIPTION
  container.go declares the external collaborators the orchestrator
  consumes (§6): the frame container, the DNG writer, the JPEG
  encoder/EXIF embedder, and the progress listener. The container file
  format, DNG serialization, and EXIF serialization are explicitly out
  of scope for this module (§1) — these are the interfaces at which
  the core meets them.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package container declares the interfaces through which the
// orchestrator reads a burst of raw frames and hands its results to
// external writers: the frame container, the DNG writer, the JPEG
// encoder/EXIF embedder, and the progress listener.
package container

import (
	"image"

	"github.com/ausocean/motioncam/rawbuf"
)

// FrameID identifies one frame within a container.
type FrameID string

// Container is the abstract burst source the orchestrator reads from.
// Implementations own the actual file format, which is outside this
// module's scope.
type Container interface {
	// Frames returns the ordered list of frame IDs in the burst.
	Frames() ([]FrameID, error)

	// ReferenceImage returns the frame ID designated as the merge
	// reference.
	ReferenceImage() (FrameID, error)

	// Frame returns cheap, metadata-only access to a frame: width,
	// height, pixel format and per-frame metadata, without
	// materializing pixel data.
	Frame(id FrameID) (*rawbuf.RawImageBuffer, error)

	// LoadFrame materializes a frame's pixel data, returning a
	// lockable buffer the caller must Release via ReleaseFrame once
	// done.
	LoadFrame(id FrameID) (*rawbuf.RawImageBuffer, error)

	// ReleaseFrame frees the pixel data loaded by LoadFrame.
	ReleaseFrame(id FrameID) error

	// CameraMetadata returns the per-camera metadata shared across the
	// burst.
	CameraMetadata() (rawbuf.RawCameraMetadata, error)

	// PostProcessSettings returns the tonemap settings to apply.
	PostProcessSettings() (rawbuf.PostProcessSettings, error)

	// WriteDNG reports whether an uncompressed DNG should be written
	// alongside the JPEG.
	WriteDNG() bool
}

// DNGImage is the interleaved uint16 Bayer image and supporting
// metadata the DNG writer needs, already reordered to row-major RGGB
// per §4.10's swap rule.
type DNGImage struct {
	Width, Height int
	Pix           []uint16 // Row-major, one sample per pixel, RGGB-ordered.
	Camera        rawbuf.RawCameraMetadata
	Frame         rawbuf.RawImageMetadata
	OffsetX, OffsetY int // Crop offsets already applied to Pix's dimensions.
}

// DNGWriter writes an uncompressed DNG preserving linear sensor data,
// per §6/§4.10. Implementations own DNG serialization, which is
// outside this module's scope.
type DNGWriter interface {
	WriteDNG(path string, img DNGImage) error
}

// EncodedImage is a JPEG-encoded image plus the thumbnail and EXIF
// fields the orchestrator has already computed (§4.10).
type EncodedImage struct {
	JPEG      []byte
	Thumbnail []byte
	EXIF      EXIFFields
}

// EXIFFields are the tags the orchestrator asks the embedder to
// write, per §4.10.
type EXIFFields struct {
	ISO              int
	ExposureTimeNum  int64
	ExposureTimeDen  int64
	Orientation      int // One of the 8 EXIF orientation codes.
	Aperture         float64
	FocalLength      float64
	LensModel        string
	ColorSpace       int // 1 = sRGB.
	SceneType        int // 1 = directly photographed.
	ResolutionDPI    int
	WhiteBalance     int // 0 = manual.
}

// JPEGEncoder encodes an RGB image to JPEG at the requested quality
// and embeds EXIF metadata plus a thumbnail. Implementations own JPEG
// and EXIF serialization, which are outside this module's scope.
type JPEGEncoder interface {
	Encode(rgb image.Image, quality int, fields EXIFFields, thumbnail []byte) ([]byte, error)
}

// ProgressListener receives progress updates from one process() call
// (§6). onProgressUpdate is non-decreasing and ends at exactly 100;
// onError aborts the run and no partial output is committed.
type ProgressListener interface {
	OnProgressUpdate(percent int)
	OnCompleted()
	OnError(message string)
}
