/*
NAME
  manifest.go

DESCRIPTION
  manifest.go is a minimal container.Container/container.DNGWriter
  implementation for the CLI: it reads a burst.json manifest plus its
  sibling raw frame files from a directory. Container and DNG
  serialization are explicitly out of this module's core scope (§1,
  §6) — this is a reference adapter only, not a production file
  format.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package manifest is a reference container.Container implementation
// that reads a burst of raw frames from a directory described by a
// burst.json manifest, for the motioncam CLI.
package manifest

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ausocean/motioncam/container"
	"github.com/ausocean/motioncam/rawbuf"
)

type frameSpec struct {
	ID                string     `json:"id"`
	File              string     `json:"file"`
	Width             int        `json:"width"`
	Height            int        `json:"height"`
	RowStride         int        `json:"rowStride"`
	PixelFormat       string     `json:"pixelFormat"`
	ISO               int        `json:"iso"`
	ExposureTimeNs    int64      `json:"exposureTimeNs"`
	AsShot            [3]float64 `json:"asShot"`
	ScreenOrientation string     `json:"screenOrientation"`
}

type cameraSpec struct {
	SensorArrangement string       `json:"sensorArrangement"`
	BlackLevel        [4]uint16    `json:"blackLevel"`
	WhiteLevel        uint16       `json:"whiteLevel"`
	ColorMatrix1      [3][3]float64 `json:"colorMatrix1"`
	ColorMatrix2      [3][3]float64 `json:"colorMatrix2"`
	ForwardMatrix1    [3][3]float64 `json:"forwardMatrix1"`
	ForwardMatrix2    [3][3]float64 `json:"forwardMatrix2"`
	ColorIlluminant1  string       `json:"colorIlluminant1"`
	ColorIlluminant2  string       `json:"colorIlluminant2"`
	Apertures         []float64    `json:"apertures"`
	FocalLengths      []float64    `json:"focalLengths"`
}

type burstSpec struct {
	Camera      cameraSpec                 `json:"camera"`
	PostProcess rawbuf.PostProcessSettings `json:"postProcess"`
	Reference   string                     `json:"reference"`
	Frames      []frameSpec                `json:"frames"`
}

// Manifest is a directory-backed burst read from a burst.json file.
type Manifest struct {
	dir      string
	spec     burstSpec
	writeDNG bool
}

// Open reads dir/burst.json and checks that it lists at least one
// frame. Frame files are not opened, and pixel data is not read, until
// LoadFrame.
func Open(dir string, writeDNG bool) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, "burst.json"))
	if err != nil {
		return nil, errors.Wrap(err, "could not read burst.json")
	}
	var spec burstSpec
	if err := json.Unmarshal(b, &spec); err != nil {
		return nil, errors.Wrap(err, "could not parse burst.json")
	}
	if len(spec.Frames) == 0 {
		return nil, errors.New("invalid input: burst.json lists no frames")
	}
	return &Manifest{dir: dir, spec: spec, writeDNG: writeDNG}, nil
}

func (m *Manifest) find(id container.FrameID) (*frameSpec, error) {
	for i := range m.spec.Frames {
		if m.spec.Frames[i].ID == string(id) {
			return &m.spec.Frames[i], nil
		}
	}
	return nil, errors.Errorf("invalid input: unknown frame id %q", id)
}

// Frames implements container.Container.
func (m *Manifest) Frames() ([]container.FrameID, error) {
	ids := make([]container.FrameID, len(m.spec.Frames))
	for i, f := range m.spec.Frames {
		ids[i] = container.FrameID(f.ID)
	}
	return ids, nil
}

// ReferenceImage implements container.Container.
func (m *Manifest) ReferenceImage() (container.FrameID, error) {
	if m.spec.Reference == "" {
		return container.FrameID(m.spec.Frames[0].ID), nil
	}
	return container.FrameID(m.spec.Reference), nil
}

// Frame implements container.Container: cheap metadata without pixel
// data.
func (m *Manifest) Frame(id container.FrameID) (*rawbuf.RawImageBuffer, error) {
	f, err := m.find(id)
	if err != nil {
		return nil, err
	}
	return rawbuf.NewRawImageBuffer(f.Width, f.Height, f.RowStride, pixelFormat(f.PixelFormat), nil, frameMetadata(f)), nil
}

// LoadFrame implements container.Container: reads the frame's raw
// file into memory.
func (m *Manifest) LoadFrame(id container.FrameID) (*rawbuf.RawImageBuffer, error) {
	f, err := m.find(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(m.dir, f.File))
	if err != nil {
		return nil, errors.Wrapf(err, "could not read frame file %s", f.File)
	}
	return rawbuf.NewRawImageBuffer(f.Width, f.Height, f.RowStride, pixelFormat(f.PixelFormat), data, frameMetadata(f)), nil
}

// ReleaseFrame implements container.Container. The manifest reads
// whole files into memory per call, so there is nothing to release.
func (m *Manifest) ReleaseFrame(id container.FrameID) error { return nil }

// CameraMetadata implements container.Container.
func (m *Manifest) CameraMetadata() (rawbuf.RawCameraMetadata, error) {
	c := m.spec.Camera
	return rawbuf.RawCameraMetadata{
		SensorArrangement: sensorArrangement(c.SensorArrangement),
		BlackLevel:        c.BlackLevel,
		WhiteLevel:        c.WhiteLevel,
		ColorMatrix1:      rawbuf.Mat3(c.ColorMatrix1),
		ColorMatrix2:      rawbuf.Mat3(c.ColorMatrix2),
		ForwardMatrix1:    rawbuf.Mat3(c.ForwardMatrix1),
		ForwardMatrix2:    rawbuf.Mat3(c.ForwardMatrix2),
		ColorIlluminant1:  illuminant(c.ColorIlluminant1),
		ColorIlluminant2:  illuminant(c.ColorIlluminant2),
		Apertures:         c.Apertures,
		FocalLengths:      c.FocalLengths,
	}, nil
}

// PostProcessSettings implements container.Container.
func (m *Manifest) PostProcessSettings() (rawbuf.PostProcessSettings, error) {
	return m.spec.PostProcess, nil
}

// WriteDNG implements container.Container.
func (m *Manifest) WriteDNG() bool { return m.writeDNG }

// FileDNGWriter implements container.DNGWriter with a minimal tagged
// binary format (width/height/offsets header, then raw uint16 samples
// little-endian): real DNG/TIFF serialization is outside this
// module's scope, and this is only meant to round-trip with tools
// that already understand this manifest format. It is a distinct type
// from Manifest because container.Container.WriteDNG (the bool flag)
// and container.DNGWriter.WriteDNG (the write call) share a method
// name and cannot both be implemented by one type.
type FileDNGWriter struct{}

// WriteDNG implements container.DNGWriter.
func (FileDNGWriter) WriteDNG(path string, img container.DNGImage) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create dng output")
	}
	defer f.Close()

	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:], uint32(img.Width))
	binary.LittleEndian.PutUint32(header[4:], uint32(img.Height))
	binary.LittleEndian.PutUint32(header[8:], uint32(img.OffsetX))
	binary.LittleEndian.PutUint32(header[12:], uint32(img.OffsetY))
	if _, err := f.Write(header); err != nil {
		return errors.Wrap(err, "could not write dng header")
	}

	buf := make([]byte, len(img.Pix)*2)
	for i, v := range img.Pix {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	if _, err := f.Write(buf); err != nil {
		return errors.Wrap(err, "could not write dng pixels")
	}
	return nil
}

func frameMetadata(f *frameSpec) rawbuf.RawImageMetadata {
	md := rawbuf.RawImageMetadata{
		ISO:               f.ISO,
		ExposureTime:      f.ExposureTimeNs,
		AsShot:            rawbuf.Vec3(f.AsShot),
		ScreenOrientation: screenOrientation(f.ScreenOrientation),
	}
	for i := range md.LensShadingMap {
		md.LensShadingMap[i] = rawbuf.Grid{Width: 2, Height: 2, Data: []float32{1, 1, 1, 1}}
	}
	return md
}

func pixelFormat(s string) rawbuf.PixelFormat {
	switch s {
	case "raw10":
		return rawbuf.PixelFormatRaw10
	case "yuv420bayer":
		return rawbuf.PixelFormatYUV420Bayer
	default:
		return rawbuf.PixelFormatRaw16
	}
}

func sensorArrangement(s string) rawbuf.SensorArrangement {
	switch s {
	case "grbg":
		return rawbuf.GRBG
	case "gbrg":
		return rawbuf.GBRG
	case "bggr":
		return rawbuf.BGGR
	default:
		return rawbuf.RGGB
	}
}

func illuminant(s string) rawbuf.Illuminant {
	switch s {
	case "standardB":
		return rawbuf.IlluminantStandardB
	case "standardC":
		return rawbuf.IlluminantStandardC
	case "d50":
		return rawbuf.IlluminantD50
	case "d55":
		return rawbuf.IlluminantD55
	case "d65":
		return rawbuf.IlluminantD65
	case "d75":
		return rawbuf.IlluminantD75
	default:
		return rawbuf.IlluminantStandardA
	}
}

func screenOrientation(s string) rawbuf.ScreenOrientation {
	switch s {
	case "portrait":
		return rawbuf.Portrait
	case "reverseLandscape":
		return rawbuf.ReverseLandscape
	case "reversePortrait":
		return rawbuf.ReversePortrait
	default:
		return rawbuf.Landscape
	}
}
