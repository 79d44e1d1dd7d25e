/*
NAME
  pipeline_test.go

DESCRIPTION
  pipeline_test.go exercises the orchestrator end to end against a
  synthetic single-frame container: the identity denoise path (no
  optical flow involved, since the default build has no CalcOpticalFlow
  backend), the DNG output path and dimensions, the orientation EXIF table,
  and progress-reporting monotonicity.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/motioncam/container"
	"github.com/ausocean/motioncam/pipeline/config"
	"github.com/ausocean/motioncam/rawbuf"
)

// testLogger routes the pipeline's logging.Logger calls through
// testing.T, matching the teacher's revid/utils.go testLogger.
type testLogger testing.T

func (tl *testLogger) Debug(msg string, args ...interface{})   { ((*testing.T)(tl)).Log("debug: " + msg) }
func (tl *testLogger) Info(msg string, args ...interface{})    { ((*testing.T)(tl)).Log("info: " + msg) }
func (tl *testLogger) Warning(msg string, args ...interface{}) { ((*testing.T)(tl)).Log("warning: " + msg) }
func (tl *testLogger) Error(msg string, args ...interface{})   { ((*testing.T)(tl)).Log("error: " + msg) }
func (tl *testLogger) Fatal(msg string, args ...interface{})   { ((*testing.T)(tl)).Fatal(msg) }
func (tl *testLogger) SetLevel(lvl int8)                       {}

type fakeContainer struct {
	buf      *rawbuf.RawImageBuffer
	cam      rawbuf.RawCameraMetadata
	settings rawbuf.PostProcessSettings
	wantDNG  bool
}

func (f *fakeContainer) Frames() ([]container.FrameID, error) { return []container.FrameID{"ref"}, nil }
func (f *fakeContainer) ReferenceImage() (container.FrameID, error) { return "ref", nil }
func (f *fakeContainer) Frame(id container.FrameID) (*rawbuf.RawImageBuffer, error) { return f.buf, nil }
func (f *fakeContainer) LoadFrame(id container.FrameID) (*rawbuf.RawImageBuffer, error) {
	return f.buf, nil
}
func (f *fakeContainer) ReleaseFrame(id container.FrameID) error { return nil }
func (f *fakeContainer) CameraMetadata() (rawbuf.RawCameraMetadata, error) { return f.cam, nil }
func (f *fakeContainer) PostProcessSettings() (rawbuf.PostProcessSettings, error) {
	return f.settings, nil
}
func (f *fakeContainer) WriteDNG() bool { return f.wantDNG }

type fakeDNGWriter struct {
	path string
	img  container.DNGImage
}

func (w *fakeDNGWriter) WriteDNG(path string, img container.DNGImage) error {
	w.path, w.img = path, img
	return nil
}

type fakeProgress struct {
	updates   []int
	completed bool
	errMsg    string
}

func (p *fakeProgress) OnProgressUpdate(percent int) { p.updates = append(p.updates, percent) }
func (p *fakeProgress) OnCompleted()                 { p.completed = true }
func (p *fakeProgress) OnError(msg string)            { p.errMsg = msg }

const (
	testFullWidth  = 128
	testFullHeight = 128
)

// identityGrid is a flat, no-falloff lens-shading grid.
func identityGrid() rawbuf.Grid {
	return rawbuf.Grid{Width: 2, Height: 2, Data: []float32{1, 1, 1, 1}}
}

func syntheticContainer(t *testing.T, wantDNG bool) *fakeContainer {
	t.Helper()

	rowStride := testFullWidth * 2
	data := make([]byte, rowStride*testFullHeight)
	for y := 0; y < testFullHeight; y++ {
		for x := 0; x < testFullWidth; x++ {
			v := uint16(300 + (x+y)%64)
			off := y*rowStride + x*2
			data[off] = byte(v)
			data[off+1] = byte(v >> 8)
		}
	}

	md := rawbuf.RawImageMetadata{
		ISO:               400,
		ExposureTime:      16_000_000,
		AsShot:            rawbuf.Vec3{1, 1, 1},
		ScreenOrientation: rawbuf.Portrait,
	}
	for i := range md.LensShadingMap {
		md.LensShadingMap[i] = identityGrid()
	}

	buf := rawbuf.NewRawImageBuffer(testFullWidth, testFullHeight, rowStride, rawbuf.PixelFormatRaw16, data, md)

	cam := rawbuf.RawCameraMetadata{
		SensorArrangement: rawbuf.RGGB,
		BlackLevel:        [4]uint16{64, 64, 64, 64},
		WhiteLevel:        1023,
		ColorMatrix1:      rawbuf.Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		ColorMatrix2:      rawbuf.Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		ForwardMatrix1:    rawbuf.Mat3{{0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5}},
		ForwardMatrix2:    rawbuf.Mat3{{0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5}},
		ColorIlluminant1:  rawbuf.IlluminantStandardA,
		ColorIlluminant2:  rawbuf.IlluminantD65,
		Apertures:         []float64{1.8},
		FocalLengths:      []float64{4.2},
	}

	return &fakeContainer{buf: buf, cam: cam, wantDNG: wantDNG}
}

func newTestProcessor(t *testing.T) (*Processor, *fakeDNGWriter) {
	t.Helper()
	cfg := config.Config{Logger: (*testLogger)(t)}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	dng := &fakeDNGWriter{}
	enc := &container.StdJPEGEncoder{}
	return New(cfg, enc, dng), dng
}

func TestProcessSingleFrameEndToEnd(t *testing.T) {
	cont := syntheticContainer(t, true)
	p, dng := newTestProcessor(t)
	progress := &fakeProgress{}

	outPath := filepath.Join(t.TempDir(), "out.jpg")
	if err := p.Process(cont, outPath, progress); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !progress.completed {
		t.Fatal("expected OnCompleted to fire")
	}
	if progress.errMsg != "" {
		t.Fatalf("unexpected OnError: %s", progress.errMsg)
	}

	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected jpeg output: %v", err)
	}
	dngPath := outPath[:len(outPath)-len(filepath.Ext(outPath))] + ".dng"
	if dng.path != dngPath {
		t.Fatalf("dng path = %q, want %q", dng.path, dngPath)
	}
	wantW, wantH := testFullWidth, testFullHeight
	if dng.img.Width != wantW || dng.img.Height != wantH {
		t.Fatalf("dng dims = (%d,%d), want (%d,%d)", dng.img.Width, dng.img.Height, wantW, wantH)
	}
}

func TestProcessProgressMonotonic(t *testing.T) {
	cont := syntheticContainer(t, false)
	p, _ := newTestProcessor(t)
	progress := &fakeProgress{}

	if err := p.Process(cont, filepath.Join(t.TempDir(), "out.jpg"), progress); err != nil {
		t.Fatalf("Process: %v", err)
	}

	last := -1
	for _, v := range progress.updates {
		if v < last {
			t.Fatalf("progress went backwards: %v", progress.updates)
		}
		last = v
	}
	if last != 100 {
		t.Fatalf("final progress = %d, want 100", last)
	}
}

type emptyContainer struct{ fakeContainer }

func (e *emptyContainer) Frames() ([]container.FrameID, error) { return nil, nil }

func TestProcessReportsErrorOnEmptyContainer(t *testing.T) {
	cont := &emptyContainer{*syntheticContainer(t, false)}
	p, _ := newTestProcessor(t)
	progress := &fakeProgress{}

	if err := p.Process(cont, filepath.Join(t.TempDir(), "out.jpg"), progress); err == nil {
		t.Fatal("expected error for empty container")
	}
	if progress.errMsg == "" {
		t.Fatal("expected OnError to fire")
	}
	if progress.completed {
		t.Fatal("OnCompleted must not fire when Process fails")
	}
}

func TestExifOrientationTable(t *testing.T) {
	cases := []struct {
		o       rawbuf.ScreenOrientation
		flipped bool
		want    int
	}{
		{rawbuf.Landscape, false, 1},
		{rawbuf.Landscape, true, 2},
		{rawbuf.ReverseLandscape, false, 3},
		{rawbuf.ReverseLandscape, true, 4},
		{rawbuf.ReversePortrait, true, 5},
		{rawbuf.Portrait, false, 6},
		{rawbuf.Portrait, true, 7},
		{rawbuf.ReversePortrait, false, 8},
	}
	seen := make(map[int]bool)
	for _, c := range cases {
		got := exifOrientation(c.o, c.flipped)
		if got != c.want {
			t.Errorf("exifOrientation(%v, %v) = %d, want %d", c.o, c.flipped, got, c.want)
		}
		seen[got] = true
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 distinct orientation codes, got %d", len(seen))
	}
}

func TestExifFields(t *testing.T) {
	frame := rawbuf.RawImageMetadata{
		ISO:               200,
		ExposureTime:      8_000_000,
		ScreenOrientation: rawbuf.ReverseLandscape,
	}
	cam := rawbuf.RawCameraMetadata{
		Apertures:    []float64{2.8},
		FocalLengths: []float64{6.0},
	}
	settings := rawbuf.PostProcessSettings{Flipped: true}

	got := exifFields(frame, cam, settings)
	want := container.EXIFFields{
		ISO:             200,
		ExposureTimeNum: 8_000_000,
		ExposureTimeDen: 1_000_000_000,
		Orientation:     4,
		Aperture:        2.8,
		FocalLength:     6.0,
		LensModel:       "MotionCam",
		ColorSpace:      1,
		SceneType:       1,
		ResolutionDPI:   72,
		WhiteBalance:    0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("exifFields mismatch (-want +got):\n%s", diff)
	}
}

func TestSpatialWeightForDefault(t *testing.T) {
	if w := spatialWeightFor(rawbuf.PostProcessSettings{}); w != 1.0 {
		t.Fatalf("spatialWeightFor(zero) = %v, want 1.0", w)
	}
	if w := spatialWeightFor(rawbuf.PostProcessSettings{SpatialDenoiseAggressiveness: 2.5}); w != 2.5 {
		t.Fatalf("spatialWeightFor(2.5) = %v, want 2.5", w)
	}
}
