/*
NAME
  pipeline.go

DESCRIPTION
  pipeline.go is the burst denoiser orchestrator (§4.10): it reads a
  container's frames, runs the wavelet-fusion denoiser, the tonemap
  post-process, and the JPEG/DNG/EXIF output stages, reporting
  progress through a listener and surfacing any error through
  onError rather than returning partial output.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline wires together deinterleaving, wavelet fusion,
// scene analysis, and tonemapping into the single Process entry
// point a caller drives with a container, optional DNG writer, a
// JPEG encoder, and a progress listener.
package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/motioncam/colorprofile"
	"github.com/ausocean/motioncam/container"
	"github.com/ausocean/motioncam/deinterleave"
	"github.com/ausocean/motioncam/flow"
	"github.com/ausocean/motioncam/fusion"
	"github.com/ausocean/motioncam/pipeline/config"
	"github.com/ausocean/motioncam/rawbuf"
	"github.com/ausocean/motioncam/scene"
	"github.com/ausocean/motioncam/tonemap"
	"github.com/ausocean/motioncam/wavelet"
)

// Processor runs one burst through the denoise/tonemap/encode chain.
type Processor struct {
	cfg config.Config
	enc container.JPEGEncoder
	dng container.DNGWriter
}

// New returns a Processor. cfg must already have passed Validate.
func New(cfg config.Config, enc container.JPEGEncoder, dng container.DNGWriter) *Processor {
	return &Processor{cfg: cfg, enc: enc, dng: dng}
}

// Process runs the full pipeline against cont, writing the JPEG (and,
// if cont.WriteDNG() is true, a sibling DNG) under outputPath,
// reporting progress via listener. No partial output is committed on
// error beyond whatever file writes already happened before the
// failing step.
func (p *Processor) Process(cont container.Container, outputPath string, listener container.ProgressListener) error {
	if err := p.process(cont, outputPath, listener); err != nil {
		listener.OnError(err.Error())
		return err
	}
	listener.OnCompleted()
	return nil
}

func (p *Processor) process(cont container.Container, outputPath string, listener container.ProgressListener) error {
	frames, err := cont.Frames()
	if err != nil {
		return errors.Wrap(err, "could not list frames")
	}
	if len(frames) == 0 {
		return errors.New("invalid input: container has no frames")
	}

	refID, err := cont.ReferenceImage()
	if err != nil {
		return errors.Wrap(err, "could not resolve reference image")
	}
	refDims, err := cont.Frame(refID)
	if err != nil {
		return errors.Wrap(err, "could not read reference frame metadata")
	}

	camMeta, err := cont.CameraMetadata()
	if err != nil {
		return errors.Wrap(err, "could not read camera metadata")
	}
	settings, err := cont.PostProcessSettings()
	if err != nil {
		return errors.Wrap(err, "could not read post-process settings")
	}
	if settings.JPEGQuality <= 0 {
		settings.JPEGQuality = p.cfg.DefaultJPEGQuality
	}

	halfW, halfH, extendX, extendY := rawbuf.PaddedDims(refDims.Width, refDims.Height, wavelet.Levels)

	progress := newProgressTracker(listener, len(frames))

	planes, refFrameMeta, err := p.denoise(cont, frames, refID, halfW, halfH, extendX, extendY, camMeta, settings, progress)
	if err != nil {
		return errors.Wrap(err, "denoise failed")
	}

	offsetX, offsetY := extendX, extendY

	if cont.WriteDNG() {
		if err := p.writeDNG(planes, refFrameMeta, camMeta, offsetX, offsetY, outputPath); err != nil {
			return errors.Wrap(err, "dng write failed")
		}
	}

	profile, err := colorProfileFor(camMeta, refFrameMeta, settings)
	if err != nil {
		return errors.Wrap(err, "color profile failed")
	}

	settings = fillSceneSettings(planes, offsetX, offsetY, refFrameMeta, camMeta, profile, settings, p.cfg.ScenePreviewScale)

	img := tonemap.Process(tonemap.Input{
		Planes: planes, OffsetX: offsetX, OffsetY: offsetY,
		Frame: refFrameMeta, Camera: camMeta, Settings: settings, Profile: profile,
	})
	p.cfg.Logger.Debug("post-process complete")
	progress.jumpTo(95)

	thumb, err := container.Thumbnail(img, settings.JPEGQuality)
	if err != nil {
		return errors.Wrap(err, "thumbnail encode failed")
	}

	fields := exifFields(refFrameMeta, camMeta, settings)
	jpegBytes, err := p.enc.Encode(img, settings.JPEGQuality, fields, thumb)
	if err != nil {
		return errors.Wrap(err, "jpeg encode failed")
	}
	if err := os.WriteFile(outputPath, jpegBytes, 0644); err != nil {
		return errors.Wrap(err, "could not write output file")
	}

	progress.jumpTo(100)
	return nil
}

// denoise implements §4.5/§4.6: deinterleave every frame, forward-
// transform the reference, fuse each candidate into an accumulator
// per channel (or leave the reference verbatim when it is the only
// frame), then inverse-transform with shrinkage.
func (p *Processor) denoise(cont container.Container, frames []container.FrameID, refID container.FrameID, halfW, halfH, extendX, extendY int, cam rawbuf.RawCameraMetadata, settings rawbuf.PostProcessSettings, progress *progressTracker) ([4]rawbuf.Plane16, rawbuf.RawImageMetadata, error) {
	var planes [4]rawbuf.Plane16

	refData, refFrameMeta, err := loadAndDeinterleave(cont, refID, halfW, halfH, extendX, extendY, cam)
	if err != nil {
		return planes, refFrameMeta, errors.Wrap(err, "could not load reference frame")
	}

	var refPyr, outPyr [4]*wavelet.Pyramid
	var sigma [4]float64
	for k := 0; k < 4; k++ {
		pyr, err := wavelet.Forward(&refData.Planes[k])
		if err != nil {
			return planes, refFrameMeta, errors.Wrapf(err, "forward transform failed for channel %d", k)
		}
		refPyr[k] = pyr
		sigma[k] = wavelet.EstimateSigma(pyr.Level[0])

		outPyr[k] = newPyramidLike(pyr)
		fusion.InitReference(pyr, outPyr[k])
		progress.step()
	}

	fusedFrames := 1
	for _, id := range frames {
		if id == refID {
			continue
		}
		candData, _, err := loadAndDeinterleave(cont, id, halfW, halfH, extendX, extendY, cam)
		if err != nil {
			return planes, refFrameMeta, errors.Wrapf(err, "could not load candidate frame %v", id)
		}

		field, err := flow.Compute(&refData.Preview, &candData.Preview)
		if err != nil {
			return planes, refFrameMeta, errors.Wrap(err, "optical flow failed")
		}
		weights := fusion.SelectWeights(refFrameMeta.ISO, refFrameMeta.ExposureTime, flow.StdDev(field))

		for k := 0; k < 4; k++ {
			candPyr, err := wavelet.Forward(&candData.Planes[k])
			if err != nil {
				return planes, refFrameMeta, errors.Wrapf(err, "forward transform failed for candidate channel %d", k)
			}
			fusion.Fuse(refPyr[k], outPyr[k], candPyr, field, sigma[k], weights, false)
			progress.step()
		}
		fusedFrames++
	}

	spatialWeight := spatialWeightFor(settings)
	for k := 0; k < 4; k++ {
		planes[k] = wavelet.Inverse(outPyr[k], wavelet.ShrinkParams{
			SpatialWeight: spatialWeight,
			Sigma:         sigma[k],
			FusedFrames:   fusedFrames,
			BlackLevel:    float64(cam.BlackLevel[k]),
		})
	}
	return planes, refFrameMeta, nil
}

// newPyramidLike allocates a zero-valued pyramid with the same level
// dimensions as src, ready for fusion.InitReference/Fuse to write
// into.
func newPyramidLike(src *wavelet.Pyramid) *wavelet.Pyramid {
	out := &wavelet.Pyramid{SourceWidth: src.SourceWidth, SourceHeight: src.SourceHeight}
	for l := 0; l < wavelet.Levels; l++ {
		w, h := src.Level[l].Width, src.Level[l].Height
		n := w * h
		out.Level[l] = wavelet.Level{
			Width: w, Height: h,
			LL: make([]float64, n), LH: make([]float64, n), HL: make([]float64, n), HH: make([]float64, n),
			Weight: make([]float64, n),
		}
	}
	return out
}

// spatialWeightFor resolves the shrinkage strength from the caller's
// spatial-denoise-aggressiveness setting; shrinkage is always applied
// regardless of how many frames were fused (see DESIGN.md), with 1.0
// the neutral default.
func spatialWeightFor(settings rawbuf.PostProcessSettings) float64 {
	if settings.SpatialDenoiseAggressiveness > 0 {
		return settings.SpatialDenoiseAggressiveness
	}
	return 1.0
}

func loadAndDeinterleave(cont container.Container, id container.FrameID, halfW, halfH, extendX, extendY int, cam rawbuf.RawCameraMetadata) (*rawbuf.RawData, rawbuf.RawImageMetadata, error) {
	buf, err := cont.LoadFrame(id)
	if err != nil {
		return nil, rawbuf.RawImageMetadata{}, errors.Wrap(err, "could not load frame")
	}
	defer cont.ReleaseFrame(id)

	accessor := buf.Lock()
	defer accessor.Release()

	data, err := deinterleave.Deinterleave(accessor.Bytes(), deinterleave.Options{
		HalfWidth: halfW, HalfHeight: halfH,
		ExtendX: extendX, ExtendY: extendY,
		SensorArrangement: cam.SensorArrangement,
		PixelFormat:       buf.PixelFormat,
		RowStride:         buf.RowStride,
		WhiteLevel:        cam.WhiteLevel,
		BlackLevel:        cam.BlackLevel,
		ScalePreview:      flow.Settings.Downscale,
	}, buf.Metadata)
	if err != nil {
		return nil, rawbuf.RawImageMetadata{}, err
	}
	return data, buf.Metadata, nil
}

func colorProfileFor(cam rawbuf.RawCameraMetadata, frame rawbuf.RawImageMetadata, settings rawbuf.PostProcessSettings) (colorprofile.Profile, error) {
	if settings.Temperature == 0 && settings.Tint == 0 {
		return colorprofile.FromAsShot(cam, frame.AsShot)
	}
	return colorprofile.FromTemperature(cam, settings.Temperature, settings.Tint)
}

// fillSceneSettings fills in the shadows/blacks/whitePoint/
// sceneLuminance/noiseSigma/gamma/saturation fields a caller left at
// their zero value, using the scene analyzer (§4.7) against the
// denoised reference planes.
func fillSceneSettings(planes [4]rawbuf.Plane16, offsetX, offsetY int, frame rawbuf.RawImageMetadata, cam rawbuf.RawCameraMetadata, profile colorprofile.Profile, settings rawbuf.PostProcessSettings, previewScale int) rawbuf.PostProcessSettings {
	render := func(shadows float64, scale int) ([]float64, int, int) {
		s := settings
		s.Shadows = shadows
		img, err := tonemap.RenderPreview(tonemap.Input{
			Planes: planes, OffsetX: offsetX, OffsetY: offsetY,
			Frame: frame, Camera: cam, Settings: s, Profile: profile,
		}, scale, rawbuf.Landscape)
		if err != nil {
			return nil, 0, 0
		}
		n := img.Width * img.Height
		luma := make([]float64, n)
		for i := 0; i < n; i++ {
			r, g, b := float64(img.Pix[i*4+2]), float64(img.Pix[i*4+1]), float64(img.Pix[i*4+0])
			luma[i] = 0.2126*r + 0.7152*g + 0.0722*b
		}
		return luma, img.Width, img.Height
	}

	// renderChannels renders the same preview as render but returns the
	// separate R/G/B channels EstimateExposureCompensation's 3-channel
	// histogram needs (§4.7), instead of the combined luma.
	renderChannels := func(scale int) (channels [3][]float64, w, h int) {
		img, err := tonemap.RenderPreview(tonemap.Input{
			Planes: planes, OffsetX: offsetX, OffsetY: offsetY,
			Frame: frame, Camera: cam, Settings: settings, Profile: profile,
		}, scale, rawbuf.Landscape)
		if err != nil {
			return channels, 0, 0
		}
		n := img.Width * img.Height
		for c := range channels {
			channels[c] = make([]float64, n)
		}
		for i := 0; i < n; i++ {
			channels[0][i] = float64(img.Pix[i*4+2]) // R
			channels[1][i] = float64(img.Pix[i*4+1]) // G
			channels[2][i] = float64(img.Pix[i*4+0]) // B
		}
		return channels, img.Width, img.Height
	}

	if settings.Shadows == 0 {
		settings.Shadows = scene.EstimateShadows(render)
	}
	if settings.Blacks == 0 && settings.WhitePoint == 0 {
		est := scene.EstimateSettings(render, previewScale)
		settings.Blacks = est.Blacks
		settings.WhitePoint = est.WhitePoint
		if settings.SceneLuminance == 0 {
			settings.SceneLuminance = est.SceneLuminance
		}
	}
	if settings.NoiseSigma == 0 {
		settings.NoiseSigma = scene.EstimateNoiseSigma(&planes[0])
	}
	if settings.Exposure == 0 {
		if channels, w, h := renderChannels(previewScale); channels[0] != nil {
			settings.Exposure = scene.EstimateExposureCompensation(channels, w, h)
		}
	}
	if settings.Gamma == 0 {
		settings.Gamma = 2.2
	}
	if settings.Saturation == 0 {
		settings.Saturation = 1
	}
	if settings.BlueSaturation == 0 {
		settings.BlueSaturation = 1
	}
	if settings.GreenSaturation == 0 {
		settings.GreenSaturation = 1
	}
	return settings
}

// writeDNG implements §4.10's DNG path: reorder the 4 positional
// planes to RGGB via rawbuf.RGGBPlaneOrder, interleave into a single
// Bayer image, crop the padding, and hand off to the DNG writer.
func (p *Processor) writeDNG(planes [4]rawbuf.Plane16, frame rawbuf.RawImageMetadata, cam rawbuf.RawCameraMetadata, offsetX, offsetY int, outputPath string) error {
	order := rawbuf.RGGBPlaneOrder(cam.SensorArrangement)
	w, h := planes[0].Width-offsetX, planes[0].Height-offsetY
	fullW, fullH := w*2, h*2

	pix := make([]uint16, fullW*fullH)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl := planes[order[0]].At(x, y)
			tr := planes[order[1]].At(x, y)
			bl := planes[order[2]].At(x, y)
			br := planes[order[3]].At(x, y)
			pix[(2*y)*fullW+2*x] = tl
			pix[(2*y)*fullW+2*x+1] = tr
			pix[(2*y+1)*fullW+2*x] = bl
			pix[(2*y+1)*fullW+2*x+1] = br
		}
	}

	path := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".dng"
	return p.dng.WriteDNG(path, container.DNGImage{
		Width: fullW, Height: fullH, Pix: pix,
		Camera: cam, Frame: frame, OffsetX: offsetX, OffsetY: offsetY,
	})
}

// exifOrientationTable maps (screenOrientation, flipped) to one of the
// 8 EXIF orientation codes (§4.10, §8's orientation EXIF table): the
// screen orientation picks the base rotation exactly as §4.9's preview
// rotation does, and a horizontal mirror shifts within the
// {1,2}/{3,4}/{6,7}/{8,5} pair.
var exifOrientationTable = map[rawbuf.ScreenOrientation][2]int{
	rawbuf.Landscape:        {1, 2},
	rawbuf.Portrait:         {6, 7},
	rawbuf.ReverseLandscape: {3, 4},
	rawbuf.ReversePortrait:  {8, 5},
}

func exifOrientation(o rawbuf.ScreenOrientation, flipped bool) int {
	pair := exifOrientationTable[o]
	if flipped {
		return pair[1]
	}
	return pair[0]
}

func exifFields(frame rawbuf.RawImageMetadata, cam rawbuf.RawCameraMetadata, settings rawbuf.PostProcessSettings) container.EXIFFields {
	var aperture, focalLength float64
	if len(cam.Apertures) > 0 {
		aperture = cam.Apertures[0]
	}
	if len(cam.FocalLengths) > 0 {
		focalLength = cam.FocalLengths[0]
	}
	return container.EXIFFields{
		ISO:             frame.ISO,
		ExposureTimeNum: frame.ExposureTime,
		ExposureTimeDen: 1_000_000_000,
		Orientation:     exifOrientation(frame.ScreenOrientation, settings.Flipped),
		Aperture:        aperture,
		FocalLength:     focalLength,
		LensModel:       "MotionCam",
		ColorSpace:      1,
		SceneType:       1,
		ResolutionDPI:   72,
		WhiteBalance:    0,
	}
}
