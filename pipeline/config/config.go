/*
NAME
  config.go

DESCRIPTION
  config.go is the orchestrator's configuration struct, following the
  same shape as the teacher's revid/config.Config: exported fields,
  package-level defaults, and a Validate method that fills in defaults
  and logs when a field is out of range.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config provides the configuration settings for the burst
// denoise/tonemap pipeline.
package config

import (
	"fmt"

	"github.com/ausocean/utils/logging"
)

const (
	defaultJPEGQuality  = 92
	defaultThumbnailDim = 320
	defaultPreviewScale = 8
)

// Config provides parameters relevant to one pipeline instance. The
// zero value is not valid; construct with a Logger and call Validate
// before use, matching the teacher's config.Config convention.
type Config struct {
	Logger logging.Logger

	// DefaultJPEGQuality is used when a container's
	// PostProcessSettings leaves JPEGQuality unset (0).
	DefaultJPEGQuality int

	// ThumbnailWidth is defaulted to 320 by Validate. The pipeline
	// does not read it: container.Thumbnail always builds a 320-wide
	// EXIF thumbnail (§4.10 step 7), whatever this field holds.
	ThumbnailWidth int

	// ScenePreviewScale is the downscale factor used by the scene
	// analyzer's "basic" settings pass (§4.7).
	ScenePreviewScale int
}

// Validate fills in zero-valued fields with their defaults, logging
// each substitution, matching revid/config.Config.Validate.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("invalid state: config logger is nil")
	}
	if c.DefaultJPEGQuality <= 0 {
		c.LogInvalidField("DefaultJPEGQuality", defaultJPEGQuality)
		c.DefaultJPEGQuality = defaultJPEGQuality
	}
	if c.ThumbnailWidth <= 0 {
		c.LogInvalidField("ThumbnailWidth", defaultThumbnailDim)
		c.ThumbnailWidth = defaultThumbnailDim
	}
	if c.ScenePreviewScale <= 0 {
		c.LogInvalidField("ScenePreviewScale", defaultPreviewScale)
		c.ScenePreviewScale = defaultPreviewScale
	}
	return nil
}

// LogInvalidField logs that field was invalid and has been reset to
// def, matching revid/config.Config.LogInvalidField.
func (c *Config) LogInvalidField(field string, def interface{}) {
	c.Logger.Warning("invalid config field, using default", "field", field, "default", def)
}
