/*
NAME
  motioncam

DESCRIPTION
  motioncam is a thin CLI front-end for the burst denoise/tonemap
  pipeline: it loads a directory of raw frames via a JSON manifest,
  runs pipeline.Process, and writes the JPEG (and, if requested, a
  DNG) next to the requested output path.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/motioncam/container"
	"github.com/ausocean/motioncam/manifest"
	"github.com/ausocean/motioncam/pipeline"
	"github.com/ausocean/motioncam/pipeline/config"
)

const (
	logVerbosity = logging.Info
	logSuppress  = true
)

// cliProgress prints progress percentages to stderr as the pipeline
// reports them.
type cliProgress struct{}

func (cliProgress) OnProgressUpdate(percent int) { fmt.Fprintf(os.Stderr, "\rprocessing... %3d%%", percent) }
func (cliProgress) OnCompleted()                 { fmt.Fprintln(os.Stderr, "\rprocessing... done") }
func (cliProgress) OnError(msg string)           { fmt.Fprintf(os.Stderr, "\rprocessing failed: %s\n", msg) }

func main() {
	burstDir := flag.String("burst", "", "directory containing a burst.json manifest and its raw frames")
	out := flag.String("out", "out.jpg", "output JPEG path")
	quality := flag.Int("quality", 92, "JPEG quality, 1-100")
	writeDNG := flag.Bool("dng", false, "also write an uncompressed DNG alongside the JPEG")
	flag.Parse()

	if *burstDir == "" {
		fmt.Fprintln(os.Stderr, "usage: motioncam -burst <dir> -out <file.jpg>")
		os.Exit(2)
	}

	log := logging.New(logVerbosity, os.Stderr, logSuppress)

	cont, err := manifest.Open(*burstDir, *writeDNG)
	if err != nil {
		log.Fatal("could not open burst", "error", err)
	}

	cfg := config.Config{Logger: log, DefaultJPEGQuality: *quality}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "error", err)
	}

	enc := &container.StdJPEGEncoder{}
	p := pipeline.New(cfg, enc, manifest.FileDNGWriter{})
	if err := p.Process(cont, *out, cliProgress{}); err != nil {
		log.Fatal("process failed", "error", err)
	}
}
