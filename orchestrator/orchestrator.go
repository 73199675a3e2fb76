// Package orchestrator drives the offline render→encode pipeline from
// spec §4.5: for every sample in a loaded trace, render a frame and feed
// it to every active encoder (lossless ground truth, the primary lossy
// stream, and any CRF-ladder extras), writing a frame_id/timestamp_ms
// metadata row per sample and optionally pacing the loop in real time.
//
// Grounded on original_source/native/renderer_encoder/src/main.cpp's main
// loop: the lossless and ladder encoders are only constructed when live-DASH
// is not requested, and realtime pacing sleeps until
// start_clock+sample.TMs.
package orchestrator

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/tigas-project/tigas/encoder"
	"github.com/tigas-project/tigas/errkind"
	"github.com/tigas-project/tigas/metadata"
	"github.com/tigas-project/tigas/render"
	"github.com/tigas-project/tigas/trace"
)

// Config configures one orchestrated render session (spec §6 CLI flags).
type Config struct {
	OutputDir      string
	FPS            int
	CRF            int
	Codec          string
	CRFLadder      []int
	LiveDASH       bool
	DASHWindowSize int
	Realtime       bool
	Log            *slog.Logger
}

// encodeTarget pairs an encoder with the output path it was opened on, for
// end-of-run reporting.
type encodeTarget struct {
	path string
	enc  *encoder.Encoder
}

// Run renders and encodes every sample in samples using renderer, writing
// outputs under cfg.OutputDir. It returns the paths written (lossless
// first if present, then the primary lossy path, then any ladder paths,
// then the metadata sidecar), a ConfigError when samples is empty, or an
// EncoderError/FilesystemError on failure.
func Run(samples []trace.Sample, renderer *render.Renderer, cfg Config) ([]string, error) {
	if len(samples) == 0 {
		return nil, errkind.Config("orchestrator: no samples to render")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	first := renderer.Render(samples[0])
	width, height := first.Width, first.Height

	lossyPath := filepath.Join(cfg.OutputDir, "test_stream_lossy.mp4")
	if cfg.LiveDASH {
		lossyPath = filepath.Join(cfg.OutputDir, "stream.mpd")
	}
	metadataPath := filepath.Join(cfg.OutputDir, "frame_metadata.csv")

	var targets []encodeTarget

	if !cfg.LiveDASH {
		losslessPath := filepath.Join(cfg.OutputDir, "ground_truth_lossless.mkv")
		losslessEnc, err := encoder.New(losslessPath, encoder.Config{Codec: "ffv1", FPS: cfg.FPS, Lossless: true}, width, height)
		if err != nil {
			return nil, err
		}
		targets = append(targets, encodeTarget{path: losslessPath, enc: losslessEnc})
	}

	lossyEnc, err := encoder.New(lossyPath, encoder.Config{
		Codec:          cfg.Codec,
		FPS:            cfg.FPS,
		CRF:            cfg.CRF,
		LiveDASH:       cfg.LiveDASH,
		DASHWindowSize: cfg.DASHWindowSize,
	}, width, height)
	if err != nil {
		closeAll(targets)
		return nil, err
	}
	targets = append(targets, encodeTarget{path: lossyPath, enc: lossyEnc})

	if !cfg.LiveDASH {
		for idx, ladderCRF := range cfg.CRFLadder {
			if ladderCRF == cfg.CRF {
				continue
			}
			ladderPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("test_stream_lossy_p%d.mp4", idx))
			ladderEnc, err := encoder.New(ladderPath, encoder.Config{Codec: cfg.Codec, FPS: cfg.FPS, CRF: ladderCRF}, width, height)
			if err != nil {
				closeAll(targets)
				return nil, err
			}
			targets = append(targets, encodeTarget{path: ladderPath, enc: ladderEnc})
		}
	}

	metaSink, err := metadata.New(metadataPath)
	if err != nil {
		closeAll(targets)
		return nil, err
	}

	startClock := time.Now()
	for _, sample := range samples {
		frame := renderer.Render(sample)
		meta := encoder.FrameMeta{FrameID: sample.FrameID, TimestampMs: sample.TMs}

		for _, t := range targets {
			if err := t.enc.EncodeFrame(frame, meta); err != nil {
				closeAll(targets)
				metaSink.Close()
				return nil, err
			}
		}
		if err := metaSink.Append(sample.FrameID, sample.TMs); err != nil {
			closeAll(targets)
			return nil, err
		}

		if cfg.Realtime {
			target := startClock.Add(time.Duration(sample.TMs) * time.Millisecond)
			if d := time.Until(target); d > 0 {
				time.Sleep(d)
			}
		}
	}

	var paths []string
	for _, t := range targets {
		if err := t.enc.Flush(); err != nil {
			log.Error("flushing encoder", "path", t.path, "error", err)
		}
		t.enc.Close()
		paths = append(paths, t.path)
	}
	if err := metaSink.Close(); err != nil {
		log.Error("closing metadata sink", "error", err)
	}

	log.Info("render session complete", "frames", len(samples), "outputs", paths, "metadata", metadataPath)
	return append(paths, metadataPath), nil
}

func closeAll(targets []encodeTarget) {
	for _, t := range targets {
		t.enc.Flush()
		t.enc.Close()
	}
}
