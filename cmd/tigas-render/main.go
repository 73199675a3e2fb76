// Command tigas-render renders a movement trace against a Gaussian splat
// point cloud and encodes the result, per spec §6. On failure it prints a
// single diagnostic line prefixed "[tigas_renderer_encoder]" and exits 1,
// mirroring original_source/native/renderer_encoder/src/main.cpp's catch
// block so downstream tooling parsing that prefix keeps working.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/tigas-project/tigas/errkind"
	"github.com/tigas-project/tigas/orchestrator"
	"github.com/tigas-project/tigas/pointcloud"
	"github.com/tigas-project/tigas/render"
	"github.com/tigas-project/tigas/trace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[tigas_renderer_encoder] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		movement       = flag.String("movement", "", "path to the movement trace JSON file (required)")
		outputDir      = flag.String("output-dir", "", "directory to write encoded outputs into (required)")
		plyPath        = flag.String("ply", "", "path to a PLY Gaussian splat point cloud; empty renders the procedural test pattern")
		maxFrames      = flag.Int("max-frames", 600, "maximum number of trace samples to render (0 = no limit)")
		fps            = flag.Int("fps", 60, "output frame rate")
		crf            = flag.Int("crf", 26, "primary stream CRF/CQ value")
		codec          = flag.String("codec", "h264_nvenc", "video codec name")
		disableCUDA    = flag.Bool("disable-cuda", false, "disable the CUDA render backend even if available")
		crfLadder      = flag.String("crf-ladder", "", "comma-separated extra CRF values to encode alongside the primary stream (ignored in --live-dash mode)")
		liveDASH       = flag.Bool("live-dash", false, "mux the primary stream as a rolling-window live DASH stream instead of a single file")
		realtime       = flag.Bool("realtime", false, "pace rendering to wall-clock time instead of running as fast as possible")
		dashWindowSize = flag.Int("dash-window-size", 5, "live-DASH rolling window size in segments")
	)
	flag.Parse()

	if *movement == "" || *outputDir == "" {
		return fmt.Errorf("required arguments: --movement --output-dir")
	}
	if *liveDASH {
		*realtime = true
	}

	ladder, err := parseCRFLadder(*crfLadder)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		return errkind.Filesystem("create output dir %q: %s", *outputDir, err)
	}

	samples, err := trace.Load(*movement, *maxFrames)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("movement trace has no samples")
	}

	var points []pointcloud.Point
	if *plyPath != "" {
		points, err = pointcloud.Load(*plyPath)
		if err != nil {
			slog.Warn("point cloud unavailable, rendering procedural test pattern", "error", err)
			points = nil
		}
	}

	log := slog.Default()
	renderer := render.New(points, !*disableCUDA, log)
	defer renderer.Close()

	outputs, err := orchestrator.Run(samples, renderer, orchestrator.Config{
		OutputDir:      *outputDir,
		FPS:            *fps,
		CRF:            *crf,
		Codec:          *codec,
		CRFLadder:      ladder,
		LiveDASH:       *liveDASH,
		DASHWindowSize: *dashWindowSize,
		Realtime:       *realtime,
		Log:            log,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Encoded %d frames\n", len(samples))
	for _, path := range outputs {
		fmt.Println(path)
	}
	return nil
}

func parseCRFLadder(input string) ([]int, error) {
	if input == "" {
		return nil, nil
	}
	var values []int
	for _, token := range strings.Split(input, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		v, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("invalid --crf-ladder value %q: %w", token, err)
		}
		values = append(values, v)
	}
	return values, nil
}
