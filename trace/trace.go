// Package trace loads a pose trace file into an ordered, immutable
// sequence of render samples. The trace is a JSON array; each element
// becomes one Sample, with frame_id assigned by load order.
package trace

import (
	"encoding/json"
	"io"
	"os"

	"github.com/tigas-project/tigas/errkind"
)

// Sample is one pose sample: a 6-DoF camera pose plus presentation timing
// and requested output dimensions. FrameID is the sample's index in the
// loaded sequence; TMs is monotonically non-decreasing across the trace.
type Sample struct {
	FrameID    int
	TMs        int64
	DurationMs int
	X          float32
	Y          float32
	Z          float32
	Angle      float32
	Elevation  float32
	Width      int
	Height     int
}

// rawSample mirrors the on-disk JSON schema from spec §6: tMs, durationMs,
// x, y, z, angle, elevation, and optional width/height.
type rawSample struct {
	TMs        int64   `json:"tMs"`
	DurationMs int     `json:"durationMs"`
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Z          float32 `json:"z"`
	Angle      float32 `json:"angle"`
	Elevation  float32 `json:"elevation"`
	Width      *int    `json:"width"`
	Height     *int    `json:"height"`
}

const (
	defaultWidth  = 800
	defaultHeight = 600
)

// Load parses a movement-trace JSON file into a sequence of Samples,
// assigning FrameID by array order and applying the default dimensions
// (800x600) when width/height are absent. maxFrames, if > 0, truncates the
// loaded sequence. Any I/O or parse failure is a TraceError: the caller
// should treat it as fatal (spec §7).
func Load(path string, maxFrames int) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.Trace("open %q: %s", path, err)
	}
	defer f.Close()

	return Parse(f, maxFrames)
}

// Parse decodes a movement-trace JSON array from r. See Load for semantics.
func Parse(r io.Reader, maxFrames int) ([]Sample, error) {
	var raw []rawSample
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errkind.Trace("decode: %s", err)
	}

	n := len(raw)
	if maxFrames > 0 && maxFrames < n {
		n = maxFrames
	}

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		rs := raw[i]
		width, height := defaultWidth, defaultHeight
		if rs.Width != nil {
			width = *rs.Width
		}
		if rs.Height != nil {
			height = *rs.Height
		}
		samples = append(samples, Sample{
			FrameID:    i,
			TMs:        rs.TMs,
			DurationMs: rs.DurationMs,
			X:          rs.X,
			Y:          rs.Y,
			Z:          rs.Z,
			Angle:      rs.Angle,
			Elevation:  rs.Elevation,
			Width:      width,
			Height:     height,
		})
	}

	return samples, nil
}
