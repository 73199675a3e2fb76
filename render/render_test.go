package render

import (
	"testing"

	"github.com/tigas-project/tigas/pointcloud"
	"github.com/tigas-project/tigas/trace"
)

func sampleAt(x, y, z, angle, elevation float32, w, h int) trace.Sample {
	return trace.Sample{X: x, Y: y, Z: z, Angle: angle, Elevation: elevation, Width: w, Height: h}
}

func isAllZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func TestEmptyPointCloudRendersProceduralPattern(t *testing.T) {
	t.Parallel()
	r := New(nil, false, nil)
	frame := r.Render(sampleAt(0, 0, 0, 0, 0, 320, 240))
	if frame.Width != 320 || frame.Height != 240 {
		t.Fatalf("frame dims = %dx%d, want 320x240", frame.Width, frame.Height)
	}
	if isAllZero(frame.Data) {
		t.Fatal("expected non-all-zero procedural frame for empty point cloud")
	}
}

func TestViewportClamping(t *testing.T) {
	t.Parallel()
	r := New(nil, false, nil)

	frame := r.Render(sampleAt(0, 0, 0, 0, 0, 10, 10))
	if frame.Width != minWidth || frame.Height != minHeight {
		t.Errorf("small viewport = %dx%d, want %dx%d", frame.Width, frame.Height, minWidth, minHeight)
	}

	frame = r.Render(sampleAt(0, 0, 0, 0, 0, 5000, 5000))
	if frame.Width != maxWidth || frame.Height != maxHeight {
		t.Errorf("large viewport = %dx%d, want %dx%d", frame.Width, frame.Height, maxWidth, maxHeight)
	}
}

func TestAllPointsBehindNearPlaneYieldsNoComposite(t *testing.T) {
	t.Parallel()
	points := []pointcloud.Point{
		{X: 0, Y: 0, Z: 0, R: 255, G: 0, B: 0, Opacity: 1, Radius: 4},
	}
	// Camera sits in front of the point along +z, facing away, so the
	// point's z' after transform is <= the near-plane threshold.
	r := New(points, false, nil)
	frame := r.Render(sampleAt(0, 0, 10, 0, 0, 100, 100))
	if frame.Width != 100 || frame.Height != 100 {
		t.Fatalf("frame dims = %dx%d, want 100x100", frame.Width, frame.Height)
	}
	if !isAllZero(frame.Data) {
		t.Fatal("expected an all-zero frame when all points are behind the near plane")
	}
}

func TestPointDirectlyAheadComposites(t *testing.T) {
	t.Parallel()
	points := []pointcloud.Point{
		{X: 0, Y: 0, Z: 5, R: 200, G: 100, B: 50, Opacity: 1, Radius: 4},
	}
	r := New(points, false, nil)
	frame := r.Render(sampleAt(0, 0, 0, 0, 0, 200, 200))
	if isAllZero(frame.Data) {
		t.Fatal("expected a composited splat for a point directly ahead of the camera")
	}
}

func TestCUDARequestWithoutBuildTagFallsBackToCPU(t *testing.T) {
	t.Parallel()
	points := []pointcloud.Point{
		{X: 0, Y: 0, Z: 5, R: 200, G: 100, B: 50, Opacity: 1, Radius: 4},
	}
	r := New(points, true, nil)
	if !r.cudaDisabled.Load() {
		t.Fatal("expected cuda to be disabled in a non-cuda build")
	}
	frame := r.Render(sampleAt(0, 0, 0, 0, 0, 64, 64))
	if isAllZero(frame.Data) {
		t.Fatal("expected cpu fallback to still composite the point")
	}
}
