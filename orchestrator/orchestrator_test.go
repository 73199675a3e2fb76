package orchestrator

import (
	"testing"

	"github.com/tigas-project/tigas/render"
	"github.com/tigas-project/tigas/trace"
)

func TestRunRejectsEmptySampleSet(t *testing.T) {
	t.Parallel()
	r := render.New(nil, false, nil)
	_, err := Run(nil, r, Config{OutputDir: t.TempDir(), FPS: 30, Codec: "libx264", CRF: 23})
	if err == nil {
		t.Fatal("expected an error for an empty sample set")
	}
}

// TestIntegration_RunProducesExpectedOutputs exercises the full
// render→encode→metadata pipeline against real libav encoders, so it is
// skipped in short mode like the teacher's pipeline integration tests.
func TestIntegration_RunProducesExpectedOutputs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping libav integration test in short mode")
	}
	t.Parallel()

	samples := []trace.Sample{
		{FrameID: 0, TMs: 0, Width: 64, Height: 64},
		{FrameID: 1, TMs: 16, Width: 64, Height: 64},
	}
	r := render.New(nil, false, nil)
	outputs, err := Run(samples, r, Config{
		OutputDir: t.TempDir(),
		FPS:       30,
		Codec:     "libx264",
		CRF:       23,
		CRFLadder: []int{18, 23, 30},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// lossless + lossy + 2 ladder rungs (23 skipped as duplicate of CRF) + metadata
	if len(outputs) != 5 {
		t.Fatalf("got %d outputs, want 5: %v", len(outputs), outputs)
	}
}
