package trace

import (
	"strings"
	"testing"
)

const threeSampleTrace = `[
	{"tMs":0,"durationMs":16,"x":0,"y":0,"z":0,"angle":0,"elevation":0,"width":320,"height":240},
	{"tMs":16,"x":1,"y":2,"z":3,"angle":10,"elevation":5},
	{"tMs":33,"x":0,"y":0,"z":0,"angle":0,"elevation":0}
]`

func TestParseAssignsFrameIDsInOrder(t *testing.T) {
	t.Parallel()
	samples, err := Parse(strings.NewReader(threeSampleTrace), 0)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i, s := range samples {
		if s.FrameID != i {
			t.Errorf("sample %d: FrameID = %d, want %d", i, s.FrameID, i)
		}
	}
	wantTMs := []int64{0, 16, 33}
	for i, want := range wantTMs {
		if samples[i].TMs != want {
			t.Errorf("sample %d: TMs = %d, want %d", i, samples[i].TMs, want)
		}
	}
}

func TestParseDefaultsMissingDimensions(t *testing.T) {
	t.Parallel()
	samples, err := Parse(strings.NewReader(threeSampleTrace), 0)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if samples[0].Width != 320 || samples[0].Height != 240 {
		t.Errorf("sample 0 dims = %dx%d, want 320x240", samples[0].Width, samples[0].Height)
	}
	if samples[1].Width != defaultWidth || samples[1].Height != defaultHeight {
		t.Errorf("sample 1 dims = %dx%d, want %dx%d", samples[1].Width, samples[1].Height, defaultWidth, defaultHeight)
	}
}

func TestParseMaxFramesTruncates(t *testing.T) {
	t.Parallel()
	samples, err := Parse(strings.NewReader(threeSampleTrace), 2)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
}

func TestParseRejectsNonArray(t *testing.T) {
	t.Parallel()
	if _, err := Parse(strings.NewReader(`{"foo":1}`), 0); err == nil {
		t.Fatal("expected error for non-array trace")
	}
}

func TestParseEmptyArray(t *testing.T) {
	t.Parallel()
	samples, err := Parse(strings.NewReader(`[]`), 0)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("expected 0 samples, got %d", len(samples))
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load("/nonexistent/trace.json", 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}
