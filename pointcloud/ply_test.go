package pointcloud

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestParseASCIIRGB(t *testing.T) {
	t.Parallel()
	src := "ply\n" +
		"format ascii 1.0\n" +
		"element vertex 2\n" +
		"property float x\n" +
		"property float y\n" +
		"property float z\n" +
		"property uchar red\n" +
		"property uchar green\n" +
		"property uchar blue\n" +
		"end_header\n" +
		"1.0 2.0 3.0 255 0 0\n" +
		"-1.0 -2.0 -3.0 0 255 0\n"

	points := Parse(strings.NewReader(src))
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].X != 1 || points[0].Y != 2 || points[0].Z != 3 {
		t.Errorf("point 0 position = %+v", points[0])
	}
	if points[0].R != 255 || points[0].G != 0 || points[0].B != 0 {
		t.Errorf("point 0 color = %d,%d,%d", points[0].R, points[0].G, points[0].B)
	}
	// default opacity logit 0 -> sigmoid(0) = 0.5
	if math.Abs(float64(points[0].Opacity)-0.5) > 1e-6 {
		t.Errorf("point 0 opacity = %v, want ~0.5", points[0].Opacity)
	}
	// default scale -1.5 -> radius = exp(-1.5) ~= 0.223, clamped to 0.25
	if points[0].Radius != minRadius {
		t.Errorf("point 0 radius = %v, want %v", points[0].Radius, minRadius)
	}
}

func TestParseSHColorDerivation(t *testing.T) {
	t.Parallel()
	src := "ply\n" +
		"format ascii 1.0\n" +
		"element vertex 1\n" +
		"property float x\n" +
		"property float y\n" +
		"property float z\n" +
		"property float f_dc_0\n" +
		"property float f_dc_1\n" +
		"property float f_dc_2\n" +
		"property float opacity\n" +
		"property float scale_0\n" +
		"property float scale_1\n" +
		"property float scale_2\n" +
		"end_header\n" +
		"0 0 0 0 0 0 0 0 0 0\n"

	points := Parse(strings.NewReader(src))
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	// dc=0 -> c = clamp(0.5,0,1)*255 = 127 (integer truncation)
	if points[0].R != 127 || points[0].G != 127 || points[0].B != 127 {
		t.Errorf("sh color = %d,%d,%d, want 127,127,127", points[0].R, points[0].G, points[0].B)
	}
}

func TestParseRejectsPropertyList(t *testing.T) {
	t.Parallel()
	src := "ply\n" +
		"format ascii 1.0\n" +
		"element vertex 1\n" +
		"property list uchar int vertex_indices\n" +
		"end_header\n" +
		"3 0 1 2\n"
	points := Parse(strings.NewReader(src))
	if points != nil {
		t.Fatalf("expected nil for property list PLY, got %d points", len(points))
	}
}

func TestParseRejectsUnsupportedFormat(t *testing.T) {
	t.Parallel()
	src := "ply\nformat binary_big_endian 1.0\nelement vertex 1\nproperty float x\nend_header\n\x00\x00\x00\x00"
	points := Parse(strings.NewReader(src))
	if points != nil {
		t.Fatalf("expected nil for unsupported format, got %d points", len(points))
	}
}

func TestParseShortReadReturnsEmpty(t *testing.T) {
	t.Parallel()
	src := "ply\nformat ascii 1.0\nelement vertex 5\nproperty float x\nend_header\n1.0\n"
	points := Parse(strings.NewReader(src))
	if points != nil {
		t.Fatalf("expected nil for short read, got %d points", len(points))
	}
}

func TestParseMalformedHeaderReturnsEmpty(t *testing.T) {
	t.Parallel()
	points := Parse(strings.NewReader("not a ply file at all"))
	if points != nil {
		t.Fatalf("expected nil for malformed header, got %d points", len(points))
	}
}

// buildBinaryLEPLY writes a minimal binary_little_endian PLY with x,y,z
// float32 and red,green,blue uchar properties, for round-trip testing.
func buildBinaryLEPLY(pts [][3]float32, colors [][3]uint8) []byte {
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString("format binary_little_endian 1.0\n")
	buf.WriteString(fmt.Sprintf("element vertex %d\n", len(pts)))
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	buf.WriteString("end_header\n")
	for i, p := range pts {
		binary.Write(&buf, binary.LittleEndian, p[0])
		binary.Write(&buf, binary.LittleEndian, p[1])
		binary.Write(&buf, binary.LittleEndian, p[2])
		buf.WriteByte(colors[i][0])
		buf.WriteByte(colors[i][1])
		buf.WriteByte(colors[i][2])
	}
	return buf.Bytes()
}

func TestParseBinaryLERoundTrip(t *testing.T) {
	t.Parallel()
	pts := [][3]float32{{1, 2, 3}, {4, 5, 6}, {-1, -2, -3}}
	colors := [][3]uint8{{10, 20, 30}, {40, 50, 60}, {70, 80, 90}}
	data := buildBinaryLEPLY(pts, colors)

	points := Parse(bytes.NewReader(data))
	if len(points) != len(pts) {
		t.Fatalf("expected %d points, got %d", len(pts), len(points))
	}
	for i, p := range points {
		if p.X != pts[i][0] || p.Y != pts[i][1] || p.Z != pts[i][2] {
			t.Errorf("point %d position = %+v, want %+v", i, p, pts[i])
		}
		if p.R != colors[i][0] || p.G != colors[i][1] || p.B != colors[i][2] {
			t.Errorf("point %d color = %d,%d,%d, want %v", i, p.R, p.G, p.B, colors[i])
		}
	}
}

func TestParseBinaryHeaderDoesNotConsumeBodyBytes(t *testing.T) {
	t.Parallel()
	// Regression test: header parsing must not buffer ahead into the
	// binary vertex body via a wrapping bufio.Scanner.
	pts := make([][3]float32, 50)
	colors := make([][3]uint8, 50)
	for i := range pts {
		pts[i] = [3]float32{float32(i), float32(i) * 2, float32(i) * 3}
		colors[i] = [3]uint8{uint8(i), uint8(i + 1), uint8(i + 2)}
	}
	data := buildBinaryLEPLY(pts, colors)
	points := Parse(bytes.NewReader(data))
	if len(points) != 50 {
		t.Fatalf("expected 50 points, got %d", len(points))
	}
	if points[49].X != 49 {
		t.Errorf("last point X = %v, want 49", points[49].X)
	}
}

func TestOpacityClamping(t *testing.T) {
	t.Parallel()
	src := "ply\nformat ascii 1.0\nelement vertex 1\n" +
		"property float x\nproperty float y\nproperty float z\nproperty float opacity\n" +
		"end_header\n0 0 0 100\n"
	points := Parse(strings.NewReader(src))
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Opacity != maxOpacity {
		t.Errorf("opacity = %v, want clamped to %v", points[0].Opacity, maxOpacity)
	}
}
