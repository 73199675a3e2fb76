package pointcloud

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tigas-project/tigas/errkind"
)

// propType is one of the scalar PLY property types listed in spec §4.1.
type propType int

const (
	typeInt8 propType = iota
	typeUint8
	typeInt16
	typeUint16
	typeInt32
	typeUint32
	typeFloat32
	typeFloat64
)

func (t propType) size() int {
	switch t {
	case typeInt8, typeUint8:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32:
		return 4
	case typeFloat64:
		return 8
	default:
		return 0
	}
}

func parsePropType(s string) (propType, bool) {
	switch s {
	case "char", "int8":
		return typeInt8, true
	case "uchar", "uint8":
		return typeUint8, true
	case "short", "int16":
		return typeInt16, true
	case "ushort", "uint16":
		return typeUint16, true
	case "int", "int32":
		return typeInt32, true
	case "uint", "uint32":
		return typeUint32, true
	case "float", "float32":
		return typeFloat32, true
	case "double", "float64":
		return typeFloat64, true
	default:
		return 0, false
	}
}

type property struct {
	name string
	typ  propType
}

const (
	fmtASCII = iota
	fmtBinaryLE
)

type header struct {
	format     int
	vertexN    int
	properties []property
}

// Load reads a PLY file (ascii or binary_little_endian) and returns its
// point table. Any malformed header, unsupported format, list property, or
// short read returns an empty, non-error result (spec §4.1's soft-failure
// policy) — only an I/O error opening the file is surfaced.
func Load(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errkind.PointCloud("open %q: %s", path, err)
	}
	defer f.Close()

	return Parse(f), nil
}

// Parse reads a PLY stream and returns its point table, or an empty slice
// on any malformed/unsupported input (spec §4.1).
func Parse(r io.Reader) []Point {
	br := bufio.NewReader(r)

	hdr, ok := parseHeader(br)
	if !ok {
		return nil
	}

	switch hdr.format {
	case fmtASCII:
		return parseASCIIBody(br, hdr)
	case fmtBinaryLE:
		return parseBinaryBody(br, hdr)
	default:
		return nil
	}
}

// parseHeader reads header lines directly off br (never via a bufio.Scanner
// wrapping it) so that br's internal buffer position is left exactly at the
// first byte of the vertex body: a Scanner would read ahead and strand
// binary vertex bytes in its own buffer instead of br's.
func parseHeader(br *bufio.Reader) (header, bool) {
	var hdr header
	hdr.format = -1
	sawMagic := false
	inVertexElement := false

	for {
		rawLine, err := br.ReadString('\n')
		if err != nil && rawLine == "" {
			return header{}, false
		}
		line := strings.TrimSpace(rawLine)
		if line == "" {
			if err != nil {
				return header{}, false
			}
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "ply":
			sawMagic = true
		case "comment":
			// ignored
		case "format":
			if len(fields) < 2 {
				return header{}, false
			}
			switch fields[1] {
			case "ascii":
				hdr.format = fmtASCII
			case "binary_little_endian":
				hdr.format = fmtBinaryLE
			default:
				// binary_big_endian and anything else unsupported
				return header{}, false
			}
		case "element":
			if len(fields) < 3 {
				return header{}, false
			}
			if fields[1] != "vertex" {
				// only a single "element vertex" block is supported;
				// any other element type after it is simply not parsed
				inVertexElement = false
				continue
			}
			if hdr.vertexN != 0 {
				// a second "element vertex" block is not supported
				return header{}, false
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return header{}, false
			}
			hdr.vertexN = n
			inVertexElement = true
		case "property":
			if len(fields) < 2 {
				return header{}, false
			}
			if fields[1] == "list" {
				return header{}, false
			}
			if !inVertexElement {
				continue
			}
			if len(fields) < 3 {
				return header{}, false
			}
			typ, ok := parsePropType(fields[1])
			if !ok {
				return header{}, false
			}
			hdr.properties = append(hdr.properties, property{name: fields[2], typ: typ})
		case "end_header":
			if !sawMagic || hdr.format == -1 || hdr.vertexN == 0 {
				return header{}, false
			}
			return hdr, true
		}
	}
}

// propIndex finds the properties needed to build a Point from the header's
// declared property list, or -1 if absent.
type propIndex struct {
	x, y, z                int
	red, green, blue       int
	fDC0, fDC1, fDC2       int
	opacityLogit           int
	scale0, scale1, scale2 int
}

func indexProperties(props []property) propIndex {
	idx := propIndex{x: -1, y: -1, z: -1, red: -1, green: -1, blue: -1,
		fDC0: -1, fDC1: -1, fDC2: -1, opacityLogit: -1, scale0: -1, scale1: -1, scale2: -1}

	for i, p := range props {
		switch p.name {
		case "x":
			idx.x = i
		case "y":
			idx.y = i
		case "z":
			idx.z = i
		case "red", "r":
			idx.red = i
		case "green", "g":
			idx.green = i
		case "blue", "b":
			idx.blue = i
		case "f_dc_0":
			idx.fDC0 = i
		case "f_dc_1":
			idx.fDC1 = i
		case "f_dc_2":
			idx.fDC2 = i
		case "opacity":
			idx.opacityLogit = i
		case "scale_0":
			idx.scale0 = i
		case "scale_1":
			idx.scale1 = i
		case "scale_2":
			idx.scale2 = i
		}
	}
	return idx
}

// buildPoint derives a Point from a single vertex's raw property values
// (as float64, already decoded from the on-disk scalar type) per the
// color/opacity/radius rules in spec §4.1.
func buildPoint(vals []float64, idx propIndex) Point {
	var p Point
	if idx.x >= 0 {
		p.X = float32(vals[idx.x])
	}
	if idx.y >= 0 {
		p.Y = float32(vals[idx.y])
	}
	if idx.z >= 0 {
		p.Z = float32(vals[idx.z])
	}

	switch {
	case idx.red >= 0 && idx.green >= 0 && idx.blue >= 0:
		p.R = clampByte(vals[idx.red])
		p.G = clampByte(vals[idx.green])
		p.B = clampByte(vals[idx.blue])
	case idx.fDC0 >= 0 && idx.fDC1 >= 0 && idx.fDC2 >= 0:
		p.R = clampByte((0.5 + shDC0*vals[idx.fDC0]) * 255)
		p.G = clampByte((0.5 + shDC0*vals[idx.fDC1]) * 255)
		p.B = clampByte((0.5 + shDC0*vals[idx.fDC2]) * 255)
	default:
		p.R, p.G, p.B = 255, 255, 255
	}

	opacityLogit := 0.0
	if idx.opacityLogit >= 0 {
		opacityLogit = vals[idx.opacityLogit]
	}
	opacity := 1.0 / (1.0 + math.Exp(-opacityLogit))
	p.Opacity = clampF32(float32(opacity), minOpacity, maxOpacity)

	scale0, scale1, scale2 := -1.5, -1.5, -1.5
	if idx.scale0 >= 0 {
		scale0 = vals[idx.scale0]
	}
	if idx.scale1 >= 0 {
		scale1 = vals[idx.scale1]
	}
	if idx.scale2 >= 0 {
		scale2 = vals[idx.scale2]
	}
	meanScale := (scale0 + scale1 + scale2) / 3.0
	radius := math.Exp(meanScale)
	p.Radius = clampF32(float32(radius), minRadius, maxRadius)

	return p
}

func parseASCIIBody(br *bufio.Reader, hdr header) []Point {
	idx := indexProperties(hdr.properties)
	points := make([]Point, 0, hdr.vertexN)
	vals := make([]float64, len(hdr.properties))

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for i := 0; i < hdr.vertexN; i++ {
		if !scanner.Scan() {
			return nil // short read
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < len(hdr.properties) {
			return nil
		}
		for j := range hdr.properties {
			f, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return nil
			}
			vals[j] = f
		}
		points = append(points, buildPoint(vals, idx))
	}

	return points
}

func parseBinaryBody(r io.Reader, hdr header) []Point {
	idx := indexProperties(hdr.properties)
	points := make([]Point, 0, hdr.vertexN)
	vals := make([]float64, len(hdr.properties))

	rowSize := 0
	for _, p := range hdr.properties {
		rowSize += p.typ.size()
	}
	buf := make([]byte, rowSize)

	for i := 0; i < hdr.vertexN; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil // short read
		}
		off := 0
		for j, p := range hdr.properties {
			vals[j] = decodeScalar(buf[off:], p.typ)
			off += p.typ.size()
		}
		points = append(points, buildPoint(vals, idx))
	}

	return points
}

func decodeScalar(b []byte, typ propType) float64 {
	switch typ {
	case typeInt8:
		return float64(int8(b[0]))
	case typeUint8:
		return float64(b[0])
	case typeInt16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case typeUint16:
		return float64(binary.LittleEndian.Uint16(b))
	case typeInt32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case typeUint32:
		return float64(binary.LittleEndian.Uint32(b))
	case typeFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case typeFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}
