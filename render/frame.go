package render

// RGBFrame is a packed RGB24 raster, row-major, 3 bytes per pixel.
type RGBFrame struct {
	Width  int
	Height int
	Data   []byte
}

func newFrame(width, height int) RGBFrame {
	return RGBFrame{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*3),
	}
}

func (f RGBFrame) at(x, y int) int {
	return (y*f.Width + x) * 3
}
