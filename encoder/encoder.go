// Package encoder wraps libavcodec/libavformat/libswscale (via cgo) to turn
// a sequence of render.RGBFrame values into an encoded video, embedding a
// per-frame SEI marker for client-side synchronization (spec §4.3, §4.6).
//
// Grounded on original_source/native/renderer_encoder/src/tigas_encoder.cpp
// for the exact libav call sequence, translated to C (tigas_encoder.c) since
// cgo requires a C, not C++, surface. The .go/.h/.c trio and the
// open/encode/flush/close lifecycle follow ugparu-gomedia's
// encoder/aac/aac_encoder.go.
package encoder

// #cgo pkg-config: libavutil libavcodec libavformat libswscale
// #include <stdlib.h>
// #include "tigas_encoder.h"
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/tigas-project/tigas/errkind"
	"github.com/tigas-project/tigas/render"
)

// Config mirrors spec §4.3's encoder parameters.
type Config struct {
	Codec          string
	FPS            int
	CRF            int
	Lossless       bool
	LiveDASH       bool
	DASHWindowSize int
	InitSegName    string
	MediaSegName   string
}

// Encoder drives a single libav output (one file, or one live-DASH muxer
// instance) across the lifetime of a render session.
type Encoder struct {
	mu     sync.Mutex
	c      C.tigas_encoder
	width  int
	height int
	closed bool
}

const errbufLen = 256

// New opens an encoder writing to outputPath with the given config and
// frame dimensions.
func New(outputPath string, cfg Config, width, height int) (*Encoder, error) {
	cOutputPath := C.CString(outputPath)
	defer C.free(unsafe.Pointer(cOutputPath))
	cCodec := C.CString(cfg.Codec)
	defer C.free(unsafe.Pointer(cCodec))

	var cInitSeg, cMediaSeg *C.char
	if cfg.InitSegName != "" {
		cInitSeg = C.CString(cfg.InitSegName)
		defer C.free(unsafe.Pointer(cInitSeg))
	}
	if cfg.MediaSegName != "" {
		cMediaSeg = C.CString(cfg.MediaSegName)
		defer C.free(unsafe.Pointer(cMediaSeg))
	}

	cCfg := C.tigas_encode_config{
		output_path:         cOutputPath,
		codec:               cCodec,
		fps:                 C.int(cfg.FPS),
		crf:                 C.int(cfg.CRF),
		lossless:            boolToInt(cfg.Lossless),
		live_dash:           boolToInt(cfg.LiveDASH),
		dash_window_size:    C.int(cfg.DASHWindowSize),
		dash_init_seg_name:  cInitSeg,
		dash_media_seg_name: cMediaSeg,
	}

	e := &Encoder{width: width, height: height}

	errbuf := make([]C.char, errbufLen)
	ret := C.tigas_encoder_open(&e.c, &cCfg, C.int(width), C.int(height), &errbuf[0], C.int(errbufLen))
	if ret != 0 {
		return nil, errkind.Encoder("open %s: %s", outputPath, cErrString(errbuf))
	}
	return e, nil
}

// FrameMeta carries the identifiers embedded into each frame's SEI marker
// (spec §4.6): a monotonically increasing frame_id and the sample's original
// trace timestamp in milliseconds.
type FrameMeta struct {
	FrameID     int
	TimestampMs int64
}

// EncodeFrame scales frame into the codec's pixel format, tags it with a SEI
// unregistered-user-data marker, and muxes every packet the encoder yields.
func (e *Encoder) EncodeFrame(frame render.RGBFrame, meta FrameMeta) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errkind.Encoder("encode frame %d: encoder already closed", meta.FrameID)
	}
	if frame.Width != e.width || frame.Height != e.height {
		return errkind.Encoder("encode frame %d: frame size %dx%d does not match encoder %dx%d",
			meta.FrameID, frame.Width, frame.Height, e.width, e.height)
	}

	payload := []byte(fmt.Sprintf("frame_id=%d;timestamp_ms=%d", meta.FrameID, meta.TimestampMs))

	errbuf := make([]C.char, errbufLen)
	ret := C.tigas_encoder_encode_frame(
		&e.c,
		(*C.uint8_t)(unsafe.Pointer(&frame.Data[0])),
		(*C.uint8_t)(unsafe.Pointer(&seiUUID[0])),
		(*C.uint8_t)(unsafe.Pointer(&payload[0])),
		C.int(len(payload)),
		&errbuf[0], C.int(errbufLen),
	)
	if ret != 0 {
		return errkind.Encoder("encode frame %d: %s", meta.FrameID, cErrString(errbuf))
	}
	return nil
}

// Flush drains any buffered packets and finalizes the output (writes the
// trailer). Safe to call at most once.
func (e *Encoder) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	errbuf := make([]C.char, errbufLen)
	ret := C.tigas_encoder_flush(&e.c, &errbuf[0], C.int(errbufLen))
	if ret != 0 {
		return errkind.Encoder("flush: %s", cErrString(errbuf))
	}
	return nil
}

// Close releases all native resources. Flushes first if not already done.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	C.tigas_encoder_close(&e.c)
	e.closed = true
}

func boolToInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func cErrString(buf []C.char) string {
	return C.GoString(&buf[0])
}
