//go:build cuda

package render

// #cgo LDFLAGS: -L/usr/local/cuda/lib64 -lcudart
// #cgo CFLAGS: -I/usr/local/cuda/include
// #include "render_cuda.h"
// #include <stdlib.h>
import "C"

import (
	"sync"
	"unsafe"

	"github.com/tigas-project/tigas/errkind"
	"github.com/tigas-project/tigas/pointcloud"
	"github.com/tigas-project/tigas/trace"
)

const (
	maxGPUWidth  = 1280
	maxGPUHeight = 720
)

// cudaGPUBackend wires render's compositing contract to the CUDA kernel
// in render_cuda.cu: one device upload of the point table per scene, then
// a per-frame kernel launch that accumulates weighted color and weight
// into float buffers and normalizes at the end, matching spec §4.2's GPU
// ordering-independence rule.
type cudaGPUBackend struct {
	mu         sync.Mutex
	ctx        C.tigas_cuda_ctx
	available  bool
	uploaded   bool
	uploadedAt int
}

func newGPUBackend() gpuBackend {
	b := &cudaGPUBackend{}
	if C.tigas_cuda_query() != 0 {
		return b // available stays false
	}
	if C.tigas_cuda_init(&b.ctx, 1<<20, maxGPUWidth, maxGPUHeight) != 0 {
		return b
	}
	b.available = true
	return b
}

func (b *cudaGPUBackend) Available() bool {
	return b.available
}

// Close releases the device buffers allocated in tigas_cuda_init /
// tigas_cuda_upload. Mirrors the encoder's explicit Close() pattern rather
// than relying on process exit to reclaim the device.
func (b *cudaGPUBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.available {
		return nil
	}
	C.tigas_cuda_destroy(&b.ctx)
	b.available = false
	b.uploaded = false
	return nil
}

func (b *cudaGPUBackend) Render(points []pointcloud.Point, sample trace.Sample, frame RGBFrame) error {
	if !b.available {
		return errkind.Render("cuda backend not initialized")
	}
	if frame.Width > maxGPUWidth || frame.Height > maxGPUHeight {
		return errkind.Render("cuda frame %dx%d exceeds device buffer capacity", frame.Width, frame.Height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.uploaded || b.uploadedAt != len(points) {
		cPoints := make([]C.tigas_point, len(points))
		for i, p := range points {
			cPoints[i] = C.tigas_point{
				x: C.float(p.X), y: C.float(p.Y), z: C.float(p.Z),
				r: C.uint8_t(p.R), g: C.uint8_t(p.G), b: C.uint8_t(p.B),
				opacity: C.float(p.Opacity), radius: C.float(p.Radius),
			}
		}
		var ptr *C.tigas_point
		if len(cPoints) > 0 {
			ptr = &cPoints[0]
		}
		if C.tigas_cuda_upload(&b.ctx, ptr, C.int(len(points))) != 0 {
			return errkind.Render("cuda upload failed")
		}
		b.uploaded = true
		b.uploadedAt = len(points)
	}

	deg2rad := func(d float32) C.float { return C.float(d) * (C.float(3.14159265358979323846) / 180) }

	ret := C.tigas_cuda_render(&b.ctx, C.int(len(points)), C.int(frame.Width), C.int(frame.Height),
		C.float(sample.X), C.float(sample.Y), C.float(sample.Z),
		deg2rad(sample.Angle), deg2rad(sample.Elevation),
		(*C.uint8_t)(unsafe.Pointer(&frame.Data[0])))
	if ret != 0 {
		return errkind.Render("cuda kernel launch failed (code %d)", int(ret))
	}
	return nil
}
