package render

import (
	"github.com/tigas-project/tigas/pointcloud"
	"github.com/tigas-project/tigas/trace"
)

// gpuBackend is the CUDA fast path. It is satisfied by a real cgo-backed
// implementation when built with the `cuda` build tag, and by a stub that
// always reports unavailable otherwise (render/cuda_enabled.go,
// render/cuda_stub.go).
type gpuBackend interface {
	// Available reports whether this build was compiled with CUDA support
	// and a device was found at backend construction time. It never
	// performs per-frame work.
	Available() bool

	// Render projects and composites points into frame using the GPU
	// weighted-accumulate-then-normalize compositing rule. Any device
	// query, allocation, kernel, or copy-back failure returns a non-nil
	// error; the caller permanently disables the GPU path for the
	// remainder of the session on the first such failure.
	Render(points []pointcloud.Point, sample trace.Sample, frame RGBFrame) error

	// Close releases any device-resident buffers allocated at construction
	// or upload time. Safe to call even when the backend was never
	// available.
	Close() error
}
