//go:build !cuda

package render

import (
	"github.com/tigas-project/tigas/errkind"
	"github.com/tigas-project/tigas/pointcloud"
	"github.com/tigas-project/tigas/trace"
)

// stubGPUBackend mirrors tigas_cuda_stub.cpp: it reports unavailable
// without attempting a device query, so a non-cuda build never pays for
// CUDA runtime initialization.
type stubGPUBackend struct{}

func newGPUBackend() gpuBackend {
	return stubGPUBackend{}
}

func (stubGPUBackend) Available() bool {
	return false
}

func (stubGPUBackend) Render([]pointcloud.Point, trace.Sample, RGBFrame) error {
	return errkind.Render("cuda backend unavailable in this build")
}

func (stubGPUBackend) Close() error {
	return nil
}
