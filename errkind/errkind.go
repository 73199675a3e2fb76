// Package errkind defines the error taxonomy from spec §7: each kind
// carries its own sentinel so callers can classify a wrapped error with
// errors.Is, and its own constructor so call sites read like the policy
// table (fatal at startup, soft-recovered, per-session, and so on).
package errkind

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", ErrX) or use the
// constructors below, then classify with errors.Is(err, errkind.ErrX).
var (
	// ErrConfig: missing required CLI arg, bad cert paths. Fatal at startup.
	ErrConfig = errors.New("config error")
	// ErrTrace: cannot open trace, not an array. Fatal: abort session.
	ErrTrace = errors.New("trace error")
	// ErrPointCloud: malformed PLY header, unsupported list, short read.
	// Soft: renderer falls back to the procedural pattern.
	ErrPointCloud = errors.New("point cloud error")
	// ErrRender: GPU device missing, alloc/copy/kernel failure. Recovered:
	// disable GPU, log once, continue on CPU.
	ErrRender = errors.New("render error")
	// ErrEncoder: codec not found, open/write failure. Fatal: abort
	// session with diagnostic.
	ErrEncoder = errors.New("encoder error")
	// ErrTransport: TLS handshake failure, upgrade failure. Logged
	// per-session; server continues.
	ErrTransport = errors.New("transport error")
	// ErrDatagram: receive error, EOF. Terminate that session only.
	ErrDatagram = errors.New("datagram error")
	// ErrFilesystem: cannot create output dirs, cannot open log. Fatal at
	// startup.
	ErrFilesystem = errors.New("filesystem error")
)

// Config wraps err (or a formatted message) as a ConfigError.
func Config(format string, args ...any) error {
	return wrap(ErrConfig, format, args...)
}

// Trace wraps err as a TraceError.
func Trace(format string, args ...any) error {
	return wrap(ErrTrace, format, args...)
}

// PointCloud wraps err as a PointCloudError.
func PointCloud(format string, args ...any) error {
	return wrap(ErrPointCloud, format, args...)
}

// Render wraps err as a RenderError.
func Render(format string, args ...any) error {
	return wrap(ErrRender, format, args...)
}

// Encoder wraps err as an EncoderError.
func Encoder(format string, args ...any) error {
	return wrap(ErrEncoder, format, args...)
}

// Transport wraps err as a TransportError.
func Transport(format string, args ...any) error {
	return wrap(ErrTransport, format, args...)
}

// Datagram wraps err as a DatagramError.
func Datagram(format string, args ...any) error {
	return wrap(ErrDatagram, format, args...)
}

// Filesystem wraps err as a FilesystemError.
func Filesystem(format string, args ...any) error {
	return wrap(ErrFilesystem, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, sentinel)
}
