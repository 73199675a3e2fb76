// Package metadata writes the per-frame CSV sidecar described in spec
// §4.4 and §6: one "frame_id,timestamp_ms\n" line per encoded frame,
// sorted by frame_id (encoded frames are always appended in order).
package metadata

import (
	"bufio"
	"fmt"
	"os"

	"github.com/tigas-project/tigas/errkind"
)

// Sink appends metadata lines to a file, buffering writes for
// throughput. The line count is an invariant equal to the encoded-frame
// count (spec §8, invariant 2); callers must call Append exactly once
// per encoded frame and Close exactly once when done.
type Sink struct {
	f   *os.File
	w   *bufio.Writer
	n   int
}

// New creates (or truncates) the sidecar file at path.
func New(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errkind.Filesystem("metadata: create %q: %v", path, err)
	}
	return &Sink{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one "frame_id,timestamp_ms" line.
func (s *Sink) Append(frameID int, timestampMs int64) error {
	if _, err := fmt.Fprintf(s.w, "%d,%d\n", frameID, timestampMs); err != nil {
		return errkind.Filesystem("metadata: write: %v", err)
	}
	s.n++
	return nil
}

// Count returns the number of lines appended so far.
func (s *Sink) Count() int {
	return s.n
}

// Close flushes buffered writes and closes the underlying file.
func (s *Sink) Close() error {
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return errkind.Filesystem("metadata: flush: %v", err)
	}
	if err := s.f.Close(); err != nil {
		return errkind.Filesystem("metadata: close: %v", err)
	}
	return nil
}
