// Package poselog stores the control datagrams described in spec §3 and
// §4.8: exactly 28 bytes, seven little-endian f32 values in the order
// [ts_ms, x, y, z, pitch, yaw, roll]. Payloads of any other size are
// discarded before they reach the store (spec §8, invariant 6).
//
// Grounded on original_source/server/cmd/tigas-server/main.go's
// controlStore: a single mutex guarding an append-only slice, copying the
// payload before appending so the caller's datagram buffer can be reused.
package poselog

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"
	"sync"
	"time"

	"github.com/tigas-project/tigas/errkind"
)

// PayloadSize is the only accepted control-datagram length.
const PayloadSize = 28

// Pose is a decoded control datagram. Decode is offline/lazy per spec
// §4.8: the store itself only keeps raw bytes plus receipt time.
type Pose struct {
	TsMs  float32
	X     float32
	Y     float32
	Z     float32
	Pitch float32
	Yaw   float32
	Roll  float32
}

// Entry is one stored datagram: its raw payload and local receipt time.
type Entry struct {
	Payload []byte
	At      time.Time
}

// Store is a mutex-guarded, append-only in-memory log of accepted
// datagrams, optionally mirrored to a log file.
type Store struct {
	mu      sync.Mutex
	entries []Entry

	logFile *os.File
	logW    *bufio.Writer
}

// NewStore creates a Store. If logPath is non-empty, every accepted
// datagram is additionally appended to that file as raw bytes followed
// by a newline; failure to open the log is a FilesystemError (spec §7).
func NewStore(logPath string) (*Store, error) {
	s := &Store{}
	if logPath == "" {
		return s, nil
	}
	f, err := os.Create(logPath)
	if err != nil {
		return nil, errkind.Filesystem("poselog: create %q: %v", logPath, err)
	}
	s.logFile = f
	s.logW = bufio.NewWriter(f)
	return s, nil
}

// Append stores one datagram payload if it is exactly PayloadSize bytes;
// any other length is silently discarded (spec §3, §8 invariant 6). The
// payload is copied before appending.
func (s *Store) Append(payload []byte) {
	if len(payload) != PayloadSize {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, Entry{
		Payload: append([]byte(nil), payload...),
		At:      time.Now(),
	})

	if s.logW != nil {
		s.logW.Write(payload)
		s.logW.WriteByte('\n')
		s.logW.Flush()
	}
}

// Snapshot returns a copy of all entries stored so far, safe to read
// without holding the Store's lock.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Close flushes and closes the backing log file, if any.
func (s *Store) Close() error {
	if s.logW == nil {
		return nil
	}
	if err := s.logW.Flush(); err != nil {
		s.logFile.Close()
		return errkind.Filesystem("poselog: flush: %v", err)
	}
	if err := s.logFile.Close(); err != nil {
		return errkind.Filesystem("poselog: close: %v", err)
	}
	return nil
}

// Decode parses a 28-byte control datagram payload into a Pose. The
// caller is expected to have already filtered payload to PayloadSize
// bytes (e.g. via a Store.Snapshot entry).
func Decode(payload []byte) (Pose, bool) {
	if len(payload) != PayloadSize {
		return Pose{}, false
	}
	readF32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
	}
	return Pose{
		TsMs:  readF32(0),
		X:     readF32(4),
		Y:     readF32(8),
		Z:     readF32(12),
		Pitch: readF32(16),
		Yaw:   readF32(20),
		Roll:  readF32(24),
	}, true
}
