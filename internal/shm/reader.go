//go:build linux
// +build linux

package shm

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/aws/clock-bound/internal/clockbound"
)

// maxSnapshotRetries bounds the reader's retry loop when the generation
// keeps changing across the record copy. One writer tick is ~1s, so this bound is
// never exercised in practice; it exists to turn a hypothetical stuck
// writer into an error instead of an infinite loop.
const maxSnapshotRetries = 1_000_000

// Reader maps a CEB segment read-only and serves consistent snapshots.
// Reader is NOT safe for concurrent use: it holds a mutable cached snapshot
// to avoid copies on the common fast path. Each goroutine needing
// concurrent access must open its own Reader.
type Reader struct {
	file      *os.File
	buf       []byte
	cached    ClockErrorBound
	cachedGen uint16
	haveCache bool
}

// OpenReader maps the segment at path read-only.
func OpenReader(path string) (*Reader, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "open", Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "stat", Err: err}
	}
	if fi.Size() < HeaderSize+RecordSize {
		f.Close()
		return nil, &clockbound.Error{Kind: clockbound.SegmentMalformed, Origin: "open", Detail: "segment smaller than header+record"}
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "mmap", Err: err}
	}
	return &Reader{file: f, buf: buf}, nil
}

// Snapshot returns a consistent ClockErrorBound record, per SPEC_FULL.md
// §4.2's reader-side algorithm.
func (r *Reader) Snapshot() (ClockErrorBound, error) {
	version := loadVersion(r.buf)
	if version == 0 {
		return r.cachedOrZero(), nil
	}
	if version != SupportedVersion {
		return ClockErrorBound{}, &clockbound.Error{Kind: clockbound.SegmentVersionNotSupported, Origin: "snapshot", Detail: "unsupported segment version"}
	}

	g1 := loadGeneration(r.buf)
	if g1 == 0 {
		return r.cachedOrZero(), nil
	}
	if r.haveCache && g1 == r.cachedGen {
		return r.cached, nil
	}

	for attempt := 0; attempt < maxSnapshotRetries; attempt++ {
		if g1%2 != 0 {
			// writer mid-update: return the cached value rather than spin;
			// a slightly stale snapshot is acceptable.
			return r.cachedOrZero(), nil
		}
		copied := unmarshalRecord(r.buf[HeaderSize : HeaderSize+RecordSize])
		g2 := loadGeneration(r.buf)
		if g1 == g2 {
			r.cached = copied
			r.cachedGen = g1
			r.haveCache = true
			return copied, nil
		}
		g1 = g2
	}
	return ClockErrorBound{}, &clockbound.Error{Kind: clockbound.SegmentNotInitialized, Origin: "snapshot", Detail: "exhausted retry budget"}
}

func (r *Reader) cachedOrZero() ClockErrorBound {
	if r.haveCache {
		return r.cached
	}
	return ClockErrorBound{}
}

// Close unmaps the segment.
func (r *Reader) Close() error {
	if r.buf != nil {
		_ = unix.Munmap(r.buf)
		r.buf = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
