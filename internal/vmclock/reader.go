//go:build linux
// +build linux

package vmclock

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"

	"github.com/aws/clock-bound/internal/clockbound"
)

// maxSnapshotRetries mirrors shm.maxSnapshotRetries: large enough that the
// hypervisor, trusted not to starve readers, never exhausts it in practice.
const maxSnapshotRetries = 1_000_000

// Reader maps a VMClock segment read-only. Like shm.Reader it is not safe
// for concurrent use.
type Reader struct {
	file      *os.File
	buf       []byte
	cached    Body
	cachedSeq uint32
	haveCache bool
}

// Open maps the VMClock segment at path read-only and validates its header.
func Open(path string) (*Reader, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "open", Err: err}
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "stat", Err: err}
	}
	size := fi.Size()
	if size < SegmentSize {
		f.Close()
		return nil, segmentError(clockbound.SegmentMalformed, "open", "segment smaller than header+body")
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "mmap", Err: err}
	}
	if !magicMatches(buf) {
		unix.Munmap(buf)
		f.Close()
		return nil, segmentError(clockbound.SegmentMalformed, "open", "magic mismatch")
	}
	if loadSize(buf) < SegmentSize {
		unix.Munmap(buf)
		f.Close()
		return nil, segmentError(clockbound.SegmentMalformed, "open", "segsize smaller than header+body")
	}
	version := loadVersion(buf)
	if version != SupportedVersion {
		unix.Munmap(buf)
		f.Close()
		return nil, segmentError(clockbound.SegmentVersionNotSupported, "open", "unsupported vmclock version")
	}
	return &Reader{file: f, buf: buf}, nil
}

func loadSeqCount(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[12:16])
}

// Snapshot returns a consistent Body using the same odd=writing /
// even=stable discipline as the CEB reader, keyed on seq_count.
func (r *Reader) Snapshot() (Body, error) {
	s1 := loadSeqCount(r.buf)
	if r.haveCache && s1 == r.cachedSeq {
		return r.cached, nil
	}

	for attempt := 0; attempt < maxSnapshotRetries; attempt++ {
		if s1%2 != 0 {
			// writer mid-update: reload and keep trying rather than settle
			// for a possibly-stale cached value.
			s1 = loadSeqCount(r.buf)
			continue
		}
		copied := unmarshalBody(r.buf[HeaderSize : HeaderSize+BodySize])
		s2 := loadSeqCount(r.buf)
		if s1 == s2 {
			r.cached = copied
			r.cachedSeq = s1
			r.haveCache = true
			return copied, nil
		}
		s1 = s2
	}
	return Body{}, segmentError(clockbound.SegmentNotInitialized, "snapshot", "exhausted retry budget")
}

func (r *Reader) cachedOrZero() Body {
	if r.haveCache {
		return r.cached
	}
	return Body{}
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
