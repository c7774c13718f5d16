//go:build linux
// +build linux

package shm

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/aws/clock-bound/internal/clockbound"
)

// Writer maps a CEB segment read/write and publishes records into it using
// the generation protocol of SPEC_FULL.md §4.2. Exactly one Writer per path
// may exist process-wide; no cross-process locking is performed.
type Writer struct {
	file *os.File
	buf  []byte
}

// Open maps the segment at path, wiping it first if it is absent or its
// header is not well-formed. It always (re)stores SupportedVersion before
// returning, marking the segment live for readers.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "open", Err: err}
	}

	if !isUsableSegment(f) {
		if err := wipe(f); err != nil {
			f.Close()
			return nil, err
		}
	}

	buf, err := unix.Mmap(int(f.Fd()), 0, SegmentSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &clockbound.Error{Kind: clockbound.Syscall, Origin: "mmap", Err: err}
	}

	w := &Writer{file: f, buf: buf}
	storeVersion(w.buf, SupportedVersion)
	return w, nil
}

// isUsableSegment reports whether the file already contains a well-formed,
// correctly-versioned header, without requiring the writer's own mapping.
func isUsableSegment(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil || fi.Size() < HeaderSize+RecordSize {
		return false
	}
	buf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return false
	}
	if !magicMatches(buf) {
		return false
	}
	segsize := loadSegsize(buf)
	if segsize < HeaderSize+RecordSize {
		return false
	}
	if loadVersion(buf) != SupportedVersion {
		return false
	}
	if loadGeneration(buf) == 0 {
		return false
	}
	return true
}

// wipe truncates the file to SegmentSize, writes a fresh header with
// version=0/generation=0 (the sentinel telling readers "not live yet"), and
// zeroes the record body.
func wipe(f *os.File) error {
	if err := f.Truncate(SegmentSize); err != nil {
		return &clockbound.Error{Kind: clockbound.Syscall, Origin: "truncate", Err: err}
	}
	buf := make([]byte, SegmentSize)
	writeMagic(buf)
	storeSegsize(buf, SegmentSize)
	storeVersion(buf, 0)
	storeGeneration(buf, 0)
	if _, err := f.WriteAt(buf, 0); err != nil {
		return &clockbound.Error{Kind: clockbound.Syscall, Origin: "write", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &clockbound.Error{Kind: clockbound.Syscall, Origin: "fsync", Err: err}
	}
	return nil
}

// Write publishes ceb using the generation-bump protocol: bump to odd,
// release-store, copy the record, then release-store the next even
// generation (skipping zero on wraparound).
func (w *Writer) Write(ceb ClockErrorBound) {
	g := loadGeneration(w.buf)
	if g%2 == 0 {
		g++
	}
	storeGeneration(w.buf, g)

	ceb.marshal(w.buf[HeaderSize : HeaderSize+RecordSize])

	next := g + 1
	if next == 0 {
		next = 2
	}
	storeGeneration(w.buf, next)
}

// Close unmaps the segment and closes the backing file.
func (w *Writer) Close() error {
	if w.buf != nil {
		_ = unix.Munmap(w.buf)
		w.buf = nil
	}
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
