//go:build linux
// +build linux

package shm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aws/clock-bound/internal/clockbound"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shm0")

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	want := ClockErrorBound{
		AsOf:        clockbound.TimeSpec{Sec: 100, Nsec: 0},
		VoidAfter:   clockbound.TimeSpec{Sec: 1100, Nsec: 0},
		BoundNsec:   5000,
		MaxDriftPPB: 200,
		ClockStatus: clockbound.StatusSynchronized,
	}
	w.Write(want)

	got, err := r.Snapshot()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestReaderCachesAcrossIdenticalGeneration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shm0")

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	w.Write(ClockErrorBound{BoundNsec: 1, ClockStatus: clockbound.StatusSynchronized})
	first, err := r.Snapshot()
	require.NoError(t, err)

	// No new write: the reader should hit its cached-generation fast path
	// and return the identical value without re-reading the record.
	second, err := r.Snapshot()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestWriterGenerationWraparoundSkipsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shm0")

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	// Drive the generation counter to just below wraparound and confirm it
	// never lands back on the "not live" sentinel value zero.
	storeGeneration(w.buf, 0xFFFE)
	w.Write(ClockErrorBound{BoundNsec: 7})
	require.NotZero(t, loadGeneration(w.buf))
	require.Zero(t, loadGeneration(w.buf)%2)
}

func TestOpenReaderRejectsUndersizedSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shm0")

	w, err := Open(path)
	require.NoError(t, err)
	w.Close()

	// Truncate the file out from under the header+record minimum.
	require.NoError(t, os.Truncate(path, 4))

	_, err = OpenReader(path)
	require.Error(t, err)
}
