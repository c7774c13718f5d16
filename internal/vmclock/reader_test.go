//go:build linux
// +build linux

package vmclock

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestSegment(t *testing.T, disruption uint64, seq uint32) string {
	t.Helper()

	buf := make([]byte, SegmentSize)
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], SegmentSize)
	binary.LittleEndian.PutUint16(buf[8:10], SupportedVersion)
	binary.LittleEndian.PutUint32(buf[12:16], seq)
	binary.LittleEndian.PutUint64(buf[HeaderSize:HeaderSize+8], disruption)
	buf[HeaderSize+18] = byte(VMSynchronized)

	path := filepath.Join(t.TempDir(), "vmclock0")
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestReaderOpenAndSnapshot(t *testing.T) {
	path := writeTestSegment(t, 0x1234, 2)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	body, err := r.Snapshot()
	require.NoError(t, err)
	require.Equal(t, uint64(0x1234), body.DisruptionMarker)
	require.Equal(t, VMSynchronized, body.ClockStatus)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := writeTestSegment(t, 0, 2)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[0:4], 0)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(path)
	require.Error(t, err)
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	path := writeTestSegment(t, 0, 2)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint16(data[8:10], 99)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(path)
	require.Error(t, err)
}
