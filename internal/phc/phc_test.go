package phc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetPCISlotName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uevent")
	content := "DRIVER=ixgbe\nPCI_CLASS=20000\nPCI_SLOT_NAME=0000:00:1f.6\nMODALIAS=pci:foo\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	slot, err := GetPCISlotName(path)
	require.NoError(t, err)
	require.Equal(t, "0000:00:1f.6", slot)
}

func TestGetPCISlotNameMissingLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uevent")
	require.NoError(t, os.WriteFile(path, []byte("DRIVER=ixgbe\n"), 0o644))

	_, err := GetPCISlotName(path)
	require.Error(t, err)
}

func TestGetPCISlotNameMissingFile(t *testing.T) {
	_, err := GetPCISlotName(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestReadErrorBoundNsec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phc_error_bound")
	require.NoError(t, os.WriteFile(path, []byte("1250\n"), 0o644))

	r := &Reader{sysfsPath: path, refID: 0x50484330}
	v, err := r.ReadErrorBoundNsec()
	require.NoError(t, err)
	require.Equal(t, int64(1250), v)
	require.Equal(t, uint32(0x50484330), r.RefID())
}

func TestReadErrorBoundNsecRejectsMalformedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phc_error_bound")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o644))

	r := &Reader{sysfsPath: path}
	_, err := r.ReadErrorBoundNsec()
	require.Error(t, err)
}

func TestReadErrorBoundNsecMissingFile(t *testing.T) {
	r := &Reader{sysfsPath: filepath.Join(t.TempDir(), "missing")}
	_, err := r.ReadErrorBoundNsec()
	require.Error(t, err)
}
