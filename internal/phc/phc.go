// Package phc reads a precision hardware clock's sysfs-published error
// bound, gated on the network interface whose PCI device exposes it.
package phc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	pciSlotNamePrefix = "PCI_SLOT_NAME="
)

// GetPCISlotName extracts the PCI_SLOT_NAME= line from a sysfs uevent file.
func GetPCISlotName(ueventPath string) (string, error) {
	f, err := os.Open(ueventPath)
	if err != nil {
		return "", fmt.Errorf("phc: open %s: %w", ueventPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, pciSlotNamePrefix) {
			return strings.TrimPrefix(line, pciSlotNamePrefix), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("phc: read %s: %w", ueventPath, err)
	}
	return "", fmt.Errorf("phc: %s has no %s line", ueventPath, pciSlotNamePrefix)
}

// ErrorBoundSysfsPath resolves the phc_error_bound sysfs path for a network
// interface, by following its device's PCI slot name.
func ErrorBoundSysfsPath(iface string) (string, error) {
	ueventPath := fmt.Sprintf("/sys/class/net/%s/device/uevent", iface)
	slot, err := GetPCISlotName(ueventPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/sys/bus/pci/devices/%s/phc_error_bound", slot), nil
}

// Reader reads a PHC error-bound term, gated on the configured reference id
// matching chrony's currently selected source.
type Reader struct {
	sysfsPath string
	refID     uint32
}

// NewReader builds a Reader for the given interface and reference id.
func NewReader(iface string, refID uint32) (*Reader, error) {
	path, err := ErrorBoundSysfsPath(iface)
	if err != nil {
		return nil, err
	}
	return &Reader{sysfsPath: path, refID: refID}, nil
}

// RefID returns the configured reference id this PHC term is gated on.
func (r *Reader) RefID() uint32 { return r.refID }

// ReadErrorBoundNsec reads and parses the current PHC error bound in
// nanoseconds.
func (r *Reader) ReadErrorBoundNsec() (int64, error) {
	data, err := os.ReadFile(r.sysfsPath)
	if err != nil {
		return 0, fmt.Errorf("phc: read %s: %w", r.sysfsPath, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("phc: parse %s: %w", r.sysfsPath, err)
	}
	return v, nil
}
