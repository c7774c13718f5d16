// Package vmclock reads the hypervisor-owned VMClock shared-memory segment
// used to detect clock disruption events such as live migration. This
// system never writes the segment; it is documented here only to the extent
// the daemon and client need to parse it.
package vmclock

import "github.com/aws/clock-bound/internal/clockbound"

// DefaultPath is the conventional VMClock device path.
const DefaultPath = "/dev/vmclock0"

// Magic identifies a VMClock segment: ASCII "VCLK" read as a little-endian
// uint32.
const Magic uint32 = 0x4B4C4356

// SupportedVersion is the only VMClock header version this build
// understands.
const SupportedVersion uint16 = 1

// HeaderSize is magic(4) + size(4) + version(2) + counter_id(1) +
// time_type(1) + seq_count(4).
const HeaderSize = 16

// BodySize is the fixed size of the VMClock body record (§6.2).
const BodySize = 8 + 8 + 2 + 1 + 1 + 2 + 1 + 1 + 8*8

// SegmentSize is the minimum well-formed VMClock segment size.
const SegmentSize = HeaderSize + BodySize

// ClockStatus is the hypervisor-local clock status enum carried in the
// VMClock body. It is distinct from clockbound.ClockStatus: this system
// only ever consumes it for informational purposes, never to drive the FSM.
type ClockStatus uint8

const (
	VMUnknown ClockStatus = iota
	VMInitializing
	VMSynchronized
	VMFreeRunning
	VMUnreliable
)

// Body is the subset of the VMClock body this system cares about, plus the
// remaining fields kept for completeness because they are part of the wire
// format even though only DisruptionMarker and ClockStatus are consumed.
type Body struct {
	DisruptionMarker              uint64
	Flags                         uint64
	ClockStatus                   ClockStatus
	LeapSecondSmearingHint        uint8
	TAIOffsetSec                  int16
	LeapIndicator                 uint8
	CounterPeriodShift            uint8
	CounterValue                  uint64
	CounterPeriodFracSec          uint64
	CounterPeriodEstErrorRateFrac uint64
	CounterPeriodMaxErrorRateFrac uint64
	TimeSec                       uint64
	TimeFracSec                   uint64
	TimeEstErrorNanosec           uint64
	TimeMaxErrorNanosec           uint64
}

// segmentError is a tiny adapter so this package can build clockbound.Error
// values without importing clockbound into every file.
func segmentError(kind clockbound.Kind, origin, detail string) error {
	return &clockbound.Error{Kind: kind, Origin: origin, Detail: detail}
}
