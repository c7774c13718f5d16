package shm

import (
	"encoding/binary"

	"github.com/aws/clock-bound/internal/clockbound"
)

// RecordSize is the fixed, natively-aligned size in bytes of a
// ClockErrorBound record as written into the segment body.
const RecordSize = 56

// ClockErrorBound is the record the daemon publishes once per control-loop
// tick. See SPEC_FULL.md §3.1.
type ClockErrorBound struct {
	AsOf                          clockbound.TimeSpec
	VoidAfter                     clockbound.TimeSpec
	BoundNsec                     int64
	DisruptionMarker              uint64
	MaxDriftPPB                   uint32
	ClockStatus                   clockbound.ClockStatus
	ClockDisruptionSupportEnabled bool
}

func (c ClockErrorBound) marshal(buf []byte) {
	_ = buf[:RecordSize]
	binary.LittleEndian.PutUint64(buf[0:8], uint64(c.AsOf.Sec))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(c.AsOf.Nsec))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(c.VoidAfter.Sec))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(c.VoidAfter.Nsec))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(c.BoundNsec))
	binary.LittleEndian.PutUint64(buf[40:48], c.DisruptionMarker)
	binary.LittleEndian.PutUint32(buf[48:52], c.MaxDriftPPB)
	buf[52] = byte(c.ClockStatus)
	if c.ClockDisruptionSupportEnabled {
		buf[53] = 1
	} else {
		buf[53] = 0
	}
	buf[54] = 0
	buf[55] = 0
}

func unmarshalRecord(buf []byte) ClockErrorBound {
	_ = buf[:RecordSize]
	return ClockErrorBound{
		AsOf: clockbound.TimeSpec{
			Sec:  int64(binary.LittleEndian.Uint64(buf[0:8])),
			Nsec: int64(binary.LittleEndian.Uint64(buf[8:16])),
		},
		VoidAfter: clockbound.TimeSpec{
			Sec:  int64(binary.LittleEndian.Uint64(buf[16:24])),
			Nsec: int64(binary.LittleEndian.Uint64(buf[24:32])),
		},
		BoundNsec:                     int64(binary.LittleEndian.Uint64(buf[32:40])),
		DisruptionMarker:              binary.LittleEndian.Uint64(buf[40:48]),
		MaxDriftPPB:                   binary.LittleEndian.Uint32(buf[48:52]),
		ClockStatus:                   clockbound.ClockStatus(buf[52]),
		ClockDisruptionSupportEnabled: buf[53] != 0,
	}
}
