package vmclock

import "encoding/binary"

func magicMatches(buf []byte) bool {
	return binary.LittleEndian.Uint32(buf[0:4]) == Magic
}

func loadSize(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[4:8])
}

func loadVersion(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf[8:10])
}

func unmarshalBody(buf []byte) Body {
	_ = buf[:BodySize]
	off := 0
	u64 := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		return v
	}
	disruption := u64()
	flags := u64()
	off += 2 // padding
	status := ClockStatus(buf[off])
	off++
	leapSmear := buf[off]
	off++
	tai := int16(binary.LittleEndian.Uint16(buf[off : off+2]))
	off += 2
	leapIndicator := buf[off]
	off++
	counterShift := buf[off]
	off++
	return Body{
		DisruptionMarker:              disruption,
		Flags:                         flags,
		ClockStatus:                   status,
		LeapSecondSmearingHint:        leapSmear,
		TAIOffsetSec:                  tai,
		LeapIndicator:                 leapIndicator,
		CounterPeriodShift:            counterShift,
		CounterValue:                  u64(),
		CounterPeriodFracSec:          u64(),
		CounterPeriodEstErrorRateFrac: u64(),
		CounterPeriodMaxErrorRateFrac: u64(),
		TimeSec:                       u64(),
		TimeFracSec:                   u64(),
		TimeEstErrorNanosec:           u64(),
		TimeMaxErrorNanosec:           u64(),
	}
}
