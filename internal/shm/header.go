package shm

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// HeaderSize is the fixed size of the segment header: magic(8) + segsize(4)
// + version(2) + generation(2).
const HeaderSize = 16

// SegmentSize is the total size of a CEB segment: header + record, already
// 8-byte aligned.
const SegmentSize = HeaderSize + RecordSize

// SupportedVersion is the only header version this build understands.
const SupportedVersion uint16 = 2

var magic = [8]byte{0x4E, 0x5A, 0x4D, 0x41, 0x00, 0x02, 0x42, 0x43}

// magicMatches checks the first 8 bytes of buf against the expected magic.
// The two 32-bit words are 0x414D5A4E and 0x43420200 in native (little)
// endian, which is why the byte sequence above reads "NZMA" then 0x00 0x02
// "BC" rather than the ASCII-looking form of the word values.
func magicMatches(buf []byte) bool {
	return buf[0] == magic[0] && buf[1] == magic[1] && buf[2] == magic[2] && buf[3] == magic[3] &&
		buf[4] == magic[4] && buf[5] == magic[5] && buf[6] == magic[6] && buf[7] == magic[7]
}

func writeMagic(buf []byte) {
	copy(buf[0:8], magic[:])
}

func loadSegsize(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf[8:12])
}

func storeSegsize(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf[8:12], v)
}

func loadVersion(buf []byte) uint16 {
	return atomic.LoadUint16((*uint16)(unsafe.Pointer(&buf[12])))
}

func storeVersion(buf []byte, v uint16) {
	atomic.StoreUint16((*uint16)(unsafe.Pointer(&buf[12])), v)
}

func loadGeneration(buf []byte) uint16 {
	return atomic.LoadUint16((*uint16)(unsafe.Pointer(&buf[14])))
}

func storeGeneration(buf []byte, v uint16) {
	atomic.StoreUint16((*uint16)(unsafe.Pointer(&buf[14])), v)
}

func isWellFormed(buf []byte) bool {
	return len(buf) >= HeaderSize+RecordSize && loadSegsize(buf) >= HeaderSize+RecordSize
}
