// Package frame defines the on-the-wire header layouts shared by the L2
// and L4 service access points, along with the XOR checksum used by L2.
package frame

import "encoding/binary"

const (
	// L2Headersize is the fixed size of an L2 header in bytes.
	L2Headersize = 6

	// L2Framesize is the maximum UDP payload an L2 SAP will emit or accept.
	// Chosen so L2Payloadsize comes out to a round 512 bytes.
	L2Framesize = 518

	// L2Payloadsize is the largest payload an L2 SAP can carry.
	L2Payloadsize = L2Framesize - L2Headersize
)

// L2Header is the fixed six byte header prepended to every L2 frame.
//
//	0               1               2               3
//	+---------------+---------------+---------------+---------------+
//	|            dst_addr           |              len              |
//	+---------------+---------------+---------------+---------------+
//	|   checksum    |      mbz      |
//	+---------------+---------------+
type L2Header struct {
	// DstAddr is an opaque 16 bit peer identifier, echoed from configuration.
	// It is never reinterpreted as part of an IPv4 address.
	DstAddr uint16

	// Len is the total frame length, header included.
	Len uint16

	// Checksum is the XOR of every byte of the framed buffer, computed with
	// this field held at zero.
	Checksum uint8

	// Mbz must be zero on send.
	Mbz uint8
}

// PutL2Header writes header into the first L2Headersize bytes of buf.
func PutL2Header(buf []byte, header L2Header) {
	_ = buf[L2Headersize-1]
	binary.BigEndian.PutUint16(buf[0:2], header.DstAddr)
	binary.BigEndian.PutUint16(buf[2:4], header.Len)
	buf[4] = header.Checksum
	buf[5] = header.Mbz
}

// ParseL2Header reads an L2Header from the first L2Headersize bytes of buf.
// buf must be at least L2Headersize bytes long.
func ParseL2Header(buf []byte) L2Header {
	_ = buf[L2Headersize-1]
	return L2Header{
		DstAddr:  binary.BigEndian.Uint16(buf[0:2]),
		Len:      binary.BigEndian.Uint16(buf[2:4]),
		Checksum: buf[4],
		Mbz:      buf[5],
	}
}

// XORChecksum computes the XOR of every byte in buf. The caller is
// responsible for zeroing the checksum field of buf before calling this,
// both when computing a checksum to send and when verifying one received.
func XORChecksum(buf []byte) uint8 {
	var sum uint8
	for _, b := range buf {
		sum ^= b
	}
	return sum
}
