package audit

import "github.com/howeyc/crc16"

// crc computes a CRC-16 over a record's fields, giving the journal an
// integrity check independent of badger's own on-disk checksums. It is
// unrelated to the XOR checksum frame.XORChecksum computes for the wire.
func crc(direction, typ string, seqno, ackno uint8, payload []byte) uint16 {
	buf := make([]byte, 0, len(direction)+len(typ)+2+len(payload))
	buf = append(buf, direction...)
	buf = append(buf, typ...)
	buf = append(buf, seqno, ackno)
	buf = append(buf, payload...)
	return crc16.ChecksumCCITT(buf)
}
