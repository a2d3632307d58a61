package frame

import "testing"

func TestL2HeaderRoundTrip(t *testing.T) {
	h := L2Header{DstAddr: 0xBEEF, Len: 42, Checksum: 0x5A, Mbz: 0}

	buf := make([]byte, L2Headersize)
	PutL2Header(buf, h)

	got := ParseL2Header(buf)
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestL4HeaderRoundTrip(t *testing.T) {
	h := L4Header{Type: L4Ack, Seqno: 1, Ackno: 0, Mbz: 0}

	buf := make([]byte, L4Headersize)
	PutL4Header(buf, h)

	got := ParseL4Header(buf)
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestXORChecksumSingleBitFlip(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	base := XORChecksum(buf)

	for i := range buf {
		for bit := uint(0); bit < 8; bit++ {
			flipped := append([]byte(nil), buf...)
			flipped[i] ^= 1 << bit

			if XORChecksum(flipped) == base {
				t.Fatalf("single bit flip at byte %d bit %d went undetected", i, bit)
			}
		}
	}
}

func TestOtherSeq(t *testing.T) {
	if OtherSeq(0) != 1 || OtherSeq(1) != 0 {
		t.Fatalf("OtherSeq must toggle between 0 and 1")
	}
}

func TestL4TypeString(t *testing.T) {
	cases := map[L4Type]string{L4Data: "DATA", L4Ack: "ACK", L4Reset: "RESET", L4Type(99): "UNKNOWN"}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("L4Type(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
