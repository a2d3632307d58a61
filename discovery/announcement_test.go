package discovery_test

import (
	"testing"

	"github.com/nsl-uw/swtp/discovery"
)

func TestAnnouncementRoundTrip(t *testing.T) {
	want := discovery.Announcement{NodeLabel: "alice", Port: 5555}

	encoded, err := discovery.Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := discovery.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := discovery.Decode([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatalf("expected error decoding garbage payload")
	}
}

func TestAnnouncementEmptyLabel(t *testing.T) {
	want := discovery.Announcement{NodeLabel: "", Port: 1}

	encoded, err := discovery.Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := discovery.Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}
