package l2_test

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l2"
	"github.com/nsl-uw/swtp/l2/faultinj"
)

func localPort(t *testing.T, addr string) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	return port
}

// newLoopbackPair sets up two l2.SAP entities that reach each other through
// a lossless faultinj.Relay. Each SAP dials one of the relay's ports on an
// ephemeral local port, and the relay is pinned to both SAPs' real local
// addresses, so datagrams flow both ways. The relay is closed when the test
// ends.
func newLoopbackPair(t *testing.T) (a, b *l2.SAP) {
	t.Helper()

	relay, err := faultinj.NewRelay(faultinj.Policy{})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	t.Cleanup(func() { relay.Close() })

	a, err = l2.NewSAP("127.0.0.1", localPort(t, relay.LeftAddr))
	if err != nil {
		t.Fatalf("new sap a: %v", err)
	}
	b, err = l2.NewSAP("127.0.0.1", localPort(t, relay.RightAddr))
	if err != nil {
		a.Close()
		t.Fatalf("new sap b: %v", err)
	}

	relay.SetPeers(a.LocalAddr().(*net.UDPAddr), b.LocalAddr().(*net.UDPAddr))

	return a, b
}

func TestSendToRecvFromRoundTrip(t *testing.T) {
	a, b := newLoopbackPair(t)
	defer a.Close()
	defer b.Close()

	payload := []byte("hello over l2")
	if _, err := a.SendTo(payload); err != nil {
		t.Fatalf("sendto: %v", err)
	}

	buf := make([]byte, frame.L2Payloadsize)
	n, timedOut, err := b.RecvFromTimeout(buf, time.Second)
	if err != nil || timedOut {
		t.Fatalf("recvfrom: n=%d timedOut=%v err=%v", n, timedOut, err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("payload mismatch: got %q want %q", buf[:n], payload)
	}
}

func TestRecvFromTimeoutElapses(t *testing.T) {
	_, b := newLoopbackPair(t)
	defer b.Close()

	buf := make([]byte, frame.L2Payloadsize)
	n, timedOut, err := b.RecvFromTimeout(buf, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !timedOut {
		t.Fatalf("expected timeout, got n=%d", n)
	}
}

func TestSendToRejectsOversizePayload(t *testing.T) {
	a, b := newLoopbackPair(t)
	defer a.Close()
	defer b.Close()

	oversized := make([]byte, frame.L2Payloadsize+1)
	if _, err := a.SendTo(oversized); err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}

// TestRecvFromTimeoutDiscardsCorruptedFrame exercises the checksum-mismatch
// branch directly: a frame corrupted in flight by a faultinj.Relay must be
// discarded rather than delivered, so RecvFromTimeout reports ErrChecksum
// instead of returning the corrupted bytes.
func TestRecvFromTimeoutDiscardsCorruptedFrame(t *testing.T) {
	relay, err := faultinj.NewRelay(faultinj.Policy{CorruptProbability: 1})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	defer relay.Close()

	a, err := l2.NewSAP("127.0.0.1", localPort(t, relay.LeftAddr))
	if err != nil {
		t.Fatalf("new sap a: %v", err)
	}
	defer a.Close()
	b, err := l2.NewSAP("127.0.0.1", localPort(t, relay.RightAddr))
	if err != nil {
		t.Fatalf("new sap b: %v", err)
	}
	defer b.Close()

	relay.SetPeers(a.LocalAddr().(*net.UDPAddr), b.LocalAddr().(*net.UDPAddr))

	if _, err := a.SendTo([]byte("corrupt me")); err != nil {
		t.Fatalf("sendto: %v", err)
	}

	buf := make([]byte, frame.L2Payloadsize)
	n, timedOut, err := b.RecvFromTimeout(buf, 200*time.Millisecond)
	if !errors.Is(err, l2.ErrChecksum) {
		t.Fatalf("expected ErrChecksum for corrupted frame, got n=%d timedOut=%v err=%v", n, timedOut, err)
	}
	if timedOut {
		t.Fatalf("expected corrupted frame to be reported as a checksum error, not a timeout")
	}
}
