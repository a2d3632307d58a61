package audit_test

import (
	"testing"
	"time"

	"github.com/nsl-uw/swtp/audit"
	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l4"
)

func newTestStore(t *testing.T) *audit.Store {
	t.Helper()
	s, err := audit.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestObserverJournalsSendAndRecv(t *testing.T) {
	s := newTestStore(t)
	obs := s.Observer()

	obs(l4.Event{
		Direction:  "send",
		Header:     frame.L4Header{Type: frame.L4Data, Seqno: 0},
		PayloadLen: 5,
		At:         time.Now(),
	})
	obs(l4.Event{
		Direction:  "recv",
		Header:     frame.L4Header{Type: frame.L4Ack, Ackno: 0},
		PayloadLen: 0,
		At:         time.Now(),
	})

	sent, err := s.ByDirection("send")
	if err != nil {
		t.Fatalf("ByDirection(send): %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected 1 send record, got %d", len(sent))
	}
	if sent[0].Type != "DATA" || len(sent[0].Payload) != 5 {
		t.Fatalf("unexpected send record: %+v", sent[0])
	}

	recvd, err := s.ByDirection("recv")
	if err != nil {
		t.Fatalf("ByDirection(recv): %v", err)
	}
	if len(recvd) != 1 || recvd[0].Type != "ACK" {
		t.Fatalf("unexpected recv record: %+v", recvd)
	}
}

func TestSinceFiltersByTime(t *testing.T) {
	s := newTestStore(t)
	obs := s.Observer()

	cutoff := time.Now()
	obs(l4.Event{Direction: "send", Header: frame.L4Header{Type: frame.L4Reset}, At: cutoff.Add(time.Second)})

	recs, err := s.Since(cutoff)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after cutoff, got %d", len(recs))
	}
}

func TestExportImportSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	obs := s.Observer()
	obs(l4.Event{Direction: "send", Header: frame.L4Header{Type: frame.L4Data}, PayloadLen: 3, At: time.Now()})

	snap, err := s.ExportSnapshot(time.Time{})
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	if len(snap) == 0 {
		t.Fatalf("expected non-empty snapshot")
	}

	recs, err := audit.ImportSnapshot(snap)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 imported record, got %d", len(recs))
	}
}
