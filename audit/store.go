// Package audit keeps a local, tamper-evident journal of every frame an
// l4.SAP sends or delivers. It is entirely separate from the wire-level
// XOR checksum in the frame package: that checksum only protects a frame
// in flight, while this journal protects the operator's after-the-fact
// record of what happened on a link, long after the frames themselves are
// gone.
package audit

import (
	"os"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold"

	"github.com/nsl-uw/swtp/l4"
)

const dirBadger = "journal"

// Record is one journaled frame event, keyed for badgerhold queries by
// Direction and Type.
type Record struct {
	Id        uint64 `badgerhold:"key"`
	Direction string `badgerholdIndex:"Direction"`
	Type      string `badgerholdIndex:"Type"`
	Seqno     uint8
	Ackno     uint8
	Payload   []byte
	CRC       uint16
	At        time.Time `badgerholdIndex:"At"`
}

// Store is a badger-backed append-only journal.
type Store struct {
	bh  *badgerhold.Store
	dir string
	seq uint64
}

// Open creates or reopens the journal rooted at dir.
func Open(dir string) (*Store, error) {
	badgerDir := path.Join(dir, dirBadger)
	if err := os.MkdirAll(badgerDir, 0700); err != nil {
		return nil, err
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir

	bh, err := badgerhold.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{bh: bh, dir: dir}, nil
}

// Close shuts the journal down.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Observer returns an l4.Observer that journals every event it receives.
// Journaling failures are logged, never surfaced to the transport: a full
// disk must not stall the ARQ loop.
func (s *Store) Observer() l4.Observer {
	return func(ev l4.Event) {
		rec := Record{
			Direction: ev.Direction,
			Type:      ev.Header.Type.String(),
			Seqno:     ev.Header.Seqno,
			Ackno:     ev.Header.Ackno,
			At:        ev.At,
		}
		if ev.PayloadLen > 0 {
			rec.Payload = make([]byte, ev.PayloadLen)
		}
		rec.CRC = crc(rec.Direction, rec.Type, rec.Seqno, rec.Ackno, rec.Payload)

		if err := s.append(rec); err != nil {
			log.WithError(err).Warn("audit: failed to journal frame event")
		}
	}
}

func (s *Store) append(rec Record) error {
	s.seq++
	rec.Id = s.seq
	return s.bh.Insert(rec.Id, rec)
}

// Since returns every record with At after t, oldest first.
func (s *Store) Since(t time.Time) ([]Record, error) {
	var recs []Record
	err := s.bh.Find(&recs, badgerhold.Where("At").Gt(t).SortBy("At"))
	return recs, err
}

// ByDirection returns every record matching direction ("send" or "recv").
func (s *Store) ByDirection(direction string) ([]Record, error) {
	var recs []Record
	err := s.bh.Find(&recs, badgerhold.Where("Direction").Eq(direction).SortBy("At"))
	return recs, err
}
