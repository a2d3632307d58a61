package audit

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/ulikunitz/xz"
)

// ExportSnapshot serializes every record since t and compresses the result,
// for archiving a link's history off-box without keeping the badger
// directory around.
func (s *Store) ExportSnapshot(t time.Time) ([]byte, error) {
	recs, err := s.Since(t)
	if err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(recs); err != nil {
		return nil, err
	}

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw.Bytes()); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return compressed.Bytes(), nil
}

// ImportSnapshot decompresses and decodes a snapshot produced by
// ExportSnapshot, without inserting it back into a Store.
func ImportSnapshot(data []byte) ([]Record, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var recs []Record
	if err := gob.NewDecoder(r).Decode(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}
