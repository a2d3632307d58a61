// Package discovery lets a node advertise itself on the local network and
// listen for other nodes doing the same, using UDP multicast. It never
// creates an l4.SAP on its own: the operator reads the discovered
// (label, address, port) tuples and pastes the ones they trust into a
// swtpcfg peer block. The single-peer stop-and-wait transport has no
// handshake of its own, so automatically wiring a discovered peer into a
// running l4.SAP would silently violate that design.
package discovery

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// Announcement is broadcast periodically so other swtp nodes on the same
// network segment can learn this node's label and listening port.
type Announcement struct {
	NodeLabel string
	Port      uint16
}

// MarshalCbor writes the Announcement as a two-element CBOR array.
func (a Announcement) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteByteString([]byte(a.NodeLabel), w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(a.Port), w); err != nil {
		return err
	}
	return nil
}

// UnmarshalCbor reads an Announcement back from its two-element CBOR array
// form.
func (a *Announcement) UnmarshalCbor(r io.Reader) error {
	n, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("discovery: expected array length 2, got %d", n)
	}

	label, err := cboring.ReadByteString(r)
	if err != nil {
		return err
	}
	a.NodeLabel = string(label)

	port, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	if port > 0xFFFF {
		return fmt.Errorf("discovery: port %d out of range", port)
	}
	a.Port = uint16(port)

	return nil
}

// Encode serializes a to its wire form for the peerdiscovery payload.
func Encode(a Announcement) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.MarshalCbor(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a wire-form Announcement.
func Decode(payload []byte) (Announcement, error) {
	var a Announcement
	if err := a.UnmarshalCbor(bytes.NewReader(payload)); err != nil {
		return Announcement{}, err
	}
	return a, nil
}
