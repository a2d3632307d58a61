// Package l2 implements the L2 service access point: a thin framing layer
// over best-effort UDP datagrams that adds a small header with a
// destination identifier, length and XOR checksum, and discards corrupted
// frames.
package l2

import (
	"errors"
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
)

// ErrFrameTooLarge is returned by SendTo when the payload does not fit
// within a single L2 frame.
var ErrFrameTooLarge = errors.New("l2: payload exceeds L2Payloadsize")

// ErrShortFrame is returned by RecvFrom/RecvFromTimeout when a received
// datagram is too small to contain an L2 header.
var ErrShortFrame = errors.New("l2: received frame shorter than L2Headersize")

// ErrChecksum is returned when a received frame's checksum does not match
// its contents; the frame is discarded.
var ErrChecksum = errors.New("l2: checksum mismatch, frame discarded")

// ErrBufferTooSmall is returned by RecvFrom/RecvFromTimeout when the
// caller's buffer cannot hold the received payload.
var ErrBufferTooSmall = errors.New("l2: caller buffer too small for payload")

// SAP is an L2 service access point. It owns exactly one UDP socket bound
// for send/receive and one peer address. An SAP is not safe for concurrent
// use: the caller must serialize SendTo/RecvFrom calls, as spec.md's
// concurrency model requires.
type SAP struct {
	conn    *net.UDPConn
	peer    *net.UDPAddr
	dstAddr uint16
}

// NewSAP opens a UDP/IPv4 socket and stores the given peer address. The
// source (l2sap.c) derives dst_addr from htons(peer_addr.sin_addr.s_addr),
// the low 16 bits of the peer's IPv4 address. This port derives it from
// the peer's port instead, which is already a 16 bit quantity and
// round-trips exactly, unlike truncating a 32 bit address. Either choice
// is safe: per spec.md §9 note 2 the field is opaque and never validated
// on receive, so it has no effect on delivery.
func NewSAP(peerIP string, peerPort int) (*SAP, error) {
	peer := &net.UDPAddr{IP: net.ParseIP(peerIP), Port: peerPort}
	if peer.IP == nil {
		return nil, fmt.Errorf("l2: invalid peer IP %q", peerIP)
	}

	conn, err := net.DialUDP("udp4", nil, peer)
	if err != nil {
		return nil, fmt.Errorf("l2: socket create failed: %w", err)
	}

	applySockopts(conn)

	log.WithFields(log.Fields{"peer": peer.String()}).Debug("l2: SAP created")

	return &SAP{
		conn:    conn,
		peer:    peer,
		dstAddr: uint16(peerPort),
	}, nil
}

// LocalAddr returns the local address of the underlying UDP socket.
func (s *SAP) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the underlying socket. Close is idempotent against a nil
// SAP.
func (s *SAP) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// SendTo frames data as a single L2 frame and transmits it to the SAP's
// peer. It returns the number of payload bytes accepted, or an error if
// data does not fit in a single frame or the underlying send fails. The
// frame buffer is always fully zeroed before header and payload fields are
// written into it, so no uninitialized byte is ever put on the wire.
func (s *SAP) SendTo(data []byte) (int, error) {
	n := len(data)
	if n < 0 || n > frame.L2Payloadsize || n+frame.L2Headersize > frame.L2Framesize {
		return -1, ErrFrameTooLarge
	}

	buf := make([]byte, frame.L2Headersize+n)

	frame.PutL2Header(buf, frame.L2Header{
		DstAddr:  s.dstAddr,
		Len:      uint16(frame.L2Headersize + n),
		Checksum: 0,
		Mbz:      0,
	})
	copy(buf[frame.L2Headersize:], data)

	checksum := frame.XORChecksum(buf)
	buf[4] = checksum

	if _, err := s.conn.Write(buf); err != nil {
		log.WithFields(log.Fields{"peer": s.peer.String(), "error": err}).Warn("l2: sendto failed")
		return -1, fmt.Errorf("l2: sendto failed: %w", err)
	}

	return n, nil
}

// RecvFrom waits indefinitely for the next valid L2 frame and copies its
// payload into data.
func (s *SAP) RecvFrom(data []byte) (int, error) {
	n, timedOut, err := s.RecvFromTimeout(data, 0)
	if timedOut {
		// A zero timeout means "wait forever"; the underlying read
		// deadline is cleared, so this cannot actually happen.
		return -1, errors.New("l2: unexpected timeout on unbounded wait")
	}
	return n, err
}

// RecvFromTimeout waits for the next valid L2 frame, up to timeout. A
// timeout of zero means wait forever. It returns the payload length, a
// flag indicating the wait elapsed with no data (standing in for the
// source's L2_TIMEOUT sentinel), and an error for any other failure
// (short frame, bad checksum, oversize payload, or a socket error). On
// checksum mismatch or a short frame the frame is discarded and (-1, false,
// err) is returned so the caller (L4) can treat it as transient.
func (s *SAP) RecvFromTimeout(data []byte, timeout time.Duration) (n int, timedOut bool, err error) {
	if timeout > 0 {
		if dErr := s.conn.SetReadDeadline(time.Now().Add(timeout)); dErr != nil {
			return -1, false, fmt.Errorf("l2: set read deadline: %w", dErr)
		}
	} else {
		if dErr := s.conn.SetReadDeadline(time.Time{}); dErr != nil {
			return -1, false, fmt.Errorf("l2: clear read deadline: %w", dErr)
		}
	}

	buf := make([]byte, frame.L2Framesize)
	received, rErr := s.conn.Read(buf)
	if rErr != nil {
		if netErr, ok := rErr.(net.Error); ok && netErr.Timeout() {
			return 0, true, nil
		}
		return -1, false, fmt.Errorf("l2: recvfrom failed: %w", rErr)
	}

	if received < frame.L2Headersize {
		log.Debug("l2: dropping short frame")
		return -1, false, ErrShortFrame
	}

	header := frame.ParseL2Header(buf[:received])
	receivedChecksum := header.Checksum
	buf[4] = 0
	computed := frame.XORChecksum(buf[:received])
	if receivedChecksum != computed {
		log.WithFields(log.Fields{
			"received": receivedChecksum,
			"expected": computed,
		}).Warn("l2: checksum mismatch, discarding frame")
		return -1, false, ErrChecksum
	}

	payloadLen := int(header.Len) - frame.L2Headersize
	if payloadLen < 0 || payloadLen > len(data) {
		return -1, false, ErrBufferTooSmall
	}

	copy(data, buf[frame.L2Headersize:frame.L2Headersize+payloadLen])
	return payloadLen, false, nil
}
