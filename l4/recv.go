package l4

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
)

// Recv blocks indefinitely until a DATA frame with seqno == expectedSeqno
// is delivered, a RESET arrives, or a non-recoverable error occurs. It
// never surfaces a timeout to the caller.
func (s *SAP) Recv(data []byte) (int, error) {
	if len(data) <= 0 {
		return -1, fmt.Errorf("%w: zero-length buffer", ErrInvalidArgument)
	}

	if n, delivered, err := s.consumePending(data); delivered {
		return n, err
	}

	buf := make([]byte, frame.L4Framesize)
	for {
		recvLen, timedOut, err := s.l2.RecvFromTimeout(buf, 0)
		if timedOut {
			// Cannot happen with a zero (unbounded) timeout, but
			// tolerated per spec.md §4.2.
			continue
		}
		if err != nil {
			log.WithError(err).Debug("l4: transient error while waiting for DATA")
			continue
		}
		if recvLen < frame.L4Headersize {
			continue
		}

		header := frame.ParseL4Header(buf[:recvLen])
		if header.Mbz != 0 {
			log.Debug("l4: dropping frame with nonzero mbz")
			continue
		}
		payloadLen := recvLen - frame.L4Headersize

		switch header.Type {
		case frame.L4Reset:
			s.notify("recv", header, 0)
			return -1, ErrQuit

		case frame.L4Data:
			s.notify("recv", header, payloadLen)
			ackHeader := frame.L4Header{Type: frame.L4Ack, Ackno: frame.OtherSeq(header.Seqno)}

			if header.Seqno != s.expectedSeqno {
				// The peer didn't get our last ACK; re-ACK the
				// previously-delivered frame and keep waiting.
				if err := s.sendControl(ackHeader); err != nil {
					log.WithError(err).Debug("l4: failed to re-ack stale DATA")
				}
				continue
			}

			copyLen := payloadLen
			if copyLen > len(data) {
				copyLen = len(data)
			}
			copy(data, buf[frame.L4Headersize:frame.L4Headersize+copyLen])

			if err := s.sendControl(ackHeader); err != nil {
				log.WithError(err).Debug("l4: failed to ack delivered DATA")
			}
			s.expectedSeqno = frame.OtherSeq(s.expectedSeqno)
			return copyLen, nil

		default:
			// Stray ACK or unknown type while waiting for DATA: ignore.
			continue
		}
	}
}

// consumePending handles the single-slot pending buffer per spec.md §4.2
// step 1. delivered is true if Recv should return immediately with (n,
// err); false means the caller must fall through to the network wait.
func (s *SAP) consumePending(data []byte) (n int, delivered bool, err error) {
	p := s.pending
	if p == nil {
		return 0, false, nil
	}
	s.pending = nil

	ackHeader := frame.L4Header{Type: frame.L4Ack, Ackno: frame.OtherSeq(p.header.Seqno)}

	if p.header.Type == frame.L4Data && p.header.Seqno == s.expectedSeqno {
		copyLen := len(p.payload)
		if copyLen > len(data) {
			copyLen = len(data)
		}
		copy(data, p.payload[:copyLen])

		if sendErr := s.sendControl(ackHeader); sendErr != nil {
			log.WithError(sendErr).Debug("l4: failed to ack pending DATA")
		}
		s.expectedSeqno = frame.OtherSeq(s.expectedSeqno)
		s.notify("recv", p.header, copyLen)
		return copyLen, true, nil
	}

	// Stale pending frame: duplicate-ack it and discard, then fall
	// through to the network wait.
	if sendErr := s.sendControl(ackHeader); sendErr != nil {
		log.WithError(sendErr).Debug("l4: failed to ack stale pending DATA")
	}
	return 0, false, nil
}
