package l4

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
)

// Send blocks until a matching ACK is received, up to 4 retransmissions
// (5 total transmissions), each waited on for up to one second. A payload
// longer than L4Payloadsize is truncated; the truncated, accepted length
// is returned on success. A zero-length payload is rejected, matching the
// source's l4sap_send.
func (s *SAP) Send(data []byte) (int, error) {
	if len(data) <= 0 {
		return -1, fmt.Errorf("%w: zero-length payload", ErrInvalidArgument)
	}

	n := len(data)
	if n > frame.L4Payloadsize {
		n = frame.L4Payloadsize
	}
	payload := data[:n]

	header := frame.L4Header{Type: frame.L4Data, Seqno: s.sendSeqno, Ackno: 0, Mbz: 0}

	// The frame buffer is allocated once, fully zeroed by Go, and reused
	// unmodified across every retransmission below, so no uninitialized
	// byte is ever put on the wire on any attempt.
	buf := make([]byte, frame.L4Headersize+n)
	frame.PutL4Header(buf, header)
	copy(buf[frame.L4Headersize:], payload)

	recvBuf := make([]byte, frame.L4Framesize)

	for attempt := 0; attempt < 1+maxRetransmissions; attempt++ {
		if _, err := s.l2.SendTo(buf); err != nil {
			return -1, fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		s.notify("send", header, n)

		deadline := time.Now().Add(sendTimeout)
		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break // this attempt's budget is spent; retransmit
			}

			recvLen, timedOut, err := s.l2.RecvFromTimeout(recvBuf, remaining)
			if timedOut {
				break
			}
			if err != nil {
				// Transient L2 error or short frame: re-wait within the
				// current attempt rather than immediately consuming a
				// retry (see DESIGN.md Open Question 1).
				log.WithError(err).Debug("l4: transient error while waiting for ACK")
				continue
			}
			if recvLen < frame.L4Headersize {
				continue
			}

			recvHeader := frame.ParseL4Header(recvBuf[:recvLen])
			payloadLen := recvLen - frame.L4Headersize

			switch recvHeader.Type {
			case frame.L4Reset:
				s.notify("recv", recvHeader, 0)
				return -1, ErrQuit

			case frame.L4Ack:
				if recvHeader.Ackno == frame.OtherSeq(s.sendSeqno) {
					s.notify("recv", recvHeader, 0)
					s.sendSeqno = frame.OtherSeq(s.sendSeqno)
					return n, nil
				}
				// Duplicate or stale ACK: ignore, keep waiting.
				continue

			case frame.L4Data:
				s.notify("recv", recvHeader, payloadLen)
				s.stashOrReack(recvHeader, recvBuf[frame.L4Headersize:recvLen])
				continue

			default:
				continue
			}
		}
	}

	log.WithFields(log.Fields{"attempts": 1 + maxRetransmissions}).Warn("l4: send exhausted retries")
	return -1, ErrSendFailed
}

// stashOrReack handles an unexpected DATA frame received while Send is
// waiting for an ACK: it always ACKs the frame, and stashes it into the
// pending slot only if that slot is currently empty, per spec.md §4.2's
// "send only writes it when empty" rule.
func (s *SAP) stashOrReack(header frame.L4Header, payload []byte) {
	ackHeader := frame.L4Header{Type: frame.L4Ack, Ackno: frame.OtherSeq(header.Seqno)}
	if err := s.sendControl(ackHeader); err != nil {
		log.WithError(err).Debug("l4: failed to ack unexpected DATA during send")
	}

	if s.pending == nil {
		s.pending = &pendingFrame{
			header:  header,
			payload: append([]byte(nil), payload...),
		}
	}
}
