// Package l4 implements the L4 service access point: a reliable
// stop-and-wait transport built on l2 that guarantees in-order,
// exactly-once delivery of payloads between two peers using
// alternating-bit sequence numbers, ACKs, retransmission, and a session
// reset signal. This is the core of the module.
package l4

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l2"
)

const (
	// maxRetransmissions is the number of retransmissions Send attempts
	// after the first transmission, for 5 total transmissions.
	maxRetransmissions = 4

	// sendTimeout is the per-attempt wait for a matching ACK.
	sendTimeout = time.Second

	// resetBurst is the number of best-effort RESET frames Close sends.
	resetBurst = 3
)

// ErrQuit is returned by Send or Recv when the peer has sent an L4_RESET,
// tearing the session down.
var ErrQuit = errors.New("l4: peer reset the session")

// ErrSendFailed is returned by Send when the retransmission budget is
// exhausted without a matching ACK, or when the underlying L2 send fails
// outright.
var ErrSendFailed = errors.New("l4: send failed")

// ErrInvalidArgument is returned for invalid calls: a peer port below 1024
// to NewSAP, a zero-length payload to Send, or a zero-length buffer to
// Recv. A non-empty Recv buffer shorter than the payload is not an error;
// the payload is truncated to fit.
var ErrInvalidArgument = errors.New("l4: invalid argument")

// pendingFrame is the single-slot buffer holding one received DATA frame
// that arrived while Send was waiting for its ACK, so a subsequent Recv
// can deliver it. At most one frame is ever held at a time.
type pendingFrame struct {
	header  frame.L4Header
	payload []byte
}

// SAP is an L4 service access point. It exclusively owns one l2.SAP. Like
// l2.SAP, it is single-threaded and not re-entrant: the caller must
// serialize Send and Recv calls on a given SAP.
type SAP struct {
	l2 *l2.SAP

	sendSeqno     uint8
	expectedSeqno uint8
	pending       *pendingFrame

	observer Observer
}

// LocalAddr returns the local address of the underlying l2 socket. It
// exists mainly so tests can pin a faultinj.Relay's forwarding targets
// without waiting for address auto-discovery.
func (s *SAP) LocalAddr() net.Addr {
	return s.l2.LocalAddr()
}

// Option configures an SAP at construction time.
type Option func(*SAP)

// WithObserver attaches an Observer that is invoked synchronously for
// every frame this SAP sends or receives (see Event). Observers must not block or
// mutate the SAP; they exist purely for diagnostics (see the audit and
// diag packages) and, per spec.md §7, must never alter control flow.
func WithObserver(o Observer) Option {
	return func(s *SAP) { s.observer = o }
}

// NewSAP creates the underlying l2.SAP and initializes protocol state.
// Ports below 1024 are rejected, matching the source's l4sap_create.
func NewSAP(peerIP string, peerPort int, opts ...Option) (*SAP, error) {
	if peerPort < 1024 {
		return nil, fmt.Errorf("%w: port %d is reserved, must be >= 1024", ErrInvalidArgument, peerPort)
	}

	underlying, err := l2.NewSAP(peerIP, peerPort)
	if err != nil {
		return nil, fmt.Errorf("l4: %w", err)
	}

	sap := &SAP{l2: underlying}
	for _, opt := range opts {
		opt(sap)
	}

	log.WithFields(log.Fields{"peer": fmt.Sprintf("%s:%d", peerIP, peerPort)}).Debug("l4: SAP created")

	return sap, nil
}

// Close sends a burst of best-effort L4_RESET frames to help the peer
// terminate cleanly, then tears down the underlying l2.SAP. This is
// best-effort and never blocks waiting for a reply. Close is idempotent
// against a nil SAP.
func (s *SAP) Close() error {
	if s == nil || s.l2 == nil {
		return nil
	}

	var errs error
	for i := 0; i < resetBurst; i++ {
		if err := s.sendControl(frame.L4Header{Type: frame.L4Reset}); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := s.l2.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if errs != nil {
		log.WithError(errs).Debug("l4: close encountered best-effort errors")
	}
	return errs
}

// sendControl frames and sends a header-only L4 frame (ACK or RESET) with
// no payload. The frame buffer is always fully zeroed, so no
// uninitialized byte is ever transmitted even for these header-only
// frames.
func (s *SAP) sendControl(header frame.L4Header) error {
	buf := make([]byte, frame.L4Headersize)
	frame.PutL4Header(buf, header)

	if _, err := s.l2.SendTo(buf); err != nil {
		return err
	}
	s.notify("send", header, 0)
	return nil
}

func (s *SAP) notify(direction string, header frame.L4Header, payloadLen int) {
	if s.observer == nil {
		return
	}
	s.observer(Event{
		Direction:  direction,
		Header:     header,
		PayloadLen: payloadLen,
		At:         time.Now(),
	})
}
