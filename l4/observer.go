package l4

import (
	"time"

	"github.com/nsl-uw/swtp/frame"
)

// Event describes one frame sent or delivered by an SAP, for diagnostics
// consumers such as the audit and diag packages.
type Event struct {
	// Direction is "send" for a frame this SAP transmitted (DATA, ACK, or
	// RESET) or "recv" for a frame received from the peer: a DATA frame
	// (on arrival, whether delivered, stashed or stale, and again when a
	// stashed frame is delivered from the pending slot), a RESET, or an ACK
	// that completes a Send. Duplicate ACKs and unknown types are not
	// reported.
	Direction string

	Header     frame.L4Header
	PayloadLen int
	At         time.Time
}

// Observer receives Events synchronously as they happen. Observers must
// not block; they must never influence the SAP's control flow (spec.md
// §7: "Logging is advisory and must not alter control flow" extends to
// any Observer).
type Observer func(Event)
