// Package faultinj provides a scriptable lossy/corrupting UDP relay used
// only by tests to exercise L2's checksum discard and L4's retransmission
// logic. It is test harnessing, not shipped protocol logic, per spec.md
// §1's out-of-scope list.
package faultinj

import (
	"math/rand"
	"net"
	"sync"
)

// Relay forwards UDP datagrams between two dynamically allocated local
// ports, optionally dropping or corrupting them according to Policy. Two
// l2.SAP instances configured to talk to the relay's two ports can then be
// exercised against a scripted loss pattern.
//
// Each side's sender address is learned from the first datagram it sends,
// so both l2.SAP peers must send at least once (a RESET or DATA frame)
// before the relay can forward anything back to them.
type Relay struct {
	// LeftAddr and RightAddr are the addresses peers should dial to reach
	// each other through this Relay.
	LeftAddr, RightAddr string

	left, right *net.UDPConn
	policy      Policy
	stop        chan struct{}

	mu        sync.Mutex
	leftPeer  *net.UDPAddr
	rightPeer *net.UDPAddr
}

// Policy decides, for each datagram forwarded in a given direction,
// whether to drop it, corrupt one bit of it, or pass it through
// unmodified.
type Policy struct {
	// DropProbability is the chance, in [0,1], that a datagram is dropped.
	DropProbability float64

	// CorruptProbability is the chance, in [0,1], that a datagram has a
	// single random bit flipped before forwarding.
	CorruptProbability float64

	// Rand is used for decisions; if nil, the math/rand global source is
	// used.
	Rand *rand.Rand
}

func (p Policy) roll() float64 {
	if p.Rand != nil {
		return p.Rand.Float64()
	}
	return rand.Float64()
}

// NewRelay starts a Relay with the given Policy applied to both
// directions.
func NewRelay(policy Policy) (*Relay, error) {
	left, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}
	right, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		left.Close()
		return nil, err
	}

	r := &Relay{
		LeftAddr:  left.LocalAddr().String(),
		RightAddr: right.LocalAddr().String(),
		left:      left,
		right:     right,
		policy:    policy,
		stop:      make(chan struct{}),
	}

	go r.pump(r.left, r.right, true)
	go r.pump(r.right, r.left, false)

	return r, nil
}

// SetPeers pins the relay's forwarding targets directly, instead of
// waiting for both sides to send at least one datagram before anything
// can be forwarded. Tests that need deterministic control over exactly
// which packet in a sequence gets dropped or corrupted should call this
// right after constructing both endpoints, using their real bound
// addresses (l2.SAP.LocalAddr / l4.SAP.LocalAddr).
func (r *Relay) SetPeers(left, right *net.UDPAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leftPeer = left
	r.rightPeer = right
}

// pump reads datagrams arriving on from, records the sender as that side's
// learned peer, and forwards (subject to Policy) to whichever address has
// been learned on the to side.
func (r *Relay) pump(from, to *net.UDPConn, fromIsLeft bool) {
	buf := make([]byte, 65535)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		n, srcAddr, err := from.ReadFromUDP(buf)
		if err != nil {
			return
		}

		r.mu.Lock()
		var dest *net.UDPAddr
		if fromIsLeft {
			r.leftPeer = srcAddr
			dest = r.rightPeer
		} else {
			r.rightPeer = srcAddr
			dest = r.leftPeer
		}
		r.mu.Unlock()

		if dest == nil {
			// The other side has never sent anything yet; nothing to
			// forward to.
			continue
		}

		datagram := append([]byte(nil), buf[:n]...)

		if r.policy.roll() < r.policy.DropProbability {
			continue
		}
		if r.policy.roll() < r.policy.CorruptProbability && len(datagram) > 0 {
			idx := rand.Intn(len(datagram))
			bit := uint(rand.Intn(8))
			datagram[idx] ^= 1 << bit
		}

		_, _ = to.WriteToUDP(datagram, dest)
	}
}

// Close stops the Relay and releases its sockets.
func (r *Relay) Close() error {
	close(r.stop)
	r.left.Close()
	r.right.Close()
	return nil
}
