package discovery

import (
	"fmt"
	"time"

	"github.com/schollz/peerdiscovery"
	log "github.com/sirupsen/logrus"
)

const (
	// MulticastAddress4 is the default IPv4 multicast group swtp nodes
	// announce themselves on.
	MulticastAddress4 = "224.23.23.42"

	// MulticastPort is the default UDP port peerdiscovery listens on for
	// announcements. It has nothing to do with the l4.SAP peer port each
	// node advertises inside its Announcement payload.
	MulticastPort = 35023
)

// Peer is a candidate remote node found on the network.
type Peer struct {
	Announcement
	Address string
}

// Manager broadcasts this node's Announcement and collects Peers reported
// by other nodes doing the same.
type Manager struct {
	stopChan chan struct{}
	peers    chan Peer
}

// Peers returns the channel new discoveries are published on. The caller is
// expected to drain it; discoveries during a full channel are dropped.
func (m *Manager) Peers() <-chan Peer {
	return m.peers
}

// Close stops broadcasting and listening.
func (m *Manager) Close() {
	close(m.stopChan)
}

func (m *Manager) notify(discovered peerdiscovery.Discovered) {
	announcement, err := Decode(discovered.Payload)
	if err != nil {
		log.WithError(err).WithField("peer", discovered.Address).
			Warn("discovery: failed to parse announcement")
		return
	}

	peer := Peer{Announcement: announcement, Address: discovered.Address}
	select {
	case m.peers <- peer:
	default:
		log.WithField("peer", peer).Debug("discovery: dropped announcement, peers channel full")
	}
}

// NewManager starts broadcasting self on the local network every interval
// and listening for other nodes' announcements. It never blocks past the
// initial one second discovery setup.
func NewManager(self Announcement, interval time.Duration) (*Manager, error) {
	payload, err := Encode(self)
	if err != nil {
		return nil, fmt.Errorf("discovery: encode announcement: %w", err)
	}

	m := &Manager{
		stopChan: make(chan struct{}),
		peers:    make(chan Peer, 16),
	}

	settings := peerdiscovery.Settings{
		Limit:            -1,
		Port:             fmt.Sprintf("%d", MulticastPort),
		MulticastAddress: MulticastAddress4,
		Payload:          payload,
		Delay:            interval,
		TimeLimit:        -1,
		StopChan:         m.stopChan,
		AllowSelf:        false,
		IPVersion:        peerdiscovery.IPv4,
		Notify:           m.notify,
	}

	errChan := make(chan error, 1)
	go func() {
		_, discoverErr := peerdiscovery.Discover(settings)
		errChan <- discoverErr
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return nil, fmt.Errorf("discovery: start: %w", err)
		}
	case <-time.After(time.Second):
	}

	log.WithFields(log.Fields{
		"node-label": self.NodeLabel,
		"port":       self.Port,
		"interval":   interval,
	}).Info("discovery: manager started")

	return m, nil
}
