//go:build linux
// +build linux

package l2

import (
	"net"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// applySockopts tunes the underlying UDP socket on Linux: it allows quick
// rebinding of the local port after a restart and grows the receive buffer
// so a burst of retransmissions doesn't get dropped by the kernel before
// L2 even sees it. Failures here are logged and otherwise ignored, mirroring
// the teacher's own best-effort Linux socket tuning in
// pkg/cla/mtcp/client_dial_linux.go.
func applySockopts(conn *net.UDPConn) {
	const rcvBufBytes = 1 << 20

	rawConn, err := conn.SyscallConn()
	if err != nil {
		log.WithError(err).Debug("l2: SyscallConn unavailable, skipping socket tuning")
		return
	}

	ctrlErr := rawConn.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			log.WithError(err).Debug("l2: SO_REUSEADDR failed")
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBufBytes); err != nil {
			log.WithError(err).Debug("l2: SO_RCVBUF failed")
		}
	})
	if ctrlErr != nil {
		log.WithError(ctrlErr).Debug("l2: socket control failed, skipping socket tuning")
	}
}
