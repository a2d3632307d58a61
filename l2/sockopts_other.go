//go:build !linux
// +build !linux

package l2

import "net"

// applySockopts is a no-op on non-Linux platforms; the socket tuning in
// sockopts_linux.go is a Linux-specific optimization, not a correctness
// requirement.
func applySockopts(conn *net.UDPConn) {}
