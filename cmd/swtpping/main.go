// Command swtpping repeatedly sends a timestamped payload to a peer and
// waits for the peer to echo it back (as swtpd's echo loop does),
// reporting round-trip time and loss.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l4"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <peer-ip> <peer-port>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  pings an echoing peer once per second until interrupted\n")
}

type pinger struct {
	sap       *l4.SAP
	closeChan chan os.Signal
	sent      int
	acked     int
}

func (p *pinger) ping() {
	stamp := time.Now()
	payload := []byte(stamp.Format(time.RFC3339Nano))

	p.sent++
	if _, err := p.sap.Send(payload); err != nil {
		log.WithError(err).Warn("swtpping: send failed")
		return
	}

	buf := make([]byte, frame.L4Payloadsize)
	n, err := p.sap.Recv(buf)
	if err != nil {
		log.WithError(err).Warn("swtpping: echo not received")
		return
	}

	rtt := time.Since(stamp)
	p.acked++
	log.WithFields(log.Fields{
		"rtt":   rtt,
		"bytes": n,
	}).Info("swtpping: reply")
}

func (p *pinger) handle() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.closeChan:
			return
		case <-ticker.C:
			p.ping()
		}
	}
}

func main() {
	if len(os.Args) != 3 {
		showUsage()
		os.Exit(1)
	}

	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "swtpping: invalid port %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}

	sap, err := l4.NewSAP(os.Args[1], port)
	if err != nil {
		log.WithError(err).Fatal("swtpping: failed to create l4 SAP")
	}
	defer sap.Close()

	p := &pinger{sap: sap, closeChan: make(chan os.Signal, 1)}
	signal.Notify(p.closeChan, os.Interrupt)

	p.handle()

	log.WithFields(log.Fields{
		"sent":  p.sent,
		"acked": p.acked,
		"loss":  fmt.Sprintf("%.1f%%", 100*float64(p.sent-p.acked)/float64(p.sent)),
	}).Info("swtpping: summary")
}
