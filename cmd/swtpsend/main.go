// Command swtpsend reads a single payload from stdin and sends it to a
// peer over l4, then exits. It is the one-shot counterpart to swtprecv.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l4"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <peer-ip> <peer-port>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  sends stdin as a single payload, truncated to %d bytes\n", frame.L4Payloadsize)
}

func main() {
	if len(os.Args) != 3 {
		showUsage()
		os.Exit(1)
	}

	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "swtpsend: invalid port %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}

	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.WithError(err).Fatal("swtpsend: failed to read stdin")
	}

	sap, err := l4.NewSAP(os.Args[1], port)
	if err != nil {
		log.WithError(err).Fatal("swtpsend: failed to create l4 SAP")
	}
	defer sap.Close()

	n, err := sap.Send(payload)
	if err != nil {
		log.WithError(err).Fatal("swtpsend: send failed")
	}

	log.WithField("bytes", n).Info("swtpsend: sent")
}
