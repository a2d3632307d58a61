// Command swtprecv waits for a single payload from a peer over l4 and
// writes it to stdout, then exits. It is the one-shot counterpart to
// swtpsend.
package main

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l4"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <peer-ip> <peer-port>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  waits for one payload and writes it to stdout\n")
}

func main() {
	if len(os.Args) != 3 {
		showUsage()
		os.Exit(1)
	}

	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "swtprecv: invalid port %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}

	sap, err := l4.NewSAP(os.Args[1], port)
	if err != nil {
		log.WithError(err).Fatal("swtprecv: failed to create l4 SAP")
	}
	defer sap.Close()

	buf := make([]byte, frame.L4Payloadsize)
	n, err := sap.Recv(buf)
	if err != nil {
		log.WithError(err).Fatal("swtprecv: recv failed")
	}

	if _, err := os.Stdout.Write(buf[:n]); err != nil {
		log.WithError(err).Fatal("swtprecv: failed to write stdout")
	}
}
