// Command swtpwatch watches a directory and, on every create or write
// event for a regular file, streams the whole file to a peer as a
// sequence of L4 payloads, one Send call per chunk. A file written in
// several steps is sent once per event.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l4"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <peer-ip> <peer-port> <watch-dir>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  sends each file created or written in watch-dir as a chunked stream of payloads\n")
}

func sendFile(sap *l4.SAP, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		log.WithField("file", path).Debug("swtpwatch: skipping empty file")
		return nil
	}

	for offset := 0; offset < len(data); offset += frame.L4Payloadsize {
		end := offset + frame.L4Payloadsize
		if end > len(data) {
			end = len(data)
		}
		if _, err := sap.Send(data[offset:end]); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"file":  path,
		"bytes": len(data),
	}).Info("swtpwatch: sent file")
	return nil
}

func main() {
	if len(os.Args) != 4 {
		showUsage()
		os.Exit(1)
	}

	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "swtpwatch: invalid port %q: %v\n", os.Args[2], err)
		os.Exit(1)
	}
	dir := os.Args[3]

	sap, err := l4.NewSAP(os.Args[1], port)
	if err != nil {
		log.WithError(err).Fatal("swtpwatch: failed to create l4 SAP")
	}
	defer sap.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Fatal("swtpwatch: failed to create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		log.WithError(err).Fatal("swtpwatch: failed to watch directory")
	}

	log.WithField("dir", dir).Info("swtpwatch: watching")
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if info, statErr := os.Stat(event.Name); statErr != nil || info.IsDir() {
				continue
			}
			if err := sendFile(sap, event.Name); err != nil {
				log.WithError(err).WithField("file", event.Name).Warn("swtpwatch: failed to send file")
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(werr).Warn("swtpwatch: watcher error")
		}
	}
}
