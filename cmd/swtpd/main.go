// Command swtpd runs a long-lived swtp node: it opens an l4.SAP to the
// configured peer, echoes every received payload back, and serves an
// optional diagnostics endpoint and delivery journal alongside it.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nsl-uw/swtp/audit"
	"github.com/nsl-uw/swtp/diag"
	"github.com/nsl-uw/swtp/discovery"
	"github.com/nsl-uw/swtp/frame"
	"github.com/nsl-uw/swtp/l4"
	"github.com/nsl-uw/swtp/swtpcfg"
)

func waitSigint() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	conf, err := swtpcfg.Load(os.Args[1])
	if err != nil {
		log.WithError(err).Fatal("swtpd: failed to load config")
	}

	if level, lvlErr := log.ParseLevel(conf.Logging.Level); lvlErr == nil {
		log.SetLevel(level)
	}
	log.SetReportCaller(conf.Logging.ReportCaller)

	switch conf.Logging.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("swtpd: unknown logging format")
	}

	stopWatch, err := swtpcfg.WatchLogLevel(os.Args[1])
	if err != nil {
		log.WithError(err).Warn("swtpd: log level hot-reload disabled")
	} else {
		defer stopWatch()
	}

	store, err := audit.Open(".")
	if err != nil {
		log.WithError(err).Fatal("swtpd: failed to open audit journal")
	}
	defer store.Close()

	diagServer := diag.NewServer(conf.Diagnostics.Listen)
	go func() {
		if err := diagServer.ListenAndServe(); err != nil {
			log.WithError(err).Error("swtpd: diagnostics server stopped")
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		diagServer.Shutdown(ctx)
	}()

	observer := fanOutObserver(store.Observer(), diagServer.Observer())
	sap, err := l4.NewSAP(conf.Peer.IP, conf.Peer.Port, l4.WithObserver(observer))
	if err != nil {
		log.WithError(err).Fatal("swtpd: failed to create l4 SAP")
	}
	defer sap.Close()

	if conf.Core.NodeLabel != "" {
		mgr, discErr := discovery.NewManager(discovery.Announcement{
			NodeLabel: conf.Core.NodeLabel,
			Port:      uint16(conf.Peer.Port),
		}, 10*time.Second)
		if discErr != nil {
			log.WithError(discErr).Warn("swtpd: discovery disabled")
		} else {
			defer mgr.Close()
			go logDiscoveries(mgr)
		}
	}

	go echoLoop(sap)

	log.WithField("peer", conf.Peer).Info("swtpd: running")
	waitSigint()
	log.Info("swtpd: shutting down")
}

func fanOutObserver(observers ...l4.Observer) l4.Observer {
	return func(ev l4.Event) {
		for _, o := range observers {
			o(ev)
		}
	}
}

func logDiscoveries(mgr *discovery.Manager) {
	for peer := range mgr.Peers() {
		log.WithFields(log.Fields{
			"label":   peer.NodeLabel,
			"address": peer.Address,
			"port":    peer.Port,
		}).Info("swtpd: discovered candidate peer")
	}
}

func echoLoop(sap *l4.SAP) {
	buf := make([]byte, frame.L4Payloadsize)
	for {
		n, err := sap.Recv(buf)
		if err != nil {
			log.WithError(err).Info("swtpd: echo loop stopped")
			return
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		if _, err := sap.Send(payload); err != nil {
			log.WithError(err).Warn("swtpd: failed to echo payload")
		}
	}
}
