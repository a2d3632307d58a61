package swtpcfg

import (
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// WatchLogLevel watches the config file at path and re-applies its
// Logging.Level to logrus's global level whenever the file is written.
// Only the log level is live-reloaded: the peer address is fixed for the
// lifetime of an l4.SAP, since re-pointing a session mid-flight would be
// exactly the connection-establishment handshake spec.md declares a
// non-goal. The returned stop function closes the watcher.
func WatchLogLevel(path string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				applyLogLevel(path)

			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(werr).Debug("swtpcfg: watcher error")

			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

func applyLogLevel(path string) {
	conf, err := Load(path)
	if err != nil {
		log.WithError(err).Warn("swtpcfg: reload failed, keeping previous log level")
		return
	}

	level, err := log.ParseLevel(conf.Logging.Level)
	if err != nil {
		log.WithError(err).WithField("level", conf.Logging.Level).Warn("swtpcfg: invalid log level")
		return
	}

	log.SetLevel(level)
	log.WithField("level", level).Info("swtpcfg: log level reloaded")
}
