// Package swtpcfg loads the TOML configuration shared by the swtp command
// line tools: this node's label, which peer to talk to, how to log, and
// where to expose diagnostics. It has no local bind port setting; the
// local UDP port is chosen by the operating system.
package swtpcfg

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the top level TOML document.
type Config struct {
	Core        CoreConf
	Peer        PeerConf
	Logging     LogConf
	Diagnostics DiagConf
}

// CoreConf describes this node.
type CoreConf struct {
	// NodeLabel is a human-readable name for this node, used in logs and
	// discovery announcements. It plays no role on the wire.
	NodeLabel string `toml:"node-label"`
}

// PeerConf identifies the single peer this node's l4.SAP talks to.
type PeerConf struct {
	IP   string
	Port int
}

// LogConf configures logrus.
type LogConf struct {
	Level        string `toml:"level"`
	Format       string `toml:"format"`
	ReportCaller bool   `toml:"report-caller"`
}

// DiagConf configures the diagnostics HTTP server.
type DiagConf struct {
	Listen string `toml:"listen"`
}

// Load parses the TOML file at path and validates it.
func Load(path string) (Config, error) {
	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return Config{}, fmt.Errorf("swtpcfg: decode %s: %w", path, err)
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate checks the fields l4.SAP itself will need at construction time,
// so misconfiguration is reported before any socket is opened.
func (c Config) Validate() error {
	if c.Peer.IP == "" {
		return fmt.Errorf("swtpcfg: peer.ip is empty")
	}
	if c.Peer.Port < 1024 {
		return fmt.Errorf("swtpcfg: peer.port %d is reserved, must be >= 1024", c.Peer.Port)
	}
	return nil
}
