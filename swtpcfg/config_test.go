package swtpcfg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nsl-uw/swtp/swtpcfg"
)

const sampleConfig = `
[core]
node-label = "alice"

[peer]
ip = "127.0.0.1"
port = 5555

[logging]
level = "debug"
format = "text"

[diagnostics]
listen = ":8080"
`

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swtp.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	conf, err := swtpcfg.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if conf.Peer.IP != "127.0.0.1" || conf.Peer.Port != 5555 {
		t.Fatalf("unexpected peer config: %+v", conf.Peer)
	}
	if conf.Core.NodeLabel != "alice" {
		t.Fatalf("unexpected node label: %q", conf.Core.NodeLabel)
	}
}

func TestLoadRejectsLowPeerPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swtp.toml")
	bad := `
[peer]
ip = "127.0.0.1"
port = 80
`
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := swtpcfg.Load(path); err == nil {
		t.Fatalf("expected validation error for port < 1024")
	}
}

func TestLoadRejectsMissingPeerIP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swtp.toml")
	bad := `
[peer]
port = 5555
`
	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := swtpcfg.Load(path); err == nil {
		t.Fatalf("expected validation error for missing peer ip")
	}
}
