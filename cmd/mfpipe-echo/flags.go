package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliConfig holds user-supplied flag values prior to validation, mirroring
// the rtmp-server demo's cliConfig/parseFlags shape.
type cliConfig struct {
	mode        string
	addr        string
	channel     string
	logLevel    string
	mtu         int
	interval    string
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("mfpipe-echo", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.mode, "mode", "create", "Pipe role: create (listen) or open (connect)")
	fs.StringVar(&cfg.addr, "addr", "udp://127.0.0.1:30000", "Peer address, udp://host:port")
	fs.StringVar(&cfg.channel, "channel", "echo", "Channel name to exchange Buffer objects on")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.IntVar(&cfg.mtu, "mtu", 0, "Transport MTU override (0 uses the default)")
	fs.StringVar(&cfg.interval, "interval", "1s", "How often the open side sends a message")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.mode {
	case "create", "open":
	default:
		return nil, fmt.Errorf("invalid -mode %q, must be create or open", cfg.mode)
	}
	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid -log-level %q", cfg.logLevel)
	}
	if cfg.channel == "" {
		return nil, errors.New("-channel must not be empty")
	}
	if cfg.mtu < 0 {
		return nil, errors.New("-mtu must not be negative")
	}

	return cfg, nil
}
