// Package config loads the runtime configuration for the flow
// synchronization engine: where the switch management sockets live,
// default DSCP marking, reconnect backoff, and the tunnel metadata
// option triple the engine negotiates.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TunnelOption identifies the (class, type, length) triple the engine
// asks the switch to bind to a tunnel metadata field.
type TunnelOption struct {
	Class uint16 `yaml:"class"`
	Type  uint8  `yaml:"type"`
	Len   uint8  `yaml:"len"`
}

// Config is the engine's runtime configuration.
type Config struct {
	// RunDir is the directory holding "<bridge>.mgmt" Unix sockets.
	RunDir string `yaml:"run_dir"`

	// DSCP is read from the configuration file; nothing applies it to
	// the switch connection.
	DSCP uint8 `yaml:"dscp"`

	// MaxBackoff bounds the switch link's reconnect backoff.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// TunnelOption is the (class, type, len) triple negotiated
	// against the switch's TLV table.
	TunnelOption TunnelOption `yaml:"tunnel_option"`

	// MaxDrainPerTick caps how many inbound messages are consumed
	// from the link in a single Run call.
	MaxDrainPerTick int `yaml:"max_drain_per_tick"`
}

// Default returns the configuration used when no file is supplied:
// 5 second max backoff, best-effort DSCP, the Geneve option triple
// (class 0xffff, type 3, len 4), and a 50-message drain cap per tick.
func Default() Config {
	return Config{
		RunDir:          "/var/run/openvswitch",
		DSCP:            0,
		MaxBackoff:      5 * time.Second,
		TunnelOption:    TunnelOption{Class: 0xffff, Type: 3, Len: 4},
		MaxDrainPerTick: 50,
	}
}

// Load reads a YAML configuration file, applying Default() for any
// field the file leaves zero-valued.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return cfg, nil
}

// Target derives the Unix-domain socket address the engine should
// connect to for the given bridge name.
func (c Config) Target(bridge string) string {
	return fmt.Sprintf("unix:%s/%s.mgmt", c.RunDir, bridge)
}
