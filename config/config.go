// Package config loads the per-node JSON configuration: listen
// address, content-store capacity, static peer list, and data
// directory. There is no ecosystem CLI/config framework wired here —
// loading goes through codec.Codec plus field validation, preferring
// stdlib-backed parsing over a config-parsing library, matching the
// stdlib flag parsing in cmd/copernica.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/copernica-icn/copernica/codec"
)

// ErrInvalidConfig reports a config that decoded but failed field
// validation (empty listen address, non-positive store size, missing
// data directory).
var ErrInvalidConfig = errors.New("invalid config")

// Config is the per-node configuration shape named here.
type Config struct {
	ListenAddr       string   `json:"listen_addr"`
	ContentStoreSize int      `json:"content_store_size"`
	Peers            []string `json:"peers"`
	DataDir          string   `json:"data_dir"`
}

// Load reads and validates the JSON config file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	var cfg Config
	if _, err := codec.Codec.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports whether cfg has every field a broker node needs to
// start: a listen address, a positive content-store capacity, and a
// data directory for the response cache's backing store.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.Wrap(ErrInvalidConfig, "listen_addr is required")
	}
	if c.ContentStoreSize <= 0 {
		return errors.Wrap(ErrInvalidConfig, "content_store_size must be positive")
	}
	if c.DataDir == "" {
		return errors.Wrap(ErrInvalidConfig, "data_dir is required")
	}
	return nil
}
