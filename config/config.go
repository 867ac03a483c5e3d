// Package config defines the on-disk session configuration (§6's
// configuration table), loaded with yaml.v3 the way
// bsky.watch/labeler/config/config.go loads its policy file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables a session accepts, either from a
// YAML file or overridden by CLI flags (§6).
type Config struct {
	// StreamTimeout is the idle deadline applied to each read from the
	// stream driver: no frame within this window ends the session
	// successfully (§4.5, §4.7's Idle condition). Zero disables it.
	StreamTimeout time.Duration `yaml:"stream_timeout"`

	// ConnectTimeout bounds the websocket handshake (§4.5).
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// SaveToDB enables the durable writer (§4.4). When false, the
	// session runs with the reducer only.
	SaveToDB bool `yaml:"save_to_db"`

	// DBFile is the path to the embedded sqlite database used when
	// SaveToDB is true.
	DBFile string `yaml:"db_file"`

	// BufferSize sets the stream driver's channel capacity (§5).
	BufferSize int `yaml:"buffer_size"`

	// PLCDirectory is the host consulted to resolve did:plc documents
	// (§6's Resolver).
	PLCDirectory string `yaml:"plc_directory"`
}

// Default returns the configuration used when no file and no flags
// override a setting.
func Default() Config {
	return Config{
		StreamTimeout:  5 * time.Second,
		ConnectTimeout: 10 * time.Second,
		SaveToDB:       false,
		DBFile:         "labels.db",
		BufferSize:     10000,
		PLCDirectory:   "plc.directory",
	}
}

// Load reads and parses a YAML configuration file at path, starting
// from Default() so an omitted field keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}
