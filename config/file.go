package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout.  Pointer fields distinguish an
// absent key from an explicit zero value.
type fileConfig struct {
	Socket       *string        `yaml:"socket"`
	Shell        *string        `yaml:"shell"`
	PTY          *bool          `yaml:"pty"`
	WriteTimeout *time.Duration `yaml:"write_timeout"`
	GracePeriod  *time.Duration `yaml:"grace_period"`
	Verbose      *int           `yaml:"verbose"`
	Stats        *bool          `yaml:"stats"`
}

// LoadFile overlays the YAML document at path onto cfg.  Durations use
// Go syntax ("250ms", "5s").  Unknown keys are rejected so typos do
// not silently fall back to defaults.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if fc.Socket != nil {
		cfg.SocketPath = *fc.Socket
	}
	if fc.Shell != nil {
		cfg.Shell = *fc.Shell
	}
	if fc.PTY != nil {
		cfg.PTY = *fc.PTY
	}
	if fc.WriteTimeout != nil {
		cfg.WriteTimeout = *fc.WriteTimeout
	}
	if fc.GracePeriod != nil {
		cfg.GracePeriod = *fc.GracePeriod
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.Stats != nil {
		cfg.Stats = *fc.Stats
	}
	cfg.ConfigFile = path
	return nil
}
