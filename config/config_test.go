package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.SocketPath != "/tmp/stdio.sock" {
		t.Errorf("SocketPath = %q, want /tmp/stdio.sock", cfg.SocketPath)
	}
	if cfg.Shell != "/bin/sh" {
		t.Errorf("Shell = %q, want /bin/sh", cfg.Shell)
	}
	if cfg.GracePeriod != DefaultGracePeriod {
		t.Errorf("GracePeriod = %v, want %v", cfg.GracePeriod, DefaultGracePeriod)
	}
	if cfg.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want %v", cfg.WriteTimeout, DefaultWriteTimeout)
	}
	if cfg.PTY || cfg.Stats {
		t.Errorf("unexpected non-zero defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Command = "echo hi"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty command", func(c *Config) { c.Command = "" }, true},
		{"blank command", func(c *Config) { c.Command = "   " }, true},
		{"empty socket", func(c *Config) { c.SocketPath = "" }, true},
		{"relative socket", func(c *Config) { c.SocketPath = "stdio.sock" }, true},
		{"long socket", func(c *Config) { c.SocketPath = "/tmp/" + strings.Repeat("x", 120) }, true},
		{"empty shell", func(c *Config) { c.Shell = "" }, true},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -time.Second }, true},
		{"negative grace", func(c *Config) { c.GracePeriod = -time.Second }, true},
		{"zero grace", func(c *Config) { c.GracePeriod = 0 }, false},
		{"pty", func(c *Config) { c.PTY = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantSub string // substring expected in error
	}{
		{
			name:    "missing command has hint",
			cfg:     Config{SocketPath: "/tmp/s.sock", Shell: "/bin/sh"},
			wantSub: "hint:",
		},
		{
			name:    "relative socket suggests absolute",
			cfg:     Config{Command: "cat", SocketPath: "s.sock", Shell: "/bin/sh"},
			wantSub: "did you mean",
		},
		{
			name:    "names the field",
			cfg:     Config{Command: "cat", SocketPath: "/tmp/s.sock"},
			wantSub: "--shell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestString(t *testing.T) {
	cfg := Default()
	cfg.Command = "bash -i"
	out := cfg.String()
	for _, want := range []string{"command:       bash -i", "socket:        /tmp/stdio.sock", "pty:           false"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "config-file") {
		t.Error("config-file line should be omitted when no file was loaded")
	}
}
