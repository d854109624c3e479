package core

import (
	"stdiosock/config"
	"stdiosock/internal/metrics"
	"stdiosock/internal/terminal"
	"stdiosock/internal/transport"
	"stdiosock/util"
)

// Build constructs a Controller for the given configuration, attached
// to the process's own console.  Callers may replace Terminal, Metrics
// or OnStateChange before calling Run.
func Build(cfg *config.Config, logger *util.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = util.NewLogger(cfg.Verbose)
	}

	return &Controller{
		Command:      cfg.Command,
		Shell:        cfg.Shell,
		PTY:          cfg.PTY,
		SocketPath:   cfg.SocketPath,
		WriteTimeout: cfg.WriteTimeout,
		GracePeriod:  cfg.GracePeriod,
		Interrupt:    config.InterruptUnit,
		Terminal:     terminal.Stdio(),
		Dialer:       &transport.UnixDialer{Timeout: transport.DefaultProbeTimeout},
		Metrics:      metrics.New(),
		Logger:       logger,
	}, nil
}
