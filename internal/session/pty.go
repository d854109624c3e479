package session

import (
	"fmt"

	"github.com/creack/pty"
)

// startPTY runs the child on a new pseudo-terminal.  The master end is
// both the input and the output channel; the terminal itself merges
// stdout and stderr.  pty.Start makes the child a session leader, which
// also makes it the leader of its process group.
func (s *Session) startPTY() error {
	ptmx, err := pty.Start(s.cmd)
	if err != nil {
		return fmt.Errorf("start on pty: %w", err)
	}
	s.input = ptmx
	s.output = ptmx
	return nil
}
