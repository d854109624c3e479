package core

import "fmt"

// State is the controller's lifecycle phase.
type State int

const (
	// Starting: binding the endpoint, spawning the process and switching
	// the terminal to raw mode.
	Starting State = iota
	// Running: output fan-out, terminal input and the listener are all
	// active.
	Running
	// Draining: the process exited or shutdown was requested; new
	// clients are refused and the relays are wound down.
	Draining
	// Closed: the terminal is restored and the endpoint removed.
	Closed
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// transition moves the controller to next and fires OnStateChange.
// The lifecycle only moves forward; a request to move back is ignored.
func (c *Controller) transition(next State) {
	c.mu.Lock()
	prev := c.state
	if next <= prev {
		c.mu.Unlock()
		return
	}
	c.state = next
	fn := c.OnStateChange
	c.mu.Unlock()

	c.Logger.Debug("session %s → %s", prev, next)
	if fn != nil {
		fn(prev, next)
	}
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
