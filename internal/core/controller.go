package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stdiosock/internal/channel"
	"stdiosock/internal/endpoint"
	"stdiosock/internal/errors"
	"stdiosock/internal/metrics"
	"stdiosock/internal/registry"
	"stdiosock/internal/relay"
	"stdiosock/internal/session"
	"stdiosock/internal/transport"
	"stdiosock/util"
)

// Controller runs one session: it binds the endpoint, spawns the
// process, mirrors the process to the local terminal and to every
// attached client, and tears everything down when the process exits or
// ctx is cancelled.
type Controller struct {
	Command      string
	Shell        string
	PTY          bool
	SocketPath   string
	WriteTimeout time.Duration
	GracePeriod  time.Duration // trailing-output drain after a natural exit
	Interrupt    byte          // client unit that ends that client's session

	Terminal Terminal
	Dialer   transport.Dialer // used to probe an existing socket file
	Metrics  *metrics.Collector
	Logger   *util.Logger

	// OnStateChange, if set, is called after every transition.
	OnStateChange func(from, to State)

	mu     sync.Mutex
	state  State
	status session.ExitStatus
	exited bool
}

// ExitStatus returns the process's status and whether it has exited.
func (c *Controller) ExitStatus() (session.ExitStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.exited
}

// Run executes the session to completion.
//
// It returns a *errors.BindError or *errors.SpawnError when startup
// fails, and nil when the process exits (whatever its exit code) or ctx
// is cancelled.  On every path the terminal is restored and the socket
// file this session created is removed before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	c.transition(Starting)

	// ── Starting ─────────────────────────────────────────────────────
	ep, err := endpoint.Listen(ctx, c.SocketPath, c.Dialer, c.Logger.With("endpoint"))
	if err != nil {
		c.transition(Closed)
		return err
	}

	out := channel.NewWriter(c.Terminal.Output())
	announce := func(msg string) {
		out.WriteString(msg + "\r\n") //nolint:errcheck
	}

	var restore func() error
	defer func() {
		c.close(ep, restore, announce)
	}()

	sess, err := session.Start(c.Command, session.Options{
		Shell:  c.Shell,
		PTY:    c.PTY,
		Logger: c.Logger.With("session"),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	restore, err = c.Terminal.MakeRaw()
	if err != nil {
		c.Logger.Warn("cannot switch terminal to raw mode: %v", err)
		restore = nil
	} else {
		c.Logger.SetRaw(true)
	}

	announce(fmt.Sprintf(msgProcessStarted, sess.PID()))
	announce(fmt.Sprintf(msgSocketCreated, ep.Path))

	// ── Running ──────────────────────────────────────────────────────
	c.transition(Running)

	clients := registry.New()
	fanin := &relay.Fanin{
		Target:    channel.NewWriter(sess.Input()),
		Interrupt: c.Interrupt,
		Metrics:   c.Metrics,
		Logger:    c.Logger.With("fanin"),
	}

	outputCtx, stopOutput := context.WithCancel(context.Background())
	defer stopOutput()
	fanout := &relay.Fanout{
		Source:       channel.NewReader(sess.Output()),
		Terminal:     out,
		Clients:      clients,
		PassNewlines: c.PTY, // the pty's line discipline already sends CRLF
		Metrics:      c.Metrics,
		Logger:       c.Logger.With("fanout"),
	}
	fanoutDone := make(chan error, 1)
	go func() { fanoutDone <- fanout.Run(outputCtx) }()

	serveCtx, stopServe := context.WithCancel(context.Background())
	defer stopServe()
	srv := &Server{
		Listener:     ep,
		Clients:      clients,
		Fanin:        fanin,
		WriteTimeout: c.WriteTimeout,
		Announce:     announce,
		Metrics:      c.Metrics,
		Logger:       c.Logger.With("server"),
	}
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(serveCtx) }()

	input := c.Terminal.OpenInput()
	defer input.Close()
	inputCtx, stopInput := context.WithCancel(context.Background())
	defer stopInput()
	inputDone := make(chan error, 1)
	go func() { inputDone <- fanin.Forward(inputCtx, channel.NewReader(input), false) }()

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		werr := ep.Watch(watchCtx, func(path string) {
			c.Logger.Warn("socket %s was removed; new clients cannot attach", path)
		})
		if werr != nil {
			c.Logger.Debug("socket watcher unavailable: %v", werr)
		}
	}()

	natural := false
	serveEnded := false
	for waiting := true; waiting; {
		select {
		case <-sess.Done():
			natural = true
			waiting = false
		case <-ctx.Done():
			c.Logger.Verbose("shutdown requested, terminating process %d", sess.PID())
			waiting = false
		case serr := <-serveDone:
			serveEnded = true
			if serr != nil {
				c.Logger.Error("listener failed: %v", serr)
			}
			waiting = false
		case ierr := <-inputDone:
			inputDone = nil
			if ierr != nil && !errors.Is(ierr, errors.ErrChannelClosed) && ctx.Err() == nil {
				c.Logger.Debug("terminal input ended: %v", ierr)
			}
		}
	}

	// ── Draining ─────────────────────────────────────────────────────
	c.transition(Draining)
	stopWatch()

	if !natural {
		sess.Terminate()
	}

	ep.Close() //nolint:errcheck
	stopServe()
	if !serveEnded {
		<-serveDone
	}

	// The fan-out can be blocked writing to a client that stopped
	// reading.  Disconnecting the clients releases it, so each wait on
	// fanoutDone is bounded by the grace period or follows CloseClients.
	if natural {
		c.drainOutput(fanoutDone, sess, srv)
		c.announceExit(sess, announce)
	} else {
		stopOutput()
		sess.Close()
		c.closeClients(srv)
		<-fanoutDone
	}

	c.closeClients(srv)
	srv.Wait()

	stopInput()
	if !input.Cancel() {
		c.Logger.Debug("terminal input cannot be interrupted; leaving its reader")
	} else if inputDone != nil {
		<-inputDone
	}

	if !natural {
		c.announceExit(sess, announce)
	}
	return nil
}

// drainOutput gives the fan-out GracePeriod to mirror output the
// process wrote before exiting.  When the period ends the output is
// closed and the clients are disconnected, which cuts off a descendant
// still holding the output open and releases a write blocked on a
// client that stopped reading.
func (c *Controller) drainOutput(fanoutDone <-chan error, sess *session.Session, srv *Server) {
	grace := c.GracePeriod
	if grace <= 0 {
		grace = time.Millisecond
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-fanoutDone:
		if err != nil {
			c.Logger.Warn("process output: %v", err)
		}
		return
	case <-timer.C:
		c.Logger.Verbose("output still open %v after exit, closing it", grace)
	}
	sess.Close()
	c.closeClients(srv)
	<-fanoutDone
}

func (c *Controller) closeClients(srv *Server) {
	if n := srv.CloseClients(); n > 0 {
		c.Logger.Verbose("disconnecting %d client(s)", n)
	}
}

// announceExit records and announces the process's status.  After
// Terminate the process is SIGKILLed if it lingers, so the wait is
// bounded.
func (c *Controller) announceExit(sess *session.Session, announce func(string)) {
	status, err := sess.Wait()
	if err != nil {
		c.Logger.Warn("wait for process: %v", err)
	}
	c.mu.Lock()
	c.status, c.exited = status, true
	c.mu.Unlock()
	announce(fmt.Sprintf(msgProcessExited, status))
}

// close is the teardown that runs on every path out of Run, including
// a failed startup: the socket file is removed and the terminal is
// restored.
func (c *Controller) close(ep *endpoint.Endpoint, restore func() error, announce func(string)) {
	if err := ep.Remove(); err != nil {
		c.Logger.Warn("remove socket: %v", err)
	}
	announce(msgSocketClosed)

	if restore != nil {
		if err := restore(); err != nil {
			c.Logger.Warn("restore terminal: %v", err)
		}
		c.Logger.SetRaw(false)
	}

	m := c.Metrics.Snapshot()
	c.Logger.Verbose("clients: %d total; units: %d out, %d in; client write errors: %d",
		m.ClientsTotal, m.UnitsFromProcess, m.UnitsToProcess, m.ClientWriteErrors)

	c.transition(Closed)
}
