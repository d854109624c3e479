// Package session owns the spawned process: its input channel, its
// merged stdout/stderr output channel, and its exit signal.
//
// The command line is run through a shell so pipelines and redirections
// work.  By default the child's stdio are plain pipes; with PTY set the
// child gets a pseudo-terminal instead, which makes programs that check
// isatty behave interactively.
package session

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"stdiosock/internal/errors"
	"stdiosock/util"
)

// DefaultKillAfter is how long Terminate waits after SIGTERM before
// escalating to SIGKILL.
const DefaultKillAfter = 3 * time.Second

// Options controls how the process is spawned.
type Options struct {
	Shell     string   // interpreter, run as Shell -c command
	PTY       bool     // attach the child to a pseudo-terminal
	Env       []string // nil means the caller's environment
	KillAfter time.Duration
	Logger    *util.Logger
}

// ExitStatus is the process's termination status.
type ExitStatus struct {
	Code   int            // exit code, or -1 when killed by a signal
	Signal syscall.Signal // non-zero when killed by a signal
}

// Success reports a zero exit code.
func (s ExitStatus) Success() bool { return s.Code == 0 && s.Signal == 0 }

func (s ExitStatus) String() string {
	if s.Signal != 0 {
		return "signal " + s.Signal.String()
	}
	return fmt.Sprintf("%d", s.Code)
}

// Session is one running process.
type Session struct {
	Command string

	cmd       *exec.Cmd
	input     io.WriteCloser
	output    io.ReadCloser
	killAfter time.Duration
	logger    *util.Logger

	done   chan struct{}
	status ExitStatus
	err    error

	closeOnce sync.Once
	termOnce  sync.Once
}

// Start spawns command and returns once the process is running.  A
// failure to launch the shell is returned as *errors.SpawnError.  A
// command the shell cannot find still starts (the shell reports it and
// exits non-zero).
func Start(command string, opts Options) (*Session, error) {
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	if opts.KillAfter == 0 {
		opts.KillAfter = DefaultKillAfter
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}

	cmd := exec.Command(opts.Shell, "-c", command)
	cmd.Env = opts.Env

	s := &Session{
		Command:   command,
		cmd:       cmd,
		killAfter: opts.KillAfter,
		logger:    opts.Logger,
		done:      make(chan struct{}),
	}

	opts.Logger.Debug("spawn: %s", cmd.String())

	var err error
	if opts.PTY {
		err = s.startPTY()
	} else {
		err = s.startPipes()
	}
	if err != nil {
		return nil, errors.Spawn(command, err)
	}

	go s.reap()
	return s, nil
}

// startPipes connects the child to three pipes, with stdout and stderr
// sharing one so their output stays in emission order.
func (s *Session) startPipes() error {
	inR, inW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	s.cmd.Stdin = inR
	s.cmd.Stdout = outW
	s.cmd.Stderr = outW
	// Own process group so Terminate reaches the shell's children too.
	s.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := s.cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return err
	}

	// The child holds its own copies; keeping ours would stop the
	// output pipe from ever reaching end-of-stream.
	inR.Close()
	outW.Close()

	s.input = inW
	s.output = outR
	return nil
}

func (s *Session) reap() {
	err := s.cmd.Wait()
	s.status = statusOf(s.cmd.ProcessState)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		s.err = err
	}
	s.logger.Debug("process %d exited: %s", s.PID(), s.status)
	close(s.done)
}

// PID returns the process id.
func (s *Session) PID() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Input is the process's input channel.
func (s *Session) Input() io.Writer { return s.input }

// Output is the process's merged stdout/stderr channel.
func (s *Session) Output() io.Reader { return s.output }

// Done is closed once the process has exited and been reaped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the process exits and returns its status.  The
// error is non-nil only if waiting itself failed.
func (s *Session) Wait() (ExitStatus, error) {
	<-s.done
	return s.status, s.err
}

// Exited reports whether the process has already exited.
func (s *Session) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Terminate sends SIGTERM to the process group and, if the process is
// still alive after KillAfter, SIGKILL.  It never blocks.
func (s *Session) Terminate() {
	if s.Exited() {
		return
	}
	s.termOnce.Do(func() {
		pid := s.PID()
		s.logger.Debug("terminating process group %d", pid)
		s.signal(pid, unix.SIGTERM)

		go func() {
			select {
			case <-s.done:
			case <-time.After(s.killAfter):
				s.logger.Debug("process %d ignored SIGTERM, sending SIGKILL", pid)
				s.signal(pid, unix.SIGKILL)
			}
		}()
	})
}

func (s *Session) signal(pid int, sig unix.Signal) {
	if pid <= 0 {
		return
	}
	// The child leads its own group (Setpgid or, with a pty, Setsid).
	if err := unix.Kill(-pid, sig); err != nil {
		s.cmd.Process.Signal(sig) //nolint:errcheck
	}
}

// Close releases the parent's ends of the process channels.  Pending
// reads of Output and writes to Input return promptly afterwards.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.input != nil {
			err = s.input.Close()
		}
		if s.output != nil && !sameFile(s.input, s.output) {
			if cerr := s.output.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	if util.IsClosed(err) {
		return nil
	}
	return err
}

func sameFile(w io.WriteCloser, r io.ReadCloser) bool {
	wf, ok1 := w.(*os.File)
	rf, ok2 := r.(*os.File)
	return ok1 && ok2 && wf == rf
}

func statusOf(ps *os.ProcessState) ExitStatus {
	if ps == nil {
		return ExitStatus{Code: -1}
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal()}
	}
	return ExitStatus{Code: ps.ExitCode()}
}
