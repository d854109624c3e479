package relay

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"stdiosock/internal/channel"
	"stdiosock/internal/errors"
	"stdiosock/internal/metrics"
	"stdiosock/internal/registry"
	"stdiosock/util"
)

// recordingSink collects everything written to it and can be told to
// fail.
type recordingSink struct {
	id           string
	mu           sync.Mutex
	buf          bytes.Buffer
	failWith     error
	disconnected atomic.Int32
}

func (s *recordingSink) ID() string { return s.id }

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, s.failWith
	}
	return s.buf.Write(p)
}

func (s *recordingSink) Disconnect() { s.disconnected.Add(1) }

func (s *recordingSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

func newFanout(src io.Reader, term io.Writer, reg *registry.Registry) *Fanout {
	return &Fanout{
		Source:   channel.NewReader(src),
		Terminal: term,
		Clients:  reg,
		Metrics:  metrics.New(),
		Logger:   quietLogger(),
	}
}

// ── Fanout ───────────────────────────────────────────────────────────

func TestFanout_TerminalGetsRawOutput(t *testing.T) {
	var term bytes.Buffer
	f := newFanout(strings.NewReader("hi\n"), &term, registry.New())
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if term.String() != "hi\n" {
		t.Errorf("terminal = %q, want %q", term.String(), "hi\n")
	}
	if n := f.Metrics.TotalUnitsOut(); n != 3 {
		t.Errorf("units out = %d, want 3", n)
	}
}

func TestFanout_ClientsGetCRLF(t *testing.T) {
	reg := registry.New()
	a := &recordingSink{id: "a"}
	b := &recordingSink{id: "b"}
	reg.Add(a)
	reg.Add(b)

	var term bytes.Buffer
	f := newFanout(strings.NewReader("A\n"), &term, reg)
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, s := range []*recordingSink{a, b} {
		if s.String() != "A\r\n" {
			t.Errorf("client %s got %q, want %q", s.id, s.String(), "A\r\n")
		}
	}
	if term.String() != "A\n" {
		t.Errorf("terminal = %q, want untranslated %q", term.String(), "A\n")
	}
	if n := f.Metrics.TotalClientBytes(); n != 6 {
		t.Errorf("client bytes = %d, want 6", n)
	}
}

// TestFanout_PassNewlines verifies output that already carries CRLF
// reaches clients without a second carriage return.
func TestFanout_PassNewlines(t *testing.T) {
	reg := registry.New()
	a := &recordingSink{id: "a"}
	reg.Add(a)

	var term bytes.Buffer
	f := newFanout(strings.NewReader("A\r\nB\r\n"), &term, reg)
	f.PassNewlines = true
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.String() != "A\r\nB\r\n" {
		t.Errorf("client got %q, want %q", a.String(), "A\r\nB\r\n")
	}
	if term.String() != "A\r\nB\r\n" {
		t.Errorf("terminal = %q", term.String())
	}
}

func TestFanout_NoClients(t *testing.T) {
	var term bytes.Buffer
	f := newFanout(strings.NewReader("x"), &term, registry.New())
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if term.String() != "x" {
		t.Errorf("terminal = %q", term.String())
	}
}

// TestFanout_LateJoiner verifies a client registered mid-stream receives
// only units emitted after it joined.
func TestFanout_LateJoiner(t *testing.T) {
	pr, pw := io.Pipe()
	reg := registry.New()
	early := &recordingSink{id: "early"}
	reg.Add(early)

	f := newFanout(pr, io.Discard, reg)
	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	pw.Write([]byte("one\n")) //nolint:errcheck
	waitFor(t, func() bool { return early.String() == "one\r\n" })

	late := &recordingSink{id: "late"}
	reg.Add(late)
	pw.Write([]byte("two\n")) //nolint:errcheck
	pw.Close()

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if early.String() != "one\r\ntwo\r\n" {
		t.Errorf("early = %q", early.String())
	}
	if late.String() != "two\r\n" {
		t.Errorf("late = %q, want only output after joining", late.String())
	}
}

// TestFanout_FailingClientIsDropped verifies a write failure removes
// only the failing client.
func TestFanout_FailingClientIsDropped(t *testing.T) {
	reg := registry.New()
	good := &recordingSink{id: "good"}
	bad := &recordingSink{id: "bad", failWith: syscall.EPIPE}
	reg.Add(good)
	reg.Add(bad)

	f := newFanout(strings.NewReader("ab"), io.Discard, reg)
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if reg.Contains("bad") {
		t.Error("failing client should be deregistered")
	}
	if !reg.Contains("good") {
		t.Error("healthy client must stay registered")
	}
	if bad.disconnected.Load() == 0 {
		t.Error("failing client should be disconnected")
	}
	if good.String() != "ab" {
		t.Errorf("good = %q, want %q", good.String(), "ab")
	}
	if n := f.Metrics.ClientWriteErrors(); n != 1 {
		t.Errorf("client write errors = %d, want 1", n)
	}
}

type failingWriter struct{ calls atomic.Int32 }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls.Add(1)
	return 0, syscall.EIO
}

func TestFanout_TerminalFailureKeepsClients(t *testing.T) {
	reg := registry.New()
	c := &recordingSink{id: "c"}
	reg.Add(c)
	term := &failingWriter{}

	f := newFanout(strings.NewReader("xyz"), term, reg)
	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.String() != "xyz" {
		t.Errorf("client = %q", c.String())
	}
	if n := f.Metrics.ErrorCount(); n != 1 {
		t.Errorf("errors = %d, want the terminal failure reported once", n)
	}
}

func TestFanout_Cancel(t *testing.T) {
	pr, pw := io.Pipe()
	f := newFanout(pr, io.Discard, registry.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	cancel()
	pw.Close() // release the blocked read
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// ── Fanin ────────────────────────────────────────────────────────────

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newFanin(target io.Writer) *Fanin {
	return &Fanin{
		Target:    channel.NewWriter(target),
		Interrupt: 0x03,
		Metrics:   metrics.New(),
		Logger:    quietLogger(),
	}
}

func TestFanin_ForwardsUntilEOF(t *testing.T) {
	var target lockedBuffer
	f := newFanin(&target)
	err := f.Forward(context.Background(), channel.NewReader(strings.NewReader("ls\n")), true)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if target.String() != "ls\n" {
		t.Errorf("process input = %q", target.String())
	}
	if n := f.Metrics.TotalUnitsIn(); n != 3 {
		t.Errorf("units in = %d, want 3", n)
	}
}

func TestFanin_ClientInterrupt(t *testing.T) {
	var target lockedBuffer
	f := newFanin(&target)
	src := channel.NewReader(strings.NewReader("ab\x03cd"))
	err := f.Forward(context.Background(), src, true)
	if !errors.Is(err, errors.ErrInterrupted) {
		t.Fatalf("Forward = %v, want ErrInterrupted", err)
	}
	if target.String() != "ab" {
		t.Errorf("process input = %q, want the units before the interrupt only", target.String())
	}
}

// TestFanin_TerminalInterruptIsForwarded verifies the interrupt unit
// reaches the process when typed locally.
func TestFanin_TerminalInterruptIsForwarded(t *testing.T) {
	var target lockedBuffer
	f := newFanin(&target)
	src := channel.NewReader(strings.NewReader("a\x03b"))
	if err := f.Forward(context.Background(), src, false); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if target.String() != "a\x03b" {
		t.Errorf("process input = %q", target.String())
	}
}

func TestFanin_TargetClosed(t *testing.T) {
	pr, pw := io.Pipe()
	pr.Close()
	f := newFanin(pw)
	err := f.Forward(context.Background(), channel.NewReader(strings.NewReader("x")), true)
	if !errors.Is(err, errors.ErrChannelClosed) {
		t.Errorf("Forward = %v, want ErrChannelClosed", err)
	}
}

func TestFanin_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFanin(io.Discard)
	err := f.Forward(ctx, channel.NewReader(strings.NewReader("x")), false)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Forward = %v, want context.Canceled", err)
	}
}

// TestFanin_ConcurrentSourcesDoNotInterleave verifies whole units from
// several sources all arrive.
func TestFanin_ConcurrentSourcesDoNotInterleave(t *testing.T) {
	var target lockedBuffer
	f := newFanin(&target)

	var wg sync.WaitGroup
	for _, s := range []string{"aaaa", "bbbb", "cccc"} {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			f.Forward(context.Background(), channel.NewReader(strings.NewReader(s)), true) //nolint:errcheck
		}(s)
	}
	wg.Wait()

	got := target.String()
	if len(got) != 12 {
		t.Fatalf("process input = %q, want 12 units", got)
	}
	for _, c := range "abc" {
		if strings.Count(got, string(c)) != 4 {
			t.Errorf("lost units of %q in %q", c, got)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
