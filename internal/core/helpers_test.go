package core

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stdiosock/internal/terminal"
	"stdiosock/util"
)

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

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

// socketPath returns a socket path short enough for sun_path.
func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ssc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

// fakeTerminal stands in for the local console.  Keystrokes are written
// to keys; mirrored output and announcements collect in out.
type fakeTerminal struct {
	out  lockedBuffer
	in   *os.File
	keys *os.File

	rawErr   error
	raw      atomic.Int32
	restored atomic.Int32
}

func newFakeTerminal(t *testing.T) *fakeTerminal {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return &fakeTerminal{in: r, keys: w}
}

func (f *fakeTerminal) MakeRaw() (func() error, error) {
	f.raw.Add(1)
	if f.rawErr != nil {
		return nil, f.rawErr
	}
	return func() error {
		f.restored.Add(1)
		return nil
	}, nil
}

func (f *fakeTerminal) OpenInput() terminal.Input { return terminal.NewInput(f.in) }

func (f *fakeTerminal) Output() io.Writer { return &f.out }

func (f *fakeTerminal) type_(t *testing.T, s string) {
	t.Helper()
	if _, err := f.keys.WriteString(s); err != nil {
		t.Fatalf("type %q: %v", s, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
