package hostlog

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePort is an io.ReadWriteCloser backed by an in-memory reader, so
// Tailer.run can be exercised without a real USB-serial device.
type fakePort struct {
	r io.Reader
}

func (f *fakePort) Read(p []byte) (int, error)  { return f.r.Read(p) }
func (f *fakePort) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakePort) Close() error                { return nil }

func TestTailerDeliversLinesInOrder(t *testing.T) {
	tl := &Tailer{
		port:  &fakePort{r: strings.NewReader("booting\nhart 0 halted\n")},
		lines: make(chan Line, 8),
		done:  make(chan struct{}),
	}

	tl.run()

	var got []string
	for l := range tl.Lines() {
		got = append(got, l.Text)
	}
	require.Equal(t, []string{"booting", "hart 0 halted"}, got)
}

// pipePort adapts an io.PipeReader (whose Close unblocks a concurrent
// Read) into the io.ReadWriteCloser Tailer expects.
type pipePort struct {
	*io.PipeReader
}

func (pipePort) Write(p []byte) (int, error) { return len(p), nil }

func TestCloseStopsRun(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	tl := &Tailer{
		port:  pipePort{pr},
		lines: make(chan Line, 8),
		done:  make(chan struct{}),
	}

	stopped := make(chan struct{})
	go func() {
		tl.run()
		close(stopped)
	}()

	require.NoError(t, tl.Close())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("run did not stop after Close")
	}
}
