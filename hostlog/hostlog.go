// Package hostlog tails the *target's* USB-serial stdio console while
// a debug session runs. This is deliberately separate from the SWD
// transport: it is a thin external adapter onto the target's ordinary
// firmware logging, not a debug-protocol feature.
package hostlog

import (
	"bufio"
	"io"
	"time"

	"github.com/cesanta/go-serial/serial"
	"github.com/golang/glog"
	"github.com/juju/errors"
)

// Line is one line read from the target's console, with the
// wall-clock time it was received.
type Line struct {
	Text string
	At   time.Time
}

// Tailer reads newline-delimited output from a target's USB-serial
// port and delivers it one line at a time.
type Tailer struct {
	port   io.ReadWriteCloser
	lines  chan Line
	done   chan struct{}
}

// Open opens portName at baudRate (8N1, no flow control, matching the
// usual RP2350 stdio-over-USB-CDC setup) and starts tailing it in the
// background. Call Lines to consume, Close to stop.
func Open(portName string, baudRate uint) (*Tailer, error) {
	sp, err := serial.Open(serial.OpenOptions{
		PortName:        portName,
		BaudRate:        baudRate,
		DataBits:        8,
		ParityMode:      serial.PARITY_NONE,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s", portName)
	}

	t := &Tailer{
		port: sp,
		lines: make(chan Line, 256),
		done:  make(chan struct{}),
	}
	go t.run()
	return t, nil
}

func (t *Tailer) run() {
	defer close(t.lines)
	sc := bufio.NewScanner(t.port)
	for sc.Scan() {
		select {
		case t.lines <- Line{Text: sc.Text(), At: stamp()}:
		case <-t.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		glog.Warningf("hostlog: reading console: %s", err)
	}
}

// stamp is split out so a future caller can inject a clock for tests;
// none of hostlog's own tests need it today.
func stamp() time.Time { return time.Now() }

// Lines returns the channel new console lines are delivered on. It is
// closed when the port is closed or hits EOF.
func (t *Tailer) Lines() <-chan Line { return t.lines }

// Close stops tailing and closes the underlying port.
func (t *Tailer) Close() error {
	close(t.done)
	return t.port.Close()
}
