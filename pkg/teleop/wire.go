package teleop

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// maxLine bounds the bytes buffered without a newline.
const maxLine = 1024

// LineSource yields complete lines without blocking the control loop.
type LineSource interface {
	// Poll returns the next complete line, or ok=false if none is pending.
	Poll() (line string, ok bool, err error)
	// Drain discards everything received so far.
	Drain() error
}

// Poller turns a reader with a short read timeout into a LineSource. The
// reader must return 0, nil when no byte arrived within its timeout, which is
// how go.bug.st/serial ports behave after SetReadTimeout.
type Poller struct {
	r   io.Reader
	buf []byte
	tmp []byte
}

// NewPoller wraps r.
func NewPoller(r io.Reader) *Poller {
	return &Poller{
		r:   r,
		tmp: make([]byte, 256),
	}
}

// Poll does at most one read. It returns a line as soon as a newline has
// been buffered; the newline and any trailing carriage return are removed.
func (p *Poller) Poll() (string, bool, error) {
	if line, ok := p.next(); ok {
		return line, true, nil
	}

	n, err := p.r.Read(p.tmp)
	if n > 0 {
		p.buf = append(p.buf, p.tmp[:n]...)
	}
	if err != nil {
		return "", false, fmt.Errorf("read link: %w", err)
	}

	if line, ok := p.next(); ok {
		return line, true, nil
	}
	if len(p.buf) > maxLine {
		// No newline in sight; the stream is garbage.
		p.buf = p.buf[:0]
	}
	return "", false, nil
}

func (p *Poller) next() (string, bool) {
	i := bytes.IndexByte(p.buf, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(p.buf[:i], "\r"))
	p.buf = p.buf[i+1:]
	return line, true
}

// Drain reads until the reader reports nothing pending, then drops the
// buffer. Reads are bounded so a chatty host cannot stall start-up.
func (p *Poller) Drain() error {
	if r, ok := p.r.(interface{ ResetInputBuffer() error }); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return fmt.Errorf("reset link: %w", err)
		}
	}
	for i := 0; i < 64; i++ {
		n, err := p.r.Read(p.tmp)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("drain link: %w", err)
		}
		if n == 0 || err != nil {
			break
		}
	}
	p.buf = p.buf[:0]
	return nil
}

// Link is a serial port carrying teleoperation lines. The arm side polls it;
// the host side writes to it.
type Link struct {
	port serial.Port
	*Poller
}

// Write sends raw bytes to the peer.
func (l *Link) Write(b []byte) (int, error) {
	return l.port.Write(b)
}

// Close closes the port.
func (l *Link) Close() error {
	return l.port.Close()
}

// DefaultReadTimeout is how long one Poll may wait for bytes.
const DefaultReadTimeout = 10 * time.Millisecond

// OpenLink opens a serial port for the wire protocol.
func OpenLink(port string, baud int) (*Link, error) {
	if baud == 0 {
		baud = 9600
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open link %s: %w", port, err)
	}
	if err := p.SetReadTimeout(DefaultReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &Link{port: p, Poller: NewPoller(p)}, nil
}
