package teleop

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader returns one chunk per Read and 0, nil when empty, like a
// serial port whose read timeout expired.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestPoller_AssemblesLines(t *testing.T) {
	r := &chunkReader{chunks: []string{"w, ", "d\r\nup\n", "do", "wn\n"}}
	p := NewPoller(r)

	var lines []string
	for i := 0; i < 10; i++ {
		line, ok, err := p.Poll()
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if ok {
			lines = append(lines, line)
		}
	}

	want := []string{"w, d", "up", "down"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestPoller_NothingPending(t *testing.T) {
	p := NewPoller(&chunkReader{})

	line, ok, err := p.Poll()
	if err != nil || ok || line != "" {
		t.Errorf("Poll() = %q, %v, %v; want nothing", line, ok, err)
	}
}

func TestPoller_PartialLineWaits(t *testing.T) {
	r := &chunkReader{chunks: []string{"w,"}}
	p := NewPoller(r)

	if _, ok, _ := p.Poll(); ok {
		t.Fatal("partial line returned")
	}
	r.chunks = append(r.chunks, "d\n")
	line, ok, _ := p.Poll()
	if !ok || line != "w,d" {
		t.Errorf("Poll() = %q, %v", line, ok)
	}
}

func TestPoller_Drain(t *testing.T) {
	r := &chunkReader{chunks: []string{"w\nw\n", "w\nd"}}
	p := NewPoller(r)

	// Buffer something first.
	if _, ok, _ := p.Poll(); !ok {
		t.Fatal("expected a line")
	}
	if err := p.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	r.chunks = []string{"e\n"}
	line, ok, _ := p.Poll()
	if !ok || line != "e" {
		t.Errorf("after Drain got %q, %v; want \"e\"", line, ok)
	}
}

func TestPoller_ReadError(t *testing.T) {
	p := NewPoller(&chunkReader{err: io.ErrUnexpectedEOF})

	_, _, err := p.Poll()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestPoller_DropsRunawayInput(t *testing.T) {
	r := &chunkReader{chunks: []string{strings.Repeat("x", 200)}}
	p := NewPoller(r)

	for i := 0; i < 8; i++ {
		r.chunks = append(r.chunks, strings.Repeat("x", 200))
		if _, ok, err := p.Poll(); ok || err != nil {
			t.Fatalf("unexpected line or error: %v", err)
		}
	}
	if len(p.buf) > maxLine {
		t.Errorf("buffer grew to %d bytes", len(p.buf))
	}
}
