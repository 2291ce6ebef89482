package teleop

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestKeySet_LineOrder(t *testing.T) {
	now := time.Now()
	keys := NewKeySet(time.Second)

	for _, k := range []string{"e", "d", "w", "up"} {
		if !keys.Press(k, now) {
			t.Fatalf("Press(%q) rejected", k)
		}
	}

	if got := keys.Line(now); got != "w, d, up, e\n" {
		t.Errorf("Line = %q", got)
	}
}

func TestKeySet_IgnoresOtherKeys(t *testing.T) {
	keys := NewKeySet(time.Second)
	if keys.Press("x", time.Now()) {
		t.Error("Press(x) accepted")
	}
	if got := keys.Line(time.Now()); got != "" {
		t.Errorf("Line = %q, want empty", got)
	}
}

func TestKeySet_HoldWindow(t *testing.T) {
	t0 := time.Now()
	keys := NewKeySet(500 * time.Millisecond)
	keys.Press("w", t0)
	keys.Press("a", t0.Add(400*time.Millisecond))

	if got := keys.Line(t0.Add(450 * time.Millisecond)); got != "w, a\n" {
		t.Errorf("before expiry: %q", got)
	}
	if got := keys.Line(t0.Add(600 * time.Millisecond)); got != "a\n" {
		t.Errorf("after w expired: %q", got)
	}

	// A repeat renews the key.
	keys.Press("a", t0.Add(800*time.Millisecond))
	if got := keys.Line(t0.Add(1200 * time.Millisecond)); got != "a\n" {
		t.Errorf("after repeat: %q", got)
	}

	if got := keys.Line(t0.Add(1400 * time.Millisecond)); got != "" {
		t.Errorf("after every key expired: %q", got)
	}
}

func TestSender_Tick(t *testing.T) {
	var buf bytes.Buffer
	now := time.Now()
	s := NewSender(&buf, NewKeySet(0))

	// Nothing held, nothing written.
	if line, err := s.Tick(now); err != nil || line != "" {
		t.Fatalf("Tick = %q, %v", line, err)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %q", buf.String())
	}

	s.Keys().Press("s", now)
	s.Keys().Press("q", now)
	s.Tick(now.Add(DefaultSendInterval))
	s.Tick(now.Add(2 * DefaultSendInterval))

	if got := buf.String(); got != "s, q\ns, q\n" {
		t.Errorf("wire = %q", got)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("port gone") }

func TestSender_WriteError(t *testing.T) {
	now := time.Now()
	s := NewSender(failWriter{}, NewKeySet(0))
	s.Keys().Press("w", now)

	if _, err := s.Tick(now); err == nil {
		t.Error("expected write error")
	}
}
