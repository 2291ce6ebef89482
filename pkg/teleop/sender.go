package teleop

import (
	"io"
	"strings"
	"time"
)

// DefaultSendInterval is the host sender tick.
const DefaultSendInterval = 100 * time.Millisecond

// DefaultHoldWindow is how long a key counts as held after its last event.
// Terminals report key repeats but not releases, and the first repeat
// arrives roughly half a second after the press.
const DefaultHoldWindow = 550 * time.Millisecond

// KeySet tracks which control keys are currently held on the host.
type KeySet struct {
	hold time.Duration
	seen map[string]time.Time
}

// NewKeySet creates a key set with the given hold window.
func NewKeySet(hold time.Duration) *KeySet {
	if hold <= 0 {
		hold = DefaultHoldWindow
	}
	return &KeySet{
		hold: hold,
		seen: make(map[string]time.Time),
	}
}

// Press records a key event. It returns false for keys that are not part of
// the protocol.
func (k *KeySet) Press(key string, at time.Time) bool {
	for _, c := range ControlKeys {
		if c == key {
			k.seen[key] = at
			return true
		}
	}
	return false
}

// Held returns the held keys in protocol order.
func (k *KeySet) Held(now time.Time) []string {
	var held []string
	for _, key := range ControlKeys {
		at, ok := k.seen[key]
		if !ok {
			continue
		}
		if now.Sub(at) > k.hold {
			delete(k.seen, key)
			continue
		}
		held = append(held, key)
	}
	return held
}

// Line returns the wire line for the held keys, or "" if none is held.
func (k *KeySet) Line(now time.Time) string {
	held := k.Held(now)
	if len(held) == 0 {
		return ""
	}
	return strings.Join(held, ", ") + "\n"
}

// Sender writes the held keys to the link once per tick.
type Sender struct {
	w    io.Writer
	keys *KeySet
}

// NewSender creates a sender writing to w.
func NewSender(w io.Writer, keys *KeySet) *Sender {
	return &Sender{w: w, keys: keys}
}

// Keys returns the key set fed by the input side.
func (s *Sender) Keys() *KeySet {
	return s.keys
}

// Tick sends the current line, if any, and returns it.
func (s *Sender) Tick(now time.Time) (string, error) {
	line := s.keys.Line(now)
	if line == "" {
		return "", nil
	}
	if _, err := io.WriteString(s.w, line); err != nil {
		return "", err
	}
	return line, nil
}
