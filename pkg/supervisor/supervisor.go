// Package supervisor implements crash-only recovery: a session that fails is
// thrown away after a cool-down and rebuilt from scratch. There is no partial
// resume and no backoff.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwillem/harvestar/internal/log"
)

// ErrRebootLimit is returned when the session keeps failing past MaxReboots.
var ErrRebootLimit = errors.New("reboot limit reached")

// ErrHalted is returned after the cool-down when Halt is set.
var ErrHalted = errors.New("halted after failure")

// DefaultCooldown is the pause before a reboot.
const DefaultCooldown = 5 * time.Second

// Session is one boot of the arm: open hardware, run a mode, release it.
// A nil return means the mode finished.
type Session func(ctx context.Context) error

// Supervisor runs sessions and reboots them on failure.
type Supervisor struct {
	Cooldown   time.Duration
	MaxReboots int // 0 means unlimited

	// Halt stops after the first failure's cool-down instead of rebooting,
	// for unattended modes that must wait for an operator.
	Halt bool
	Logger     *slog.Logger

	// OnReboot is called before every reboot with the count so far.
	OnReboot func(n int, cause error)

	sleep func(context.Context, time.Duration) error
}

// New creates a supervisor with the default cool-down.
func New() *Supervisor {
	return &Supervisor{
		Cooldown: DefaultCooldown,
		Logger:   log.L(),
		sleep:    sleepCtx,
	}
}

// Run starts session and reboots it after every fatal error until it
// finishes, ctx is cancelled, the reboot limit is hit or Halt is set.
func (s *Supervisor) Run(ctx context.Context, session Session) error {
	reboots := 0
	for {
		err := session(ctx)
		if err == nil {
			s.Logger.Info("session done")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.Logger.Error("session failed", "err", err, "reboot_in", s.Cooldown)
		if s.MaxReboots > 0 && reboots >= s.MaxReboots {
			return fmt.Errorf("%w after %d reboots: %w", ErrRebootLimit, reboots, err)
		}
		if err := s.sleep(ctx, s.Cooldown); err != nil {
			return err
		}
		if s.Halt {
			return fmt.Errorf("%w: %w", ErrHalted, err)
		}

		reboots++
		if s.OnReboot != nil {
			s.OnReboot(reboots, err)
		}
		s.Reboot(reboots)
	}
}

// Reboot marks the restart boundary. Everything the previous session opened
// has been released by the time it is called; the next session starts from
// power-on state.
func (s *Supervisor) Reboot(n int) {
	s.Logger.Warn("rebooting", "count", n)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
