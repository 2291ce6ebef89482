package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/motion"
)

type SequenceCommand struct {
	ArmOptions
}

func (c *SequenceCommand) Execute(args []string) error {
	log.Init(opts.LogLevel, os.Stderr)

	cfg, err := loadConfig(c.Calibration)
	if err != nil {
		return err
	}
	if len(cfg.Sequence) == 0 {
		return fmt.Errorf("no sequence steps in %s", opts.Config)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := func(ctx context.Context) error {
		act, release, err := openActuator(ctx, cfg, c.DryRun)
		if err != nil {
			return err
		}
		defer release()

		ctrl := newMotion(cfg, act)
		if err := ctrl.Home(ctx); err != nil {
			return err
		}

		player := motion.NewPlayer(ctrl, cfg.Sequence)
		player.SetLogger(log.With("component", "sequence"))
		if err := player.Run(ctx); err != nil {
			return err
		}

		stats := ctrl.Stats()
		log.Info("sequence finished", "moves", stats.Moves, "commands", stats.Commands)
		return nil
	}

	// A failed run waits out the cool-down and stops; it is not replayed
	// unattended.
	sup := newSupervisor(cfg, 0)
	sup.Halt = true
	if err := sup.Run(ctx, session); err != nil {
		log.Error("sequence failed", "err", err)
		return err
	}
	return nil
}
