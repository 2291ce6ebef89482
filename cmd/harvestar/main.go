package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/harvestar/pkg/robot"
)

type Options struct {
	Config   string `short:"c" long:"config" description:"Configuration file (default: harvestar.json)"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	Setup       SetupCommand       `command:"setup" description:"Find the servo bus and command link, record joint ranges"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Drive the arm from commands received over the link"`
	Sequence    SequenceCommand    `command:"sequence" alias:"seq" description:"Play the pick-and-place sequence from the configuration"`
	Remote      RemoteCommand      `command:"remote" description:"Send held keys to the arm over the link (host side)"`
	Solve       SolveCommand       `command:"solve" description:"Show the inverse kinematics and constraint check for a target"`
	Status      StatusCommand      `command:"status" description:"Read the current joint angles off the servo bus"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "HarveStar - 3-joint harvesting arm controller"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Config == "" {
			opts.Config = robot.DefaultConfigFile
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
