package main

import (
	"time"

	"github.com/urfave/cli"
)

var motorFlags = []cli.Flag{
	cli.Float64Flag{
		Name:  "rate, r",
		Usage: "Packets per second while holding (default 50)",
	},
	cli.DurationFlag{
		Name:  "hold, t",
		Usage: "How long to hold the setpoint, 0 sends a single packet (default 2s)",
	},
	cli.DurationFlag{
		Name:  "ramp",
		Usage: "Ramp linearly from zero to the setpoint over this long",
	},
	cli.UintFlag{
		Name:  "max",
		Usage: "Upper clamp of every motor value (default 65535)",
	},
	cli.StringFlag{
		Name:  "format, f",
		Usage: "Packet format: port (crtp_pwm port) or generic (commander generic type 8)",
	},
	cli.UintFlag{
		Name:  "pwm-port",
		Usage: "CRTP port of the crtp_pwm firmware module (default 9)",
	},
	cli.UintFlag{
		Name:  "timeout-ms",
		Usage: "Write crtp_pwm.timeoutMs before streaming",
	},
	cli.BoolFlag{
		Name:  "no-enable",
		Usage: "Do not toggle crtp_pwm.enable around the run",
	},
	cli.IntFlag{
		Name:  "stop-repeats",
		Usage: "How many zero packets stop the motors (default 3)",
	},
}

var COMMANDS = []cli.Command{
	{
		Name:      "pwm",
		Usage:     "Stream a motor setpoint for the hold time, then stop the motors",
		ArgsUsage: "<all> | <m1> <m2> <m3> <m4>   (integers or percentages of max, e.g. 25%)",
		Flags: append(motorFlags, cli.BoolFlag{
			Name:  "monitor, m",
			Usage: "Print what the firmware received, from the crtp_pwm log variables",
		}),
		Action: pwmCommand,
	},
	{
		Name:   "stop",
		Usage:  "Send the zero setpoint and disable crtp_pwm",
		Flags:  motorFlags,
		Action: stopCommand,
	},
	{
		Name:  "param",
		Usage: "Read and write firmware parameters",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				Usage:     "Print a parameter",
				ArgsUsage: "<group.name>",
				Action:    paramGetCommand,
			},
			{
				Name:      "set",
				Usage:     "Write a parameter",
				ArgsUsage: "<group.name> <value>",
				Action:    paramSetCommand,
			},
			{
				Name:      "list",
				Usage:     "List the parameter TOC, optionally only one group",
				ArgsUsage: "[group]",
				Action:    paramListCommand,
			},
		},
	},
	{
		Name:   "reboot",
		Usage:  "Restart the Crazyflie firmware",
		Action: rebootCommand,
	},
	{
		Name:   "profiles",
		Usage:  "List the profiles of the --config file",
		Action: profilesCommand,
	},
	{
		Name:   "scan",
		Usage:  "Count the Crazyradios and USB Crazyflies on this host",
		Action: scanCommand,
	},
	{
		Name:  "serve",
		Usage: "Start the HTTP/REST and websocket server",
		Flags: append(motorFlags,
			cli.StringFlag{
				Name:  "listen, l",
				Usage: "HTTP listening address (default :8000)",
			},
			cli.StringFlag{
				Name:  "static, s",
				Usage: "Optional static folder. Served on /static with index.html accessible on /",
			},
			cli.DurationFlag{
				Name:  "telemetry",
				Value: 100 * time.Millisecond,
				Usage: "Period of the crtp_pwm telemetry on /sockets/websocket, 0 disables it",
			},
		),
		Action: serveCommand,
	},
}
