package main

import (
	"io"
	"log"
	"os"

	"github.com/urfave/cli"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/cache"
)

func main() {
	app := cli.NewApp()
	app.Name = "crazypwm"
	app.Usage = "Drive the four motors of a Crazyflie or Bolt with raw PWM setpoints"
	app.Version = "0.1.0"
	app.Flags = GLOBAL_FLAGS
	app.Commands = COMMANDS
	app.Before = setup

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var GLOBAL_FLAGS = []cli.Flag{
	cli.StringFlag{
		Name:   "uri, u",
		Usage:  "Link to the Crazyflie, e.g. radio://0/80/2M/E7E7E7E7E7 or usb://0",
		EnvVar: "CRAZYFLIE_URI",
	},
	cli.StringFlag{
		Name:  "config, c",
		Usage: "YAML file with named profiles of default arguments",
	},
	cli.StringFlag{
		Name:  "profile, P",
		Usage: "Profile to load from the config file",
	},
	cli.StringFlag{
		Name:  "cache-dir",
		Usage: "Where param and log TOCs are cached (default ~/.crazypwm-cache)",
	},
	cli.StringFlag{
		Name:  "log-file",
		Usage: "Also write the log to this file, rotated at 10MB",
	},
}

func setup(c *cli.Context) error {
	if name := c.GlobalString("log-file"); name != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   name,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}))
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if err := cache.Init(cfg.CacheDir); err != nil {
		log.Printf("TOC cache disabled: %s", err)
	}
	return nil
}
