package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/config"
)

func profilesCommand(context *cli.Context) error {
	path := context.GlobalString("config")
	if path == "" {
		return cli.NewExitError("usage: crazypwm --config <file> profiles", 2)
	}

	names, err := config.Profiles(path)
	if err != nil {
		return err
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
