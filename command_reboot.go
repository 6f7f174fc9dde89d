package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyradio"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyusb"
)

// how long the console has to stay quiet before we stop echoing it
const consoleQuiet = 2 * time.Second

func rebootCommand(context *cli.Context) error {
	cfg, err := loadConfig(context)
	if err != nil {
		return err
	}

	cf, link, err := connect(cfg)
	if err != nil {
		return err
	}
	defer link.Close()

	fmt.Println("Rebooting ...")
	if err := cf.RebootToFirmware(); err != nil {
		return err
	}
	defer cf.DisconnectOnEmpty()

	fmt.Printf("Crazyflie 0x%X is back: %s\n", cf.FirmwareAddress(), cf.Status())

	// the boot messages tell whether crtp_pwm came up
	printConsole(cf)
	return nil
}

func printConsole(cf *crazyflie.Crazyflie) {
	for {
		select {
		case line := <-cf.ConsoleLines():
			if strings.TrimSpace(line) != "" {
				fmt.Println("console:", line)
			}
		case <-time.After(consoleQuiet):
			return
		}
	}
}

func scanCommand(context *cli.Context) error {
	fmt.Printf("Crazyradios:        %d\n", crazyradio.CountConnectedRadios())
	fmt.Printf("Crazyflies via USB: %d\n", crazyusb.CountConnectedCrazyflies())
	return nil
}
