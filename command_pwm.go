package main

import (
	"fmt"
	"log"
	"time"

	"github.com/urfave/cli"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyserver"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/motor"
)

const monitorPeriod = 100 * time.Millisecond

func pwmCommand(context *cli.Context) error {
	cfg, err := loadConfig(context)
	if err != nil {
		return err
	}

	setpoint, err := motor.ParseSetpoint(context.Args(), cfg.Max)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("%s\nusage: crazypwm pwm %s", err, context.Command.ArgsUsage), 2)
	}

	cf, link, err := connectWithParams(cfg)
	if err != nil {
		return err
	}
	defer link.Close()
	defer cf.DisconnectOnEmpty()

	if cfg.Monitor {
		stopMonitor, err := startMonitor(cf)
		if err != nil {
			log.Printf("Monitor unavailable: %s", err)
		} else {
			defer stopMonitor()
		}
	}

	streamer := newStreamer(cfg, cf)
	every := int(cfg.Rate)
	if every < 1 {
		every = 1
	}
	streamer.Progress = func(sent int, sp motor.Setpoint) {
		if sent == 1 || sent%every == 0 {
			fmt.Printf("sent %d packets: %s\n", sent, sp)
		}
	}

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Printf("Sending %s (%s format) at %g Hz for %s\n", setpoint, cfg.Format, cfg.Rate, cfg.Hold)
	result, err := streamer.Run(ctx, setpoint)
	if result.Interrupted {
		fmt.Println("Interrupted, motors stopped")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Done: %d packets in %s, motors stopped\n", result.Sent, result.Elapsed.Round(time.Millisecond))
	return nil
}

func stopCommand(context *cli.Context) error {
	cfg, err := loadConfig(context)
	if err != nil {
		return err
	}

	cf, link, err := connectWithParams(cfg)
	if err != nil {
		return err
	}
	defer link.Close()
	defer cf.DisconnectOnEmpty()

	if err := newStreamer(cfg, cf).Shutdown(); err != nil {
		return err
	}

	fmt.Println("Motors stopped")
	return nil
}

// startMonitor prints what the firmware received, as echoed by its crtp_pwm log variables.
func startMonitor(cf *crazyflie.Crazyflie) (func(), error) {
	if err := cf.LogTOCGetList(); err != nil {
		return nil, err
	}

	blockid, err := cf.LogBlockAdd(crazyserver.TelemetryVariables)
	if err != nil {
		return nil, err
	}

	samples, unsubscribe, err := cf.LogBlockSubscribe(blockid, 8)
	if err != nil {
		return nil, err
	}

	if err := cf.LogBlockStart(blockid, monitorPeriod); err != nil {
		unsubscribe()
		cf.LogBlockDelete(blockid)
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for sample := range samples {
			fmt.Printf("firmware [%6d ms] seq=%v m1=%v m2=%v m3=%v m4=%v\n", sample.Timestamp,
				sample.Values["crtp_pwm.seq"], sample.Values["crtp_pwm.m1"], sample.Values["crtp_pwm.m2"],
				sample.Values["crtp_pwm.m3"], sample.Values["crtp_pwm.m4"])
		}
	}()

	return func() {
		cf.LogBlockStop(blockid)
		unsubscribe()
		<-done
		cf.LogBlockDelete(blockid)
	}, nil
}
