package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/config"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtpdevice"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/motor"
)

// loadConfig layers the command line over defaults, profile and environment.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"), c.GlobalString("profile"))
	if err != nil {
		return cfg, err
	}

	if c.GlobalIsSet("uri") {
		cfg.URI = c.GlobalString("uri")
	}
	if c.GlobalIsSet("cache-dir") {
		cfg.CacheDir = c.GlobalString("cache-dir")
	}
	if c.IsSet("rate") {
		cfg.Rate = c.Float64("rate")
	}
	if c.IsSet("hold") {
		cfg.Hold = c.Duration("hold")
	}
	if c.IsSet("ramp") {
		cfg.Ramp = c.Duration("ramp")
	}
	if c.IsSet("max") {
		cfg.Max = motor.Clamp(int64(c.Uint("max")), motor.MaxPWM)
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("pwm-port") {
		port := c.Uint("pwm-port")
		if port > 0x0F {
			return cfg, fmt.Errorf("pwm-port must fit in 4 bits, got %d", port)
		}
		cfg.PWMPort = uint8(port)
	}
	if c.IsSet("timeout-ms") {
		timeout := c.Uint("timeout-ms")
		if timeout > math.MaxUint16 {
			return cfg, fmt.Errorf("timeout-ms must be at most %d, got %d", math.MaxUint16, timeout)
		}
		cfg.TimeoutMs = uint16(timeout)
	}
	if c.IsSet("no-enable") {
		cfg.Enable = !c.Bool("no-enable")
	}
	if c.IsSet("stop-repeats") {
		cfg.StopRepeats = c.Int("stop-repeats")
	}
	if c.IsSet("monitor") {
		cfg.Monitor = c.Bool("monitor")
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}

	return cfg, cfg.Validate()
}

// connect opens the link named by the configured uri and connects to the Crazyflie behind it.
func connect(cfg config.Config) (*crazyflie.Crazyflie, crtpdevice.Link, error) {
	uri, err := crtpdevice.ParseURI(cfg.URI)
	if err != nil {
		return nil, nil, err
	}

	link, err := crtpdevice.Open(uri)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", uri, err)
	}

	cf, err := crazyflie.Connect(link, uri.Channel, uri.Address)
	if err != nil {
		link.Close()
		return nil, nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}

	log.Printf("Connected to %s", uri)
	return cf, link, nil
}

// connectWithParams connects and loads the param TOC.
func connectWithParams(cfg config.Config) (*crazyflie.Crazyflie, crtpdevice.Link, error) {
	cf, link, err := connect(cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := cf.ParamTOCGetList(); err != nil {
		cf.DisconnectImmediately()
		link.Close()
		return nil, nil, fmt.Errorf("loading the param TOC: %w", err)
	}
	return cf, link, nil
}

func newStreamer(cfg config.Config, cf *crazyflie.Crazyflie) *motor.Streamer {
	return &motor.Streamer{
		Sender:      cf,
		Format:      crazyflie.MotorFormat(cfg.Format),
		PWMPort:     crtp.Port(cfg.PWMPort),
		Rate:        cfg.Rate,
		Hold:        cfg.Hold,
		Ramp:        cfg.Ramp,
		StopRepeats: cfg.StopRepeats,
		Enable:      cfg.Enable,
		TimeoutMs:   cfg.TimeoutMs,
	}
}

// interruptContext is cancelled by Ctrl-C or SIGTERM. A second Ctrl-C kills
// the process.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
