package main

import (
	"fmt"
	"log"

	"github.com/urfave/cli"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyserver"
)

func serveCommand(context *cli.Context) error {
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

	server := crazyserver.New(cf, newStreamer(cfg, cf), cfg.Max)

	if staticPath := context.String("static"); len(staticPath) > 0 {
		server.ServeStatic(staticPath)
	}

	if period := context.Duration("telemetry"); period > 0 {
		if err := cf.LogTOCGetList(); err != nil {
			log.Printf("Telemetry unavailable: %s", err)
		} else if err := server.StartTelemetry(period); err != nil {
			log.Printf("Telemetry unavailable: %s", err)
		}
	}

	ctx, cancel := interruptContext()
	defer cancel()

	fmt.Println("Starting the server ...")
	fmt.Printf("Listening on %s\n", cfg.Listen)
	return server.ListenAndServe(ctx, cfg.Listen)
}
