package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli"
)

func paramGetCommand(context *cli.Context) error {
	if context.NArg() != 1 {
		return cli.NewExitError("usage: crazypwm param get <group.name>", 2)
	}

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

	name := context.Args().Get(0)
	val, err := cf.ParamRead(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	fmt.Printf("%s = %v\n", name, val)
	return nil
}

func paramSetCommand(context *cli.Context) error {
	if context.NArg() != 2 {
		return cli.NewExitError("usage: crazypwm param set <group.name> <value>", 2)
	}

	name := context.Args().Get(0)
	value, err := strconv.ParseFloat(context.Args().Get(1), 64)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("%q is not a number", context.Args().Get(1)), 2)
	}

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

	if err := cf.ParamWriteFromFloat64(name, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	val, err := cf.ParamRead(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	fmt.Printf("%s = %v\n", name, val)
	return nil
}

func paramListCommand(context *cli.Context) error {
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

	group := context.Args().Get(0)
	for _, item := range cf.ParamGetToc() {
		if group != "" && item.Group != group {
			continue
		}
		fmt.Printf("%-40s %-7s %s\n", item.Group+"."+item.Name, item.Type, item.Access)
	}
	return nil
}
