package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl/internal/appargs"
	"github.com/Microsoft/hvctl/pkg/report"
)

var qosCommand = cli.Command{
	Name:  "qos",
	Usage: "inspect vfpctrl hardware QoS state of a switch",
	Subcommands: []cli.Command{
		{
			Name:      "config",
			Usage:     "print the QoS configuration of a switch",
			ArgsUsage: "<vswitch>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				cfg, err := hv.QoS.QoSConfig(appCtx, c.Args().First())
				if err != nil {
					return err
				}
				return printQoSConfig(c, cfg)
			},
		},
		{
			Name:      "queues",
			Usage:     "list the scheduler queues of a switch",
			ArgsUsage: "<vswitch>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				out, err := hv.QoS.QueueAllInfo(appCtx, c.Args().First())
				if err != nil {
					return err
				}
				return printQueues(c, report.Queues(out))
			},
		},
		{
			Name:      "port",
			Usage:     "print the vmswitch port name of a VM",
			ArgsUsage: "<vswitch> <vm-name>",
			Before:    appargs.Validate(appargs.RequiredNonEmpty, appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				port, err := hv.QoS.VMSwitchPortName(appCtx, c.Args().First(), c.Args().Get(1))
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, port)
				return nil
			},
		},
	},
}

func printQoSConfig(c *cli.Context, cfg report.QoSConfig) error {
	asJSON, err := isJSON(c)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(c.App.Writer, cfg)
	}
	return printTable(c, []string{"SETTING", "VALUE"}, [][]string{
		{"hw_caps", strconv.FormatBool(cfg.HardwareCaps)},
		{"hw_reserv", strconv.FormatBool(cfg.HardwareReservations)},
		{"sw_reserv", strconv.FormatBool(cfg.SoftwareReservations)},
		{"flags", cfg.Flags},
	})
}

func printQueues(c *cli.Context, queues []report.Queue) error {
	rows := make([][]string, 0, len(queues))
	for _, q := range queues {
		rows = append(rows, []string{q.ID, q.FriendlyName, q.TransmitLimit()})
	}
	return printTable(c, []string{"ID", "NAME", "TRANSMIT_LIMIT"}, rows)
}
