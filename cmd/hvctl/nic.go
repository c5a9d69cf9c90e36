package main

import (
	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl/internal/appargs"
	"github.com/Microsoft/hvctl/pkg/psparse"
)

var nicCommand = cli.Command{
	Name:  "nic",
	Usage: "inspect VM and host network adapters",
	Subcommands: []cli.Command{
		{
			Name:      "list",
			Usage:     "print the adapters of a VM, or of the management OS with --host",
			ArgsUsage: "[vm-name]",
			Flags: []cli.Flag{
				formatFlag,
				cli.BoolFlag{Name: "host", Usage: "list the management OS adapters"},
			},
			Before: appargs.Validate(appargs.Optional),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				var blocks []*psparse.Block
				if c.Bool("host") || c.Args().First() == "" {
					blocks, err = hv.VMNICs.HostInterfaces(appCtx)
				} else {
					blocks, err = hv.VMNICs.VMInterfaces(appCtx, c.Args().First())
				}
				if err != nil {
					return err
				}
				return printBlocks(c, blocks...)
			},
		},
		{
			Name:      "vlan",
			Usage:     "print the VLAN settings of a VM adapter",
			ArgsUsage: "<vm-name> <adapter-name>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty, appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				b, err := hv.VMNICs.InterfaceVLAN(appCtx, c.Args().Get(1), c.Args().First())
				if err != nil {
					return err
				}
				return printBlocks(c, b)
			},
		},
		{
			Name:      "rdma",
			Usage:     "print the RDMA settings of a VM adapter",
			ArgsUsage: "<vm-name> <adapter-name>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty, appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				b, err := hv.VMNICs.InterfaceRDMA(appCtx, c.Args().Get(1), c.Args().First())
				if err != nil {
					return err
				}
				return printBlocks(c, b)
			},
		},
	},
}
