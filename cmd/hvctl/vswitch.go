package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl/internal/appargs"
	"github.com/Microsoft/hvctl/vswitch"
)

var vswitchCommand = cli.Command{
	Name:  "vswitch",
	Usage: "manage Hyper-V virtual switches",
	Subcommands: []cli.Command{
		{
			Name:   "list",
			Usage:  "list the names of the switches on the host",
			Before: appargs.Validate(),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				names, err := hv.VSwitches.List(appCtx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(c.App.Writer, n)
				}
				return nil
			},
		},
		{
			Name:      "attrs",
			Usage:     "print the Get-VMSwitch properties of a switch",
			ArgsUsage: "<name>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				b, err := hv.VSwitches.Attributes(appCtx, c.Args().First())
				if err != nil {
					return err
				}
				return printBlocks(c, b)
			},
		},
		{
			Name:  "create",
			Usage: "create a switch bound to one or more host adapters",
			ArgsUsage: `<base-name> <adapter>...

The switch is named <base-name>_NN, with a _T suffix when teaming is enabled.
With --management it is named <base-name> exactly.`,
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "iov", Usage: "enable SR-IOV"},
				cli.BoolFlag{Name: "teaming", Usage: "enable switch embedded teaming"},
				cli.BoolFlag{Name: "management", Usage: "create the management switch"},
			},
			Before: appargs.Validate(appargs.RequiredNonEmpty, appargs.NonEmptyRest),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				args := c.Args()
				vs, err := hv.VSwitches.Create(appCtx, args.Tail(), args.First(), vswitch.Options{
					EnableIov:     c.Bool("iov"),
					EnableTeaming: c.Bool("teaming"),
					Management:    c.Bool("management"),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, vs.Name())
				return nil
			},
		},
		{
			Name:   "create-management",
			Usage:  "create the management switch on the adapter that carries the host address",
			Before: appargs.Validate(),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				vs, err := hv.VSwitches.CreateManagement(appCtx)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, vs.Name())
				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "remove a switch",
			ArgsUsage: "<name>",
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				return hv.VSwitches.Remove(appCtx, c.Args().First())
			},
		},
		{
			Name:   "mapping",
			Usage:  "print the host adapter description of every switch",
			Flags:  []cli.Flag{formatFlag},
			Before: appargs.Validate(),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				return printTable(c, []string{"NAME", "DESCRIPTION"}, mapRows(hv.VSwitches.Mapping(appCtx)))
			},
		},
	},
}
