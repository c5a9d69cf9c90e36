package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl/hypervisor"
	"github.com/Microsoft/hvctl/internal/appargs"
)

var vmCommand = cli.Command{
	Name:  "vm",
	Usage: "manage Hyper-V virtual machines",
	Subcommands: []cli.Command{
		{
			Name:   "list",
			Usage:  "list the VMs on the host",
			Flags:  []cli.Flag{formatFlag},
			Before: appargs.Validate(),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				vms, err := hv.Hypervisor.ListVMs(appCtx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(vms))
				for _, b := range vms {
					rows = append(rows, []string{b.Value("name"), b.Value("state"), b.Value("uptime"), b.Value("status")})
				}
				return printTable(c, []string{"NAME", "STATE", "UPTIME", "STATUS"}, rows)
			},
		},
		{
			Name:      "attrs",
			Usage:     "print the Get-VM properties of a VM, or its processor with --processor",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				formatFlag,
				cli.BoolFlag{Name: "processor", Usage: "print Get-VMProcessor instead"},
			},
			Before: appargs.Validate(appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				name := c.Args().First()
				get := hv.Hypervisor.VMAttributes
				if c.Bool("processor") {
					get = hv.Hypervisor.ProcessorAttributes
				}
				b, err := get(appCtx, name)
				if err != nil {
					return err
				}
				return printBlocks(c, b)
			},
		},
		{
			Name:      "start",
			Usage:     "start a VM, or every VM if no name is given",
			ArgsUsage: "[name]",
			Before:    appargs.Validate(appargs.Optional),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				return hv.Hypervisor.StartVM(appCtx, c.Args().First())
			},
		},
		{
			Name:      "stop",
			Usage:     "stop a VM, or every VM if no name is given",
			ArgsUsage: "[name]",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "turn-off", Usage: "cut power instead of shutting the guest down"},
				cli.BoolFlag{Name: "wait", Usage: "wait until the VM is off"},
			},
			Before: appargs.Validate(appargs.Optional),
			Action: func(c *cli.Context) error {
				hv, cfg, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				name := c.Args().First()
				if err := hv.Hypervisor.StopVM(appCtx, name, c.Bool("turn-off")); err != nil {
					return err
				}
				if !c.Bool("wait") {
					return nil
				}
				if name == "" {
					return errors.New("--wait needs a VM name")
				}
				timeout, _, err := parseDuration("vm", cfg.Timeouts.VM)
				if err != nil {
					return err
				}
				if timeout == 0 {
					timeout = hypervisor.DefaultTimeout
				}
				return hv.Hypervisor.WaitVMStopped(appCtx, name, timeout)
			},
		},
		{
			Name:      "state",
			Usage:     "print the state of a VM",
			ArgsUsage: "<name>",
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, _, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				state, err := hv.Hypervisor.VMState(appCtx, c.Args().First())
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, state)
				return nil
			},
		},
		{
			Name:  "ips",
			Usage: "list the VM addresses of the [hv] section of the configured ips file",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "free", Usage: "only print this many addresses that do not answer ping"},
			},
			Before: appargs.Validate(),
			Action: func(c *cli.Context) error {
				hv, cfg, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				if cfg.Images.IPsFile == "" {
					return errors.New("no ips file configured: set [images] ips_file")
				}
				ips, err := hv.Hypervisor.VMIPs(appCtx, cfg.Images.IPsFile)
				if err != nil {
					return err
				}
				if n := c.Int("free"); n > 0 {
					if ips, err = hv.Hypervisor.FreeIPs(appCtx, ips, n); err != nil {
						return err
					}
				}
				for _, ip := range ips {
					mac, err := hv.Hypervisor.FormatMAC(ip, "")
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s\t%s\n", ip, mac)
				}
				return nil
			},
		},
		{
			Name:      "template",
			Usage:     "print the path of a base image on the host, copying it from the image source if needed",
			ArgsUsage: "<image-name>",
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: func(c *cli.Context) error {
				hv, cfg, err := connect(c)
				if err != nil {
					return err
				}
				defer hv.Close()

				if cfg.Images.Source == "" {
					return errors.New("no image source configured: set [images] source")
				}
				p, err := hv.Hypervisor.VMTemplate(appCtx, c.Args().First(), cfg.Images.Source)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, p)
				return nil
			},
		},
	},
}
