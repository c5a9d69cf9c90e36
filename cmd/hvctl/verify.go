package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl/internal/appargs"
)

var verifyCommand = cli.Command{
	Name:   "verify",
	Usage:  "check that the host runs PowerShell 5.1 or later with Hyper-V enabled",
	Before: appargs.Validate(),
	Action: func(c *cli.Context) error {
		hv, _, err := connect(c)
		if err != nil {
			return err
		}
		defer hv.Close()

		if err := hv.Verify(appCtx); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: ok\n", hv.Conn().Address())
		return nil
	},
}
