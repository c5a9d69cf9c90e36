package main

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Microsoft/hvctl/internal/appargs"
	"github.com/Microsoft/hvctl/pkg/psparse"
	"github.com/Microsoft/hvctl/pkg/report"
)

// readCapture reads a file of captured command output. PowerShell redirects
// write UTF-16 with a byte order mark, so a BOM selects the encoding and
// UTF-8 is assumed otherwise.
func readCapture(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, b)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode %s", path)
	}
	return string(out), nil
}

func parseAction(f func(c *cli.Context, text string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		text, err := readCapture(c.Args().First())
		if err != nil {
			return err
		}
		return f(c, text)
	}
}

var parseCommand = cli.Command{
	Name:  "parse",
	Usage: "parse captured command output offline",
	Description: `The parse subcommands run the same parsers the other commands use on
output saved to a file, e.g. with Get-VMSwitch | select * | fl > out.txt.`,
	Subcommands: []cli.Command{
		{
			Name:      "block",
			Usage:     "parse Format-List output into blocks",
			ArgsUsage: "<file>",
			Flags: []cli.Flag{
				formatFlag,
				cli.BoolFlag{Name: "lower", Usage: "lower-case the values"},
			},
			Before: appargs.Validate(appargs.RequiredNonEmpty),
			Action: parseAction(func(c *cli.Context, text string) error {
				blocks := psparse.Parse(text)
				if c.Bool("lower") {
					for i, b := range blocks {
						blocks[i] = psparse.LowerValues(b)
					}
				}
				return printBlocks(c, blocks...)
			}),
		},
		{
			Name:      "disks",
			Usage:     "parse a Win32_LogicalDisk table",
			ArgsUsage: "<file>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: parseAction(func(c *cli.Context, text string) error {
				disks, err := report.DiskFreeSpace(text)
				if err != nil {
					return err
				}
				roots := lo.Keys(disks)
				sort.Strings(roots)
				rows := lo.Map(roots, func(r string, _ int) []string {
					return []string{r, disks[r].Free, disks[r].Total}
				})
				return printTable(c, []string{"DISK", "FREE", "TOTAL"}, rows)
			}),
		},
		{
			Name:      "queues",
			Usage:     "parse a vfpctrl queue report",
			ArgsUsage: "<file>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: parseAction(func(c *cli.Context, text string) error {
				return printQueues(c, report.Queues(text))
			}),
		},
		{
			Name:      "qos",
			Usage:     "parse a vfpctrl /get-qos-config report",
			ArgsUsage: "<file>",
			Flags:     []cli.Flag{formatFlag},
			Before:    appargs.Validate(appargs.RequiredNonEmpty),
			Action: parseAction(func(c *cli.Context, text string) error {
				cfg, err := report.ParseQoSConfig(text)
				if err != nil {
					return err
				}
				return printQoSConfig(c, cfg)
			}),
		},
	},
}
