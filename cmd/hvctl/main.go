package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/oc"
)

const usage = `control a Hyper-V host over SSH

hvctl runs Hyper-V and vfpctrl commands on a host through PowerShell and
parses what they print. The host is read from the configuration file and
can be overridden with the global options.`

// appCtx is cancelled on interrupt.
var appCtx = context.Background()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	appCtx = ctx

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "hvctl"
	app.Usage = usage
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Value:  "hvctl.toml",
			Usage:  "path to the TOML configuration file; a missing default file is ignored",
			EnvVar: "HVCTL_CONFIG",
		},
		cli.StringFlag{
			Name:  "host",
			Usage: "host to connect to, overrides the configuration",
		},
		cli.StringFlag{
			Name:  "user, u",
			Usage: "ssh user, overrides the configuration",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "ssh password, overrides the configuration",
			EnvVar: "HVCTL_PASSWORD",
		},
		cli.BoolFlag{
			Name:  "local",
			Usage: "run commands on this machine instead of over SSH",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug output for logging",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "set the format used by logs ('text' or 'json')",
		},
		cli.BoolFlag{
			Name:  "trace",
			Usage: "log a span for every command sent to the host",
		},
	}
	app.Before = setupLogging
	app.Commands = []cli.Command{
		verifyCommand,
		vswitchCommand,
		vmCommand,
		nicCommand,
		qosCommand,
		parseCommand,
	}
	return app
}

func setupLogging(c *cli.Context) error {
	l := logrus.StandardLogger()
	l.SetOutput(c.App.ErrWriter)
	if c.GlobalBool("debug") {
		l.SetLevel(logrus.DebugLevel)
	}
	switch f := c.GlobalString("log-format"); f {
	case "text":
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: log.TimeFormat})
	default:
		return fmt.Errorf("unknown log-format %q", f)
	}
	l.AddHook(log.NewHook())
	if c.GlobalBool("trace") {
		oc.Register(l)
	}
	return nil
}
