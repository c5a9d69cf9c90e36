package main

import (
	"context"
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/Microsoft/hvctl"
	"github.com/Microsoft/hvctl/hypervisor"
	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/poll"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/vmnic"
	"github.com/Microsoft/hvctl/vswitch"
)

// config is the TOML configuration file.
//
//	[host]
//	address = "10.0.0.1"
//	user = "administrator"
//	key_file = "~/.ssh/id_ed25519"
//
//	[timeouts]
//	connect = "30s"
//	vm = "10m"
//	vswitch = "2m"
//	settle = "5s"
//
//	[images]
//	source = '\\share\images'
//	ips_file = 'C:\hvctl\ips.ini'
//	mac_prefix = "00:15:5D"
type config struct {
	Host     hostConfig    `toml:"host"`
	Timeouts timeoutConfig `toml:"timeouts"`
	Images   imageConfig   `toml:"images"`
}

type hostConfig struct {
	Address  string `toml:"address"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	KeyFile  string `toml:"key_file"`
	// Local runs commands on this machine; Shell is the PowerShell to use.
	Local bool   `toml:"local"`
	Shell string `toml:"shell"`
}

// timeoutConfig holds Go duration strings. Empty values keep the library
// defaults.
type timeoutConfig struct {
	Connect string `toml:"connect"`
	VM      string `toml:"vm"`
	VSwitch string `toml:"vswitch"`
	Settle  string `toml:"settle"`
	// Poll is the longest pause between two checks of a condition.
	Poll string `toml:"poll"`
}

type imageConfig struct {
	Source    string `toml:"source"`
	IPsFile   string `toml:"ips_file"`
	MACPrefix string `toml:"mac_prefix"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load TOML %s", path)
	}
	if err := tree.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal TOML %s", path)
	}
	return cfg, nil
}

// configFrom loads the configuration named by --config and applies the
// global overrides. A missing file is only an error if it was asked for.
func configFrom(c *cli.Context) (*config, error) {
	path := c.GlobalString("config")
	cfg := &config{}
	if _, err := os.Stat(path); err == nil || c.GlobalIsSet("config") {
		if cfg, err = loadConfig(path); err != nil {
			return nil, err
		}
	}
	if v := c.GlobalString("host"); v != "" {
		cfg.Host.Address = v
	}
	if v := c.GlobalString("user"); v != "" {
		cfg.Host.User = v
	}
	if v := c.GlobalString("password"); v != "" {
		cfg.Host.Password = v
	}
	if c.GlobalBool("local") {
		cfg.Host.Local = true
	}
	return cfg, nil
}

func parseDuration(name, v string) (time.Duration, bool, error) {
	if v == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false, errors.Wrapf(err, "invalid %s timeout", name)
	}
	return d, true, nil
}

// options turns the timeouts into manager options.
func (cfg *config) options() ([]hvctl.Opt, error) {
	var (
		hvOpts  []hypervisor.Opt
		vsOpts  []vswitch.ManagerOpt
		nicOpts []vmnic.ManagerOpt
	)
	t := cfg.Timeouts
	if d, ok, err := parseDuration("vm", t.VM); err != nil {
		return nil, err
	} else if ok {
		hvOpts = append(hvOpts, hypervisor.WithTimeout(d))
	}
	if d, ok, err := parseDuration("vswitch", t.VSwitch); err != nil {
		return nil, err
	} else if ok {
		vsOpts = append(vsOpts, vswitch.WithTimeout(d))
	}
	if d, ok, err := parseDuration("settle", t.Settle); err != nil {
		return nil, err
	} else if ok {
		hvOpts = append(hvOpts, hypervisor.WithSettleTime(d))
		vsOpts = append(vsOpts, vswitch.WithSettleTime(d))
		nicOpts = append(nicOpts, vmnic.WithSettleTime(d))
	}
	if d, ok, err := parseDuration("poll", t.Poll); err != nil {
		return nil, err
	} else if ok {
		po := poll.WithInterval(min(poll.DefaultInterval, d), d)
		hvOpts = append(hvOpts, hypervisor.WithPollOpts(po))
		vsOpts = append(vsOpts, vswitch.WithPollOpts(po))
	}
	if cfg.Images.MACPrefix != "" {
		hvOpts = append(hvOpts, hypervisor.WithMACPrefix(cfg.Images.MACPrefix))
	}
	return []hvctl.Opt{
		hvctl.WithHypervisorOpts(hvOpts...),
		hvctl.WithVSwitchOpts(vsOpts...),
		hvctl.WithVMNICOpts(nicOpts...),
	}, nil
}

func (cfg *config) dial(ctx context.Context) (remote.Connection, error) {
	h := cfg.Host
	if h.Local {
		return remote.NewLocal(h.Shell), nil
	}
	if h.Address == "" {
		return nil, errors.New("no host configured: set [host] address or pass --host")
	}
	connect, _, err := parseDuration("connect", cfg.Timeouts.Connect)
	if err != nil {
		return nil, err
	}
	return remote.DialSSH(ctx, remote.SSHConfig{
		Host:     h.Address,
		Port:     h.Port,
		User:     h.User,
		Password: h.Password,
		KeyFile:  h.KeyFile,
		Timeout:  connect,
	})
}

// connect opens the configured host. Callers close the returned HyperV.
func connect(c *cli.Context) (*hvctl.HyperV, *config, error) {
	cfg, err := configFrom(c)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, nil, err
	}
	conn, err := cfg.dial(appCtx)
	if err != nil {
		return nil, nil, err
	}
	log.G(appCtx).WithFields(logrus.Fields{
		logfields.Host: conn.Address(),
		"local":        cfg.Host.Local,
	}).Debug("connected")
	return hvctl.New(conn, opts...), cfg, nil
}
