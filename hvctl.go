// Package hvctl drives a Hyper-V host over a remote PowerShell connection.
//
// A HyperV bundles the managers for virtual switches, VM network adapters,
// VMs and hardware QoS queues that share one connection.
package hvctl

import (
	"context"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Microsoft/hvctl/hwqos"
	"github.com/Microsoft/hvctl/hypervisor"
	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/osversion"
	"github.com/Microsoft/hvctl/vmnic"
	"github.com/Microsoft/hvctl/vswitch"
)

// PowerShellVersionCommand prints the version of the host's PowerShell.
const PowerShellVersionCommand = "$PSVersionTable.PSVersion.ToString()"

// MinPowerShellVersion is the oldest PowerShell the Hyper-V cmdlets used here
// are known to work with.
var MinPowerShellVersion = semver.MustParse("5.1.0")

// HyperV controls one host.
type HyperV struct {
	conn remote.Connection

	Hypervisor *hypervisor.Hypervisor
	VSwitches  *vswitch.Manager
	VMNICs     *vmnic.Manager
	QoS        *hwqos.QoS
}

type options struct {
	hv  []hypervisor.Opt
	vs  []vswitch.ManagerOpt
	nic []vmnic.ManagerOpt
}

// Opt configures the managers created by New.
type Opt func(*options)

func WithHypervisorOpts(o ...hypervisor.Opt) Opt {
	return func(c *options) { c.hv = append(c.hv, o...) }
}

func WithVSwitchOpts(o ...vswitch.ManagerOpt) Opt {
	return func(c *options) { c.vs = append(c.vs, o...) }
}

func WithVMNICOpts(o ...vmnic.ManagerOpt) Opt {
	return func(c *options) { c.nic = append(c.nic, o...) }
}

// New returns a HyperV for the host behind conn. The connection is owned by
// the caller until Close is called.
func New(conn remote.Connection, opts ...Opt) *HyperV {
	var o options
	for _, f := range opts {
		f(&o)
	}
	return &HyperV{
		conn:       conn,
		Hypervisor: hypervisor.New(conn, o.hv...),
		VSwitches:  vswitch.NewManager(conn, o.vs...),
		VMNICs:     vmnic.NewManager(conn, o.nic...),
		QoS:        hwqos.New(conn),
	}
}

// Conn returns the host connection.
func (h *HyperV) Conn() remote.Connection { return h.conn }

// Close closes the host connection.
func (h *HyperV) Close() error { return h.conn.Close() }

// PowerShellVersion returns the host's PowerShell version. Only the first
// three components are kept: 5.1.17763.316 is 5.1.17763.
func (h *HyperV) PowerShellVersion(ctx context.Context) (semver.Version, error) {
	out, err := remote.Output(ctx, h.conn, PowerShellVersionCommand)
	if err != nil {
		return semver.Version{}, errors.Wrap(err, "failed to query PowerShell version")
	}
	parts := strings.Split(strings.TrimSpace(out), ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v, err := semver.ParseTolerant(strings.Join(parts, "."))
	if err != nil {
		return semver.Version{}, errors.Wrapf(errdefs.ErrInvalidArgument, "unexpected PowerShell version %q: %v", out, err)
	}
	return v, nil
}

// Verify checks that the host can be driven: a recent enough PowerShell and
// the Hyper-V feature enabled.
func (h *HyperV) Verify(ctx context.Context) error {
	ps, err := h.PowerShellVersion(ctx)
	if err != nil {
		return err
	}
	if ps.LT(MinPowerShellVersion) {
		return errors.Wrapf(errdefs.ErrFailedPrecondition, "PowerShell %s is older than %s", ps, MinPowerShellVersion)
	}
	osv, err := osversion.FromHost(ctx, h.conn)
	if err != nil {
		return err
	}
	enabled, err := h.Hypervisor.IsHyperVEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return errors.Wrapf(errdefs.ErrFailedPrecondition, "Hyper-V is not enabled on %s", h.conn.Address())
	}
	log.G(ctx).WithFields(logrus.Fields{
		logfields.Host: h.conn.Address(),
		"powershell":   ps.String(),
		"os":           osv.String(),
	}).Info("host verified")
	return nil
}
