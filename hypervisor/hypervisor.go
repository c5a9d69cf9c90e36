// Package hypervisor controls virtual machines, their disks and their
// management addresses on a Hyper-V host.
package hypervisor

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/oc"
	"github.com/Microsoft/hvctl/internal/poll"
	"github.com/Microsoft/hvctl/internal/registry"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/pkg/psparse"
)

const (
	DefaultTimeout = 10 * time.Minute
	defaultSettle  = 10 * time.Second

	attributeSuffix = " | select * | fl"

	// AllVMs selects every VM on the host.
	AllVMs = "*"
)

// VM states reported by Get-VM.
const (
	StateRunning = "Running"
	StateOff     = "Off"
)

// GuestDialer opens a connection to a VM's guest OS through its management
// address.
type GuestDialer func(ctx context.Context, ip netip.Addr) (remote.Connection, error)

// Hypervisor runs Hyper-V commands on one host and tracks the VMs it created.
type Hypervisor struct {
	conn      remote.Connection
	timeout   time.Duration
	settle    time.Duration
	pollOpts  []poll.Opt
	dialGuest GuestDialer
	macPrefix string

	vms registry.Registry[*VM]
}

// Opt configures a Hypervisor.
type Opt func(*Hypervisor)

// WithTimeout bounds how long VM state changes are waited for.
func WithTimeout(d time.Duration) Opt {
	return func(h *Hypervisor) { h.timeout = d }
}

// WithSettleTime sets the pause after a guest is told to shut down or
// reboot. Zero disables it.
func WithSettleTime(d time.Duration) Opt {
	return func(h *Hypervisor) { h.settle = d }
}

func WithPollOpts(o ...poll.Opt) Opt {
	return func(h *Hypervisor) { h.pollOpts = o }
}

// WithGuestDialer sets how connections to the guests of created VMs are
// opened. Without it VMs have no guest connection and are stopped through
// Stop-VM.
func WithGuestDialer(d GuestDialer) Opt {
	return func(h *Hypervisor) { h.dialGuest = d }
}

// WithMACPrefix sets the OUI used by FormatMAC.
func WithMACPrefix(prefix string) Opt {
	return func(h *Hypervisor) { h.macPrefix = prefix }
}

// New returns a Hypervisor for the host behind conn.
func New(conn remote.Connection, opts ...Opt) *Hypervisor {
	h := &Hypervisor{
		conn:      conn,
		timeout:   DefaultTimeout,
		settle:    defaultSettle,
		macPrefix: DefaultMACPrefix,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// VMs returns the VMs created through this Hypervisor.
func (h *Hypervisor) VMs() []*VM { return h.vms.List() }

// GetVM returns a tracked VM by name.
func (h *Hypervisor) GetVM(name string) (*VM, bool) { return h.vms.Get(name) }

func (h *Hypervisor) block(ctx context.Context, cmd string) (*psparse.Block, error) {
	out, err := remote.Output(ctx, h.conn, cmd, remote.WithAnyReturnCode())
	if err != nil {
		return nil, err
	}
	return psparse.ParseBlock(out)
}

// IsHyperVEnabled reports whether the Hyper-V feature is enabled on the host.
func (h *Hypervisor) IsHyperVEnabled(ctx context.Context) (bool, error) {
	b, err := h.block(ctx, "Get-WindowsOptionalFeature -Online -FeatureName Microsoft-Hyper-V"+attributeSuffix)
	if err != nil {
		return false, errors.Wrap(err, "failed to query the Hyper-V feature")
	}
	return strings.EqualFold(b.Value("state"), "enabled"), nil
}

func target(name string) string {
	if name == "" {
		return AllVMs
	}
	return name
}

// StartVM starts the VM named name, or every VM if name is empty.
func (h *Hypervisor) StartVM(ctx context.Context, name string) error {
	_, err := remote.PowerShell(ctx, h.conn, "Start-VM "+target(name), remote.WithAnyReturnCode())
	return errors.Wrapf(err, "failed to start vm %s", target(name))
}

// StopVM stops the VM named name, or every VM if name is empty. turnOff
// cuts power instead of shutting the guest down.
func (h *Hypervisor) StopVM(ctx context.Context, name string, turnOff bool) error {
	cmd := "Stop-VM " + target(name)
	if turnOff {
		cmd += " -TurnOff"
	}
	_, err := remote.PowerShell(ctx, h.conn, cmd, remote.WithAnyReturnCode())
	return errors.Wrapf(err, "failed to stop vm %s", target(name))
}

// RestartVM restarts the VM named name, or every VM if name is empty.
func (h *Hypervisor) RestartVM(ctx context.Context, name string) error {
	cmd := fmt.Sprintf("Restart-VM %s -force -confirm:$false", target(name))
	_, err := remote.PowerShell(ctx, h.conn, cmd, remote.WithAnyReturnCode())
	return errors.Wrapf(err, "failed to restart vm %s", target(name))
}

// VMAttributes returns the Get-VM properties of a VM.
func (h *Hypervisor) VMAttributes(ctx context.Context, name string) (*psparse.Block, error) {
	b, err := h.block(ctx, "Get-VM "+name+attributeSuffix)
	return b, errors.Wrapf(err, "vm %s", name)
}

// ListVMs returns the Get-VM properties of every VM on the host.
func (h *Hypervisor) ListVMs(ctx context.Context) ([]*psparse.Block, error) {
	out, err := remote.Output(ctx, h.conn, "Get-VM"+attributeSuffix)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list vms")
	}
	return psparse.Parse(out), nil
}

// VMState returns the State property of a VM, e.g. Running or Off.
func (h *Hypervisor) VMState(ctx context.Context, name string) (string, error) {
	b, err := h.VMAttributes(ctx, name)
	if err != nil {
		return "", err
	}
	return b.Value("state"), nil
}

// ProcessorAttributes returns the Get-VMProcessor properties of a VM.
func (h *Hypervisor) ProcessorAttributes(ctx context.Context, name string) (*psparse.Block, error) {
	b, err := h.block(ctx, "Get-VMProcessor -VMName "+name+attributeSuffix)
	return b, errors.Wrapf(err, "processor of vm %s", name)
}

// SetProcessorAttribute runs Set-VMProcessor with -key value.
func (h *Hypervisor) SetProcessorAttribute(ctx context.Context, name, key, value string) error {
	cmd := fmt.Sprintf("Set-VMProcessor -VMName %s -%s %s", name, key, value)
	_, err := remote.PowerShell(ctx, h.conn, cmd)
	return errors.Wrapf(err, "failed to set %s on processor of vm %s", key, name)
}

func (h *Hypervisor) waitState(ctx context.Context, name, want string, timeout time.Duration, extra poll.Condition) error {
	err := poll.Until(ctx, timeout, func(ctx context.Context) (bool, error) {
		state, err := h.VMState(ctx, name)
		if err != nil || state != want {
			log.G(ctx).WithError(err).WithField(logfields.State, state).Trace("vm not ready")
			return false, nil
		}
		if extra == nil {
			return true, nil
		}
		return extra(ctx)
	}, h.pollOpts...)
	return errors.Wrapf(err, "vm %s did not reach state %s", name, want)
}

// WaitVMFunctional waits until the VM is running and its management address
// answers.
func (h *Hypervisor) WaitVMFunctional(ctx context.Context, name string, mngIP netip.Addr, timeout time.Duration) error {
	return h.waitState(ctx, name, StateRunning, timeout, func(ctx context.Context) (bool, error) {
		return h.IsReachable(ctx, mngIP)
	})
}

// WaitVMStopped waits until the VM is off.
func (h *Hypervisor) WaitVMStopped(ctx context.Context, name string, timeout time.Duration) error {
	return h.waitState(ctx, name, StateOff, timeout, nil)
}

// CreateVM creates and starts a VM from p. With dynamicMngIP the management
// adapter gets its address from DHCP, CreateVM waits for it and records it
// as the VM's MngIP; otherwise the VM is expected to answer on p.MngIP.
func (h *Hypervisor) CreateVM(ctx context.Context, p Params, dynamicMngIP bool) (_ *VM, err error) {
	ctx, span := oc.StartSpan(ctx, "hypervisor::CreateVM")
	defer span.End()
	defer func() { oc.SetSpanStatus(span, err) }()
	span.AddAttributes(
		trace.StringAttribute(logfields.VMName, p.Name),
		trace.StringAttribute(logfields.VSwitch, p.VSwitchName))

	ctx, entry := log.WithFields(ctx, logrus.Fields{
		logfields.VMName: p.Name,
		logfields.Config: p,
	})
	entry.Info("creating vm")

	for _, cmd := range p.commands() {
		if _, err := remote.PowerShell(ctx, h.conn, cmd); err != nil {
			return nil, errors.Wrapf(err, "failed to create vm %s", p.Name)
		}
	}
	if err := h.StartVM(ctx, p.Name); err != nil {
		return nil, err
	}

	if dynamicMngIP {
		ip, err := h.WaitVMManagementIPs(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		p.MngIP = ip
	} else if p.MngIP.IsValid() {
		if err := h.WaitVMFunctional(ctx, p.Name, p.MngIP, h.timeout); err != nil {
			return nil, err
		}
	}

	vm := &VM{params: p, hv: h}
	if h.dialGuest != nil && p.MngIP.IsValid() {
		if vm.guest, err = h.dialGuest(ctx, p.MngIP); err != nil {
			return nil, errors.Wrapf(err, "failed to connect to the guest of vm %s", p.Name)
		}
	}
	if err := h.vms.Add(vm); err != nil {
		return nil, err
	}
	return vm, nil
}

// RemoveVM deletes the VM named name, or every VM if name is empty, and
// forgets it.
func (h *Hypervisor) RemoveVM(ctx context.Context, name string) error {
	cmd := fmt.Sprintf("Remove-VM %s -Force", target(name))
	if _, err := remote.PowerShell(ctx, h.conn, cmd, remote.WithAnyReturnCode()); err != nil {
		return errors.Wrapf(err, "failed to remove vm %s", target(name))
	}

	var removed []*VM
	if name == "" || name == AllVMs {
		removed = h.vms.Clear()
	} else if vm, ok := h.vms.Remove(name); ok {
		removed = append(removed, vm)
	}
	for _, vm := range removed {
		vm.closeGuest(ctx)
	}
	return nil
}

func (h *Hypervisor) sleep(ctx context.Context) error {
	if h.settle <= 0 {
		return nil
	}
	t := time.NewTimer(h.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
