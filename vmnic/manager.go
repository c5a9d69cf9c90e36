// Package vmnic manages Hyper-V virtual machine network adapters.
package vmnic

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/registry"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/pkg/psparse"
)

// UntaggedVLAN is reported for adapters that do not tag traffic.
const UntaggedVLAN = 0

const (
	attributeSuffix = " | select * | fl"
	defaultSettle   = 5 * time.Second

	weightOn  = "100"
	weightOff = "0"
)

// Manager adds adapters to VMs on one host and tracks the ones it added.
type Manager struct {
	conn   remote.Connection
	settle time.Duration

	mu         sync.Mutex
	counter    int
	interfaces registry.Registry[*NetworkInterface]
}

// ManagerOpt configures a Manager.
type ManagerOpt func(*Manager)

// WithSettleTime sets the delay between setting an attribute and reading it
// back. Zero disables it.
func WithSettleTime(d time.Duration) ManagerOpt {
	return func(m *Manager) { m.settle = d }
}

func NewManager(conn remote.Connection, opts ...ManagerOpt) *Manager {
	m := &Manager{conn: conn, settle: defaultSettle}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Interfaces returns the adapters created by this manager.
func (m *Manager) Interfaces() []*NetworkInterface {
	return m.interfaces.List()
}

// Get returns a tracked adapter by name.
func (m *Manager) Get(name string) (*NetworkInterface, bool) {
	return m.interfaces.Get(name)
}

// GenerateName returns the next adapter name for vmName.
func (m *Manager) GenerateName(vmName string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("%s_vnic_%03d", vmName, m.counter)
}

func weight(on bool) string {
	if on {
		return weightOn
	}
	return weightOff
}

// Create adds an adapter connected to vswitchName to the VM and sets its
// SR-IOV and VMQ weights.
func (m *Manager) Create(ctx context.Context, vmName, vswitchName string, sriov, vmq bool) (*NetworkInterface, error) {
	name := m.GenerateName(vmName)
	ctx, entry := log.WithFields(ctx, logrus.Fields{
		logfields.VMName:    vmName,
		logfields.VSwitch:   vswitchName,
		logfields.Interface: name,
	})
	entry.Info("adding vm network adapter")

	cmd := fmt.Sprintf(`Add-VMNetworkAdapter -SwitchName "%s" -VMName "%s" -Name "%s"`, vswitchName, vmName, name)
	if _, err := remote.PowerShell(ctx, m.conn, cmd, remote.WithAnyReturnCode()); err != nil {
		return nil, errors.Wrapf(err, "failed to add adapter to vm %s", vmName)
	}
	if err := m.SetAttribute(ctx, name, vmName, "IovWeight", weight(sriov)); err != nil {
		return nil, err
	}
	if err := m.SetAttribute(ctx, name, vmName, "VmqWeight", weight(vmq)); err != nil {
		return nil, err
	}

	nic := &NetworkInterface{
		name:        name,
		vmName:      vmName,
		vswitchName: vswitchName,
		sriov:       sriov,
		vmq:         vmq,
		manager:     m,
	}
	if err := nic.Refresh(ctx); err != nil {
		return nil, err
	}
	if err := m.interfaces.Add(nic); err != nil {
		return nil, err
	}
	return nic, nil
}

// Remove removes an adapter from the VM and forgets it.
func (m *Manager) Remove(ctx context.Context, name, vmName string) error {
	cmd := fmt.Sprintf(`Remove-VMNetworkAdapter -VMName %s -Name "%s"`, vmName, name)
	if _, err := remote.PowerShell(ctx, m.conn, cmd, remote.WithAnyReturnCode()); err != nil {
		return errors.Wrapf(err, "failed to remove adapter %s", name)
	}
	m.interfaces.Remove(name)
	return nil
}

// Connect connects an adapter to every switch matching vswitchName.
func (m *Manager) Connect(ctx context.Context, name, vmName, vswitchName string) error {
	cmd := fmt.Sprintf(`Connect-VMNetworkAdapter -VMName %s -Name "%s" -SwitchName "*%s*"`, vmName, name, vswitchName)
	_, err := remote.PowerShell(ctx, m.conn, cmd, remote.WithAnyReturnCode())
	return errors.Wrapf(err, "failed to connect adapter %s to %s", name, vswitchName)
}

func (m *Manager) Disconnect(ctx context.Context, name, vmName string) error {
	cmd := fmt.Sprintf("Disconnect-VMNetworkAdapter -VMName %s -Name %s", vmName, name)
	_, err := remote.PowerShell(ctx, m.conn, cmd, remote.WithAnyReturnCode())
	return errors.Wrapf(err, "failed to disconnect adapter %s", name)
}

// SetAttribute runs Set-VMNetworkAdapter with -key value.
func (m *Manager) SetAttribute(ctx context.Context, name, vmName, key, value string) error {
	cmd := fmt.Sprintf(`Set-VMNetworkAdapter -Name "%s" -VMName %s -%s %s`, name, vmName, key, value)
	_, err := remote.PowerShell(ctx, m.conn, cmd, remote.WithAnyReturnCode())
	return errors.Wrapf(err, "failed to set %s on adapter %s", key, name)
}

func (m *Manager) blocks(ctx context.Context, cmd string) ([]*psparse.Block, error) {
	out, err := remote.Output(ctx, m.conn, cmd, remote.WithAnyReturnCode())
	if err != nil {
		return nil, err
	}
	return psparse.Parse(out), nil
}

func (m *Manager) block(ctx context.Context, cmd string) (*psparse.Block, error) {
	out, err := remote.Output(ctx, m.conn, cmd, remote.WithAnyReturnCode())
	if err != nil {
		return nil, err
	}
	return psparse.ParseBlock(out)
}

// Attributes returns the properties of every adapter of the VM.
func (m *Manager) Attributes(ctx context.Context, vmName string) ([]*psparse.Block, error) {
	return m.blocks(ctx, "Get-VMNetworkAdapter -Name * -VMName "+vmName+attributeSuffix)
}

// VMInterfaces lists the adapters of the VM as Hyper-V reports them.
func (m *Manager) VMInterfaces(ctx context.Context, vmName string) ([]*psparse.Block, error) {
	return m.blocks(ctx, "Get-VMNetworkAdapter -VMName "+vmName+attributeSuffix)
}

// HostInterfaces lists the host's virtual adapters. Values are lower-cased.
func (m *Manager) HostInterfaces(ctx context.Context) ([]*psparse.Block, error) {
	bs, err := m.blocks(ctx, "Get-VMNetworkAdapter -ManagementOS"+attributeSuffix)
	if err != nil {
		return nil, err
	}
	for i, b := range bs {
		bs[i] = psparse.LowerValues(b)
	}
	return bs, nil
}

// UpdateHostAttributes reads the properties of a host virtual adapter and
// stores them on the tracked interface of the same name, if any.
func (m *Manager) UpdateHostAttributes(ctx context.Context, name string) (*psparse.Block, error) {
	b, err := m.block(ctx, "Get-VMNetworkAdapter -ManagementOS -Name "+name+attributeSuffix)
	if err != nil {
		return nil, errors.Wrapf(err, "host adapter %s", name)
	}
	b = psparse.LowerValues(b)
	if nic, ok := m.interfaces.Get(name); ok {
		nic.setAttributes(b)
	}
	return b, nil
}

// InterfaceVLAN returns the VLAN settings of a VM adapter.
func (m *Manager) InterfaceVLAN(ctx context.Context, name, vmName string) (*psparse.Block, error) {
	b, err := m.block(ctx, fmt.Sprintf("Get-VMNetworkAdapterVlan -VMName %s -VMNetworkAdapterName %s%s", vmName, name, attributeSuffix))
	return b, errors.Wrapf(err, "vlan of adapter %s", name)
}

// InterfaceRDMA returns the RDMA settings of a VM adapter.
func (m *Manager) InterfaceRDMA(ctx context.Context, name, vmName string) (*psparse.Block, error) {
	b, err := m.block(ctx, fmt.Sprintf("Get-VMNetworkAdapterRdma -VMName %s -VMNetworkAdapterName %s%s", vmName, name, attributeSuffix))
	return b, errors.Wrapf(err, "rdma of adapter %s", name)
}

// AttachedToVSwitch returns the name of the host adapter attached to a switch.
func (m *Manager) AttachedToVSwitch(ctx context.Context, vswitchName string) (string, error) {
	cmd := fmt.Sprintf("(Get-VMNetworkAdapter -ManagementOS | ? { $_.SwitchName -eq '%s'}).Name", vswitchName)
	out, err := remote.Output(ctx, m.conn, cmd)
	if err != nil {
		return "", errors.Wrapf(err, "failed to find host adapter of %s", vswitchName)
	}
	return strings.TrimSpace(out), nil
}

// VLANIDForVSwitch returns the VLAN the host adapter of a switch uses:
// the access VLAN in Access mode, UntaggedVLAN otherwise.
func (m *Manager) VLANIDForVSwitch(ctx context.Context, vswitchName string) (int, error) {
	name, err := m.AttachedToVSwitch(ctx, vswitchName)
	if err != nil {
		return 0, err
	}
	b, err := m.block(ctx, "Get-VMNetworkAdapterVlan -ManagementOS -VMNetworkAdapterName "+name+attributeSuffix)
	if err != nil {
		return 0, errors.Wrapf(err, "vlan of host adapter %s", name)
	}

	mode := b.Value("operationmode")
	entry := log.G(ctx).WithFields(logrus.Fields{
		logfields.VSwitch:   vswitchName,
		logfields.Interface: name,
		"mode":              mode,
	})
	switch strings.ToLower(mode) {
	case "access":
		id, err := strconv.Atoi(b.Value("accessvlanid"))
		if err != nil {
			return 0, errors.Wrapf(err, "invalid access vlan id on %s", name)
		}
		entry.WithField("vlan", id).Debug("access vlan")
		return id, nil
	case "untagged":
		entry.Debug("untagged vlan")
		return UntaggedVLAN, nil
	default:
		entry.Warnf("Unsupported VLAN mode (%s) detected, assuming untagged", mode)
		return UntaggedVLAN, nil
	}
}

func (m *Manager) sleep(ctx context.Context) error {
	if m.settle <= 0 {
		return nil
	}
	t := time.NewTimer(m.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
