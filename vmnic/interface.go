package vmnic

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"

	"github.com/Microsoft/hvctl/pkg/psparse"
)

// NetworkInterface is a VM adapter created through a Manager.
type NetworkInterface struct {
	name        string
	vmName      string
	vswitchName string
	sriov       bool
	vmq         bool
	manager     *Manager

	mu    sync.Mutex
	attrs *psparse.Block
}

func (n *NetworkInterface) Name() string   { return n.name }
func (n *NetworkInterface) VMName() string { return n.vmName }
func (n *NetworkInterface) SRIOV() bool    { return n.sriov }
func (n *NetworkInterface) VMQ() bool      { return n.vmq }

// VSwitchName is the switch the adapter was last connected to.
func (n *NetworkInterface) VSwitchName() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vswitchName
}

// Attributes returns the properties cached by the last Refresh.
func (n *NetworkInterface) Attributes() *psparse.Block {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attrs
}

func (n *NetworkInterface) setAttributes(b *psparse.Block) {
	n.mu.Lock()
	n.attrs = b
	n.mu.Unlock()
}

func (n *NetworkInterface) current(ctx context.Context) (*psparse.Block, error) {
	bs, err := n.manager.Attributes(ctx, n.vmName)
	if err != nil {
		return nil, err
	}
	for _, b := range bs {
		if strings.EqualFold(b.Value("name"), n.name) {
			return b, nil
		}
	}
	return nil, errors.Wrapf(errdefs.ErrNotFound, "adapter %s on vm %s", n.name, n.vmName)
}

// Refresh re-reads the adapter's properties from the host.
func (n *NetworkInterface) Refresh(ctx context.Context) error {
	b, err := n.current(ctx)
	if err != nil {
		return err
	}
	n.setAttributes(b)
	return nil
}

// SetAndVerifyAttribute sets a Set-VMNetworkAdapter parameter and checks the
// property of the same name reports the new value.
func (n *NetworkInterface) SetAndVerifyAttribute(ctx context.Context, key, value string) error {
	if err := n.manager.SetAttribute(ctx, n.name, n.vmName, key, value); err != nil {
		return err
	}
	if err := n.manager.sleep(ctx); err != nil {
		return err
	}
	b, err := n.current(ctx)
	if err != nil {
		return err
	}
	n.setAttributes(b)
	if got := b.Value(key); !strings.EqualFold(got, value) {
		return errors.Errorf("adapter %s: %s is %q after setting it to %q", n.name, key, got, value)
	}
	return nil
}

// ConnectToVSwitch connects the adapter to another switch.
func (n *NetworkInterface) ConnectToVSwitch(ctx context.Context, vswitchName string) error {
	if err := n.manager.Connect(ctx, n.name, n.vmName, vswitchName); err != nil {
		return err
	}
	n.mu.Lock()
	n.vswitchName = vswitchName
	n.mu.Unlock()
	return nil
}

// VLANID returns the access VLAN id of the adapter.
func (n *NetworkInterface) VLANID(ctx context.Context) (string, error) {
	b, err := n.manager.InterfaceVLAN(ctx, n.name, n.vmName)
	if err != nil {
		return "", err
	}
	return b.Value("accessvlanid"), nil
}

// RDMAEnabled reports whether the adapter has a non-zero RDMA weight.
func (n *NetworkInterface) RDMAEnabled(ctx context.Context) (bool, error) {
	b, err := n.manager.InterfaceRDMA(ctx, n.name, n.vmName)
	if err != nil {
		return false, err
	}
	w, err := strconv.Atoi(b.Value("rdmaweight"))
	if err != nil {
		return false, errors.Wrapf(err, "invalid rdma weight on %s", n.name)
	}
	return w > 0, nil
}
