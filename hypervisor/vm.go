package hypervisor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"

	"github.com/pkg/errors"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/pkg/psparse"
)

// Params describes a VM to create.
type Params struct {
	Name             string
	CPUCount         int
	HwThreadsPerCore int
	// MemoryMB is the startup memory in megabytes.
	MemoryMB         int
	Generation       int
	VMDirPath        string
	DiffDiskPath     string
	MngInterfaceName string
	MngMAC           net.HardwareAddr
	MngIP            netip.Addr
	VSwitchName      string
}

// commands returns the PowerShell commands that create the VM.
func (p Params) commands() []string {
	q := remote.Quote
	cmds := []string{
		fmt.Sprintf("New-VM -Name %s -MemoryStartupBytes %dMB -Generation %d -VHDPath %s -Path %s -SwitchName %s",
			q(p.Name), p.MemoryMB, p.Generation, q(p.DiffDiskPath), q(p.VMDirPath), q(p.VSwitchName)),
		fmt.Sprintf("Set-VMProcessor -VMName %s -Count %d -HwThreadCountPerCore %d",
			q(p.Name), p.CPUCount, p.HwThreadsPerCore),
	}
	if p.MngInterfaceName != "" {
		cmds = append(cmds, fmt.Sprintf("Rename-VMNetworkAdapter -VMName %s -NewName %s", q(p.Name), q(p.MngInterfaceName)))
	}
	if len(p.MngMAC) > 0 {
		mac := strings.ToUpper(strings.ReplaceAll(p.MngMAC.String(), ":", ""))
		cmds = append(cmds, fmt.Sprintf("Set-VMNetworkAdapter -VMName %s -StaticMacAddress %s", q(p.Name), q(mac)))
	}
	return cmds
}

// VM is a virtual machine created through a Hypervisor.
type VM struct {
	params Params
	hv     *Hypervisor
	guest  remote.Connection
}

func (vm *VM) Name() string { return vm.params.Name }

func (vm *VM) Params() Params { return vm.params }

// MngIP is the management address of the guest.
func (vm *VM) MngIP() netip.Addr { return vm.params.MngIP }

// Guest is the connection to the guest OS, nil if none was opened.
func (vm *VM) Guest() remote.Connection { return vm.guest }

// Attributes returns the Get-VM properties of the VM.
func (vm *VM) Attributes(ctx context.Context) (*psparse.Block, error) {
	return vm.hv.VMAttributes(ctx, vm.params.Name)
}

// WaitFunctional waits until the VM runs and answers on its management
// address.
func (vm *VM) WaitFunctional(ctx context.Context) error {
	return vm.hv.WaitVMFunctional(ctx, vm.params.Name, vm.params.MngIP, vm.hv.timeout)
}

// Start starts the VM and waits until it is functional.
func (vm *VM) Start(ctx context.Context) error {
	if err := vm.hv.StartVM(ctx, vm.params.Name); err != nil {
		return err
	}
	return vm.WaitFunctional(ctx)
}

// shutdown asks the guest to power off or reboot. A connection dropped by
// the guest going down is reported as done.
func (vm *VM) shutdown(ctx context.Context, flag string) (done bool, err error) {
	err = vm.guest.StartProcess(ctx, "shutdown "+flag+" /t 0")
	if errors.Is(err, io.EOF) {
		log.G(ctx).WithField(logfields.VMName, vm.params.Name).Debug("guest dropped the connection on shutdown")
		return true, nil
	}
	return false, errors.Wrapf(err, "failed to shut down the guest of vm %s", vm.params.Name)
}

// Stop shuts the guest down and waits until the VM is off. Without a guest
// connection the VM is stopped through Hyper-V.
func (vm *VM) Stop(ctx context.Context) error {
	if vm.guest == nil {
		if err := vm.hv.StopVM(ctx, vm.params.Name, false); err != nil {
			return err
		}
		return vm.hv.WaitVMStopped(ctx, vm.params.Name, vm.hv.timeout)
	}
	done, err := vm.shutdown(ctx, "/s")
	if err != nil || done {
		return err
	}
	if err := vm.hv.sleep(ctx); err != nil {
		return err
	}
	return vm.hv.WaitVMStopped(ctx, vm.params.Name, vm.hv.timeout)
}

// Reboot restarts the guest and waits until the VM is functional again.
func (vm *VM) Reboot(ctx context.Context) error {
	if vm.guest == nil {
		if err := vm.hv.RestartVM(ctx, vm.params.Name); err != nil {
			return err
		}
		return vm.WaitFunctional(ctx)
	}
	done, err := vm.shutdown(ctx, "/r")
	if err != nil {
		return err
	}
	if !done {
		if err := vm.hv.sleep(ctx); err != nil {
			return err
		}
	}
	return vm.WaitFunctional(ctx)
}

func (vm *VM) closeGuest(ctx context.Context) {
	if vm.guest == nil {
		return
	}
	if err := vm.guest.Close(); err != nil {
		log.G(ctx).WithError(err).Warn("failed to close guest connection")
	}
	vm.guest = nil
}
