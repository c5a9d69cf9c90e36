package hypervisor

import (
	"context"
	"io"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"

	"github.com/Microsoft/hvctl/internal/remote/mock"
)

func TestParamsCommands(t *testing.T) {
	p := testParams("vm1")
	p.MngInterfaceName = ""
	p.MngMAC = nil
	want := []string{
		"New-VM -Name 'vm1' -MemoryStartupBytes 4096MB -Generation 2 -VHDPath 'diff_disk_path' -Path 'path' -SwitchName 'vswitch'",
		"Set-VMProcessor -VMName 'vm1' -Count 4 -HwThreadCountPerCore 0",
	}
	if diff := cmp.Diff(want, p.commands()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func newGuestVM(t *testing.T, h *Hypervisor) (*VM, *mock.MockConnection) {
	t.Helper()
	guest := mock.NewMockConnection(gomock.NewController(t))
	p := testParams("vm")
	p.MngIP = netip.MustParseAddr("1.1.1.1")
	vm := &VM{params: p, hv: h, guest: guest}
	if err := h.vms.Add(vm); err != nil {
		t.Fatal(err)
	}
	return vm, guest
}

func TestVMStop(t *testing.T) {
	t.Run("guest dropped connection", func(t *testing.T) {
		h, _ := newHypervisor(t)
		vm, guest := newGuestVM(t, h)
		guest.EXPECT().StartProcess(gomock.Any(), "shutdown /s /t 0").Return(io.EOF)

		if err := vm.Stop(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("guest accepted", func(t *testing.T) {
		h, conn := newHypervisor(t)
		vm, guest := newGuestVM(t, h)
		guest.EXPECT().StartProcess(gomock.Any(), "shutdown /s /t 0").Return(nil)
		expect(conn, "Get-VM vm | select * | fl", "Name : vm\r\nState : Off\r\n")

		if err := vm.Stop(context.Background()); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("no guest", func(t *testing.T) {
		h, conn := newHypervisor(t)
		vm := &VM{params: testParams("vm"), hv: h}
		gomock.InOrder(
			expect(conn, "Stop-VM vm", ""),
			expect(conn, "Get-VM vm | select * | fl", "State : Off"),
		)

		if err := vm.Stop(context.Background()); err != nil {
			t.Fatal(err)
		}
	})
}

func TestVMReboot(t *testing.T) {
	for _, tc := range []struct {
		name     string
		shutdown error
	}{
		{"guest dropped connection", io.EOF},
		{"guest accepted", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h, conn := newHypervisor(t)
			vm, guest := newGuestVM(t, h)
			guest.EXPECT().StartProcess(gomock.Any(), "shutdown /r /t 0").Return(tc.shutdown)
			gomock.InOrder(
				expect(conn, "Get-VM vm | select * | fl", "State : Running"),
				expect(conn, "Test-Connection -ComputerName 1.1.1.1 -Count 4 -Quiet", "True"),
			)

			if err := vm.Reboot(context.Background()); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestVMReboot_NoGuest(t *testing.T) {
	h, conn := newHypervisor(t)
	p := testParams("vm")
	p.MngIP = netip.MustParseAddr("1.1.1.1")
	vm := &VM{params: p, hv: h}
	gomock.InOrder(
		expect(conn, "Restart-VM vm -force -confirm:$false", ""),
		expect(conn, "Get-VM vm | select * | fl", "State : Running"),
		expect(conn, "Test-Connection -ComputerName 1.1.1.1 -Count 4 -Quiet", "True"),
	)

	if err := vm.Reboot(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRemoveVM_ClosesGuest(t *testing.T) {
	h, conn := newHypervisor(t)
	vm, guest := newGuestVM(t, h)
	expect(conn, "Remove-VM vm -Force", "")
	guest.EXPECT().Close().Return(nil)

	if err := h.RemoveVM(context.Background(), "vm"); err != nil {
		t.Fatal(err)
	}
	if vm.Guest() != nil {
		t.Fatal("guest connection kept after removal")
	}
}
