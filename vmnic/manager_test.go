package vmnic

import (
	"context"
	"errors"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/internal/remote/mock"
)

func newManager(t *testing.T) (*Manager, *mock.MockConnection) {
	t.Helper()
	conn := mock.NewMockConnection(gomock.NewController(t))
	conn.EXPECT().Address().Return("10.0.0.1").AnyTimes()
	return NewManager(conn, WithSettleTime(0)), conn
}

func ok(stdout string) *remote.Result {
	return &remote.Result{Stdout: stdout}
}

func expect(conn *mock.MockConnection, cmd, stdout string) *gomock.Call {
	return conn.EXPECT().ExecutePowerShell(gomock.Any(), cmd).Return(ok(stdout), nil)
}

func TestCreate(t *testing.T) {
	m, conn := newManager(t)
	gomock.InOrder(
		expect(conn, `Add-VMNetworkAdapter -SwitchName "vs_name" -VMName "vm_name" -Name "vm_name_vnic_001"`, ""),
		expect(conn, `Set-VMNetworkAdapter -Name "vm_name_vnic_001" -VMName vm_name -IovWeight 100`, ""),
		expect(conn, `Set-VMNetworkAdapter -Name "vm_name_vnic_001" -VMName vm_name -VmqWeight 0`, ""),
		expect(conn, "Get-VMNetworkAdapter -Name * -VMName vm_name | select * | fl",
			"Name : mng\n\nName : vm_name_vnic_001\nIovWeight : 100\n"),
	)

	nic, err := m.Create(context.Background(), "vm_name", "vs_name", true, false)
	if err != nil {
		t.Fatal(err)
	}
	if nic.Name() != "vm_name_vnic_001" || nic.VSwitchName() != "vs_name" || !nic.SRIOV() || nic.VMQ() {
		t.Fatalf("unexpected adapter %+v", nic)
	}
	if got := nic.Attributes().Value("iovweight"); got != "100" {
		t.Errorf("iovweight: %q", got)
	}
	if len(m.Interfaces()) != 1 {
		t.Fatalf("expected one tracked adapter, got %d", len(m.Interfaces()))
	}
}

func TestCreate_AdapterMissing(t *testing.T) {
	m, conn := newManager(t)
	conn.EXPECT().ExecutePowerShell(gomock.Any(), gomock.Any()).Return(ok(""), nil).Times(4)

	_, err := m.Create(context.Background(), "vm", "vs", false, false)
	if !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(m.Interfaces()) != 0 {
		t.Fatal("missing adapter was tracked")
	}
}

func TestGenerateName(t *testing.T) {
	m, _ := newManager(t)
	for _, want := range []string{"vm001_vnic_001", "vm001_vnic_002"} {
		if got := m.GenerateName("vm001"); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestRemove(t *testing.T) {
	m, conn := newManager(t)
	for _, name := range []string{"x", "y"} {
		if err := m.interfaces.Add(&NetworkInterface{name: name, manager: m}); err != nil {
			t.Fatal(err)
		}
	}
	expect(conn, `Remove-VMNetworkAdapter -VMName vm_name -Name "x"`, "")

	if err := m.Remove(context.Background(), "x", "vm_name"); err != nil {
		t.Fatal(err)
	}
	left := m.Interfaces()
	if len(left) != 1 || left[0].Name() != "y" {
		t.Fatalf("unexpected adapters left: %v", left)
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name string
		cmd  string
		run  func(*Manager) error
	}{
		{
			name: "connect",
			cmd:  `Connect-VMNetworkAdapter -VMName vm_name -Name "iname" -SwitchName "*vswitch_name*"`,
			run:  func(m *Manager) error { return m.Connect(ctx, "iname", "vm_name", "vswitch_name") },
		},
		{
			name: "disconnect",
			cmd:  "Disconnect-VMNetworkAdapter -VMName vm_name -Name iname",
			run:  func(m *Manager) error { return m.Disconnect(ctx, "iname", "vm_name") },
		},
		{
			name: "set attribute",
			cmd:  `Set-VMNetworkAdapter -Name "iname" -VMName vm_name -attr val`,
			run:  func(m *Manager) error { return m.SetAttribute(ctx, "iname", "vm_name", "attr", "val") },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, conn := newManager(t)
			expect(conn, tc.cmd, "")
			if err := tc.run(m); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestAttributes(t *testing.T) {
	m, conn := newManager(t)
	expect(conn, "Get-VMNetworkAdapter -Name * -VMName vm_name | select * | fl", `
            Name : vm001_vnic_001
            Status : {ok}
            IPAddresses : {169.254.168.197, fe80::fd4a:a46a:2c05:90b}
        `)

	bs, err := m.Attributes(context.Background(), "vm_name")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"name":        "vm001_vnic_001",
		"status":      "{ok}",
		"ipaddresses": "{169.254.168.197, fe80::fd4a:a46a:2c05:90b}",
	}
	if len(bs) != 1 {
		t.Fatalf("expected one block, got %d", len(bs))
	}
	if diff := cmp.Diff(want, bs[0].Map()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestVMInterfaces(t *testing.T) {
	m, conn := newManager(t)
	expect(conn, "Get-VMNetworkAdapter -VMName vm_name | select * | fl", "\n    Name : mng\n")

	bs, err := m.VMInterfaces(context.Background(), "vm_name")
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 1 || bs[0].Value("name") != "mng" {
		t.Fatalf("unexpected interfaces %v", bs)
	}
}

const hostAdapter = `
Name : HostAdapter1
Status : {ok}
IPAddresses : {192.168.1.1, fe80::1}
`

func TestHostInterfaces(t *testing.T) {
	m, conn := newManager(t)
	expect(conn, "Get-VMNetworkAdapter -ManagementOS | select * | fl", hostAdapter)

	bs, err := m.HostInterfaces(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 1 {
		t.Fatalf("expected one block, got %d", len(bs))
	}
	if got := bs[0].Value("name"); got != "hostadapter1" {
		t.Errorf("name: %q", got)
	}
	if got := bs[0].Value("ipaddresses"); got != "{192.168.1.1, fe80::1}" {
		t.Errorf("ipaddresses: %q", got)
	}
}

func TestUpdateHostAttributes(t *testing.T) {
	m, conn := newManager(t)
	nic := &NetworkInterface{name: "HostAdapter1", manager: m}
	if err := m.interfaces.Add(nic); err != nil {
		t.Fatal(err)
	}
	expect(conn, "Get-VMNetworkAdapter -ManagementOS -Name HostAdapter1 | select * | fl", hostAdapter)

	if _, err := m.UpdateHostAttributes(context.Background(), "HostAdapter1"); err != nil {
		t.Fatal(err)
	}
	if got := nic.Attributes().Value("name"); got != "hostadapter1" {
		t.Fatalf("name: %q", got)
	}
}

func TestAttachedToVSwitch(t *testing.T) {
	m, conn := newManager(t)
	cmd := "(Get-VMNetworkAdapter -ManagementOS | ? { $_.SwitchName -eq 'managementvSwitch'}).Name"
	expect(conn, cmd, "VMNetworkAdapter1")

	got, err := m.AttachedToVSwitch(context.Background(), "managementvSwitch")
	if err != nil {
		t.Fatal(err)
	}
	if got != "VMNetworkAdapter1" {
		t.Fatalf("got %q", got)
	}
}

func TestAttachedToVSwitch_Error(t *testing.T) {
	m, conn := newManager(t)
	conn.EXPECT().ExecutePowerShell(gomock.Any(), gomock.Any()).
		Return(&remote.Result{ExitCode: 1, Stderr: "Error message"}, nil)

	_, err := m.AttachedToVSwitch(context.Background(), "managementvSwitch")
	if code, ok := remote.ExitCodeOf(err); !ok || code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
}

func TestVLANIDForVSwitch(t *testing.T) {
	for _, tc := range []struct {
		name    string
		vlan    string
		want    int
		warning bool
	}{
		{
			name: "access",
			vlan: `
Name                          : VMNetworkAdapter1
OperationMode                 : Access
AccessVlanId                  : 10
`,
			want: 10,
		},
		{
			name: "untagged",
			vlan: `
Name                          : VMNetworkAdapter1
OperationMode                 : Untagged
`,
			want: 0,
		},
		{
			name: "auto",
			vlan: `
Name                          : VMNetworkAdapter1
Id                            : 1
InterfaceDescription          : "Virtual Ethernet Adapter for VM Network Adapter 1"
MacAddress                    : 00-11-22-33-44-55-66-77
VlanId                        : 10
OperationMode                 : Auto
`,
			want:    UntaggedVLAN,
			warning: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			ctx := log.WithEntry(context.Background(), logrus.NewEntry(logger))

			m, conn := newManager(t)
			gomock.InOrder(
				expect(conn, "(Get-VMNetworkAdapter -ManagementOS | ? { $_.SwitchName -eq 'managementvSwitch'}).Name", "\nVMNetworkAdapter1\n"),
				expect(conn, "Get-VMNetworkAdapterVlan -ManagementOS -VMNetworkAdapterName VMNetworkAdapter1 | select * | fl", tc.vlan),
			)

			got, err := m.VLANIDForVSwitch(ctx, "managementvSwitch")
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
			warned := false
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.WarnLevel && e.Message == "Unsupported VLAN mode (Auto) detected, assuming untagged" {
					warned = true
				}
			}
			if warned != tc.warning {
				t.Errorf("warning logged: %t, want %t", warned, tc.warning)
			}
		})
	}
}
