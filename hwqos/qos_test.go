package hwqos

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/mock/gomock"

	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/internal/remote/mock"
	"github.com/Microsoft/hvctl/pkg/report"
)

const vport = "AF4F56A0-802D-4629-88D4-7ECBDB019AE3"

func newQoS(t *testing.T) (*QoS, *mock.MockConnection) {
	t.Helper()
	conn := mock.NewMockConnection(gomock.NewController(t))
	conn.EXPECT().Address().Return("10.0.0.1").AnyTimes()
	return New(conn), conn
}

func expect(conn *mock.MockConnection, cmd, stdout string) *gomock.Call {
	return conn.EXPECT().ExecutePowerShell(gomock.Any(), cmd).Return(&remote.Result{Stdout: stdout}, nil)
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	sq := Queue{ID: "5", Name: "SQ1", Limit: true, TxMax: "500", TxReserve: "0", RxMax: "0"}
	for _, tc := range []struct {
		name string
		cmds []string
		run  func(*QoS) error
	}{
		{
			name: "create",
			cmds: []string{`vfpctrl /switch sw0 /add-queue "5 SQ1 true 500 0 0"`},
			run:  func(q *QoS) error { return q.CreateSchedulerQueue(ctx, "sw0", sq) },
		},
		{
			name: "update",
			cmds: []string{`vfpctrl /switch sw0 /set-queue-config "true 500 0 0" /queue "5"`},
			run:  func(q *QoS) error { return q.UpdateSchedulerQueue(ctx, "sw0", sq) },
		},
		{
			name: "delete",
			cmds: []string{`vfpctrl /switch sw0 /remove-queue /queue "5"`},
			run:  func(q *QoS) error { return q.DeleteSchedulerQueue(ctx, "sw0", "5") },
		},
		{
			name: "set qos config",
			cmds: []string{`vfpctrl /switch sw0 /set-qos-config "false true true 0"`},
			run: func(q *QoS) error {
				return q.SetQoSConfig(ctx, "sw0", report.QoSConfig{HardwareReservations: true, SoftwareReservations: true, Flags: "0"})
			},
		},
		{
			name: "disassociate",
			cmds: []string{"vfpctrl /switch sw0 /port " + vport + " /clear-port-queue"},
			run:  func(q *QoS) error { return q.DisassociateQueues(ctx, "sw0", vport) },
		},
		{
			name: "associate",
			cmds: []string{
				"vfpctrl /switch sw0 /port " + vport + " /enable-port",
				"vfpctrl /switch sw0 /port " + vport + " /unblock-port",
				"vfpctrl /switch sw0 /port " + vport + " /add-layer '1 layer1 stateless 100 1'",
				"vfpctrl /switch sw0 /port " + vport + " /set-port-queue 5",
			},
			run: func(q *QoS) error { return q.AssociateQueue(ctx, "sw0", vport, "5", 1, "layer1") },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q, conn := newQoS(t)
			var calls []any
			for _, cmd := range tc.cmds {
				calls = append(calls, expect(conn, cmd, ""))
			}
			gomock.InOrder(calls...)
			if err := tc.run(q); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestCommand_Failure(t *testing.T) {
	q, conn := newQoS(t)
	conn.EXPECT().ExecutePowerShell(gomock.Any(), gomock.Any()).
		Return(&remote.Result{ExitCode: 1, Stdout: "Command remove-queue failed!"}, nil)

	err := q.DeleteSchedulerQueue(context.Background(), "sw0", "5")
	var ee *remote.ExecutionError
	if !errors.As(err, &ee) || ee.ExitCode != 1 {
		t.Fatalf("expected execution error, got %v", err)
	}
}

func TestInvalidVPort(t *testing.T) {
	q, _ := newQoS(t)
	err := q.DisassociateQueues(context.Background(), "sw0", "not-a-guid")
	if !errors.Is(err, errdefs.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestQoSConfig(t *testing.T) {
	q, conn := newQoS(t)
	expect(conn, "vfpctrl /switch sw0 /get-qos-config", `
 ITEM LIST
===========

SWITCH QOS CONFIG
Enable Hardware Caps: FALSE
Enable Hardware Reservations: FALSE
Enable Software Reservations: TRUE
Flags: 0x00
Command get-qos-config succeeded!
`)

	got, err := q.QoSConfig(context.Background(), "sw0")
	if err != nil {
		t.Fatal(err)
	}
	want := report.QoSConfig{SoftwareReservations: true, Flags: "0x00"}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestListQueuesWithVPort(t *testing.T) {
	q, conn := newQoS(t)
	expect(conn, "vfpctrl /switch sw0 /port "+vport+" /get-port-queue", `
 ITEM LIST
===========

    QOS QUEUE: 2
      Friendly name : SQ1
      Transmit Limit: 1000

    QOS QUEUE: 4
      Friendly name : SQ1
      Transmit Limit: 1000

  Port: AF4F56A0-802D-4629-88D4-7ECBDB019AE3
    Friendly Name: vSwitch000_External
Command get-port-queue succeeded!
`)

	ids, err := q.ListQueuesWithVPort(context.Background(), "sw0", vport)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2", "4"}, ids); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestVMSwitchPortName(t *testing.T) {
	q, conn := newQoS(t)
	expect(conn, ListPortsCommand, `Port name             : 924950C2-4D3F-47E2-A7BA-C0E322C51C66
Port Friendly name    : Dynamic Ethernet Switch Port
Switch Friendly name  : vSwitch00
PortId                : 3
NIC Friendly name  : Network Adapter
VM name            : vm00-2019
`)

	got, err := q.VMSwitchPortName(context.Background(), "vSwitch00", "vm00-2019")
	if err != nil {
		t.Fatal(err)
	}
	if got != "924950C2-4D3F-47E2-A7BA-C0E322C51C66" {
		t.Fatalf("got %q", got)
	}
}

func TestVMSwitchPortName_NoMatch(t *testing.T) {
	q, conn := newQoS(t)
	expect(conn, ListPortsCommand, "")

	_, err := q.VMSwitchPortName(context.Background(), "vSwitch00", "vm00-2019")
	if !errors.Is(err, errdefs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "Switch Friendly name: vSwitch00 and VM name: vm00-2019") {
		t.Fatalf("unexpected message %q", err)
	}
}

const queueReport = `
 ITEM LIST
===========


  QOS QUEUE: 2
      Friendly name : SQ2
      Enforce intra-host limit: TRUE
      Transmit Limit: 10000
      Transmit Reservation: 0
      Receive Limit: 0

      Current Transmit Info:
        Rate: 10000
        Throttled Packets: 0

  QOS QUEUE: 1
      Friendly name : SQ1
      Transmit Limit: 500
Command list-queue succeeded!
`

func TestIsSchedulerQueueCreated(t *testing.T) {
	for _, tc := range []struct {
		name    string
		outputs [3]string
		txMax   string
		want    bool
	}{
		{"created", [3]string{queueReport, queueReport, queueReport}, "10000", true},
		{"other limit", [3]string{queueReport, queueReport, queueReport}, "500", false},
		{"missing from offload", [3]string{queueReport, queueReport, "offload_result"}, "10000", false},
		{"missing everywhere", [3]string{"output", "out_get_all_info", "offload_result"}, "10000", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q, conn := newQoS(t)
			conn.EXPECT().ExecutePowerShell(gomock.Any(), "vfpctrl /switch sample_vswitch /list-queue").
				Return(&remote.Result{Stdout: tc.outputs[0]}, nil).MaxTimes(1)
			conn.EXPECT().ExecutePowerShell(gomock.Any(), `vfpctrl /switch sample_vswitch /get-queue-info "all"`).
				Return(&remote.Result{Stdout: tc.outputs[1]}, nil).MaxTimes(1)
			conn.EXPECT().ExecutePowerShell(gomock.Any(), `vfpctrl /switch sample_vswitch /get-queue-info "offload" /queue "2"`).
				Return(&remote.Result{Stdout: tc.outputs[2]}, nil).MaxTimes(1)

			got, err := q.IsSchedulerQueueCreated(context.Background(), "sample_vswitch", "2", "SQ2", tc.txMax)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %t, want %t", got, tc.want)
			}
		})
	}
}
