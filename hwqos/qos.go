// Package hwqos drives hardware QoS scheduler queues on a Hyper-V switch
// through vfpctrl.
package hwqos

import (
	"context"
	"fmt"

	"github.com/Microsoft/go-winio/pkg/guid"
	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/oc"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/pkg/report"
)

// ListPortsCommand dumps every switch port with its switch and VM.
const ListPortsCommand = "vfpctrl /list-vmswitch-port"

// Queue describes a scheduler queue.
type Queue struct {
	ID   string
	Name string
	// Limit enforces the limits for traffic between VMs on the same host.
	Limit     bool
	TxMax     string
	TxReserve string
	RxMax     string
}

func (q Queue) config() string {
	return fmt.Sprintf("%t %s %s %s", q.Limit, q.TxMax, q.TxReserve, q.RxMax)
}

// QoS runs vfpctrl on one host.
type QoS struct {
	conn remote.Connection
}

// New returns a QoS that runs vfpctrl over conn.
func New(conn remote.Connection) *QoS {
	return &QoS{conn: conn}
}

func (q *QoS) run(ctx context.Context, vswitch, args string) (string, error) {
	return remote.Output(ctx, q.conn, fmt.Sprintf("vfpctrl /switch %s %s", vswitch, args))
}

func (q *QoS) runPort(ctx context.Context, vswitch, vport, args string) (string, error) {
	if _, err := guid.FromString(vport); err != nil {
		return "", errors.Wrapf(errdefs.ErrInvalidArgument, "vport %q is not a GUID", vport)
	}
	return q.run(ctx, vswitch, fmt.Sprintf("/port %s %s", vport, args))
}

// CreateSchedulerQueue adds a queue to the switch.
func (q *QoS) CreateSchedulerQueue(ctx context.Context, vswitch string, sq Queue) error {
	log.G(ctx).WithFields(logrus.Fields{
		logfields.VSwitch: vswitch,
		logfields.Queue:   sq.ID,
		logfields.Config:  sq,
	}).Info("creating scheduler queue")
	_, err := q.run(ctx, vswitch, fmt.Sprintf(`/add-queue "%s %s %s"`, sq.ID, sq.Name, sq.config()))
	return errors.Wrapf(err, "failed to create queue %s on %s", sq.ID, vswitch)
}

// UpdateSchedulerQueue replaces the limits of an existing queue.
func (q *QoS) UpdateSchedulerQueue(ctx context.Context, vswitch string, sq Queue) error {
	_, err := q.run(ctx, vswitch, fmt.Sprintf(`/set-queue-config "%s" /queue "%s"`, sq.config(), sq.ID))
	return errors.Wrapf(err, "failed to update queue %s on %s", sq.ID, vswitch)
}

// DeleteSchedulerQueue removes queue id from the switch.
func (q *QoS) DeleteSchedulerQueue(ctx context.Context, vswitch, id string) error {
	_, err := q.run(ctx, vswitch, fmt.Sprintf(`/remove-queue /queue "%s"`, id))
	return errors.Wrapf(err, "failed to delete queue %s on %s", id, vswitch)
}

// QoSConfig returns the switch QoS configuration.
func (q *QoS) QoSConfig(ctx context.Context, vswitch string) (report.QoSConfig, error) {
	out, err := q.run(ctx, vswitch, "/get-qos-config")
	if err != nil {
		return report.QoSConfig{}, err
	}
	cfg, err := report.ParseQoSConfig(out)
	if err != nil {
		return report.QoSConfig{}, err
	}
	if len(cfg.Missing) > 0 {
		log.G(ctx).WithField("missing", cfg.Missing).Warn("incomplete qos config")
	}
	return cfg, nil
}

// SetQoSConfig replaces the switch QoS configuration.
func (q *QoS) SetQoSConfig(ctx context.Context, vswitch string, cfg report.QoSConfig) error {
	_, err := q.run(ctx, vswitch, fmt.Sprintf(`/set-qos-config "%t %t %t %s"`,
		cfg.HardwareCaps, cfg.HardwareReservations, cfg.SoftwareReservations, cfg.Flags))
	return errors.Wrapf(err, "failed to set qos config on %s", vswitch)
}

// DisassociateQueues detaches every queue from a port.
func (q *QoS) DisassociateQueues(ctx context.Context, vswitch, vport string) error {
	_, err := q.runPort(ctx, vswitch, vport, "/clear-port-queue")
	return err
}

// ListQueuesWithVPort returns the ids of the queues attached to a port.
func (q *QoS) ListQueuesWithVPort(ctx context.Context, vswitch, vport string) ([]string, error) {
	out, err := q.runPort(ctx, vswitch, vport, "/get-port-queue")
	if err != nil {
		return nil, err
	}
	return report.QueueIDs(out), nil
}

// AssociateQueue enables a port, adds a stateless layer to it and attaches
// the queue.
func (q *QoS) AssociateQueue(ctx context.Context, vswitch, vport, queueID string, layerID int, layerName string) error {
	for _, args := range []string{
		"/enable-port",
		"/unblock-port",
		fmt.Sprintf("/add-layer '%d %s stateless 100 1'", layerID, layerName),
		"/set-port-queue " + queueID,
	} {
		if _, err := q.runPort(ctx, vswitch, vport, args); err != nil {
			return errors.Wrapf(err, "failed to attach queue %s to port %s", queueID, vport)
		}
	}
	return nil
}

// VMSwitchPortName returns the port that connects the VM to the switch.
func (q *QoS) VMSwitchPortName(ctx context.Context, vswitch, vmName string) (string, error) {
	out, err := remote.Output(ctx, q.conn, ListPortsCommand)
	if err != nil {
		return "", err
	}
	return report.PortName(out, vswitch, vmName)
}

// ListQueue returns the raw `/list-queue` report of the switch.
func (q *QoS) ListQueue(ctx context.Context, vswitch string) (string, error) {
	return q.run(ctx, vswitch, "/list-queue")
}

// QueueAllInfo returns the raw `/get-queue-info "all"` report.
func (q *QoS) QueueAllInfo(ctx context.Context, vswitch string) (string, error) {
	return q.run(ctx, vswitch, `/get-queue-info "all"`)
}

// QueueOffloadInfo returns the raw offload report of queue id.
func (q *QoS) QueueOffloadInfo(ctx context.Context, vswitch, id string) (string, error) {
	return q.run(ctx, vswitch, fmt.Sprintf(`/get-queue-info "offload" /queue "%s"`, id))
}

// IsSchedulerQueueCreated reports whether the queue shows up with the given
// name and transmit limit in the queue list, the full queue info and the
// offload info.
func (q *QoS) IsSchedulerQueueCreated(ctx context.Context, vswitch, id, name, txMax string) (_ bool, err error) {
	ctx, span := oc.StartSpan(ctx, "hwqos::IsSchedulerQueueCreated")
	defer span.End()
	defer func() { oc.SetSpanStatus(span, err) }()
	span.AddAttributes(
		trace.StringAttribute(logfields.VSwitch, vswitch),
		trace.StringAttribute(logfields.Queue, id))

	reports := []func() (string, error){
		func() (string, error) { return q.ListQueue(ctx, vswitch) },
		func() (string, error) { return q.QueueAllInfo(ctx, vswitch) },
		func() (string, error) { return q.QueueOffloadInfo(ctx, vswitch, id) },
	}
	for i, get := range reports {
		out, err := get()
		if err != nil {
			return false, err
		}
		sq, err := report.FindQueue(out, id, name)
		if errors.Is(err, errdefs.ErrNotFound) {
			log.G(ctx).WithField("report", i).Debug("queue missing from report")
			return false, nil
		} else if err != nil {
			return false, err
		}
		if sq.TransmitLimit() != txMax {
			log.G(ctx).WithFields(logrus.Fields{
				"report": i,
				"limit":  sq.TransmitLimit(),
			}).Debug("queue transmit limit differs")
			return false, nil
		}
	}
	return true, nil
}
