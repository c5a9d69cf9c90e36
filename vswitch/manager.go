// Package vswitch creates and configures Hyper-V virtual switches.
package vswitch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/poll"
	"github.com/Microsoft/hvctl/internal/registry"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/pkg/psparse"
)

// ManagementName is the switch that carries the host's management traffic.
// It is never removed by RemoveTested.
const ManagementName = "managementvSwitch"

const (
	DefaultTimeout  = 5 * time.Minute
	defaultSettle   = 5 * time.Second
	teamingSuffix   = "_T"
	attributeSuffix = " | select * | fl"
)

// Options describes a switch to create.
type Options struct {
	EnableIov     bool
	EnableTeaming bool
	// Management creates the switch under the exact base name and does not
	// track it for removal.
	Management bool
}

// Manager creates switches on one host and tracks the ones it created.
type Manager struct {
	conn     remote.Connection
	timeout  time.Duration
	settle   time.Duration
	pollOpts []poll.Opt

	mu       sync.Mutex
	counter  int
	switches registry.Registry[*VSwitch]
}

// ManagerOpt configures a Manager.
type ManagerOpt func(*Manager)

// WithTimeout bounds how long the manager waits for a switch to appear.
func WithTimeout(d time.Duration) ManagerOpt {
	return func(m *Manager) { m.timeout = d }
}

// WithPollOpts configures polling while waiting.
func WithPollOpts(o ...poll.Opt) ManagerOpt {
	return func(m *Manager) { m.pollOpts = o }
}

// WithSettleTime sets the delay after a switch operation before its
// attributes are read back. Zero disables it.
func WithSettleTime(d time.Duration) ManagerOpt {
	return func(m *Manager) { m.settle = d }
}

// NewManager returns a manager for the host behind conn.
func NewManager(conn remote.Connection, opts ...ManagerOpt) *Manager {
	m := &Manager{conn: conn, timeout: DefaultTimeout, settle: defaultSettle}
	for _, o := range opts {
		o(m)
	}
	return m
}

// VSwitches returns the switches created by this manager.
func (m *Manager) VSwitches() []*VSwitch {
	return m.switches.List()
}

// Get returns a tracked switch by name.
func (m *Manager) Get(name string) (*VSwitch, bool) {
	return m.switches.Get(name)
}

// GenerateName returns the next unique switch name for base: base_NN,
// suffixed with _T for teamed switches. Numbers are never reused.
func (m *Manager) GenerateName(base string, teaming bool) string {
	m.mu.Lock()
	m.counter++
	n := m.counter
	m.mu.Unlock()

	name := fmt.Sprintf("%s_%02d", base, n)
	if teaming {
		name += teamingSuffix
	}
	return name
}

func quoteAdapters(adapters []string) string {
	return strings.Join(lo.Map(adapters, func(a string, _ int) string { return "'" + a + "'" }), ", ")
}

func psBool(b bool) string {
	if b {
		return "$True"
	}
	return "$False"
}

// Create creates a switch bound to the host adapters named in adapters and
// waits for it to appear.
//
// New-VMSwitch drops the host's connectivity while the adapter is rebound,
// so it is started as a detached process instead of run in the session.
func (m *Manager) Create(ctx context.Context, adapters []string, base string, o Options) (*VSwitch, error) {
	name := base
	if !o.Management {
		name = m.GenerateName(base, o.EnableTeaming)
	}
	quoted := quoteAdapters(adapters)

	cmd := fmt.Sprintf("New-VMSwitch -Name '%s' -NetAdapterName %s -AllowManagementOS $true -EnableIov %s",
		name, quoted, psBool(o.EnableIov))
	if o.EnableTeaming {
		cmd += " -EnableEmbeddedTeaming $true"
	}

	ctx, entry := log.WithFields(ctx, logrus.Fields{
		logfields.VSwitch:     name,
		logfields.NetAdapters: adapters,
	})
	entry.Info("creating vswitch")

	if err := remote.Start(ctx, m.conn, `powershell.exe "`+cmd+`"`); err != nil {
		return nil, errors.Wrapf(err, "failed to create vswitch %s", name)
	}
	if err := m.sleep(ctx); err != nil {
		return nil, err
	}
	if err := m.WaitPresent(ctx, name); err != nil {
		return nil, err
	}

	vs := &VSwitch{
		name:             name,
		hostAdapterNames: quoted,
		adapters:         append([]string(nil), adapters...),
		enableIov:        o.EnableIov,
		enableTeaming:    o.EnableTeaming,
		manager:          m,
	}
	if !o.Management {
		if err := m.switches.Add(vs); err != nil {
			return nil, err
		}
	}
	return vs, nil
}

// CreateManagement returns the management switch, creating it on the adapter
// that owns the connection's address if it does not exist yet.
func (m *Manager) CreateManagement(ctx context.Context) (*VSwitch, error) {
	present, err := m.IsPresent(ctx, ManagementName)
	if err != nil {
		return nil, err
	}
	if present {
		return &VSwitch{name: ManagementName, manager: m}, nil
	}

	cmd := fmt.Sprintf("Get-NetIPAddress | Where-Object -Property IPAddress -EQ %s | "+
		"Where-Object -Property AddressFamily -EQ 'IPv4' | select -ExpandProperty InterfaceAlias", m.conn.Address())
	out, err := remote.Output(ctx, m.conn, cmd, remote.WithExpectedReturnCodes(0))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find the adapter owning %s", m.conn.Address())
	}
	alias := strings.TrimSpace(out)
	if alias == "" {
		return nil, errors.Wrapf(errdefs.ErrNotFound, "no adapter owns %s", m.conn.Address())
	}
	return m.Create(ctx, []string{alias}, ManagementName, Options{Management: true})
}

// Remove deletes the switch named name and forgets it.
func (m *Manager) Remove(ctx context.Context, name string) error {
	if _, err := remote.PowerShell(ctx, m.conn, fmt.Sprintf("Remove-VMSwitch %s -Force", name)); err != nil {
		return errors.Wrapf(err, "failed to remove vswitch %s", name)
	}
	m.switches.Remove(name)
	return nil
}

// RemoveTested deletes every switch on the host except the management one.
func (m *Manager) RemoveTested(ctx context.Context) error {
	cmd := `Get-VMSwitch | Where-Object {$_.Name -ne "` + ManagementName + `"} | Remove-VMSwitch -force -Confirm:$false`
	if _, err := remote.PowerShell(ctx, m.conn, cmd); err != nil {
		return errors.Wrap(err, "failed to remove vswitches")
	}
	m.switches.Clear()
	return nil
}

// Attributes returns the properties of a switch. Values are lower-cased.
func (m *Manager) Attributes(ctx context.Context, name string) (*psparse.Block, error) {
	out, err := remote.Output(ctx, m.conn, "Get-VMSwitch "+name+attributeSuffix, remote.WithAnyReturnCode())
	if err != nil {
		return nil, err
	}
	b, err := psparse.ParseBlock(out)
	if err != nil {
		return nil, errors.Wrapf(err, "vswitch %s", name)
	}
	return psparse.LowerValues(b), nil
}

// SetAttribute runs Set-VMSwitch with -key value.
func (m *Manager) SetAttribute(ctx context.Context, name, key, value string) error {
	_, err := remote.PowerShell(ctx, m.conn, fmt.Sprintf("Set-VMSwitch -Name %s -%s %s", name, key, value))
	return errors.Wrapf(err, "failed to set %s on vswitch %s", key, name)
}

// List returns the names of every switch on the host.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	out, err := remote.Output(ctx, m.conn, "Get-VMSwitch | select -ExpandProperty Name", remote.WithAnyReturnCode())
	if err != nil {
		return nil, err
	}
	return psparse.Lines(out), nil
}

// IsPresent reports whether a switch named name exists.
func (m *Manager) IsPresent(ctx context.Context, name string) (bool, error) {
	names, err := m.List(ctx)
	if err != nil {
		return false, err
	}
	return lo.Contains(names, name), nil
}

// WaitPresent waits until a switch named name exists.
func (m *Manager) WaitPresent(ctx context.Context, name string) error {
	err := poll.Until(ctx, m.timeout, func(ctx context.Context) (bool, error) {
		return m.IsPresent(ctx, name)
	}, m.pollOpts...)
	if errors.Is(err, poll.ErrTimeout) {
		return errors.Wrapf(err, "cannot find vswitch %s", name)
	}
	return err
}

// Rename renames a switch and checks the new name took effect.
func (m *Manager) Rename(ctx context.Context, name, newName string) error {
	cmd := fmt.Sprintf(`Rename-VMSwitch "%s" -NewName "%s"`, name, newName)
	if _, err := remote.PowerShell(ctx, m.conn, cmd); err != nil {
		return errors.Wrapf(err, "failed to rename vswitch %s", name)
	}
	attrs, err := m.Attributes(ctx, newName)
	if err != nil {
		return err
	}
	if got := attrs.Value("name"); got != strings.ToLower(newName) {
		return errors.Errorf("vswitch %s was not renamed to %s, name is %q", name, newName, got)
	}
	return nil
}

// Mapping returns switch name to NetAdapterInterfaceDescription for every
// switch on the host. Failures yield an empty mapping.
func (m *Manager) Mapping(ctx context.Context) map[string]string {
	mapping := make(map[string]string)
	res, err := remote.PowerShell(ctx, m.conn, "Get-VMSwitch"+attributeSuffix, remote.WithAnyReturnCode())
	if err != nil || res.ExitCode != 0 {
		log.G(ctx).WithError(err).Warn("failed to list vswitches")
		return mapping
	}
	for _, b := range psparse.Parse(res.Stdout) {
		mapping[b.Value("name")] = b.Value("netadapterinterfacedescription")
	}
	return mapping
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
