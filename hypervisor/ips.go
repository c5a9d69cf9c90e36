package hypervisor

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/poll"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/pkg/psparse"
	"github.com/Microsoft/hvctl/pkg/report"
)

const (
	// DefaultMACPrefix is the Hyper-V OUI.
	DefaultMACPrefix = "00:15:5D"

	// IPsSection is the section of the VM address file that lists the
	// addresses usable by Hyper-V guests.
	IPsSection = "hv"
)

// ErrNoManagementIP is returned when a VM's management adapter never gets an
// IPv4 address.
var ErrNoManagementIP = errors.New("problem with setting IP on mng adapter on one of VMs")

// hostAddr is the management address of the host.
func (h *Hypervisor) hostAddr() (netip.Addr, error) {
	a, err := netip.ParseAddr(h.conn.Address())
	if err != nil {
		return netip.Addr{}, errors.Wrapf(errdefs.ErrInvalidArgument, "host address %q is not an IP", h.conn.Address())
	}
	return a, nil
}

// MngMask returns the prefix length of the host's management subnet.
func (h *Hypervisor) MngMask(ctx context.Context) (int, error) {
	host, err := h.hostAddr()
	if err != nil {
		return 0, err
	}
	out, err := remote.Output(ctx, h.conn, "ipconfig")
	if err != nil {
		return 0, err
	}
	return report.SubnetPrefix(out, host)
}

// VMIPs reads the addresses listed in the [hv] section of the file at path
// on the host and returns the ones in the host's management subnet, the
// host's own address excluded.
func (h *Hypervisor) VMIPs(ctx context.Context, path string) ([]netip.Addr, error) {
	out, err := remote.Output(ctx, h.conn, "Get-Content -Raw -Path "+remote.Quote(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
		IgnoreContinuation:      true,
	}, []byte(out))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	sec, err := f.GetSection(IPsSection)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrNotFound, "no [%s] section in %s", IPsSection, path)
	}

	host, err := h.hostAddr()
	if err != nil {
		return nil, err
	}
	bits, err := h.MngMask(ctx)
	if err != nil {
		return nil, err
	}
	subnet := netip.PrefixFrom(host, bits).Masked()

	var ips []netip.Addr
	for _, k := range sec.KeyStrings() {
		ip, err := netip.ParseAddr(strings.TrimSpace(k))
		if err != nil {
			log.G(ctx).WithField(logfields.Value, k).Debug("skipping entry that is not an address")
			continue
		}
		if ip == host || !subnet.Contains(ip) {
			continue
		}
		ips = append(ips, ip)
	}
	return ips, nil
}

// IsReachable reports whether the host can ping ip.
func (h *Hypervisor) IsReachable(ctx context.Context, ip netip.Addr) (bool, error) {
	out, err := remote.Output(ctx, h.conn, fmt.Sprintf("Test-Connection -ComputerName %s -Count 4 -Quiet", ip),
		remote.WithAnyReturnCode())
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(psparse.Lines(out), func(l string) bool { return strings.EqualFold(l, "true") }), nil
}

// FreeIPs returns the first count addresses of ips that do not answer.
func (h *Hypervisor) FreeIPs(ctx context.Context, ips []netip.Addr, count int) ([]netip.Addr, error) {
	var free []netip.Addr
	for _, ip := range ips {
		if len(free) == count {
			break
		}
		used, err := h.IsReachable(ctx, ip)
		if err != nil {
			return nil, err
		}
		if used {
			log.G(ctx).WithField("ip", ip.String()).Debug("address in use")
			continue
		}
		free = append(free, ip)
	}
	if len(free) < count {
		return free, errors.Wrapf(errdefs.ErrResourceExhausted, "found %d free addresses, need %d", len(free), count)
	}
	return free, nil
}

// FormatMAC builds a MAC address from prefix and the last three octets of
// ip. An empty prefix uses the configured one.
func (h *Hypervisor) FormatMAC(ip netip.Addr, prefix string) (string, error) {
	if prefix == "" {
		prefix = h.macPrefix
	}
	return FormatMAC(ip, prefix)
}

// FormatMAC builds a MAC address from prefix and the last three octets of
// ip, e.g. 1.1.1.1 with FF:FF:FF gives ff:ff:ff:01:01:01. IPv4-mapped IPv6
// addresses are accepted; other addresses are rejected.
func FormatMAC(ip netip.Addr, prefix string) (string, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return "", errors.Wrapf(errdefs.ErrInvalidArgument, "cannot derive a MAC address from %q: not an IPv4 address", ip)
	}
	b := ip.As4()
	return strings.ToLower(fmt.Sprintf("%s:%02x:%02x:%02x", prefix, b[1], b[2], b[3])), nil
}

// adapterIPv4 returns the first IPv4 address in an IPAddresses property such
// as {10.91.218.16, fe80::6994:9bd4:d0aa:ff4d}.
func adapterIPv4(v string) (netip.Addr, bool) {
	for _, s := range strings.Split(strings.Trim(v, "{}"), ",") {
		if ip, err := netip.ParseAddr(strings.TrimSpace(s)); err == nil && ip.Is4() {
			return ip, true
		}
	}
	return netip.Addr{}, false
}

// WaitVMManagementIPs waits until an adapter of the VM reports an IPv4
// address and returns it.
func (h *Hypervisor) WaitVMManagementIPs(ctx context.Context, name string) (netip.Addr, error) {
	cmd := "Get-VMNetworkAdapter -VMName " + name + " | select VMName, IPAddresses, MacAddress | fl"
	var found netip.Addr
	err := poll.Until(ctx, h.timeout, func(ctx context.Context) (bool, error) {
		out, err := remote.Output(ctx, h.conn, cmd, remote.WithAnyReturnCode())
		if err != nil {
			return false, nil
		}
		for _, b := range psparse.Parse(out) {
			if ip, ok := adapterIPv4(b.Value("ipaddresses")); ok {
				found = ip
				return true, nil
			}
		}
		return false, nil
	}, h.pollOpts...)
	if err != nil {
		log.G(ctx).WithFields(logrus.Fields{
			logfields.VMName:  name,
			logfields.Timeout: h.timeout,
		}).WithError(err).Error("vm has no management address")
		return netip.Addr{}, errors.Wrapf(ErrNoManagementIP, "vm %s: %v", name, err)
	}
	return found, nil
}
