package report

import (
	"net"
	"net/netip"
	"strings"

	"github.com/Microsoft/hvctl/pkg/psparse"
	"github.com/pkg/errors"
)

// SubnetPrefix returns the prefix length of the adapter that owns ip in
// `ipconfig` output.
func SubnetPrefix(text string, ip netip.Addr) (int, error) {
	owner := false
	for _, line := range psparse.Lines(text) {
		k, v, ok := psparse.SplitField(line)
		if !ok {
			continue
		}
		switch label := strings.ToLower(strings.TrimRight(k, " .")); {
		case strings.Contains(label, " adapter ") && v == "":
			owner = false
		case strings.HasPrefix(label, "ipv4 address"):
			a, err := netip.ParseAddr(stripPreferred(v))
			owner = err == nil && a == ip
		case label == "subnet mask" && owner:
			m := net.ParseIP(v).To4()
			if m == nil {
				return 0, errors.Errorf("invalid subnet mask %q", v)
			}
			ones, bits := net.IPMask(m).Size()
			if bits == 0 {
				return 0, errors.Errorf("non-canonical subnet mask %q", v)
			}
			return ones, nil
		}
	}
	return 0, notFound("subnet mask", "", "IP: "+ip.String())
}

func stripPreferred(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
