package report

import (
	"github.com/Microsoft/hvctl/pkg/psparse"
)

// PortName returns the port GUID attached to vmName from a
// `vfpctrl /list-vmswitch-port` dump of the switch named switchName.
// Ports are listed field by field and the VM name comes last, so the port name
// is buffered until its VM line is seen. The lookup is keyed by VM name only;
// when several ports match, the last one in the text is returned.
// That precedence follows the long-standing behavior and may be unintended.
func PortName(text, switchName, vmName string) (string, error) {
	var port, match string
	for _, line := range psparse.Lines(text) {
		k, v, ok := psparse.SplitField(line)
		if !ok {
			continue
		}
		switch psparse.NormalizeKey(k) {
		case "port name":
			port = v
		case "vm name":
			if port != "" && v == vmName {
				match = port
			}
		}
	}
	if match == "" {
		return "", notFound("VM Switch port name", text,
			"Switch Friendly name: "+switchName, "VM name: "+vmName)
	}
	return match, nil
}
