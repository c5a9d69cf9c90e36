package report

import (
	"strings"

	"github.com/Microsoft/hvctl/pkg/psparse"
)

// QoS config labels printed by `vfpctrl /get-qos-config`.
const (
	LabelHardwareCaps         = "Enable Hardware Caps"
	LabelHardwareReservations = "Enable Hardware Reservations"
	LabelSoftwareReservations = "Enable Software Reservations"
	LabelFlags                = "Flags"
)

// QoSConfig is the switch level QoS configuration.
type QoSConfig struct {
	HardwareCaps         bool   `json:"hw_caps"`
	HardwareReservations bool   `json:"hw_reserv"`
	SoftwareReservations bool   `json:"sw_reserv"`
	Flags                string `json:"flags"`

	// Missing lists the labels that were not present in the report.
	Missing []string `json:"-"`
}

// ParseQoSConfig extracts the switch QoS configuration from text. Labels that
// are absent are recorded in Missing; an error is returned only if none of
// them is present.
func ParseQoSConfig(text string) (QoSConfig, error) {
	values := map[string]string{}
	for _, line := range psparse.Lines(text) {
		k, v, ok := psparse.SplitField(line)
		if !ok {
			continue
		}
		values[psparse.NormalizeKey(k)] = v
	}

	var cfg QoSConfig
	lookup := func(label string) (string, bool) {
		v, ok := values[psparse.NormalizeKey(label)]
		if !ok {
			cfg.Missing = append(cfg.Missing, label)
		}
		return v, ok
	}
	if v, ok := lookup(LabelHardwareCaps); ok {
		cfg.HardwareCaps = strings.EqualFold(v, "true")
	}
	if v, ok := lookup(LabelHardwareReservations); ok {
		cfg.HardwareReservations = strings.EqualFold(v, "true")
	}
	if v, ok := lookup(LabelSoftwareReservations); ok {
		cfg.SoftwareReservations = strings.EqualFold(v, "true")
	}
	if v, ok := lookup(LabelFlags); ok {
		cfg.Flags = v
	}
	if len(cfg.Missing) == 4 {
		return QoSConfig{}, notFound("switch QoS config", text)
	}
	return cfg, nil
}
