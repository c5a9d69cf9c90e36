package vswitch

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// setToGet maps Set-VMSwitch parameters to the Get-VMSwitch property that
// reflects them, where the two differ.
var setToGet = map[string]string{
	"enablerscoffload":           "rscoffloadenabled",
	"enablesoftwarersc":          "softwarerscenabled",
	"enableiov":                  "iovenabled",
	"enableembeddedteaming":      "embeddedteamingenabled",
	"allowmanagementos":          "allowmanagementos",
	"defaultqueuevrssenabled":    "defaultqueuevrssenabledrequested",
	"defaultqueuevmmqenabled":    "defaultqueuevmmqenabledrequested",
	"defaultqueuevmmqqueuepairs": "defaultqueuevmmqqueuepairsrequested",
}

// AttributeFor returns the Get-VMSwitch property name for a Set-VMSwitch
// parameter.
func AttributeFor(param string) string {
	p := strings.ToLower(strings.TrimPrefix(param, "-"))
	if a, ok := setToGet[p]; ok {
		return a
	}
	return p
}

// VSwitch is a switch created through a Manager.
type VSwitch struct {
	name string
	// hostAdapterNames is the quoted adapter list passed to New-VMSwitch.
	hostAdapterNames string
	adapters         []string
	enableIov        bool
	enableTeaming    bool
	manager          *Manager
}

// Name is the switch name.
func (v *VSwitch) Name() string { return v.name }

// HostAdapterName is the name of the host vNIC Hyper-V creates for the
// switch.
func (v *VSwitch) HostAdapterName() string { return "vEthernet (" + v.name + ")" }

// HostAdapterNames is the quoted adapter list the switch was created with.
func (v *VSwitch) HostAdapterNames() string { return v.hostAdapterNames }

// Adapters are the physical adapters bound to the switch.
func (v *VSwitch) Adapters() []string { return append([]string(nil), v.adapters...) }

func (v *VSwitch) IovEnabled() bool     { return v.enableIov }
func (v *VSwitch) TeamingEnabled() bool { return v.enableTeaming }

// Attributes returns the switch properties.
func (v *VSwitch) Attributes(ctx context.Context) (map[string]string, error) {
	b, err := v.manager.Attributes(ctx, v.name)
	if err != nil {
		return nil, err
	}
	return b.Map(), nil
}

// SetAndVerifyAttribute sets a Set-VMSwitch parameter and checks the
// matching property reports the new value.
func (v *VSwitch) SetAndVerifyAttribute(ctx context.Context, param, value string) error {
	if err := v.manager.SetAttribute(ctx, v.name, param, value); err != nil {
		return err
	}
	if err := v.manager.sleep(ctx); err != nil {
		return err
	}
	attrs, err := v.manager.Attributes(ctx, v.name)
	if err != nil {
		return err
	}
	attr := AttributeFor(param)
	got, ok := attrs.Get(attr)
	if !ok {
		return errors.Errorf("vswitch %s has no attribute %s", v.name, attr)
	}
	if !strings.EqualFold(got, strings.Trim(value, "$")) {
		return errors.Errorf("vswitch %s: %s is %q after setting %s to %q", v.name, attr, got, param, value)
	}
	return nil
}

// Rename renames the switch. The switch stays tracked under its new name.
func (v *VSwitch) Rename(ctx context.Context, newName string) error {
	if err := v.manager.Rename(ctx, v.name, newName); err != nil {
		return err
	}
	_, tracked := v.manager.switches.Remove(v.name)
	v.name = newName
	if tracked {
		return v.manager.switches.Add(v)
	}
	return nil
}
