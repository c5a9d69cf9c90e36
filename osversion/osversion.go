// Package osversion reads and compares the Windows version of a host.
package osversion

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Microsoft/hvctl/internal/remote"
)

// Server release builds.
const (
	// LTSC2016 is Windows Server 2016 (RS1).
	LTSC2016 = 14393
	// LTSC2019 is Windows Server 2019 (RS5).
	LTSC2019 = 17763
	// LTSC2022 is Windows Server 2022.
	LTSC2022 = 20348
	// LTSC2025 is Windows Server 2025.
	LTSC2025 = 26100
)

// OSVersion is a wrapper for Windows version information
// https://msdn.microsoft.com/en-us/library/windows/desktop/ms724439(v=vs.85).aspx
type OSVersion struct {
	Version      uint32
	MajorVersion uint8
	MinorVersion uint8
	Build        uint16
}

func newVersion(majorVersion, minorVersion uint8, buildNumber uint16) OSVersion {
	osv := OSVersion{
		MajorVersion: majorVersion,
		MinorVersion: minorVersion,
		Build:        buildNumber,
	}
	// Packed the same way GetVersion reports it.
	osv.Version = uint32(buildNumber) << 16
	osv.Version |= uint32(osv.MinorVersion) << 8
	osv.Version |= uint32(osv.MajorVersion)
	return osv
}

// Parse parses a string representation of OSVersion as produced by String
// method.
// The expected format is:
// Major.Minor.Build
//
// The version string may also include a Revision component:
// Major.Minor.Build.Revision
// It will also be parsed but the Revision component will be ignored.
func Parse(str string) (OSVersion, error) {
	p := strings.SplitN(strings.TrimSpace(str), ".", 5)
	if len(p) < 3 || len(p) > 4 {
		return OSVersion{}, fmt.Errorf("unexpected OSVersion format %q", str)
	}

	majorVersion, err := strconv.ParseUint(p[0], 10, 8)
	if err != nil {
		return OSVersion{}, fmt.Errorf("major version is not a valid integer %q", p[0])
	}

	minorVersion, err := strconv.ParseUint(p[1], 10, 8)
	if err != nil {
		return OSVersion{}, fmt.Errorf("minor version is not a valid integer %q", p[1])
	}

	buildNumber, err := strconv.ParseUint(p[2], 10, 16)
	if err != nil {
		return OSVersion{}, fmt.Errorf("build number is not a valid integer %q", p[2])
	}

	return newVersion(uint8(majorVersion), uint8(minorVersion), uint16(buildNumber)), nil
}

// String returns the OSVersion formatted as a string. It implements the
// [fmt.Stringer] interface.
func (osv OSVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", osv.MajorVersion, osv.MinorVersion, osv.Build)
}

// IsServer2016 reports whether osv is a Windows Server 2016 build. Those
// hosts ship a PowerShell whose Expand-Archive cannot handle large images.
func (osv OSVersion) IsServer2016() bool {
	return osv.MajorVersion == 10 && osv.Build == LTSC2016
}

// VersionCommand prints the host's version as Major.Minor.Build.Revision.
const VersionCommand = "[System.Environment]::OSVersion.Version.ToString()"

// FromHost returns the Windows version of the host behind conn.
func FromHost(ctx context.Context, conn remote.Connection) (OSVersion, error) {
	out, err := remote.Output(ctx, conn, VersionCommand)
	if err != nil {
		return OSVersion{}, errors.Wrap(err, "failed to query host OS version")
	}
	return Parse(out)
}
