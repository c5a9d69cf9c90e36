package hypervisor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/internal/winpath"
	"github.com/Microsoft/hvctl/pkg/psparse"
	"github.com/Microsoft/hvctl/pkg/report"
)

const (
	// VMsDir is the folder VMs are created under on each disk.
	VMsDir = "VMs"

	disksCommand = "Get-CimInstance -ClassName Win32_LogicalDisk | Select-Object Caption, DriveType, FreeSpace, Size | Format-Table -AutoSize"
)

// DisksFreeSpace returns the local fixed disks of the host keyed by root
// path.
func (h *Hypervisor) DisksFreeSpace(ctx context.Context) (map[string]report.DiskSpace, error) {
	out, err := remote.Output(ctx, h.conn, disksCommand)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list disks")
	}
	return report.DiskFreeSpace(out)
}

type disk struct {
	root string
	free uint64
}

// disksByFreeSpace returns the disks sorted by free space, largest first.
func disksByFreeSpace(disks map[string]report.DiskSpace) []disk {
	out := make([]disk, 0, len(disks))
	for root, ds := range disks {
		free, err := strconv.ParseUint(ds.Free, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, disk{root: root, free: free})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].free != out[j].free {
			return out[i].free > out[j].free
		}
		return out[i].root < out[j].root
	})
	return out
}

// DiskPathWithEnoughSpace returns the VMs folder on the disk with the most
// free space, provided it has more than required bytes free.
func (h *Hypervisor) DiskPathWithEnoughSpace(ctx context.Context, required uint64) (string, error) {
	disks, err := h.DisksFreeSpace(ctx)
	if err != nil {
		return "", err
	}
	sorted := disksByFreeSpace(disks)
	if len(sorted) == 0 || sorted[0].free <= required {
		return "", errors.Wrapf(errdefs.ErrResourceExhausted, "no disk that has enough space for %d bytes", required)
	}
	return winpath.Join(sorted[0].root, VMsDir), nil
}

// ClearVMLocations removes the contents of the VMs folder on every disk.
func (h *Hypervisor) ClearVMLocations(ctx context.Context) error {
	disks, err := h.DisksFreeSpace(ctx)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for root := range disks {
		root := root // per-iteration copy; go.mod targets go 1.21 loop semantics
		g.Go(func() error {
			cmd := "Remove-Item -Recurse -Force " + winpath.Join(root, VMsDir, "*")
			_, err := remote.PowerShell(ctx, h.conn, cmd, remote.WithAnyReturnCode())
			return err
		})
	}
	return g.Wait()
}

// ClearVMsFolder removes everything below dir.
func (h *Hypervisor) ClearVMsFolder(ctx context.Context, dir string) error {
	_, err := remote.PowerShell(ctx, h.conn, "get-childitem -Recurse | remove-item -recurse -confirm:$false", remote.WithDir(dir))
	return errors.Wrapf(err, "failed to clear %s", dir)
}

// IsFolderEmpty reports whether dir has no entries.
func (h *Hypervisor) IsFolderEmpty(ctx context.Context, dir string) (bool, error) {
	out, err := remote.Output(ctx, h.conn, "Get-ChildItem | select -ExpandProperty fullname",
		remote.WithDir(dir), remote.WithAnyReturnCode())
	if err != nil {
		return false, err
	}
	return len(psparse.Lines(out)) == 0, nil
}

// FileSize returns the length of a file in bytes.
func (h *Hypervisor) FileSize(ctx context.Context, path string) (int64, error) {
	out, err := remote.Output(ctx, h.conn, fmt.Sprintf("(Get-Item -Path %s).Length", path))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get size of %s", path)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size of %s", path)
	}
	return n, nil
}

// PathExists reports whether path exists on the host.
func (h *Hypervisor) PathExists(ctx context.Context, path string) (bool, error) {
	out, err := remote.Output(ctx, h.conn, "Test-Path -LiteralPath "+remote.Quote(path))
	if err != nil {
		return false, err
	}
	exists := strings.EqualFold(strings.TrimSpace(out), "true")
	log.G(ctx).WithFields(logrus.Fields{
		logfields.Path: path,
		"exists":       exists,
	}).Trace("checked path")
	return exists, nil
}
