package hypervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Microsoft/hvctl/internal/log"
	"github.com/Microsoft/hvctl/internal/logfields"
	"github.com/Microsoft/hvctl/internal/remote"
	"github.com/Microsoft/hvctl/internal/winpath"
	"github.com/Microsoft/hvctl/osversion"
	"github.com/Microsoft/hvctl/pkg/psparse"
	"github.com/Microsoft/hvctl/pkg/report"
)

const (
	// TemplateDir is the folder base images are kept in on each disk.
	TemplateDir = "VM-Template"
	// ImageExt is the extension of base images.
	ImageExt = ".vhdx"

	// MaxWriteTimeSkew is how far apart the write times of two copies of an
	// image may be for them to count as the same image.
	MaxWriteTimeSkew = 300 * time.Second
)

// FileMetadata returns the length and last write time of a file.
func (h *Hypervisor) FileMetadata(ctx context.Context, path string) (report.FileMetadata, error) {
	out, err := remote.Output(ctx, h.conn, "Get-Item -Path "+remote.Quote(path)+attributeSuffix)
	if err != nil {
		return report.FileMetadata{}, errors.Wrapf(err, "failed to read metadata of %s", path)
	}
	return report.ParseFileMetadata(out)
}

// SameMetadata reports whether a and b describe the same file: equal length
// and write times no more than MaxWriteTimeSkew apart.
func SameMetadata(a, b report.FileMetadata) bool {
	if a.Length != b.Length {
		return false
	}
	ta, err := a.ModTime()
	if err != nil {
		return false
	}
	tb, err := b.ModTime()
	if err != nil {
		return false
	}
	d := ta.Sub(tb)
	if d < 0 {
		d = -d
	}
	return d <= MaxWriteTimeSkew
}

// IsLatestImage reports whether the image at path matches its counterpart in
// srcDir. A missing source counts as latest.
func (h *Hypervisor) IsLatestImage(ctx context.Context, path, srcDir string) (bool, error) {
	src := winpath.Join(srcDir, winpath.Base(path))
	exists, err := h.PathExists(ctx, src)
	if err != nil {
		return false, err
	}
	if !exists {
		log.G(ctx).WithField(logfields.Path, src).Warn("source image not found, keeping local copy")
		return true, nil
	}
	local, err := h.FileMetadata(ctx, path)
	if err != nil {
		return false, err
	}
	remoteMD, err := h.FileMetadata(ctx, src)
	if err != nil {
		return false, err
	}
	return SameMetadata(local, remoteMD), nil
}

// VMTemplate returns the path of the base image named name on the host,
// copying it from srcDir when it is missing or outdated.
func (h *Hypervisor) VMTemplate(ctx context.Context, name, srcDir string) (string, error) {
	disks, err := h.DisksFreeSpace(ctx)
	if err != nil {
		return "", err
	}
	sorted := disksByFreeSpace(disks)
	if len(sorted) == 0 {
		return "", errors.Wrap(errdefs.ErrNotFound, "no disk to keep templates on")
	}

	image := name + ImageExt
	for _, d := range sorted {
		dir := winpath.Join(d.root, TemplateDir)
		out, err := remote.Output(ctx, h.conn, "Get-ChildItem -Path "+remote.Quote(dir)+" | select -ExpandProperty fullname",
			remote.WithAnyReturnCode())
		if err != nil {
			return "", err
		}
		for _, p := range psparse.Lines(out) {
			if !strings.EqualFold(winpath.Base(p), image) {
				continue
			}
			latest, err := h.IsLatestImage(ctx, p, srcDir)
			if err != nil {
				return "", err
			}
			if latest {
				return p, nil
			}
			return h.CopyVMImage(ctx, image, winpath.Dir(p), srcDir)
		}
	}
	return h.CopyVMImage(ctx, image, winpath.Join(sorted[0].root, TemplateDir), srcDir)
}

// CopyVMImage copies image from srcDir to dstDir and returns its new path. A
// zip archive named after the image is preferred over the image itself.
func (h *Hypervisor) CopyVMImage(ctx context.Context, image, dstDir, srcDir string) (string, error) {
	dst := winpath.Join(dstDir, image)
	zip := winpath.Join(srcDir, winpath.TrimExt(image)+".zip")
	ctx, entry := log.WithFields(ctx, logrus.Fields{
		logfields.File: image,
		logfields.Dir:  dstDir,
	})

	zipped, err := h.PathExists(ctx, zip)
	if err != nil {
		return "", err
	}
	cmds := []string{"New-Item -ItemType Directory -Force -Path " + remote.Quote(dstDir) + " | Out-Null"}
	switch {
	case !zipped:
		entry.Info("copying image")
		cmds = append(cmds, fmt.Sprintf("Copy-Item -LiteralPath %s -Destination %s -Force",
			remote.Quote(winpath.Join(srcDir, image)), remote.Quote(dstDir)))
	default:
		v, err := osversion.FromHost(ctx, h.conn)
		if err != nil {
			return "", err
		}
		entry.WithField("os", v.String()).Info("expanding image archive")
		if v.IsServer2016() {
			cmds = append(cmds,
				"Remove-Item -LiteralPath "+remote.Quote(dst)+" -Force -ErrorAction SilentlyContinue",
				fmt.Sprintf("Add-Type -AssemblyName System.IO.Compression.FileSystem; [System.IO.Compression.ZipFile]::ExtractToDirectory(%s, %s)",
					remote.Quote(zip), remote.Quote(dstDir)))
		} else {
			cmds = append(cmds, fmt.Sprintf("Expand-Archive -LiteralPath %s -DestinationPath %s -Force",
				remote.Quote(zip), remote.Quote(dstDir)))
		}
	}
	for _, cmd := range cmds {
		if _, err := remote.PowerShell(ctx, h.conn, cmd); err != nil {
			return "", errors.Wrapf(err, "failed to copy %s to %s", image, dstDir)
		}
	}

	exists, err := h.PathExists(ctx, dst)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errors.Wrapf(errdefs.ErrNotFound, "copy succeeded but image %s doesn't exist", dst)
	}
	return dst, nil
}

// CreateDifferencingDisk creates dir\name as a differencing disk of parent
// and returns its path.
func (h *Hypervisor) CreateDifferencingDisk(ctx context.Context, parent, dir, name string) (string, error) {
	path := winpath.Join(dir, name)
	cmd := fmt.Sprintf("New-VHD -ParentPath %s -Path %s -Differencing", remote.Quote(parent), remote.Quote(path))
	if _, err := remote.PowerShell(ctx, h.conn, cmd); err != nil {
		return "", errors.Wrapf(err, "failed to create differencing disk %s", path)
	}
	exists, err := h.PathExists(ctx, path)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errors.Wrapf(errdefs.ErrNotFound, "command execution succeeded but disk %s doesn't exist", path)
	}
	return path, nil
}

func (h *Hypervisor) RemoveDifferencingDisk(ctx context.Context, path string) error {
	_, err := remote.PowerShell(ctx, h.conn, "Remove-Item "+path)
	return errors.Wrapf(err, "failed to remove differencing disk %s", path)
}
