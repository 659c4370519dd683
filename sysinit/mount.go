// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

const defaultDirMode = 0o755

// FSType is a file system type identifier as used with mount.
type FSType string

// Special file systems used by the init program.
const (
	FSTypeBpf      FSType = "bpf"
	FSTypeCgroup   FSType = "cgroup"
	FSTypeCgroup2  FSType = "cgroup2"
	FSTypeConfig   FSType = "configfs"
	FSTypeDebug    FSType = "debugfs"
	FSTypeDevPts   FSType = "devpts"
	FSTypeDevTmp   FSType = "devtmpfs"
	FSTypeFuseCtl  FSType = "fusectl"
	FSTypeOverlay  FSType = "overlay"
	FSTypeProc     FSType = "proc"
	FSTypeSecurity FSType = "securityfs"
	FSTypeSys      FSType = "sysfs"
	FSTypeTmp      FSType = "tmpfs"
	FSTypeTracing  FSType = "tracefs"
	FSTypeVirtioFS FSType = "virtiofs"
	FSType9p       FSType = "9p"
)

// String implements [fmt.Stringer].
func (t FSType) String() string {
	return string(t)
}

// MountFlags are passed to the mount syscall as is.
type MountFlags uintptr

// MountOptions describe how a mount point is mounted.
type MountOptions struct {
	FSType FSType
	// Source is the mount source. Defaults to the FSType if empty.
	Source string
	Flags  MountFlags
	// Data is the file system specific option string.
	Data string
	// MayFail marks the mount point as optional. Mount errors are
	// collected instead of aborting.
	MayFail bool
}

// MountPoints maps mount point paths to their mount options. Processed
// in lexical path order.
type MountPoints map[string]MountOptions

// EarlyMountPoints returns the base set of kernel file systems required
// by everything else. The diagnostic file systems may be missing from
// the kernel and are allowed to fail.
func EarlyMountPoints() MountPoints {
	return MountPoints{
		"/proc": {
			FSType: FSTypeProc,
			Flags:  unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV,
		},
		"/sys": {
			FSType: FSTypeSys,
			Flags:  unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV,
		},
		"/tmp": {
			FSType: FSTypeTmp,
			Flags:  unix.MS_NOSUID | unix.MS_NODEV,
			Data:   "mode=1777",
		},
		"/run": {
			FSType: FSTypeTmp,
			Flags:  unix.MS_NOSUID | unix.MS_NODEV,
			Data:   "mode=0755",
		},
		"/sys/kernel/config":       {FSType: FSTypeConfig, MayFail: true},
		"/sys/kernel/debug":        {FSType: FSTypeDebug, MayFail: true},
		"/sys/kernel/security":     {FSType: FSTypeSecurity, MayFail: true},
		"/sys/kernel/tracing":      {FSType: FSTypeTracing, MayFail: true},
		"/sys/fs/bpf":              {FSType: FSTypeBpf, MayFail: true},
		"/sys/fs/fuse/connections": {FSType: FSTypeFuseCtl, MayFail: true},
	}
}

// ScratchMountPoints returns the set of host paths that are shadowed
// with fresh tmpfs instances so the guest can write to them without
// touching the host. All of them are optional since the paths may not
// exist on the host.
func ScratchMountPoints() MountPoints {
	mountPoints := MountPoints{
		"/dev/shm": {
			FSType:  FSTypeTmp,
			Flags:   unix.MS_NOSUID | unix.MS_NODEV,
			Data:    "mode=1777",
			MayFail: true,
		},
	}

	for _, path := range []string{
		"/var/cache",
		"/var/log",
		"/var/spool",
		"/var/tmp",
	} {
		mountPoints[path] = MountOptions{
			FSType:  FSTypeTmp,
			Flags:   unix.MS_NOSUID | unix.MS_NODEV,
			MayFail: true,
		}
	}

	return mountPoints
}

// Mount mounts a single mount point. The directory is created if it
// does not exist.
func Mount(path string, opts MountOptions) error {
	source := opts.Source
	if source == "" {
		source = string(opts.FSType)
	}

	if err := os.MkdirAll(path, defaultDirMode); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	return mount(path, source, string(opts.FSType),
		uintptr(opts.Flags), opts.Data)
}

// MountAll mounts all given mount points in lexical path order.
//
// Mount points the kernel has already mounted, determined from
// /proc/self/mounts, are skipped, so the function is safe to use in
// boot setups where some file systems come up automatically. Errors of
// mount points marked MayFail are collected and returned as
// [OptionalMountError] after all other mount points were processed.
func MountAll(mountPoints MountPoints) error {
	mounted := mountedTargets()

	var optErrs OptionalMountError

	for path, opts := range sortedMap(mountPoints) {
		if _, exists := mounted[path]; exists {
			slog.Debug("Mount point already mounted", "path", path)
			continue
		}

		err := Mount(path, opts)
		if err == nil {
			continue
		}

		if !opts.MayFail {
			return err
		}

		optErrs = append(optErrs, err)
	}

	if len(optErrs) > 0 {
		return optErrs
	}

	return nil
}

// WithMountPoints returns a [Func] mounting the given mount points.
// Failed optional mounts are logged only.
func WithMountPoints(mountPoints MountPoints) Func {
	return func(_ *State) error {
		err := MountAll(mountPoints)
		if errors.Is(err, OptionalMountError{}) {
			slog.Info("Optional mounts failed", "error", err)
			return nil
		}

		return err
	}
}

// mountedTargets returns the set of currently mounted mount points.
// Returns an empty set if the mount table is not readable, which is
// the case until proc is mounted.
func mountedTargets() map[string]struct{} {
	targets := map[string]struct{}{}

	file, err := os.Open("/proc/self/mounts")
	if err != nil {
		return targets
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		targets[fields[1]] = struct{}{}
	}

	return targets
}
