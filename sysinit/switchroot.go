// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// Constants shared between the boot archive built on the host and the
// switch root phase in the guest. The mount tags must match the host's
// share device configuration.
const (
	// rootStagingDir is where the host root share is mounted before it
	// becomes the root directory.
	rootStagingDir = "/newroot"

	virtiofsRootTag = "ROOTFS"
	ninePRootTag    = "/dev/root"
)

// ninePData is the option string for all 9p host shares. It must match
// the protocol variant the host's share devices are created with.
const ninePData = "version=9p2000.L,trans=virtio,access=any"

// InBootArchive reports whether the process is running on the initial
// RAM file system instead of the host-backed root.
//
// The kernel unpacks the boot archive into rootfs, which is a ramfs or
// tmpfs instance, so the file system magic of / tells the two worlds
// apart without requiring proc.
func InBootArchive() (bool, error) {
	var stat unix.Statfs_t

	if err := unix.Statfs("/", &stat); err != nil {
		return false, fmt.Errorf("statfs /: %w", err)
	}

	return stat.Type == unix.RAMFS_MAGIC || stat.Type == unix.TMPFS_MAGIC,
		nil
}

// WithSwitchRoot returns a [Func] that moves the system from the boot
// archive onto the host-backed root file system.
//
// It loads the modules staged in the archive, mounts the host root
// share and makes it the root directory. The phase is a no-op if PID 1
// is already running on the host-backed root.
func WithSwitchRoot() Func {
	return func(_ *State) error {
		inArchive, err := InBootArchive()
		if err != nil {
			return err
		}

		if !inArchive {
			return nil
		}

		return switchRoot()
	}
}

func switchRoot() error {
	// The root share device may be driven by one of the staged
	// modules, so they are loaded first. The archive names them with a
	// numeric prefix, making lexical order the correct load order.
	if err := LoadModules(modulesDir); err != nil {
		return err
	}

	if err := mountHostRoot(rootStagingDir); err != nil {
		return err
	}

	if err := chrootTo(rootStagingDir); err != nil {
		return err
	}

	slog.Debug("Switched to host root")

	return nil
}

// mountHostRoot mounts the host root share read-only at the given
// directory. virtio-fs is preferred, 9p is the fallback for hosts
// without a virtio-fs daemon.
func mountHostRoot(target string) error {
	virtiofsErr := Mount(target, MountOptions{
		FSType: FSTypeVirtioFS,
		Source: virtiofsRootTag,
		Flags:  unix.MS_RDONLY,
	})
	if virtiofsErr == nil {
		return nil
	}

	slog.Debug("Mount virtio-fs root failed, trying 9p",
		"error", virtiofsErr)

	err := Mount(target, MountOptions{
		FSType: FSType9p,
		Source: ninePRootTag,
		Flags:  unix.MS_RDONLY,
		Data:   ninePData,
	})
	if err != nil {
		return fmt.Errorf("mount host root: %w", err)
	}

	return nil
}
