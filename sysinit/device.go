// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const devDir = "/dev"

// deviceNode is a character device created by hand when the kernel
// cannot populate /dev itself.
type deviceNode struct {
	path  string
	mode  uint32
	major uint32
	minor uint32
}

// fallbackDeviceNodes is the minimal set of nodes that keeps logging
// and a console session working on a kernel without devtmpfs.
func fallbackDeviceNodes() []deviceNode {
	return []deviceNode{
		{path: "/dev/console", mode: 0o600, major: 5, minor: 1},
		{path: "/dev/kmsg", mode: 0o644, major: 1, minor: 11},
		{path: "/dev/null", mode: 0o666, major: 1, minor: 3},
	}
}

// WithDeviceNodes returns a [Func] that mounts the device file system
// at /dev plus devpts, and creates the standard convenience symlinks.
//
// Kernels without devtmpfs get a plain tmpfs with a hand-made minimal
// node set instead, so the system comes up degraded rather than mute.
func WithDeviceNodes() Func {
	return func(_ *State) error {
		if err := mountDev(); err != nil {
			return err
		}

		err := Mount(filepath.Join(devDir, "pts"), MountOptions{
			FSType: FSTypeDevPts,
			Flags:  unix.MS_NOSUID | unix.MS_NOEXEC,
		})
		if err != nil {
			return err
		}

		return CreateSymlinks(DevSymlinks())
	}
}

func mountDev() error {
	if _, mounted := mountedTargets()[devDir]; mounted {
		slog.Debug("Device file system already mounted")
		return nil
	}

	devtmpErr := Mount(devDir, MountOptions{
		FSType: FSTypeDevTmp,
		Flags:  unix.MS_NOSUID | unix.MS_NOEXEC,
	})
	if devtmpErr == nil {
		return nil
	}

	slog.Warn("Mount devtmpfs failed, creating device nodes by hand",
		"error", devtmpErr)

	err := Mount(devDir, MountOptions{
		FSType: FSTypeTmp,
		Flags:  unix.MS_NOSUID | unix.MS_NOEXEC,
		Data:   "mode=0755",
	})
	if err != nil {
		return err
	}

	for _, node := range fallbackDeviceNodes() {
		err := mknodChar(node.path, node.mode, node.major, node.minor)
		if err != nil {
			return err
		}
	}

	return nil
}

// Candidate locations of the device manager daemon, in preference
// order. The bare name is looked up in PATH.
var udevdPaths = []string{
	"/usr/lib/systemd/systemd-udevd",
	"/lib/systemd/systemd-udevd",
	"udevd",
}

// WithUdev returns a [Func] that starts the device manager and
// replays device discovery for everything that existed before it came
// up. A guest without a device manager keeps running with the static
// nodes, which is enough for non-interactive workloads.
func WithUdev() Func {
	return func(_ *State) error {
		err := runUdev()
		if errors.Is(err, ErrNotAvailable) {
			slog.Info("No device manager found, skipping coldplug")
			return nil
		}

		return err
	}
}

func runUdev() error {
	udevd, err := findUdevd()
	if err != nil {
		return err
	}

	disableUeventHelper()

	// --daemon makes udevd background itself once it is ready to
	// receive events, so the coldplug trigger cannot race it.
	commands := [][]string{
		{udevd, "--daemon", "--resolve-names=never"},
		{"udevadm", "trigger", "--type=subsystems", "--action=add"},
		{"udevadm", "trigger", "--type=devices", "--action=add"},
		{"udevadm", "settle"},
	}

	for _, command := range commands {
		if err := runCommand(command[0], command[1:]...); err != nil {
			return err
		}
	}

	return nil
}

func findUdevd() (string, error) {
	for _, path := range udevdPaths {
		if !filepath.IsAbs(path) {
			if resolved, err := exec.LookPath(path); err == nil {
				return resolved, nil
			}

			continue
		}

		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: udevd", ErrNotAvailable)
}

// disableUeventHelper turns off the kernel's forking uevent helper.
// With the helper active the kernel forks one process per event, which
// makes coldplug crawl.
func disableUeventHelper() {
	const path = "/sys/kernel/uevent_helper"

	if _, err := os.Stat(path); err != nil {
		return
	}

	if err := os.WriteFile(path, nil, 0); err != nil {
		slog.Warn("Disable uevent helper failed", "error", err)
	}
}
