// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mount wraps [unix.Mount] with consistent error decoration.
func mount(target, source, fsType string, flags uintptr, data string) error {
	err := unix.Mount(source, target, fsType, flags, data)
	if err != nil {
		return fmt.Errorf("mount %s (%s) on %s: %w",
			source, fsType, target, err)
	}

	return nil
}

// moveMount moves the mount tree at source onto target.
func moveMount(target, source string) error {
	err := unix.Mount(source, target, "", unix.MS_MOVE, "")
	if err != nil {
		return fmt.Errorf("move mount %s to %s: %w", source, target, err)
	}

	return nil
}

// chrootTo makes dir the new root directory of the process. The dir
// must be a mount point.
func chrootTo(dir string) error {
	if err := unix.Chdir(dir); err != nil {
		return fmt.Errorf("chdir %s: %w", dir, err)
	}

	if err := moveMount("/", "."); err != nil {
		return err
	}

	if err := unix.Chroot("."); err != nil {
		return fmt.Errorf("chroot: %w", err)
	}

	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}

	return nil
}

// mknodChar creates a character device node.
func mknodChar(path string, mode uint32, major, minor uint32) error {
	dev := unix.Mkdev(major, minor)

	err := unix.Mknod(path, unix.S_IFCHR|mode, int(dev))
	if err != nil {
		return fmt.Errorf("mknod %s: %w", path, err)
	}

	return nil
}

// initModule loads a kernel module from memory. params is a space
// separated list of module parameters.
func initModule(data []byte, params string) error {
	err := unix.InitModule(data, params)
	if err != nil {
		return fmt.Errorf("init module: %w", err)
	}

	return nil
}

// finitModule loads a kernel module from the given file descriptor.
// It returns [errors.ErrUnsupported] if the kernel cannot load the
// file with the given flags, so the caller can fall back to
// [initModule].
func finitModule(fd int, params string, flags int) error {
	err := unix.FinitModule(fd, params, flags)
	if errors.Is(err, unix.EOPNOTSUPP) {
		return fmt.Errorf("finit module: %w", errors.ErrUnsupported)
	}

	if err != nil {
		return fmt.Errorf("finit module: %w", err)
	}

	return nil
}

// setHostname sets the system host name.
func setHostname(name string) error {
	err := unix.Sethostname([]byte(name))
	if err != nil {
		return fmt.Errorf("sethostname %s: %w", name, err)
	}

	return nil
}

// kernelRelease returns the release string of the running kernel, as
// uname -r would print it.
func kernelRelease() (string, error) {
	var uts unix.Utsname

	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}

	return unix.ByteSliceToString(uts.Release[:]), nil
}

// poweroff instructs the kernel to reboot. The host always runs the VM
// with reboots disabled, so a reboot terminates the VM immediately on
// all platforms, unlike a power off, which needs working ACPI or PSCI.
// File systems are synced first.
func poweroff() error {
	unix.Sync()

	err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
	if err != nil {
		return fmt.Errorf("reboot: %w", err)
	}

	return nil
}

// sysctl writes value to the sysctl with the given dotted name.
func sysctl(name, value string) error {
	path := "/proc/sys/" + pathFromSysctlName(name)

	err := os.WriteFile(path, []byte(value), 0)
	if err != nil {
		return fmt.Errorf("sysctl %s: %w", name, err)
	}

	return nil
}

func pathFromSysctlName(name string) string {
	path := make([]byte, len(name))
	for idx := range len(name) {
		if name[idx] == '.' {
			path[idx] = '/'
		} else {
			path[idx] = name[idx]
		}
	}

	return string(path)
}
