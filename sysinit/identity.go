// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const roothomeDir = scratchDir + "/roothome"

// WithIdentity returns a [Func] that sets the host name and covers
// host-owned identity files with ephemeral replacements, so the guest
// looks like its own machine and accounts work without passwords,
// while the host-backed files stay untouched.
//
// Each fixup is best effort: a host root may lack any of the files,
// which is logged and skipped.
func WithIdentity() Func {
	return func(state *State) error {
		cfg := state.Config

		if err := setHostname(cfg.Hostname); err != nil {
			slog.Warn("Set hostname failed", "error", err)
		}

		fixups := []func(*Config) error{
			bindHosts,
			bindFstab,
			bindShadow,
			bindSudoers,
			bindPackageLocks,
			maskLVMConfig,
			bindRootHome,
		}

		for _, fixup := range fixups {
			if err := fixup(cfg); err != nil {
				slog.Warn("Identity fixup failed", "error", err)
			}
		}

		return nil
	}
}

// bindMount bind-mounts source over target. The target must exist, it
// is the host file or directory the bind shadows.
func bindMount(source, target string) error {
	return mount(target, source, "", unix.MS_BIND, "")
}

// writeAndBind creates an ephemeral file in the scratch area and binds
// it over the target path.
func writeAndBind(name string, mode os.FileMode, content, target string) error {
	path := filepath.Join(scratchDir, name)

	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return bindMount(path, target)
}

// bindHosts covers /etc/hosts so the guest's host name resolves
// locally no matter what the host machine is called.
func bindHosts(cfg *Config) error {
	content := fmt.Sprintf(
		"127.0.0.1 localhost\n127.0.1.1 %s\n::1 localhost ip6-localhost ip6-loopback\n",
		cfg.Hostname)

	return writeAndBind("hosts", 0o644, content, "/etc/hosts")
}

// bindFstab covers /etc/fstab with an empty file. Nothing in the guest
// must act on the host's mount table.
func bindFstab(*Config) error {
	return writeAndBind("fstab", 0o664, "", "/etc/fstab")
}

// bindShadow covers /etc/shadow with a database synthesized from
// /etc/passwd that makes every account passwordless. The machine is
// transient and host-private, so there is nothing to protect.
func bindShadow(*Config) error {
	passwd, err := os.Open("/etc/passwd")
	if err != nil {
		return fmt.Errorf("read passwd: %w", err)
	}
	defer passwd.Close()

	shadow, err := synthesizeShadow(passwd)
	if err != nil {
		return err
	}

	return writeAndBind("shadow", 0o644, shadow, "/etc/shadow")
}

// synthesizeShadow builds shadow database content with an empty
// password field for every account in the given passwd database.
func synthesizeShadow(passwd io.Reader) (string, error) {
	var sb strings.Builder

	scanner := bufio.NewScanner(passwd)
	for scanner.Scan() {
		name, _, found := strings.Cut(scanner.Text(), ":")
		if !found || name == "" {
			continue
		}

		sb.WriteString(name)
		sb.WriteString("::::::::\n")
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan passwd: %w", err)
	}

	return sb.String(), nil
}

// bindSudoers covers /etc/sudoers with a policy that lets root and the
// target user run anything without a password.
func bindSudoers(cfg *Config) error {
	if cfg.User == "" {
		return nil
	}

	content := fmt.Sprintf(
		"root ALL = (ALL) NOPASSWD: ALL\n%s ALL = (ALL) NOPASSWD: ALL\n",
		cfg.User)

	return writeAndBind("sudoers", 0o440, content, "/etc/sudoers")
}

// dpkgLockFiles are the lock files the Debian package manager insists
// on opening read-write even for read operations.
var dpkgLockFiles = []string{
	"/var/lib/dpkg/lock",
	"/var/lib/dpkg/lock-frontend",
	"/var/lib/dpkg/triggers/Lock",
}

// bindPackageLocks covers package manager lock files with ephemeral
// ones, so package queries work on the read-only host root.
func bindPackageLocks(*Config) error {
	if _, err := os.Stat("/var/lib/dpkg"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	var errs []error

	for _, path := range dpkgLockFiles {
		name := "lock-" + filepath.Base(path)

		if err := writeAndBind(name, 0o640, "", path); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// maskLVMConfig covers the volume manager configuration with an empty
// directory. LVM tools scanning the host's real config would try to
// access devices that do not exist in the guest.
func maskLVMConfig(*Config) error {
	const lvmDir = "/etc/lvm"

	if _, err := os.Stat(lvmDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return Mount(lvmDir, MountOptions{
		FSType: FSTypeTmp,
		Data:   "mode=0755",
	})
}

// bindRootHome gives root an ephemeral writable home directory.
func bindRootHome(*Config) error {
	if err := os.MkdirAll(roothomeDir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", roothomeDir, err)
	}

	if err := bindMount(roothomeDir, "/root"); err != nil {
		return err
	}

	return os.Setenv("HOME", roothomeDir)
}
