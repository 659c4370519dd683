// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Symlinks maps symbolic link paths to their targets.
type Symlinks map[string]string

// DevSymlinks returns the standard links in /dev that user space
// expects. They usually are udev's job, but must exist even if udev is
// not present in the guest.
func DevSymlinks() Symlinks {
	return Symlinks{
		"/dev/core":   "/proc/kcore",
		"/dev/fd":     "/proc/self/fd/",
		"/dev/rtc":    "rtc0",
		"/dev/stdin":  "/proc/self/fd/0",
		"/dev/stdout": "/proc/self/fd/1",
		"/dev/stderr": "/proc/self/fd/2",
	}
}

// CreateSymlinks creates all symbolic links in lexical path order.
// Links that already exist are kept as they are.
func CreateSymlinks(symlinks Symlinks) error {
	for path, target := range sortedMap(symlinks) {
		err := os.Symlink(target, path)
		if err == nil {
			continue
		}

		if errors.Is(err, fs.ErrExist) {
			continue
		}

		return fmt.Errorf("create symlink: %w", err)
	}

	return nil
}

// replaceSymlink creates the symbolic link, removing any existing file
// at the path first.
func replaceSymlink(path, target string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	if err := os.Symlink(target, path); err != nil {
		return fmt.Errorf("create symlink: %w", err)
	}

	return nil
}
