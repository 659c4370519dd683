// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aibor/hostrun/internal/hostrun"
	"github.com/aibor/hostrun/internal/sys"
)

// ErrMountSpecInvalid is returned if a mount flag value is not a
// guest=host directory pair.
var ErrMountSpecInvalid = errors.New("mount must be guest=host")

// MountList is a repeatable mount flag value. Each value is a guest=host
// directory pair. Both paths are made absolute when set. An empty value
// resets the list.
type MountList []hostrun.Mount

func (m *MountList) String() string {
	pairs := make([]string, len(*m))
	for idx, mount := range *m {
		pairs[idx] = mount.Guest + "=" + mount.Host
	}

	return strings.Join(pairs, ",")
}

func (m *MountList) Set(s string) error {
	if s == "" {
		*m = nil
		return nil
	}

	guest, host, found := strings.Cut(s, "=")
	if !found {
		return fmt.Errorf("%w: %s", ErrMountSpecInvalid, s)
	}

	guestPath, err := sys.AbsolutePath(guest)
	if err != nil {
		return fmt.Errorf("guest path: %w", err)
	}

	hostPath, err := sys.AbsolutePath(host)
	if err != nil {
		return fmt.Errorf("host path: %w", err)
	}

	*m = append(*m, hostrun.Mount{Guest: guestPath, Host: hostPath})

	return nil
}
