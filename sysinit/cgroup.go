// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"log/slog"
	"path/filepath"
)

const cgroupRoot = "/sys/fs/cgroup"

// legacyCgroupControllers are the controllers mounted in the legacy
// per-controller layout.
var legacyCgroupControllers = []string{
	"blkio",
	"cpu",
	"cpuacct",
	"devices",
	"memory",
	"pids",
}

// CgroupMountPoints returns the resource-control mounts.
//
// The default is the unified v2 hierarchy. Legacy mode mounts one v1
// hierarchy per controller instead, for guests whose user space cannot
// deal with v2 yet. All mounts are optional since kernels may lack
// cgroup support entirely or individual controllers.
func CgroupMountPoints(legacy bool) MountPoints {
	if !legacy {
		return MountPoints{
			cgroupRoot: {FSType: FSTypeCgroup2, MayFail: true},
		}
	}

	mountPoints := MountPoints{
		cgroupRoot: {
			FSType:  FSTypeTmp,
			Data:    "mode=0755",
			MayFail: true,
		},
	}

	for _, controller := range legacyCgroupControllers {
		path := filepath.Join(cgroupRoot, controller)
		mountPoints[path] = MountOptions{
			FSType:  FSTypeCgroup,
			Data:    controller,
			MayFail: true,
		}
	}

	return mountPoints
}

// WithCgroups returns a [Func] that mounts the resource-control
// hierarchy. Missing controllers are logged, not fatal.
func WithCgroups() Func {
	return func(state *State) error {
		err := MountAll(CgroupMountPoints(state.Config.LegacyCgroups))
		if errors.Is(err, OptionalMountError{}) {
			slog.Info("Some resource controllers unavailable", "error", err)
			return nil
		}

		return err
	}
}
