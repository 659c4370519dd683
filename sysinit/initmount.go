// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"log/slog"
)

// WithInitMounts returns a [Func] that mounts the additional host
// shares requested via boot parameters.
//
// Unlike the optional scratch mounts these were explicitly asked for,
// so a failing one fails the boot.
func WithInitMounts() Func {
	return func(state *State) error {
		for _, initMount := range state.Config.InitMounts {
			opts := MountOptions{
				FSType: FSType9p,
				Source: initMount.Tag,
				Data:   ninePData,
			}

			if err := Mount(initMount.Dir, opts); err != nil {
				return fmt.Errorf("init mount %s: %w", initMount.Tag, err)
			}

			slog.Debug("Mounted host share",
				"tag", initMount.Tag, "dir", initMount.Dir)
		}

		return nil
	}
}
