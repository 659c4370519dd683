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
)

const (
	snapdBin      = "/usr/lib/snapd/snapd"
	snapdState    = "/var/lib/snapd/state.json"
	snapdApparmor = "/usr/lib/snapd/snapd-apparmor"
)

// WithSnapd returns a [Func] that starts the snap daemon when
// requested, so sandboxed applications installed on the host work in
// the guest. The daemon only starts if it is both installed and
// initialized, otherwise the flag is ignored with a log line.
func WithSnapd() Func {
	return func(state *State) error {
		if !state.Config.Snapd {
			return nil
		}

		err := startSnapd()
		if errors.Is(err, ErrNotAvailable) {
			slog.Info("Snap daemon not present, skipping", "error", err)
			return nil
		}

		return err
	}
}

func startSnapd() error {
	for _, path := range []string{snapdBin, snapdState} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrNotAvailable, path)
		}
	}

	cmd := exec.Command(snapdBin)
	cmd.Env = sessionEnv()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start snapd: %w", err)
	}

	// Reap the daemon whenever it exits. Nobody else will, this
	// process is PID 1.
	go func() {
		_ = cmd.Wait()
	}()

	if _, err := os.Stat(snapdApparmor); err == nil {
		if err := runCommand(snapdApparmor, "start"); err != nil {
			slog.Warn("Load snapd apparmor profiles failed", "error", err)
		}
	}

	return nil
}
