// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// scratchDir is where per-boot ephemeral directories live. It is a
// tmpfs, so everything below it vanishes with the machine.
const scratchDir = "/tmp"

// WithOverlays returns a [Func] that shadows each configured host
// directory with a writable overlay.
//
// The mounts run as background tasks and are not awaited, so boot does
// not serialize on slow storage. Content below an overlay path may not
// have switched to the overlay yet when later phases or the session
// read it. Callers that need the overlays in place wait with
// [State.WaitBackground].
func WithOverlays() Func {
	return func(state *State) error {
		for _, overlay := range state.Config.Overlays {
			state.Go(func() error {
				return MountOverlay(overlay)
			})
		}

		return nil
	}
}

// MountOverlay mounts a writable overlay onto the overlay's directory,
// with the directory itself as the read-only lower layer. Upper and
// work directories are created fresh below the scratch area.
//
// Mounting retries once without the tuning options, since kernels and
// lower file systems do not consistently support them.
func MountOverlay(overlay Overlay) error {
	dir := filepath.Join(scratchDir, overlay.Name)
	upperDir := filepath.Join(dir, "upper")
	workDir := filepath.Join(dir, "work")

	for _, dir := range []string{upperDir, workDir} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return fmt.Errorf("overlay %s: %w", overlay.Name, err)
		}
	}

	var err error

	for idx, opts := range overlayMountAttempts(overlay, upperDir, workDir) {
		if idx > 0 {
			slog.Debug("Overlay mount failed, retrying with reduced options",
				"name", overlay.Name, "error", err)
		}

		err = Mount(overlay.Dir, opts)
		if err == nil {
			return nil
		}
	}

	return fmt.Errorf("overlay %s: %w", overlay.Name, err)
}

// overlayMountAttempts returns the mount option sets tried in order:
// the tuned variant first, the plain one as fallback.
func overlayMountAttempts(
	overlay Overlay,
	upperDir, workDir string,
) []MountOptions {
	attempts := make([]MountOptions, 0, 2)

	for _, tuned := range []bool{true, false} {
		attempts = append(attempts, MountOptions{
			FSType: FSTypeOverlay,
			Source: overlay.Name,
			Data:   overlayData(overlay.Dir, upperDir, workDir, tuned),
		})
	}

	return attempts
}

// overlayData builds the overlay option string. The tuned variant
// disables the inode index and cross-layer inode numbers, which keeps
// the overlay mountable on lower file systems that cannot support
// them.
func overlayData(lowerDir, upperDir, workDir string, tuned bool) string {
	data := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s",
		lowerDir, upperDir, workDir)

	if tuned {
		data += ",index=off,xino=off"
	}

	return data
}
