// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hostrun

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aibor/hostrun/internal/sys"
)

// Run boots the kernel once as described by the given [Spec].
//
// The boot archive is built and QEMU is run until the guest powers
// off. For a scripted session the run succeeds only if the guest
// communicates exit status 0. The archive file is removed, unless
// [Archive.Keep] is set.
func Run(
	ctx context.Context,
	spec *Spec,
	stdin io.Reader,
	stdout, stderr io.Writer,
) error {
	arch, err := sys.ReadELFArch(spec.Archive.Init)
	if err != nil {
		return fmt.Errorf("read init binary arch: %w", err)
	}

	path, removeFn, err := BuildBootArchive(ctx, spec.Archive)
	if err != nil {
		return err
	}
	defer removeFn() //nolint:errcheck

	var channelDir string

	if spec.Scripted() {
		channelDir, err = os.MkdirTemp("", "hostrun")
		if err != nil {
			return fmt.Errorf("create channel dir: %w", err)
		}
		defer os.RemoveAll(channelDir) //nolint:errcheck
	}

	cmd, err := NewQemuCommand(spec, arch, path, channelDir)
	if err != nil {
		return err
	}

	err = cmd.Run(ctx, stdin, stdout, stderr)
	if err != nil {
		return fmt.Errorf("qemu run: %w", err)
	}

	return nil
}
