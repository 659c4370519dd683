// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"

	"github.com/aibor/hostrun/internal/hostrun"
)

// validateSpec checks that all file parameters of the given [hostrun.Spec]
// point to existing files of the expected kind. It catches the obvious
// mistakes before any work is done.
func validateSpec(spec *hostrun.Spec) error {
	err := ValidateFilePath(spec.Qemu.Kernel)
	if err != nil {
		return fmt.Errorf("kernel file: %w", err)
	}

	err = ValidateFilePath(spec.Archive.Init)
	if err != nil {
		return fmt.Errorf("init binary: %w", err)
	}

	if spec.Archive.ModulesDir != "" {
		err := ValidateDirPath(spec.Archive.ModulesDir)
		if err != nil {
			return fmt.Errorf("module dir: %w", err)
		}
	}

	for _, dir := range spec.Session.Overlays {
		err := ValidateDirPath(dir)
		if err != nil {
			return fmt.Errorf("overlay dir: %w", err)
		}
	}

	for _, mount := range spec.Session.Mounts {
		err := ValidateDirPath(mount.Host)
		if err != nil {
			return fmt.Errorf("mount dir: %w", err)
		}
	}

	return nil
}

// ValidateFilePath checks that the path points to an existing regular
// file.
func ValidateFilePath(name string) error {
	stat, err := os.Stat(name)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !stat.Mode().IsRegular() {
		return ErrNotRegularFile
	}

	return nil
}

// ValidateDirPath checks that the path points to an existing directory.
func ValidateDirPath(name string) error {
	stat, err := os.Stat(name)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !stat.IsDir() {
		return ErrNotDirectory
	}

	return nil
}
