// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import (
	"path"
	"strings"
)

// Module describes a single kernel module file known to the index.
type Module struct {
	// Name is the normalized module name.
	Name string

	// Path is the module file path relative to the module directory.
	Path string

	// Deps are the names of the modules this module directly depends on.
	Deps []string

	// Size is the module file size in bytes. It is populated during
	// resolution.
	Size int64
}

// Module file name suffixes depmod knows about. Module files may be
// compressed with any of the schemes the kernel supports.
var moduleSuffixes = []string{".ko", ".ko.gz", ".ko.xz", ".ko.zst"}

// nameFromPath derives the normalized module name from a module file path
// as found in modules.dep.
func nameFromPath(filePath string) string {
	name := path.Base(filePath)

	for _, suffix := range moduleSuffixes {
		if cut, found := strings.CutSuffix(name, suffix); found {
			name = cut

			break
		}
	}

	return normalizeName(name)
}

// normalizeName folds dashes into underscores. The kernel treats both
// interchangeably in module names.
func normalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
