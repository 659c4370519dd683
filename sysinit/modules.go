// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/aibor/hostrun/internal/kmod"
)

// modulesDir is the standard kernel module path. The boot archive
// stages its module files below the same path.
const modulesDir = "/lib/modules"

// WithModuleTree returns a [Func] that sets up /lib/modules for the
// running kernel according to the configured [ModulesMode].
func WithModuleTree() Func {
	return func(state *State) error {
		release, err := kernelRelease()
		if err != nil {
			return err
		}

		switch mode := state.Config.ModulesMode; mode {
		case ModulesHost:
			// The host's module tree matches the running kernel and is
			// used as is.
			return nil
		case ModulesLink:
			return linkModuleTree(release, state.Config.ModulesDir)
		case ModulesMask:
			return maskModuleTree(filepath.Join(modulesDir, release))
		default:
			return fmt.Errorf("%w: modules mode %d", ErrConfigInvalid, mode)
		}
	}
}

// linkModulePlan returns the mount shadowing /lib/modules and the
// symlink that makes dir visible as the module directory of the kernel
// release.
func linkModulePlan(release, dir string) (MountOptions, Symlinks) {
	opts := MountOptions{
		FSType: FSTypeTmp,
		Data:   "mode=0755",
	}

	links := Symlinks{
		filepath.Join(modulesDir, release): dir,
	}

	return opts, links
}

// linkModuleTree makes an externally supplied module directory visible
// at the standard path of the running kernel. A fresh tmpfs covers
// whatever the host root has at /lib/modules.
func linkModuleTree(release, dir string) error {
	opts, links := linkModulePlan(release, dir)

	if err := Mount(modulesDir, opts); err != nil {
		return err
	}

	return CreateSymlinks(links)
}

// maskModuleTree hides a host module directory that matches the
// running kernel version but must not be trusted. An empty unreadable
// tmpfs covers it so nothing loads from it.
func maskModuleTree(versionDir string) error {
	if _, err := os.Stat(versionDir); errors.Is(err, fs.ErrNotExist) {
		// No module directory for this kernel, nothing to mask.
		return nil
	}

	return Mount(versionDir, MountOptions{
		FSType: FSTypeTmp,
		Source: "disallow_kmod",
		Flags:  unix.MS_RDONLY,
		Data:   "mode=0000",
	})
}

// LoadModules loads all regular files below dir as kernel modules, in
// lexical path order. A missing directory is not an error, it simply
// means nothing was staged.
func LoadModules(dir string) error {
	var files []string

	walkFunc := func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.Type().IsRegular() {
			files = append(files, path)
		}

		return nil
	}

	err := filepath.WalkDir(dir, walkFunc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("list module files: %w", err)
	}

	for _, file := range files {
		if err := LoadModule(file, ""); err != nil {
			return fmt.Errorf("load module %s: %w", file, err)
		}

		slog.Debug("Loaded module", "path", file)
	}

	return nil
}

// LoadModule loads the kernel module file at the given path with the
// given space separated parameters.
//
// The file may be compressed with any scheme the kernel supports. The
// caller is responsible for the module matching the running kernel and
// its dependencies being loaded already.
func LoadModule(path, params string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	// finit_module(2) lets the kernel read the file itself and is
	// tried first. Kernels without in-kernel decompression refuse
	// compressed files, then the module is decompressed in user space
	// and handed over as memory image.
	err = finitModule(int(file.Fd()), params, finitFlags(path))
	if errors.Is(err, errors.ErrUnsupported) {
		return initModuleFromFile(path, params)
	}

	return err
}

// finitFlags returns the finit_module(2) flags for the module file.
// Compressed files are marked so the kernel decompresses them.
func finitFlags(path string) int {
	switch {
	case strings.HasSuffix(path, ".gz"),
		strings.HasSuffix(path, ".xz"),
		strings.HasSuffix(path, ".zst"):
		return unix.MODULE_INIT_COMPRESSED_FILE
	default:
		return 0
	}
}

// initModuleFromFile loads the module with init_module(2) from a
// memory image, decompressing the file in user space first.
func initModuleFromFile(path, params string) error {
	reader, err := kmod.OpenModule(os.DirFS("/"), strings.TrimPrefix(path, "/"))
	if err != nil {
		return err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	return initModule(data, params)
}
