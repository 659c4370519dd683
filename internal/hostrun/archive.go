// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hostrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aibor/hostrun/internal/initramfs"
	"github.com/aibor/hostrun/internal/kmod"
	"github.com/aibor/hostrun/internal/sys"
)

const (
	libsDir    = "lib"
	modulesDir = "lib/modules"

	// rootStagingDir is where the init program mounts the host root
	// before switching to it. It cannot create the directory itself,
	// the boot archive file system is not writable everywhere.
	rootStagingDir = "newroot"
)

// bootModules are staged for early loading by default. They cover the
// transports the guest needs before the host root is attached. Which
// of them exist as files depends on the kernel configuration, so
// missing ones are skipped.
var bootModules = []string{
	"virtio_pci",
	"virtio_mmio",
	"virtio_console",
	"9pnet_virtio",
	"9p",
	"virtiofs",
	"virtio_net",
	"vmw_vsock_virtio_transport",
}

// BuildBootArchive builds the boot archive file for the given
// configuration in the default temporary directory.
//
// It returns the path of the file and a function removing it. The
// remove function keeps the file if [Archive.Keep] is set.
func BuildBootArchive(
	ctx context.Context,
	cfg Archive,
) (string, func() error, error) {
	libs, err := sys.CollectLibsFor(ctx, cfg.Init)
	if err != nil {
		return "", nil, fmt.Errorf("collect libs: %w", err)
	}

	var closure kmod.Closure

	if cfg.ModulesDir != "" {
		closure, err = resolveBootModules(cfg.ModulesDir, cfg.Modules)
		if err != nil {
			return "", nil, fmt.Errorf("resolve modules: %w", err)
		}
	}

	archive := initramfs.New()

	err = buildArchive(archive, cfg, libs, closure)
	if err != nil {
		return "", nil, fmt.Errorf("build: %w", err)
	}

	path, err := archive.WriteToTempFile("", os.DirFS("/"))
	if err != nil {
		return "", nil, fmt.Errorf("write archive file: %w", err)
	}

	slog.Debug("Boot archive created", slog.String("path", path))

	removeFn := func() error {
		slog.Debug("Remove boot archive", slog.String("path", path))
		return os.Remove(path)
	}

	if cfg.Keep {
		removeFn = func() error {
			slog.Info("Keep boot archive", slog.String("path", path))
			return nil
		}
	}

	return path, removeFn, nil
}

// resolveBootModules resolves the default early-boot module set plus
// the explicitly requested names against the module directory's
// dependency index. Default modules missing from the index are
// skipped, requested ones must exist.
func resolveBootModules(dir string, extra []string) (kmod.Closure, error) {
	index, err := kmod.LoadIndex(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	names := make([]string, 0, len(bootModules)+len(extra))

	for _, name := range bootModules {
		_, err := index.Resolve(name)
		if errors.Is(err, kmod.ErrModuleNotFound) {
			slog.Debug("Skip unavailable default module",
				slog.String("module", name))
			continue
		}

		if err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	names = append(names, extra...)

	return index.Resolve(names...)
}

func buildArchive(
	archive *initramfs.Archive,
	cfg Archive,
	libs sys.LibCollection,
	closure kmod.Closure,
) error {
	err := archive.AddRegular("init", sourcePath(cfg.Init), 0o755)
	if err != nil {
		return err
	}

	err = addDeviceNodes(archive)
	if err != nil {
		return err
	}

	err = archive.AddDirectory(rootStagingDir, 0o755)
	if err != nil {
		return err
	}

	err = addModules(archive, cfg.ModulesDir, closure)
	if err != nil {
		return err
	}

	return addLibs(archive, libs)
}

// addDeviceNodes adds the device nodes the init program needs before
// it can mount devtmpfs: the console for its standard streams, kmsg
// for logging and null.
func addDeviceNodes(archive *initramfs.Archive) error {
	devices := []struct {
		path         string
		mode         os.FileMode
		major, minor uint64
	}{
		{"dev/console", 0o600, 5, 1},
		{"dev/kmsg", 0o644, 1, 11},
		{"dev/null", 0o666, 1, 3},
	}

	for _, dev := range devices {
		err := archive.AddCharDev(dev.path, dev.mode, dev.major, dev.minor)
		if err != nil {
			return err
		}
	}

	return nil
}

// addModules stages the module files in closure order. The numeric
// prefix keeps the order stable for the guest, which loads the staged
// files lexically.
func addModules(
	archive *initramfs.Archive,
	dir string,
	closure kmod.Closure,
) error {
	if len(closure) == 0 {
		return nil
	}

	err := archive.AddDirectory(modulesDir, 0o755)
	if err != nil {
		return err
	}

	for idx, module := range closure {
		name := fmt.Sprintf("%04d-%s", idx, filepath.Base(module.Path))
		source := sourcePath(filepath.Join(dir, module.Path))

		err := archive.AddRegular(filepath.Join(modulesDir, name), source,
			0o644)
		if err != nil {
			return err
		}
	}

	return nil
}

// addLibs stages the init binary's shared objects and links every
// search path to the staging directory, so the dynamic linker finds
// them wherever it looks.
func addLibs(archive *initramfs.Archive, libs sys.LibCollection) error {
	for path := range libs.Libs() {
		name := filepath.Join(libsDir, filepath.Base(path))

		err := archive.AddRegular(name, sourcePath(path), 0o755)
		if err != nil {
			return err
		}
	}

	for path := range libs.SearchPaths() {
		name := sourcePath(path)
		if name == "" || name == libsDir {
			continue
		}

		// Absolute target, so nested search paths do not resolve to
		// themselves.
		err := archive.AddLink(name, "/"+libsDir)
		if err != nil {
			return err
		}
	}

	return nil
}

// sourcePath converts the absolute host path into a path relative to
// the source file system rooted at /.
func sourcePath(path string) string {
	return strings.TrimPrefix(filepath.Clean(path), "/")
}
