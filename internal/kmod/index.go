// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// Names of the index files depmod generates.
const (
	depFileName     = "modules.dep"
	aliasFileName   = "modules.alias"
	builtinFileName = "modules.builtin"
)

type alias struct {
	pattern string
	name    string
}

// Index is the parsed module index of a single kernel version.
//
// Load it with [LoadIndex] from a file system rooted at the kernel's module
// directory (usually /lib/modules/<version>). The index is immutable once
// loaded.
type Index struct {
	fsys    fs.FS
	modules map[string]*Module
	aliases []alias
	builtin map[string]bool
}

// LoadIndex parses the depmod index files from the given file system.
//
// modules.dep must exist. modules.alias and modules.builtin are optional
// since depmod omits them for kernels built without any aliases or builtin
// modules.
func LoadIndex(fsys fs.FS) (*Index, error) {
	index := &Index{
		fsys:    fsys,
		modules: make(map[string]*Module),
		builtin: make(map[string]bool),
	}

	if err := withIndexFile(fsys, depFileName, index.parseDep); err != nil {
		return nil, err
	}

	err := withIndexFile(fsys, aliasFileName, index.parseAlias)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	err = withIndexFile(fsys, builtinFileName, index.parseBuiltin)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return index, nil
}

func withIndexFile(fsys fs.FS, name string, parse func(io.Reader) error) error {
	file, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	if err := parse(file); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	return nil
}

// parseDep reads modules.dep. Each line maps a module file path to the
// space separated list of module file paths it directly depends on:
//
//	kernel/net/9p/9pnet_virtio.ko: kernel/net/9p/9pnet.ko kernel/drivers/virtio/virtio.ko
func (i *Index) parseDep(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		filePath, depList, found := strings.Cut(line, ":")
		if !found {
			return fmt.Errorf("%w: %q", ErrDepFormat, line)
		}

		module := &Module{
			Name: nameFromPath(filePath),
			Path: path.Clean(filePath),
		}

		for _, dep := range strings.Fields(depList) {
			module.Deps = append(module.Deps, nameFromPath(dep))
		}

		// depmod never emits duplicate names. Should a stray index contain
		// one anyway, the first entry wins to keep results stable.
		if _, exists := i.modules[module.Name]; !exists {
			i.modules[module.Name] = module
		}
	}

	return scanner.Err() //nolint:wrapcheck
}

// parseAlias reads modules.alias. Each line maps a match pattern to a
// module name:
//
//	alias fs-9p 9p
//	alias pci:v00001AF4d00001041sv*sd*bc*sc*i* virtio_pci
func (i *Index) parseAlias(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 || fields[0] != "alias" {
			continue
		}

		i.aliases = append(i.aliases, alias{
			pattern: fields[1],
			name:    normalizeName(fields[2]),
		})
	}

	return scanner.Err() //nolint:wrapcheck
}

// parseBuiltin reads modules.builtin, the list of module file paths that
// are compiled into the kernel image.
func (i *Index) parseBuiltin(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		i.builtin[nameFromPath(line)] = true
	}

	return scanner.Err() //nolint:wrapcheck
}

// lookup finds the module for the given name. The name is normalized and
// matched directly first, then against the alias patterns in file order.
func (i *Index) lookup(name string) (*Module, bool) {
	normalized := normalizeName(name)

	if module, exists := i.modules[normalized]; exists {
		return module, true
	}

	for _, alias := range i.aliases {
		// Raw name: alias patterns distinguish dashes from underscores.
		matched, err := path.Match(alias.pattern, name)
		if err != nil || !matched {
			continue
		}

		if module, exists := i.modules[alias.name]; exists {
			return module, true
		}
	}

	return nil, false
}

// isBuiltin reports whether the named module is compiled into the kernel.
func (i *Index) isBuiltin(name string) bool {
	return i.builtin[normalizeName(name)]
}
