// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import (
	"io/fs"
	"slices"
)

// Closure is an ordered list of modules such that every module appears
// after all modules it depends on. Loading the files in order never hits an
// unresolved symbol. A closure contains no duplicates.
type Closure []Module

// Paths returns the module file paths in load order.
func (c Closure) Paths() []string {
	paths := make([]string, len(c))
	for idx, module := range c {
		paths[idx] = module.Path
	}

	return paths
}

// Names returns the module names in load order.
func (c Closure) Names() []string {
	names := make([]string, len(c))
	for idx, module := range c {
		names[idx] = module.Name
	}

	return names
}

// Resolve produces the dependency [Closure] for the requested module names.
//
// Requested names may be module names or aliases. Names of modules built
// into the kernel resolve to an empty contribution. The output order is
// deterministic: modules appear in depth-first post-order, requested names
// are processed in the given order, and ties break by first discovery.
//
// Returns a [ResolutionError] wrapping [ErrModuleNotFound] for unknown
// names and [ErrCyclicDependency] if a module transitively depends on
// itself.
func (i *Index) Resolve(names ...string) (Closure, error) {
	r := &resolver{
		index:    i,
		visiting: make(map[string]bool),
		resolved: make(map[string]bool),
	}

	for _, name := range names {
		if err := r.visit(name, nil); err != nil {
			return nil, err
		}
	}

	return r.closure, nil
}

type resolver struct {
	index    *Index
	visiting map[string]bool
	resolved map[string]bool
	closure  Closure
}

// visit adds the dependencies of the named module and then the module
// itself to the closure.
func (r *resolver) visit(name string, chain []string) error {
	module, found := r.index.lookup(name)
	if !found {
		if r.index.isBuiltin(name) {
			return nil
		}

		return &ResolutionError{
			Module: name,
			Chain:  slices.Clone(chain),
			Err:    ErrModuleNotFound,
		}
	}

	// Aliases may map different requested names onto the same module.
	// Track by canonical name so each module appears exactly once.
	if r.resolved[module.Name] {
		return nil
	}

	if r.visiting[module.Name] {
		return &ResolutionError{
			Module: module.Name,
			Chain:  slices.Clone(chain),
			Err:    ErrCyclicDependency,
		}
	}

	r.visiting[module.Name] = true
	defer delete(r.visiting, module.Name)

	chain = append(chain, module.Name)

	for _, dep := range module.Deps {
		if err := r.visit(dep, chain); err != nil {
			return err
		}
	}

	r.resolved[module.Name] = true
	r.closure = append(r.closure, r.statModule(module))

	return nil
}

// statModule returns a copy of the module with its file size populated.
// Size stays zero if the file cannot be inspected; the later file open
// reports the real error in that case.
func (r *resolver) statModule(module *Module) Module {
	resolved := *module

	if info, err := fs.Stat(r.index.fsys, module.Path); err == nil {
		resolved.Size = info.Size()
	}

	return resolved
}
