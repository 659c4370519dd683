// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModuleNotFound is returned if a requested module or one of its
	// transitive dependencies is not present in the index.
	ErrModuleNotFound = errors.New("module not found")

	// ErrCyclicDependency is returned if a module transitively depends on
	// itself.
	ErrCyclicDependency = errors.New("cyclic module dependency")

	// ErrDepFormat is returned for lines in an index file that cannot be
	// parsed.
	ErrDepFormat = errors.New("malformed index line")
)

// ResolutionError describes why a set of module names cannot be resolved
// into a closure. It wraps [ErrModuleNotFound] or [ErrCyclicDependency].
type ResolutionError struct {
	// Module is the name the resolution failed on.
	Module string

	// Chain is the dependency chain from the requested module to the
	// failing one.
	Chain []string

	// Err is the underlying error.
	Err error
}

func (e *ResolutionError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("resolve %s: %v", e.Module, e.Err)
	}

	return fmt.Sprintf(
		"resolve %s: %v (via %s)",
		e.Module,
		e.Err,
		strings.Join(e.Chain, " -> "),
	)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
