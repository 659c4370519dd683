// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInterpreter is returned if no interpreter is found in an ELF file.
	ErrNoInterpreter = errors.New("no interpreter in ELF file")

	// ErrNotELFFile is returned if the file does not have an ELF magic number.
	ErrNotELFFile = errors.New("is not an ELF file")

	// ErrOSABINotSupported is returned if the OS ABI of an ELF file is not
	// supported.
	ErrOSABINotSupported = errors.New("OSABI not supported")

	// ErrMachineNotSupported is returned if the machine type of an ELF file
	// is not supported.
	ErrMachineNotSupported = errors.New("machine type not supported")

	// ErrEmptyPath is returned if an empty path is given.
	ErrEmptyPath = errors.New("path must not be empty")

	// ErrArchNotSupported is returned if the requested architecture is not
	// supported for the requested operation.
	ErrArchNotSupported = errors.New("architecture not supported")
)

// LDDExecError wraps errors of "ldd" invocations.
type LDDExecError struct {
	Err    error
	Stderr string
}

// Error implements the [error] interface.
func (e *LDDExecError) Error() string {
	return fmt.Sprintf("ldd: %v: %s", e.Err, e.Stderr)
}

// Is implements the [errors.Is] interface.
func (*LDDExecError) Is(other error) bool {
	_, ok := other.(*LDDExecError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *LDDExecError) Unwrap() error {
	return e.Err
}
