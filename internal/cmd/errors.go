// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"flag"
	"fmt"
)

var (
	// ErrHelp is returned if usage or version output was requested. It is
	// not an error, the command should terminate cleanly.
	ErrHelp = flag.ErrHelp

	// ErrReadBuildInfo is returned if the build info required for version
	// output is not present in the binary.
	ErrReadBuildInfo = errors.New("build info not available")

	// ErrInitNotFound is returned if no init program binary was given and
	// none is found in the search locations.
	ErrInitNotFound = errors.New("init binary not found")

	// ErrNotRegularFile is returned if a path does not point to a regular
	// file.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrNotDirectory is returned if a path does not point to a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// ParseArgsError wraps errors that occur during argument parsing.
type ParseArgsError struct {
	err error
	msg string
}

func (e *ParseArgsError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *ParseArgsError) Is(other error) bool {
	_, ok := other.(*ParseArgsError)
	return ok
}

func (e *ParseArgsError) Unwrap() error {
	return e.err
}
