// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"strings"
)

var (
	// ErrNotPidOne is returned if the program is expected to be run as
	// PID 1 but is not.
	ErrNotPidOne = errors.New("process does not have ID 1")

	// ErrPanic is the error a recovered panic is wrapped into.
	ErrPanic = errors.New("panic")

	// ErrConfigInvalid is returned for unusable boot parameters.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConsoleNotFound is returned if no usable console device could
	// be determined for an interactive session.
	ErrConsoleNotFound = errors.New("no usable console found")

	// ErrNotAvailable is returned if an optional helper program or
	// device is not present in the guest.
	ErrNotAvailable = errors.New("not available")
)

// OptionalMountError wraps errors of failed optional mounts.
type OptionalMountError []error

func (e OptionalMountError) Error() string {
	msgs := make([]string, len(e))
	for idx, err := range e {
		msgs[idx] = err.Error()
	}

	return "optional mount failed: " + strings.Join(msgs, ", ")
}

func (e OptionalMountError) Is(other error) bool {
	_, ok := other.(OptionalMountError)
	return ok
}

func (e OptionalMountError) Unwrap() []error {
	return e
}
