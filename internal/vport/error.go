// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vport

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutput is returned if a channel did not output anything. It might
	// be caused by a missing mount of /dev in the guest system or a guest
	// process writing to the wrong path.
	ErrNoOutput = errors.New("channel did not output anything")

	// ErrWaitTimeout is returned if channel termination took too long and
	// ran out of allowed time.
	ErrWaitTimeout = errors.New("channel wait timed out")

	// ErrChannelUnavailable is returned if the device for a channel role
	// does not exist in the guest system.
	ErrChannelUnavailable = errors.New("control channel unavailable")

	// ErrRoleTableInvalid is returned by [Validate] if the role table is
	// incomplete or ambiguous.
	ErrRoleTableInvalid = errors.New("invalid channel role table")
)

// Error wraps any error occurring during channel processing.
type Error struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Name, e.Err.Error())
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}
