// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const (
	// RoleStdin carries input from the host terminal to the guest session.
	RoleStdin Role = "stdin"
	// RoleStdout carries the session's standard output to the host.
	RoleStdout Role = "stdout"
	// RoleStderr carries the session's standard error to the host.
	RoleStderr Role = "stderr"
	// RoleRawStdout carries output of processes that write to /dev/stdout
	// directly, bypassing the session's main stream.
	RoleRawStdout Role = "raw-stdout"
	// RoleRawStderr carries output of processes that write to /dev/stderr
	// directly, bypassing the session's main stream.
	RoleRawStderr Role = "raw-stderr"
	// RoleStatus carries the exit status of the session as a single line of
	// decimal text, written exactly once.
	RoleStatus Role = "status"
	// RoleExec accepts newline-delimited encoded commands that are run
	// outside of the main session flow.
	RoleExec Role = "exec"
	// RoleMount accepts newline-delimited share tags that are mounted after
	// boot.
	RoleMount Role = "mount"
)

const guestDeviceDir = "/dev/virtio-ports"

// Role identifies the logical function of a control channel.
type Role string

// portNames maps each [Role] to its virtio-serial port name. The port name
// determines the guest device path, so host and guest must agree on this
// table. Both sides run [Validate] on startup.
var portNames = map[Role]string{
	RoleStdin:     "hostrun.stdin",
	RoleStdout:    "hostrun.stdout",
	RoleStderr:    "hostrun.stderr",
	RoleRawStdout: "hostrun.raw-stdout",
	RoleRawStderr: "hostrun.raw-stderr",
	RoleStatus:    "hostrun.status",
	RoleExec:      "hostrun.exec",
	RoleMount:     "hostrun.mount",
}

// Roles returns all defined roles in stable order.
func Roles() []Role {
	return []Role{
		RoleStdin,
		RoleStdout,
		RoleStderr,
		RoleRawStdout,
		RoleRawStderr,
		RoleStatus,
		RoleExec,
		RoleMount,
	}
}

// String implements [fmt.Stringer].
func (r Role) String() string {
	return string(r)
}

// PortName returns the virtio-serial port name for the role.
func (r Role) PortName() string {
	return portNames[r]
}

// Path returns the guest device path for the role.
//
// The kernel exposes each named virtio-serial port below
// /dev/virtio-ports with the port name as file name.
func (r Role) Path() string {
	return guestDeviceDir + "/" + r.PortName()
}

// ChardevID returns the QEMU character device ID for the role.
func (r Role) ChardevID() string {
	return "hr-" + string(r)
}

// Validate checks the role table for completeness.
//
// Every role must have a port name with the expected prefix and no two
// roles may share one, as the port name determines the guest device path.
func Validate() error {
	const portNamePrefix = "hostrun."

	seen := make(map[string]Role, len(portNames))

	for _, role := range Roles() {
		name := role.PortName()

		if !strings.HasPrefix(name, portNamePrefix) {
			return fmt.Errorf("%w: %s: invalid port name %q",
				ErrRoleTableInvalid, role, name)
		}

		if other, exists := seen[name]; exists {
			return fmt.Errorf("%w: %s and %s share port name %q",
				ErrRoleTableInvalid, role, other, name)
		}

		seen[name] = role
	}

	if len(seen) != len(portNames) {
		return fmt.Errorf("%w: %d unreachable port names",
			ErrRoleTableInvalid, len(portNames)-len(seen))
	}

	return nil
}

// Open opens the guest device for the given role with the given flag.
//
// If the device does not exist, the host did not set up the channel and
// [ErrChannelUnavailable] is returned.
func Open(role Role, flag int) (*os.File, error) {
	file, err := os.OpenFile(role.Path(), flag, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrChannelUnavailable, role)
		}

		return nil, fmt.Errorf("open channel %s: %w", role, err)
	}

	return file, nil
}
