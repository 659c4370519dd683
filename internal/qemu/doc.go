// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu composes and runs QEMU system virtualization commands as
// needed by hostrun. It expects the required QEMU binary to be present on
// the system.
//
// A [Command] boots the given kernel with the given boot archive and exports
// host directories to the guest over 9p. In scripted mode the session's
// standard streams and the exit status are carried on the virtio-serial
// control channels defined by the vport package, while the kernel console
// is scanned for fatal conditions. In interactive mode the caller's terminal
// is attached to the guest console directly.
package qemu
