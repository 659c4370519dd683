// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package vport defines the control channels between host and guest.
//
// Each logical stream of a session is carried by a dedicated virtio-serial
// port. The package provides the role table shared by both sides, helpers
// for processing the streams concurrently and an encoding for safe
// transmission of binary data over text based transports like the kernel
// command line.
package vport
