// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sysinit implements the guest init program that brings up a
// transient virtual machine on top of the host's root file system.
//
// The package is a library of composable phases. Each phase is a [Func]
// working on a shared [State]. The init binary assembles the phases it
// needs and hands them to [Run], which guards PID 1 invariants, recovers
// panics, runs deferred cleanup and finally powers off the machine. The
// machine never outlives the init program.
//
// Phases cover the whole boot: leaving the boot archive for the host
// root, mounting kernel file systems, shadowing writable paths with
// overlays, module tree setup, device and cgroup initialization,
// identity fixups, extra shares, networking and finally dispatching
// either a scripted command or an interactive shell session.
package sysinit
