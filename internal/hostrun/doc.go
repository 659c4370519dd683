// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hostrun orchestrates a single guest run: it builds the boot
// archive for the kernel under test, compiles the guest boot parameters
// and runs QEMU with the host root attached as a copy-on-write share.
package hostrun
