// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kmod resolves kernel module names into a load-ordered dependency
// closure.
//
// The resolver works on the index files depmod generates in a kernel's
// module directory (modules.dep, modules.alias, modules.builtin). It is a
// pure function over these inputs: identical requests against an identical
// index always yield the identical closure, so archives built from the
// result are reproducible.
package kmod
