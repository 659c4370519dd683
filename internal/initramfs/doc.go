// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package initramfs provides a builder for the boot archive the kernel
// unpacks into the rootfs before userspace starts.
//
// Entries are collected in a file tree that synthesizes missing parent
// directories and rejects conflicting duplicates. The tree is serialized as
// a newc CPIO stream. Serialization is deterministic: identical logical
// content always produces byte-identical archives.
package initramfs
