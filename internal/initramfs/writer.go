// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"io"
	"io/fs"
)

// Writer defines the boot archive writer interface.
type Writer interface {
	WriteRegular(path string, source io.Reader, mode fs.FileMode) error
	WriteDirectory(path string, mode fs.FileMode) error
	WriteLink(path, target string) error
	WriteCharDev(path string, mode fs.FileMode, major, minor uint64) error
	WriteBlockDev(path string, mode fs.FileMode, major, minor uint64) error
}
