// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// terminalOptions reads the dimensions of the terminal on the given input
// so the guest console can be set up with the same geometry. Returns empty
// if the input is not a terminal.
func terminalOptions(stdin io.Reader) string {
	file, ok := stdin.(*os.File)
	if !ok {
		return ""
	}

	winSize, err := unix.IoctlGetWinsize(int(file.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("rows %d cols %d iutf8", winSize.Row, winSize.Col)
}
