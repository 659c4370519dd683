// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

const procConsolesPath = "/proc/consoles"

// ActiveConsole returns the device path of the console the kernel
// reports as enabled, the one marked with the C flag in
// /proc/consoles. Returns [ErrConsoleNotFound] if there is none.
func ActiveConsole() (string, error) {
	file, err := os.Open(procConsolesPath)
	if err != nil {
		return "", fmt.Errorf("open consoles list: %w", err)
	}
	defer file.Close()

	return activeConsole(file)
}

// activeConsole parses the consoles list format described in the
// kernel's proc file system documentation: one console per line, name
// first, flags in parentheses.
func activeConsole(reader io.Reader) (string, error) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()

		_, rest, found := strings.Cut(line, "(")
		if !found {
			continue
		}

		flags, _, found := strings.Cut(rest, ")")
		if !found || !strings.ContainsRune(flags, 'C') {
			continue
		}

		name, _, _ := strings.Cut(line, " ")
		if name == "" {
			continue
		}

		return "/dev/" + name, nil
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan consoles list: %w", err)
	}

	return "", ErrConsoleNotFound
}

// configureConsole applies the given terminal settings to the console
// device by running stty with the device as its input. The settings
// use stty argument syntax, e.g. "rows 50 cols 160 speed 115200".
func configureConsole(console, sttyOpts string) error {
	if sttyOpts == "" {
		return nil
	}

	file, err := os.Open(console)
	if err != nil {
		return fmt.Errorf("open console: %w", err)
	}
	defer file.Close()

	cmd := exec.Command("stty", strings.Fields(sttyOpts)...)
	cmd.Stdin = file
	cmd.Env = sessionEnv()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("stty: %w: %s", err, bytes.TrimSpace(output))
	}

	return nil
}
