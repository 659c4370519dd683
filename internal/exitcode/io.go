// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes the exit code line into the given writer.
//
// The line is a single decimal number terminated by a newline. The guest
// writes it to the dedicated status channel exactly once, right before
// shutdown. Everything beyond the first line is ignored by [Parse], so a
// second write can never change the result the host observes.
func Fprint(w io.Writer, exitCode int) (int, error) {
	return fmt.Fprintf(w, "%d\n", exitCode) //nolint:wrapcheck
}

// Parse parses the given string for the exit code.
//
// The string must consist of a single decimal number, optionally surrounded
// by whitespace. Returns the exit code and whether it was found in the given
// string.
func Parse(str string) (int, bool) {
	str = strings.TrimSpace(str)

	exitCode, err := strconv.Atoi(str)
	if err != nil {
		return 0, false
	}

	return exitCode, true
}

// ReadFrom reads the first line from the given reader and parses it as exit
// code.
//
// Additional lines are drained but not interpreted. If the reader yields no
// parsable exit code line, found is false.
func ReadFrom(r io.Reader) (int, bool) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, false
	}

	line, _, _ := strings.Cut(string(data), "\n")

	return Parse(line)
}
