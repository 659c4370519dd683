// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

var (
	panicRE = regexp.MustCompile(`^\[[0-9. ]+\] Kernel panic - not syncing: `)
	oomRE   = regexp.MustCompile(`^\[[0-9. ]+\] Out of memory: `)
)

// consoleParser scans the guest's kernel console for fatal conditions while
// relaying it.
//
// It detects kernel panics and OOM messages. After use, the detected
// condition can be retrieved by calling [consoleParser.Err].
type consoleParser struct {
	err error
}

// Copy is a [vport.CopyFunc]. It relays the console line-wise from src to
// dst and records fatal guest conditions. The returned count is the number
// of bytes read from src.
func (p *consoleParser) Copy(dst io.Writer, src io.Reader) (int64, error) {
	counter := &countingReader{reader: src}
	scanner := bufio.NewScanner(counter)

	for scanner.Scan() {
		line := scanner.Bytes()

		// Keep scanning after a match has been found, so the following
		// lines are relayed as well and enhance the context information of
		// the kernel error message.
		switch {
		case oomRE.Match(line):
			p.err = ErrGuestOom
		case panicRE.Match(line):
			p.err = ErrGuestPanic
		}

		err := writeLine(dst, line)
		if err != nil {
			return counter.read, err
		}
	}

	err := scanner.Err()
	if err != nil {
		return counter.read, fmt.Errorf("scan: %w", err)
	}

	return counter.read, nil
}

// Err returns the fatal guest condition, if one was detected.
func (p *consoleParser) Err() error {
	return p.err
}

// writeLine writes the line with a trailing newline. The line scanner has
// stripped carriage returns already, so serial CRLF output is normalized on
// the way through.
func writeLine(dst io.Writer, line []byte) error {
	_, err := dst.Write(line)
	if err == nil {
		_, err = dst.Write([]byte{'\n'})
	}

	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

type countingReader struct {
	reader io.Reader
	read   int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)

	return n, err //nolint:wrapcheck
}
