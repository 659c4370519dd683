// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertContainsPaths asserts that the actual paths contain all expected
// paths. Paths are compared in their absolute form.
func AssertContainsPaths(tb testing.TB, expected, actual []string) bool {
	tb.Helper()

	makeAbs := func(in []string) []string {
		var out []string

		for _, path := range in {
			abs, err := filepath.Abs(path)
			require.NoError(tb, err)

			out = append(out, abs)
		}

		return out
	}

	actualAbs := makeAbs(actual)
	expectedAbs := makeAbs(expected)

	return assert.Subset(tb, actualAbs, expectedAbs)
}

// WriteELFFile writes a minimal statically linked ELF file for the given
// machine type to the given path.
//
// The file consists of a bare file header without any program or section
// headers. It can not be executed, but is sufficient for header inspection.
func WriteELFFile(tb testing.TB, path string, machine elf.Machine) {
	tb.Helper()

	hdr := elf.Header64{
		Ident: [elf.EI_NIDENT]byte{
			0x7f, 'E', 'L', 'F',
			byte(elf.ELFCLASS64),
			byte(elf.ELFDATA2LSB),
			byte(elf.EV_CURRENT),
		},
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Ehsize:    64,
		Phentsize: 56,
		Shentsize: 64,
	}

	var buf bytes.Buffer

	err := binary.Write(&buf, binary.LittleEndian, &hdr)
	require.NoError(tb, err)

	err = os.WriteFile(path, buf.Bytes(), 0o755)
	require.NoError(tb, err)
}
