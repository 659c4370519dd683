// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys_test

import (
	"debug/elf"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/aibor/hostrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadELFArch(t *testing.T) {
	tmpDir := t.TempDir()

	writeELF := func(name string, machine elf.Machine) string {
		path := filepath.Join(tmpDir, name)
		sys.WriteELFFile(t, path, machine)

		return path
	}

	textFile := filepath.Join(tmpDir, "text")
	require.NoError(t, os.WriteFile(textFile, []byte("#!/bin/sh\n"), 0o755))

	tests := []struct {
		name      string
		path      string
		expected  sys.Arch
		assertErr require.ErrorAssertionFunc
	}{
		{
			name:      "amd64",
			path:      writeELF("amd64", elf.EM_X86_64),
			expected:  sys.AMD64,
			assertErr: require.NoError,
		},
		{
			name:      "arm64",
			path:      writeELF("arm64", elf.EM_AARCH64),
			expected:  sys.ARM64,
			assertErr: require.NoError,
		},
		{
			name:      "riscv64",
			path:      writeELF("riscv64", elf.EM_RISCV),
			expected:  sys.RISCV64,
			assertErr: require.NoError,
		},
		{
			name: "unsupported machine",
			path: writeELF("ppc64", elf.EM_PPC64),
			assertErr: func(t require.TestingT, err error, _ ...any) {
				require.ErrorIs(t, err, sys.ErrMachineNotSupported)
			},
		},
		{
			name: "not an ELF file",
			path: textFile,
			assertErr: func(t require.TestingT, err error, _ ...any) {
				require.ErrorIs(t, err, sys.ErrNotELFFile)
			},
		},
		{
			name: "missing file",
			path: filepath.Join(tmpDir, "nonexistent"),
			assertErr: func(t require.TestingT, err error, _ ...any) {
				require.ErrorIs(t, err, fs.ErrNotExist)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := sys.ReadELFArch(tt.path)
			tt.assertErr(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestValidateELF(t *testing.T) {
	tests := []struct {
		name      string
		hdr       elf.FileHeader
		arch      sys.Arch
		assertErr require.ErrorAssertionFunc
	}{
		{
			name: "matching",
			hdr: elf.FileHeader{
				OSABI:   elf.ELFOSABI_NONE,
				Machine: elf.EM_X86_64,
			},
			arch:      sys.AMD64,
			assertErr: require.NoError,
		},
		{
			name: "matching linux abi",
			hdr: elf.FileHeader{
				OSABI:   elf.ELFOSABI_LINUX,
				Machine: elf.EM_AARCH64,
			},
			arch:      sys.ARM64,
			assertErr: require.NoError,
		},
		{
			name: "mismatching machine",
			hdr: elf.FileHeader{
				OSABI:   elf.ELFOSABI_NONE,
				Machine: elf.EM_AARCH64,
			},
			arch: sys.AMD64,
			assertErr: func(t require.TestingT, err error, _ ...any) {
				require.ErrorIs(t, err, sys.ErrMachineNotSupported)
			},
		},
		{
			name: "unsupported machine",
			hdr: elf.FileHeader{
				OSABI:   elf.ELFOSABI_NONE,
				Machine: elf.EM_PPC64,
			},
			arch: sys.AMD64,
			assertErr: func(t require.TestingT, err error, _ ...any) {
				require.ErrorIs(t, err, sys.ErrMachineNotSupported)
			},
		},
		{
			name: "unsupported abi",
			hdr: elf.FileHeader{
				OSABI:   elf.ELFOSABI_FREEBSD,
				Machine: elf.EM_X86_64,
			},
			arch: sys.AMD64,
			assertErr: func(t require.TestingT, err error, _ ...any) {
				require.ErrorIs(t, err, sys.ErrOSABINotSupported)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sys.ValidateELF(tt.hdr, tt.arch)
			tt.assertErr(t, err)
		})
	}
}
