// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys_test

import (
	"debug/elf"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aibor/hostrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLdd(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("not an ELF file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "text")
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

		_, err := sys.Ldd(t.Context(), path)
		require.ErrorIs(t, err, sys.ErrNotELFFile)
	})

	t.Run("statically linked", func(t *testing.T) {
		path := filepath.Join(tmpDir, "static")
		sys.WriteELFFile(t, path, elf.EM_X86_64)

		_, err := sys.Ldd(t.Context(), path)
		require.ErrorIs(t, err, sys.ErrNoInterpreter)
	})

	t.Run("dynamically linked", func(t *testing.T) {
		if _, err := exec.LookPath("ldd"); err != nil {
			t.Skip("ldd not available")
		}

		paths, err := sys.Ldd(t.Context(), "/bin/sh")
		if errors.Is(err, sys.ErrNoInterpreter) {
			t.Skip("/bin/sh is not dynamically linked")
		}

		require.NoError(t, err)
		assert.NotEmpty(t, paths)

		for _, path := range paths {
			assert.True(t, filepath.IsAbs(path), "path %s is absolute", path)
		}
	})
}
