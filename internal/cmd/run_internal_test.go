// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/aibor/hostrun/internal/exitcode"
	"github.com/aibor/hostrun/internal/qemu"
	"github.com/aibor/hostrun/internal/vport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRunError(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		expectedExitCode int
		expectedOutput   string
	}{
		{
			name: "no error",
		},
		{
			name: "flag help",
			err:  flag.ErrHelp,
		},
		{
			name:             "parse args error",
			err:              &ParseArgsError{},
			expectedExitCode: -1,
		},
		{
			name: "qemu command host error",
			err: &qemu.CommandError{
				Err:      assert.AnError,
				ExitCode: 42,
			},
			expectedExitCode: 42,
			expectedOutput: "Error [hostrun]: qemu host: " +
				"assert.AnError general error for testing\n",
		},
		{
			name: "qemu command guest non-zero exit code error",
			err: &qemu.CommandError{
				Err:      exitcode.Error(43),
				Guest:    true,
				ExitCode: 43,
			},
			expectedExitCode: 43,
		},
		{
			name: "qemu command guest no exit status error",
			err: &qemu.CommandError{
				Err:   qemu.ErrGuestNoExitCodeFound,
				Guest: true,
			},
			expectedExitCode: -1,
			expectedOutput: "Error [hostrun]: qemu guest: " +
				"guest did not send exit status\n",
		},
		{
			name: "qemu command guest oom error",
			err: &qemu.CommandError{
				Err:   qemu.ErrGuestOom,
				Guest: true,
			},
			expectedExitCode: -1,
			expectedOutput: "Error [hostrun]: qemu guest: " +
				"system ran out of memory\n",
		},
		{
			name: "qemu command guest panic error",
			err: &qemu.CommandError{
				Err:   qemu.ErrGuestPanic,
				Guest: true,
			},
			expectedExitCode: -1,
			expectedOutput: "Error [hostrun]: qemu guest: " +
				"system panicked\n",
		},
		{
			name: "silent status channel gets a hint",
			err: &qemu.CommandError{
				Err: errors.Join(
					qemu.ErrGuestNoExitCodeFound,
					&vport.Error{Name: "status", Err: vport.ErrNoOutput},
				),
				Guest: true,
			},
			expectedExitCode: -1,
			expectedOutput: "Warning [hostrun]: channel status was silent, " +
				"maybe wrong transport type for this kernel\n" +
				"Error [hostrun]: qemu guest: " +
				"guest did not send exit status\n" +
				"channel status: channel did not output anything\n",
		},
		{
			name:             "any error",
			err:              assert.AnError,
			expectedExitCode: -1,
			expectedOutput: "Error [hostrun]: " +
				"assert.AnError general error for testing\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdErr bytes.Buffer
			actualExitCode := handleRunError(tt.err, &stdErr)

			assert.Equal(t, tt.expectedExitCode, actualExitCode,
				"exit code should be as expected")
			assert.Equal(t, tt.expectedOutput, stdErr.String(),
				"stderr output should be as expected")
		})
	}
}

func TestRun(t *testing.T) {
	t.Setenv("HOSTRUN_ARGS", "")

	t.Run("version", func(t *testing.T) {
		var stdOut, stdErr bytes.Buffer

		cfg := IO{
			Stdout: &stdOut,
			Stderr: &stdErr,
		}

		exitCode := Run(t.Context(), []string{"-version"}, cfg)
		assert.Equal(t, 0, exitCode, "exit code")
		assert.Contains(t, stdOut.String(), "Version:")
	})

	t.Run("usage without kernel", func(t *testing.T) {
		var stdOut, stdErr bytes.Buffer

		cfg := IO{
			Stdout: &stdOut,
			Stderr: &stdErr,
		}

		exitCode := Run(t.Context(), nil, cfg)
		assert.Equal(t, -1, exitCode, "exit code")
		assert.Contains(t, stdErr.String(), "no kernel given")
		assert.Contains(t, stdErr.String(), "Usage of 'hostrun'")
	})
}

func TestHostModulesDir(t *testing.T) {
	dir, err := hostModulesDir()
	require.NoError(t, err)

	release, found := strings.CutPrefix(dir, "/lib/modules/")
	assert.True(t, found, "dir should be below /lib/modules")
	assert.NotEmpty(t, release)
}
