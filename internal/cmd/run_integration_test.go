// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build integration

//go:generate env CGO_ENABLED=0 go build -v -trimpath -buildvcs=false -o testdata/bin/ ../../cmd/hostrun-init

package cmd_test

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/aibor/hostrun/internal/cmd"
	"github.com/aibor/hostrun/internal/qemu"
	"github.com/aibor/hostrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	KernelPath            = "/boot/vmlinuz"
	InitPath              = "testdata/bin/hostrun-init"
	ModulesDir            string
	ForceTransportTypePCI bool
	Verbose               bool
)

func init() {
	flag.StringVar(
		&KernelPath,
		"hostrun.kernel",
		KernelPath,
		"path of the test kernel",
	)
	flag.StringVar(
		&InitPath,
		"hostrun.init",
		InitPath,
		"path of the hostrun-init binary",
	)
	flag.StringVar(
		&ModulesDir,
		"hostrun.moddir",
		ModulesDir,
		"module directory of the test kernel",
	)
	flag.BoolVar(
		&ForceTransportTypePCI,
		"hostrun.forcepci",
		ForceTransportTypePCI,
		"force transport type virtio-pci instead of arch default",
	)
	flag.BoolVar(
		&Verbose,
		"hostrun.verbose",
		Verbose,
		"show complete guest output",
	)
}

func TestIntegration(t *testing.T) {
	t.Parallel()

	shareDir := t.TempDir()

	marker := shareDir + "/marker"
	err := os.WriteFile(marker, []byte("hello from the host\n"), 0o644)
	require.NoError(t, err)

	tests := []struct {
		name             string
		args             []string
		command          []string
		expectedExitCode int
		expectedStdOut   string
		expectedStdErr   string
	}{
		{
			name:             "return 0",
			command:          []string{"true"},
			expectedExitCode: 0,
		},
		{
			name:             "return 55",
			command:          []string{"sh", "-c", "exit 55"},
			expectedExitCode: 55,
		},
		{
			name:           "stdout round trip",
			command:        []string{"echo", "hostrun says hi"},
			expectedStdOut: "hostrun says hi",
		},
		{
			name:           "host file system",
			command:        []string{"cat", marker},
			expectedStdOut: "hello from the host",
		},
		{
			name: "read only root",
			command: []string{
				"sh", "-c",
				fmt.Sprintf("touch %s/denied 2>&1", shareDir),
			},
			expectedExitCode: 1,
			expectedStdOut:   "Read-only file system",
		},
		{
			name: "writable root",
			args: []string{"-rw"},
			command: []string{
				"sh", "-c",
				fmt.Sprintf(
					"echo from-guest > %s/out && cat %s/out",
					shareDir, shareDir,
				),
			},
			expectedStdOut: "from-guest",
		},
		{
			name:           "hostname",
			args:           []string{"-name", "hostrun-ci"},
			command:        []string{"hostname"},
			expectedStdOut: "hostrun-ci",
		},
		{
			name:           "working directory",
			args:           []string{"-chdir", "/tmp"},
			command:        []string{"pwd"},
			expectedStdOut: "/tmp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := []string{
				"-memory", "512",
				"-smp", "2",
				"-init", sys.MustAbsolutePath(InitPath),
			}

			if ModulesDir != "" {
				args = append(args, "-modDir", sys.MustAbsolutePath(ModulesDir))
			}

			if Verbose {
				args = append(args, "-verbose", "-debug")
			}

			if ForceTransportTypePCI {
				args = append(args, "-transport", string(qemu.TransportTypePCI))
			}

			args = append(args, tt.args...)
			args = append(args, sys.MustAbsolutePath(KernelPath))
			args = append(args, tt.command...)

			var stdOut, stdErr bytes.Buffer

			cfg := cmd.IO{
				Stdout: &stdOut,
				Stderr: &stdErr,
			}

			exitCode := cmd.Run(t.Context(), args, cfg)
			assert.Equal(t, tt.expectedExitCode, exitCode, "exit code")

			assertBufContains(t, stdOut, tt.expectedStdOut, "stdout")
			assertBufContains(t, stdErr, tt.expectedStdErr, "stderr")
		})
	}
}

func assertBufContains(
	t *testing.T,
	buf bytes.Buffer,
	expected string,
	scope string,
) {
	t.Helper()

	actual := strings.TrimSpace(buf.String())
	if actual != "" {
		t.Log(scope+":", actual)
	}

	assert.Contains(t, actual, expected, scope)
}
