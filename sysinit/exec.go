// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// defaultPath is the PATH sessions and helper programs run with. The
// boot-time PATH of the init program itself must not leak through.
const defaultPath = "/bin:/sbin:/usr/bin:/usr/sbin:/usr/local/bin"

// runCommand runs the program to completion with its output directed
// at the init program's own streams, so it ends up in the kernel log
// or on the console.
func runCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = sessionEnv()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

// sessionEnv returns the environment for everything the init program
// starts: the boot parameters are stripped so they do not leak into
// sessions, and PATH is reset to the standard system directories.
func sessionEnv() []string {
	environ := os.Environ()
	env := make([]string, 0, len(environ)+1)

	for _, envVar := range environ {
		if strings.HasPrefix(envVar, envPrefix) ||
			strings.HasPrefix(envVar, "PATH=") {
			continue
		}

		env = append(env, envVar)
	}

	return append(env, "PATH="+defaultPath)
}

// workingDir validates the configured session working directory,
// falling back to the root directory if it is unusable.
func workingDir(dir string) string {
	if dir == "" {
		return "/"
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		slog.Warn("Working directory not usable, using /", "dir", dir)
		return "/"
	}

	return dir
}
