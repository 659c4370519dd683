// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	// xinitrcPath is the generated startup file for the windowing
	// session.
	xinitrcPath = scratchDir + "/.xinitrc"

	// soundHookPath is an optional host-provided script run before the
	// windowing session when sound was requested.
	soundHookPath = "/usr/lib/hostrun/sound-hook"
)

// runInteractiveSession runs a login shell or a windowing session on
// the console device until it ends.
func runInteractiveSession(state *State) error {
	cfg := state.Config

	tty, err := openSessionConsole(cfg)
	if err != nil {
		// Degraded but alive beats powered off: hand out a shell on
		// whatever streams the init program itself has.
		slog.Warn("No usable console, starting plain shell", "error", err)
		return runPlainShell(cfg)
	}
	defer tty.Close()

	printBanner(tty)

	if cfg.Graphics {
		return runGraphicsSession(cfg, tty)
	}

	name, args := loginShellCommand(cfg.User)

	return runOnConsole(cfg, tty, name, args...)
}

// openSessionConsole determines the console device for the session,
// applies the configured terminal settings and opens it. An explicitly
// configured console wins over the kernel's active console. It may be
// given as full path or as bare device name.
func openSessionConsole(cfg *Config) (*os.File, error) {
	console := cfg.Console

	if console != "" && !strings.HasPrefix(console, "/") {
		console = "/dev/" + console
	}

	if console == "" {
		var err error

		console, err = ActiveConsole()
		if err != nil {
			return nil, err
		}
	}

	if err := configureConsole(console, cfg.SttyOpts); err != nil {
		slog.Warn("Apply console settings failed", "error", err)
	}

	file, err := os.OpenFile(console, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open console: %w", err)
	}

	return file, nil
}

// printBanner greets on the console so the user sees the session is
// ready and which kernel it runs on.
func printBanner(writer io.Writer) {
	release, err := kernelRelease()
	if err != nil {
		release = "unknown"
	}

	fmt.Fprintf(writer, "hostrun session ready, kernel %s\n", release)
}

// shellPath returns the interactive shell of the guest, preferring
// bash over the plain POSIX shell.
func shellPath() string {
	const bash = "/bin/bash"

	if _, err := os.Stat(bash); err == nil {
		return bash
	}

	return "/bin/sh"
}

// loginShellCommand builds the command line for a login shell of the
// target user. Root gets the shell directly, everyone else goes
// through su so the session carries their identity.
func loginShellCommand(user string) (string, []string) {
	shell := shellPath()

	if user == "" || user == "root" {
		return shell, []string{"-l"}
	}

	return shell, []string{"-l", "-c", "su " + user}
}

// runPlainShell runs a login shell on the init program's own streams.
func runPlainShell(cfg *Config) error {
	name, args := loginShellCommand(cfg.User)

	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = workingDir(cfg.Chdir)
	cmd.Env = sessionEnv()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shell: %w", err)
	}

	return nil
}

// runOnConsole runs the command on the console device, in its own
// session with the console as controlling terminal.
func runOnConsole(
	cfg *Config,
	tty *os.File,
	name string,
	args ...string,
) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.Dir = workingDir(cfg.Chdir)
	cmd.Env = sessionEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		// The console is the child's stdin.
		Ctty: 0,
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

// runGraphicsSession starts the windowing session on the console. An
// abnormal exit falls back to a console shell, so a broken graphics
// setup still leaves a usable machine.
func runGraphicsSession(cfg *Config, tty *os.File) error {
	if err := setupRuntimeDir(cfg.User); err != nil {
		slog.Warn("Set up XDG runtime dir failed", "error", err)
	}

	if err := writeXinitrc(cfg); err != nil {
		return err
	}

	err := runOnConsole(cfg, tty, shellPath(), "-l", "-c",
		xinitCommand(cfg.User))
	if err != nil {
		slog.Warn("Graphics session failed, falling back to console shell",
			"error", err)

		name, args := loginShellCommand(cfg.User)

		return runOnConsole(cfg, tty, name, args...)
	}

	return nil
}

// writeXinitrc generates the startup file for the windowing session:
// the sound hook first when requested, then the command payload or an
// interactive shell.
func writeXinitrc(cfg *Config) error {
	var sb strings.Builder

	if cfg.Sound {
		if _, err := os.Stat(soundHookPath); err == nil {
			sb.WriteString(soundHookPath + "\n")
		} else {
			slog.Warn("Sound hook not found", "path", soundHookPath)
		}
	}

	command := cfg.Exec
	if command == "" {
		command = shellPath()
	}

	sb.WriteString(command + "\n")

	err := os.WriteFile(xinitrcPath, []byte(sb.String()), 0o644)
	if err != nil {
		return fmt.Errorf("write xinitrc: %w", err)
	}

	return nil
}

// xinitCommand builds the shell command starting the windowing
// session. Non-root users get the virtual console devices chowned
// first, since xinit starts without a display manager granting
// access.
func xinitCommand(user string) string {
	if user == "" || user == "root" {
		return "xinit " + xinitrcPath
	}

	return fmt.Sprintf("chown %s /dev/char/* 2>/dev/null; su %s -c 'xinit %s'",
		user, user, xinitrcPath)
}

// setupRuntimeDir creates the XDG runtime directory of the session
// user. Graphical applications expect it to exist.
func setupRuntimeDir(userName string) error {
	uid := 0

	if userName != "" {
		sessionUser, err := user.Lookup(userName)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", userName, err)
		}

		uid, err = strconv.Atoi(sessionUser.Uid)
		if err != nil {
			return fmt.Errorf("uid of %s: %w", userName, err)
		}
	}

	dir := filepath.Join("/run/user", strconv.Itoa(uid))

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	if err := os.Chown(dir, uid, uid); err != nil {
		return fmt.Errorf("chown %s: %w", dir, err)
	}

	return os.Setenv("XDG_RUNTIME_DIR", dir)
}
