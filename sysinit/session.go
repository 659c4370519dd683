// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/aibor/hostrun/internal/exitcode"
	"github.com/aibor/hostrun/internal/vport"
)

// oobMountDir is where shares requested over the mount channel are
// mounted, one directory per tag.
const oobMountDir = "/run/hostrun/mounts"

// WithSession returns the final [Func] of a boot. It runs the
// scripted command if one was configured, otherwise an interactive
// shell session. Once the session ends, [Run] powers the machine off.
//
// In graphics mode the command payload runs inside the windowing
// session instead of on the control channels.
func WithSession() Func {
	return func(state *State) error {
		if state.Config.Exec != "" && !state.Config.Graphics {
			return runScriptedSession(state)
		}

		return runInteractiveSession(state)
	}
}

// scriptedChannelRoles are the channels a scripted session cannot run
// without.
var scriptedChannelRoles = []vport.Role{
	vport.RoleStdin,
	vport.RoleStdout,
	vport.RoleStderr,
	vport.RoleRawStdout,
	vport.RoleRawStderr,
	vport.RoleStatus,
}

// runScriptedSession runs the command payload with its standard
// streams bound to the control channels and reports its exit status on
// the status channel.
func runScriptedSession(state *State) error {
	// Without the channels there is nobody to talk to. Failing here
	// powers the machine off instead of hanging on dead ports forever.
	if err := verifyChannels(); err != nil {
		return err
	}

	// Processes that open the standard output device files directly
	// must land on the raw endpoints, isolated from the main streams.
	rawLinks := Symlinks{
		"/dev/stdout": vport.RoleRawStdout.Path(),
		"/dev/stderr": vport.RoleRawStderr.Path(),
	}

	for path, target := range sortedMap(rawLinks) {
		if err := replaceSymlink(path, target); err != nil {
			return err
		}
	}

	status, err := vport.Open(vport.RoleStatus, os.O_WRONLY)
	if err != nil {
		return err
	}

	state.Cleanup(status.Close)

	stdio, err := openSessionChannels(state)
	if err != nil {
		return err
	}

	serveOutOfBand(state)

	exitCode, err := runScript(state.Config, stdio)
	if err != nil {
		return err
	}

	slog.Debug("Session command finished", "exitcode", exitCode)

	// One decimal line, written exactly once. The host turns this into
	// the exit code of its own process.
	if _, err := exitcode.Fprint(status, exitCode); err != nil {
		return fmt.Errorf("report exit status: %w", err)
	}

	return nil
}

// verifyChannels checks that every channel endpoint a scripted session
// needs exists.
func verifyChannels() error {
	// The device paths are derived from the channel role table shared
	// with the host, so it must be sound before binding anything.
	if err := vport.Validate(); err != nil {
		return err
	}

	var errs []error

	for _, role := range scriptedChannelRoles {
		if _, err := os.Stat(role.Path()); err != nil {
			errs = append(errs,
				fmt.Errorf("%w: %s", vport.ErrChannelUnavailable, role))
		}
	}

	return errors.Join(errs...)
}

// sessionStdio holds the opened channel endpoints for the session's
// standard streams.
type sessionStdio struct {
	stdin  *os.File
	stdout *os.File
	stderr *os.File
}

func openSessionChannels(state *State) (*sessionStdio, error) {
	var stdio sessionStdio

	for _, channel := range []struct {
		role vport.Role
		file **os.File
	}{
		{vport.RoleStdin, &stdio.stdin},
		{vport.RoleStdout, &stdio.stdout},
		{vport.RoleStderr, &stdio.stderr},
	} {
		file, err := vport.Open(channel.role, os.O_RDWR)
		if err != nil {
			return nil, err
		}

		state.Cleanup(file.Close)

		*channel.file = file
	}

	return &stdio, nil
}

// runScript runs the decoded command payload in its own session as the
// target user with its standard streams on the given channel files.
// The exit code of the command is returned, not an error, since a
// failing command is a session result, not an init failure.
func runScript(cfg *Config, stdio *sessionStdio) (int, error) {
	name, args := userCommand(cfg.User, cfg.Exec)

	cmd := exec.Command(name, args...)
	cmd.Stdin = stdio.stdin
	cmd.Stdout = stdio.stdout
	cmd.Stderr = stdio.stderr
	cmd.Dir = workingDir(cfg.Chdir)
	cmd.Env = sessionEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	if err != nil {
		return 0, fmt.Errorf("run command: %w", err)
	}

	return 0, nil
}

// userCommand builds the command line running the session command as
// the target user. Root runs it with the plain shell.
func userCommand(user, command string) (string, []string) {
	if user != "" && user != "root" {
		return "su", []string{user, "-c", command}
	}

	return "/bin/sh", []string{"-c", command}
}

// serveOutOfBand starts serving the exec and mount channels for the
// lifetime of the session. Both channels are optional, the host
// configures them only when needed.
func serveOutOfBand(state *State) {
	channels := []struct {
		role  vport.Role
		serve func(*os.File)
	}{
		{vport.RoleExec, serveExecChannel},
		{vport.RoleMount, serveMountChannel},
	}

	for _, channel := range channels {
		file, err := vport.Open(channel.role, os.O_RDWR)
		if err != nil {
			if !errors.Is(err, vport.ErrChannelUnavailable) {
				slog.Warn("Open channel failed",
					"role", channel.role, "error", err)
			}

			continue
		}

		state.Cleanup(file.Close)

		go channel.serve(file)
	}
}

// serveExecChannel runs one command per received line. Lines carry the
// command encoded the same way as the kernel command line payload.
// Commands run detached from the main session, with their output on
// the raw endpoints so the session streams stay clean.
func serveExecChannel(file *os.File) {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, err := vport.DecodeString(line)
		if err != nil {
			slog.Warn("Undecodable exec request", "error", err)
			continue
		}

		go runOutOfBand(command)
	}
}

func runOutOfBand(command string) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Env = sessionEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if out, err := vport.Open(vport.RoleRawStdout, os.O_WRONLY); err == nil {
		defer out.Close()
		cmd.Stdout = out
	}

	if out, err := vport.Open(vport.RoleRawStderr, os.O_WRONLY); err == nil {
		defer out.Close()
		cmd.Stderr = out
	}

	if err := cmd.Run(); err != nil {
		slog.Warn("Out-of-band command failed", "error", err)
	}
}

// serveMountChannel mounts one host share per received line, given by
// its tag. Shares appear below a fixed directory named like the tag.
func serveMountChannel(file *os.File) {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		tag := strings.TrimSpace(scanner.Text())
		if tag == "" {
			continue
		}

		dir := filepath.Join(oobMountDir, tag)

		opts := MountOptions{
			FSType: FSType9p,
			Source: tag,
			Data:   ninePData,
		}

		if err := Mount(dir, opts); err != nil {
			slog.Warn("Mount request failed", "tag", tag, "error", err)
			continue
		}

		slog.Info("Mounted requested share", "tag", tag, "dir", dir)
	}
}
