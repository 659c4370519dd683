// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"

	"golang.org/x/sys/unix"

	"github.com/aibor/hostrun/internal/exitcode"
	"github.com/aibor/hostrun/internal/hostrun"
	"github.com/aibor/hostrun/internal/qemu"
	"github.com/aibor/hostrun/internal/vport"
)

const (
	// localConfigFile is the per directory config file read for
	// additional arguments.
	localConfigFile = ".hostrun-args"

	// initBinaryName is the init program binary looked up if none is
	// given explicitly.
	initBinaryName = "hostrun-init"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func newFlags(args []string, cfg IO) (*flags, error) {
	args, err := MergedArgs(args, os.DirFS("."), localConfigFile)
	if err != nil {
		return nil, err
	}

	flags, err := parseArgs(args, cfg.Stderr)
	if err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	return flags, nil
}

// findInitBinary locates the init program binary: next to the own
// executable first, then in PATH.
func findInitBinary() (string, error) {
	self, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(self), initBinaryName)

		err = ValidateFilePath(path)
		if err == nil {
			return path, nil
		}
	}

	path, err := exec.LookPath(initBinaryName)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInitNotFound, initBinaryName)
	}

	return path, nil
}

// hostModulesDir returns the module directory of the running kernel.
func hostModulesDir() (string, error) {
	var utsname unix.Utsname

	err := unix.Uname(&utsname)
	if err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}

	release := unix.ByteSliceToString(utsname.Release[:])

	return filepath.Join("/lib/modules", release), nil
}

// newSpec assembles and validates the run spec from the parsed flags,
// filling in everything derived from the host environment.
func newSpec(flags *flags, cfg IO) (*hostrun.Spec, error) {
	spec := flags.spec()

	if spec.Archive.Init == "" {
		initPath, err := findInitBinary()
		if err != nil {
			return nil, err
		}

		spec.Archive.Init = initPath
	}

	// Booting the host's own kernel works with the host's own modules.
	if spec.Session.HostModules && spec.Archive.ModulesDir == "" {
		dir, err := hostModulesDir()
		if err != nil {
			return nil, err
		}

		spec.Archive.ModulesDir = dir
	}

	if spec.Session.Chdir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}

		spec.Session.Chdir = cwd
	}

	// Interactive sessions mirror the host terminal's geometry on the
	// guest console.
	if !spec.Scripted() {
		spec.Session.SttyOpts = terminalOptions(cfg.Stdin)
	}

	err := validateSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return spec, nil
}

func printVersion(stdout io.Writer) error {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ErrReadBuildInfo
	}

	fmt.Fprintf(stdout, "Version: %s\n", buildInfo.Main.Version)

	return nil
}

func run(ctx context.Context, args []string, cfg IO) error {
	log.SetOutput(cfg.Stderr)
	log.SetFlags(log.Lmicroseconds)
	log.SetPrefix("HOSTRUN: ")

	flags, err := newFlags(args, cfg)
	if err != nil {
		return err
	}

	setupLogging(cfg.Stderr, flags.Debug)

	if flags.Version {
		return printVersion(cfg.Stdout)
	}

	spec, err := newSpec(flags, cfg)
	if err != nil {
		return err
	}

	err = hostrun.Run(ctx, spec, cfg.Stdin, cfg.Stdout, cfg.Stderr)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

// handleRunError translates the error into the command's exit code,
// printing what the user needs to see.
func handleRunError(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	// Requested help output is not an error.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// parseArgs already printed the reason along with the usage.
	if errors.Is(err, &ParseArgsError{}) {
		return -1
	}

	exitCode := -1

	var qemuErr *qemu.CommandError
	if errors.As(err, &qemuErr) {
		if qemuErr.ExitCode != 0 {
			exitCode = qemuErr.ExitCode
		}

		var channelErr *vport.Error
		if errors.As(err, &channelErr) && errors.Is(err, vport.ErrNoOutput) {
			fmt.Fprintf(stderr,
				"Warning [hostrun]: channel %s was silent, maybe wrong "+
					"transport type for this kernel\n",
				channelErr.Name)
		}

		// The guest command failed and properly communicated its exit
		// code. Nothing to report, the exit code carries the result.
		if code, isExit := exitcode.From(err); isExit {
			return code
		}

		fmt.Fprintf(stderr, "Error [hostrun]: qemu %s\n", qemuErr.Error())

		return exitCode
	}

	fmt.Fprintf(stderr, "Error [hostrun]: %s\n", err.Error())

	return exitCode
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	err := run(ctx, args, cfg)

	return handleRunError(err, cfg.Stderr)
}
