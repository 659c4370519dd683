// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/aibor/hostrun/internal/exitcode"
	"github.com/aibor/hostrun/internal/vport"
)

// streamDrainTimeout bounds the drain of the channel streams once the QEMU
// process has terminated.
const streamDrainTimeout = 5 * time.Second

// Command is a QEMU command ready to run.
type Command struct {
	spec CommandSpec
}

// NewCommand validates the given spec and returns a new [Command] for it.
func NewCommand(spec CommandSpec) (*Command, error) {
	err := spec.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return &Command{spec: spec}, nil
}

// Args compiles the argument strings for the QEMU command.
func (c *Command) Args() ([]string, error) {
	return BuildArgumentStrings(c.spec.arguments())
}

// String implements [fmt.Stringer].
//
// It returns the complete command line of the [Command]. If the arguments
// collide, the error is printed in place of the arguments.
func (c *Command) String() string {
	args, err := c.Args()
	if err != nil {
		return c.spec.Executable + " <" + err.Error() + ">"
	}

	return strings.Join(append([]string{c.spec.Executable}, args...), " ")
}

// SocketPath returns the path of the listening socket serving the given
// out-of-band channel. It is empty if the command does not serve the
// channel.
func (c *Command) SocketPath(role vport.Role) string {
	if !c.spec.Scripted || !slices.Contains(socketChannelRoles, role) {
		return ""
	}

	return socketPath(c.spec.ChannelDir, role)
}

// Run starts the guest and blocks until it terminated.
//
// In scripted mode the session's standard streams are relayed on the control
// channels and the status received on the status channel is communicated as
// [CommandError] if it is not 0. In interactive mode the given stdio is
// attached to the guest console and a cleanly terminating guest is a
// success.
func (c *Command) Run(
	ctx context.Context,
	stdin io.Reader,
	stdout, stderr io.Writer,
) error {
	args, err := c.Args()
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.spec.Executable, args...)
	cmd.Stdin = stdin
	cmd.Stderr = stderr

	if !c.spec.Scripted {
		cmd.Stdout = stdout

		err := cmd.Run()
		if err != nil {
			return &CommandError{ExitCode: -1, Err: err}
		}

		return nil
	}

	return runScripted(cmd, stdout, stderr)
}

// runScripted runs the command with the control channels wired up.
//
// The kernel console and the guest to host channels are carried on pipes
// passed as additional file descriptors, matching the chardev paths compiled
// by [CommandSpec.arguments]. The session input channel is QEMU's stdin.
func runScripted(cmd *exec.Cmd, stdout, stderr io.Writer) error {
	parser := &consoleParser{}

	var status bytes.Buffer

	outputs := map[vport.Role]io.Writer{
		vport.RoleStdout:    stdout,
		vport.RoleStderr:    stderr,
		vport.RoleRawStdout: stdout,
		vport.RoleRawStderr: stderr,
		vport.RoleStatus:    &status,
	}

	streams := []*vport.Stream{{
		Name:        "console",
		Output:      stderr,
		CopyFunc:    parser.Copy,
		MayBeSilent: true,
	}}

	for _, role := range fdChannelRoles {
		streams = append(streams, &vport.Stream{
			Name:     role.String(),
			Output:   outputs[role],
			CopyFunc: io.Copy,
			// The status channel must never be silent. A well behaved
			// guest always sends an exit status, even on failure.
			MayBeSilent: role != vport.RoleStatus,
		})
	}

	writeEnds, err := connectStreamPipes(streams)
	if err != nil {
		return err
	}

	cmd.ExtraFiles = writeEnds

	// QEMU multiplexes its own output onto the stdio chardev serving the
	// input channel. Nothing is expected there, but it must not pollute the
	// session's stdout.
	cmd.Stdout = stderr

	err = cmd.Start()
	if err != nil {
		closeAll(writeEnds)
		closeAll(streamClosers(streams))

		return &CommandError{ExitCode: -1, Err: fmt.Errorf("start: %w", err)}
	}

	// The write ends belong to the guest now. Close our copies so the
	// streams see EOF once QEMU exits.
	closeAll(writeEnds)

	var processors vport.Streams
	for _, stream := range streams {
		processors.Run(stream)
	}

	waitErr := cmd.Wait()
	streamsErr := processors.Wait(streamDrainTimeout)

	return composeScriptResult(waitErr, streamsErr, parser, &status)
}

// connectStreamPipes creates a pipe per stream, connects the read end and
// returns the write ends in stream order.
func connectStreamPipes(streams []*vport.Stream) ([]*os.File, error) {
	writeEnds := make([]*os.File, 0, len(streams))

	for _, stream := range streams {
		readEnd, writeEnd, err := os.Pipe()
		if err != nil {
			closeAll(writeEnds)
			closeAll(streamClosers(streams))

			return nil, fmt.Errorf("pipe %s: %w", stream.Name, err)
		}

		stream.InputReader = readEnd
		stream.InputCloser = readEnd

		writeEnds = append(writeEnds, writeEnd)
	}

	return writeEnds, nil
}

func streamClosers(streams []*vport.Stream) []*os.File {
	closers := make([]*os.File, 0, len(streams))

	for _, stream := range streams {
		if file, ok := stream.InputCloser.(*os.File); ok {
			closers = append(closers, file)
		}
	}

	return closers
}

func closeAll(files []*os.File) {
	for _, file := range files {
		_ = file.Close()
	}
}

// composeScriptResult merges the process result, the stream results and the
// parsed console into a single result for the scripted run.
func composeScriptResult(
	waitErr, streamsErr error,
	parser *consoleParser,
	status io.Reader,
) error {
	// A fatal guest condition beats all other errors. They are its
	// consequences.
	if err := parser.Err(); err != nil {
		return &CommandError{Guest: true, ExitCode: -1, Err: err}
	}

	if waitErr != nil {
		return &CommandError{
			ExitCode: -1,
			Err:      fmt.Errorf("wait: %w", waitErr),
		}
	}

	exitCode, found := exitcode.ReadFrom(status)
	if !found {
		return &CommandError{
			Guest:    true,
			ExitCode: -1,
			Err:      errors.Join(ErrGuestNoExitCodeFound, streamsErr),
		}
	}

	if exitCode != 0 {
		return &CommandError{
			Guest:    true,
			ExitCode: exitCode,
			Err:      exitcode.Error(exitCode),
		}
	}

	if streamsErr != nil {
		return &CommandError{ExitCode: -1, Err: streamsErr}
	}

	return nil
}
