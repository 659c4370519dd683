// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"

	"github.com/creack/pty"
	"github.com/mdlayher/vsock"
)

// WithRemoteShell returns a [Func] that starts a shell service on the
// configured vsock port. Each connection gets its own login shell on a
// fresh pseudo terminal. The service runs until the machine powers
// off.
func WithRemoteShell() Func {
	return func(state *State) error {
		port := state.Config.VsockPort
		if port == 0 {
			return nil
		}

		listener, err := vsock.Listen(port, nil)
		if err != nil {
			return fmt.Errorf("vsock listen: %w", err)
		}

		state.Cleanup(listener.Close)

		go serveShells(listener, state.Config.User)

		slog.Info("Remote shell service listening", "port", port)

		return nil
	}
}

func serveShells(listener net.Listener, user string) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Warn("Remote shell accept failed", "error", err)
			}

			return
		}

		go func() {
			defer conn.Close()

			if err := runShellConn(conn, user); err != nil {
				slog.Warn("Remote shell session failed", "error", err)
			}
		}()
	}
}

// runShellConn runs a login shell for the target user on a fresh
// pseudo terminal with the connection attached to both ends.
func runShellConn(conn net.Conn, user string) error {
	name, args := loginShellCommand(user)

	cmd := exec.Command(name, args...)
	cmd.Env = sessionEnv()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	defer ptmx.Close()

	go func() {
		_, _ = io.Copy(ptmx, conn)
	}()

	_, _ = io.Copy(conn, ptmx)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("shell: %w", err)
	}

	return nil
}
