// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"log/slog"
	"os"
)

// Func is a unit of work of the init program.
//
// A Func may use [State.Cleanup] to register work that must happen
// before the machine powers off, and [State.Go] for work that must not
// delay the boot.
type Func func(*State) error

// IsPidOne returns whether the running process has the process ID 1.
func IsPidOne() bool {
	return os.Getpid() == 1
}

// Run processes the given [Func]s in order and powers off the machine
// once they are done, no matter if they succeeded or failed.
//
// Run never returns. It panics with [ErrNotPidOne] if the process is
// not PID 1, since running the phases on a live system would wreck it.
// Panics in any [Func] are recovered and logged, as PID 1 must not
// die. Registered cleanup functions run in reverse order before power
// off.
func Run(funcs ...Func) {
	if !IsPidOne() {
		panic(ErrNotPidOne)
	}

	state := &State{}

	if err := runFuncs(state, funcs); err != nil {
		slog.Error("Init failed", "error", err)
	}

	state.doCleanup()

	if err := poweroff(); err != nil {
		slog.Error("Poweroff failed", "error", err)
	}
}

func runFuncs(state *State, funcs []Func) (err error) {
	// A panicking phase must not take down PID 1. Turn panics into
	// errors so cleanup and poweroff still happen.
	defer func() {
		if recovered := recover(); recovered != nil {
			recoveredErr, ok := recovered.(error)
			if !ok {
				recoveredErr = fmt.Errorf("%v", recovered)
			}

			err = fmt.Errorf("%w: %w", ErrPanic, recoveredErr)
		}
	}()

	for _, fn := range funcs {
		if err := fn(state); err != nil {
			return err
		}
	}

	return nil
}
