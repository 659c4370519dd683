// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// CleanupFunc is a function that is run at the end of [Run] in reverse
// registration order.
type CleanupFunc func() error

// State is shared between all [Func]s of a [Run].
//
// It carries the boot [Config] once loaded, collects cleanup functions
// and owns the group of background tasks that boot phases start but do
// not wait for.
type State struct {
	// Config holds the parameters the guest was booted with. It is set
	// by [WithConfig] and nil before that phase ran.
	Config *Config

	cleanupFns []CleanupFunc
	background errgroup.Group
}

// Cleanup registers a function that is run once all [Func]s have been
// processed. Cleanup functions are run in reverse registration order,
// even if any [Func] failed.
func (s *State) Cleanup(fn CleanupFunc) {
	s.cleanupFns = append(s.cleanupFns, fn)
}

func (s *State) doCleanup() {
	for idx := len(s.cleanupFns) - 1; idx >= 0; idx-- {
		if err := s.cleanupFns[idx](); err != nil {
			slog.Error("Cleanup failed", "error", err)
		}
	}
}

// Go runs fn as background task. Phases use this for work that must
// not delay boot, like overlay mounts. The tasks are not awaited
// during boot. Callers that depend on their completion call
// [State.WaitBackground] first.
func (s *State) Go(fn func() error) {
	s.background.Go(fn)
}

// WaitBackground blocks until all background tasks started with
// [State.Go] have returned and returns the first error of any of them.
func (s *State) WaitBackground() error {
	return s.background.Wait() //nolint:wrapcheck
}
