// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vport

import (
	"errors"
	"io"
	"slices"
	"sync"
	"time"
)

// Stream is a single channel processed by [Streams].
type Stream struct {
	// Name of the stream. Used in error messages and statistics.
	Name string

	// InputReader is the source the stream copies from.
	InputReader io.Reader

	// InputCloser is closed if processing is aborted, so a blocked read can
	// terminate.
	InputCloser io.Closer

	// Output is the destination the stream copies to.
	Output io.Writer

	// CopyFunc does the actual copying.
	CopyFunc CopyFunc

	// MayBeSilent accepts the stream terminating without any output.
	// Without it, such a stream fails with [ErrNoOutput].
	MayBeSilent bool
}

type streamState struct {
	name    string
	closer  io.Closer
	done    chan struct{}
	written int64
	err     error
}

// Streams processes channel streams concurrently.
//
// The zero value is ready to use. It must not be copied after first use.
type Streams struct {
	mu      sync.Mutex
	streams []*streamState
}

// Run starts processing the given stream in the background.
//
// It returns immediately. Call [Streams.Wait] to collect the result.
func (s *Streams) Run(stream *Stream) {
	state := &streamState{
		name:   stream.Name,
		closer: stream.InputCloser,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.streams = append(s.streams, state)
	s.mu.Unlock()

	go func() {
		defer close(state.done)

		written, err := stream.CopyFunc(stream.Output, stream.InputReader)
		if err == nil && written == 0 && !stream.MayBeSilent {
			err = ErrNoOutput
		}

		state.written = written
		state.err = err
	}()
}

// Len returns the number of streams run so far.
func (s *Streams) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.streams)
}

// Wait waits until all streams terminated.
//
// A stream terminates once its input is exhausted. Streams still running
// after the given timeout are aborted by closing their input and reported
// with [ErrWaitTimeout]. All stream errors are returned joined, each
// wrapped in an [Error] carrying the stream's name.
func (s *Streams) Wait(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s.mu.Lock()
	streams := slices.Clone(s.streams)
	s.mu.Unlock()

	var errs []error

	timedOut := false

	for _, state := range streams {
		if !timedOut {
			select {
			case <-state.done:
			case <-timer.C:
				timedOut = true
			}
		}

		if timedOut {
			select {
			case <-state.done:
			default:
				if state.closer != nil {
					_ = state.closer.Close()
				}

				errs = append(errs, &Error{
					Name: state.name,
					Err:  ErrWaitTimeout,
				})

				continue
			}
		}

		if state.err != nil {
			errs = append(errs, &Error{Name: state.name, Err: state.err})
		}
	}

	return errors.Join(errs...)
}

// BytesWritten returns the number of bytes each terminated stream has
// written.
func (s *Streams) BytesWritten() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := make(map[string]int64, len(s.streams))

	for _, state := range s.streams {
		select {
		case <-state.done:
			written[state.name] = state.written
		default:
		}
	}

	return written
}
