// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NotPidOne(t *testing.T) {
	// The test process is never PID 1, so Run must refuse to touch the
	// system.
	assert.PanicsWithValue(t, ErrNotPidOne, func() {
		Run()
	})
}

func TestRunFuncs(t *testing.T) {
	tests := []struct {
		name        string
		funcs       []Func
		expectedErr error
	}{
		{
			name: "none",
		},
		{
			name: "success",
			funcs: []Func{
				func(_ *State) error { return nil },
				func(_ *State) error { return nil },
			},
		},
		{
			name: "first fails",
			funcs: []Func{
				func(_ *State) error { return assert.AnError },
				func(_ *State) error { return errors.New("second") },
			},
			expectedErr: assert.AnError,
		},
		{
			name: "second fails",
			funcs: []Func{
				func(_ *State) error { return nil },
				func(_ *State) error { return assert.AnError },
			},
			expectedErr: assert.AnError,
		},
		{
			name: "panic with error",
			funcs: []Func{
				func(_ *State) error { panic(assert.AnError) },
			},
			expectedErr: ErrPanic,
		},
		{
			name: "panic without error",
			funcs: []Func{
				func(_ *State) error { panic("boom") },
			},
			expectedErr: ErrPanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := new(State)

			err := runFuncs(state, tt.funcs)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRunFuncs_PanicKeepsCause(t *testing.T) {
	funcs := []Func{
		func(_ *State) error { panic(assert.AnError) },
	}

	err := runFuncs(new(State), funcs)
	require.ErrorIs(t, err, ErrPanic)
	require.ErrorIs(t, err, assert.AnError)
}

func TestRunFuncs_StopsAtFirstError(t *testing.T) {
	var calls int

	funcs := []Func{
		func(_ *State) error {
			calls++
			return assert.AnError
		},
		func(_ *State) error {
			calls++
			return nil
		},
	}

	err := runFuncs(new(State), funcs)
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
