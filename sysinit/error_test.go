// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aibor/hostrun/sysinit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalMountError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		other  error
		assert assert.BoolAssertionFunc
	}{
		{
			name:   "nil",
			err:    sysinit.OptionalMountError{},
			assert: assert.False,
		},
		{
			name:   "same type",
			err:    sysinit.OptionalMountError{assert.AnError},
			other:  sysinit.OptionalMountError{},
			assert: assert.True,
		},
		{
			name:   "wrapped",
			err:    fmt.Errorf("wrapped: %w", sysinit.OptionalMountError{}),
			other:  sysinit.OptionalMountError{},
			assert: assert.True,
		},
		{
			name:   "different type",
			err:    sysinit.OptionalMountError{},
			other:  assert.AnError,
			assert: assert.False,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t, errors.Is(tt.err, tt.other))
		})
	}
}

func TestOptionalMountError_Unwrap(t *testing.T) {
	wrapped := errors.New("other")
	err := sysinit.OptionalMountError{assert.AnError, wrapped}

	require.ErrorIs(t, err, assert.AnError)
	require.ErrorIs(t, err, wrapped)
}

func TestOptionalMountError_Error(t *testing.T) {
	err := sysinit.OptionalMountError{
		errors.New("first"),
		errors.New("second"),
	}

	assert.Equal(t, "optional mount failed: first, second", err.Error())
}
