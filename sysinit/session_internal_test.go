// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"testing"

	"github.com/aibor/hostrun/internal/vport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChannels(t *testing.T) {
	// The test machine has no virtio-serial ports, so every channel of
	// a scripted session must be reported missing in one joined error,
	// failing the session before it can hang on dead ports.
	err := verifyChannels()
	require.ErrorIs(t, err, vport.ErrChannelUnavailable)

	for _, role := range scriptedChannelRoles {
		assert.ErrorContains(t, err, role.String())
	}
}

func TestUserCommand(t *testing.T) {
	tests := []struct {
		name         string
		user         string
		command      string
		expectedName string
		expectedArgs []string
	}{
		{
			name:         "no user",
			command:      "echo hello",
			expectedName: "/bin/sh",
			expectedArgs: []string{"-c", "echo hello"},
		},
		{
			name:         "root",
			user:         "root",
			command:      "echo hello",
			expectedName: "/bin/sh",
			expectedArgs: []string{"-c", "echo hello"},
		},
		{
			name:         "user",
			user:         "dev",
			command:      "echo hello",
			expectedName: "su",
			expectedArgs: []string{"dev", "-c", "echo hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, args := userCommand(tt.user, tt.command)

			assert.Equal(t, tt.expectedName, name)
			assert.Equal(t, tt.expectedArgs, args)
		})
	}
}
