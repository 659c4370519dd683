// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name          string
		debug         bool
		expectedLevel slog.Level
	}{
		{
			name:          "default",
			expectedLevel: slog.LevelWarn,
		},
		{
			name:          "debug",
			debug:         true,
			expectedLevel: slog.LevelDebug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			setupLogging(&buf, tt.debug)

			assert.Equal(t, tt.expectedLevel, logLevel.Level())
			assert.True(t,
				slog.Default().Enabled(t.Context(), tt.expectedLevel))
			assert.False(t,
				slog.Default().Enabled(t.Context(), tt.expectedLevel-1))
		})
	}
}
