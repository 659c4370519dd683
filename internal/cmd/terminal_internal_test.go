// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalOptions(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, terminalOptions(nil))
	})

	t.Run("not a file", func(t *testing.T) {
		assert.Empty(t, terminalOptions(&bytes.Buffer{}))
	})

	t.Run("not a terminal", func(t *testing.T) {
		devNull, err := os.Open(os.DevNull)
		require.NoError(t, err)

		defer devNull.Close()

		assert.Empty(t, terminalOptions(devNull))
	})
}
