// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"testing"

	"github.com/aibor/hostrun/internal/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_Set(t *testing.T) {
	tests := []struct {
		name     string
		list     cmd.StringList
		inputs   []string
		expected cmd.StringList
	}{
		{
			name: "single",
			inputs: []string{
				"btrfs",
			},
			expected: cmd.StringList{"btrfs"},
		},
		{
			name: "comma",
			inputs: []string{
				"btrfs,xfs",
			},
			expected: cmd.StringList{"btrfs", "xfs"},
		},
		{
			name: "add",
			list: cmd.StringList{"btrfs"},
			inputs: []string{
				"xfs",
			},
			expected: cmd.StringList{"btrfs", "xfs"},
		},
		{
			name: "skips empty elements",
			inputs: []string{
				"btrfs,,xfs",
			},
			expected: cmd.StringList{"btrfs", "xfs"},
		},
		{
			name: "reset",
			list: cmd.StringList{"btrfs"},
			inputs: []string{
				"",
				"xfs",
			},
			expected: cmd.StringList{"xfs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, input := range tt.inputs {
				require.NoError(t, tt.list.Set(input))
			}

			assert.Equal(t, tt.expected, tt.list)
		})
	}
}

func TestStringList_String(t *testing.T) {
	tests := []struct {
		name     string
		list     cmd.StringList
		expected string
	}{
		{
			name: "empty",
		},
		{
			name:     "single",
			list:     cmd.StringList{"btrfs"},
			expected: "btrfs",
		},
		{
			name:     "multi",
			list:     cmd.StringList{"btrfs", "xfs", "overlay"},
			expected: "btrfs,xfs,overlay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := tt.list.String()
			assert.Equal(t, tt.expected, actual)
		})
	}
}
