// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit_test

import (
	"testing"

	"github.com/aibor/hostrun/internal/vport"
	"github.com/aibor/hostrun/sysinit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name        string
		environ     []string
		cmdline     string
		expected    *sysinit.Config
		expectedErr error
	}{
		{
			name: "empty",
			expected: &sysinit.Config{
				Hostname: "hostrun",
			},
		},
		{
			name: "unrelated environment ignored",
			environ: []string{
				"PATH=/usr/bin",
				"HOME=/root",
				"hostname=evil",
			},
			expected: &sysinit.Config{
				Hostname: "hostrun",
			},
		},
		{
			name: "strings",
			environ: []string{
				"hostrun_hostname=testbox",
				"hostrun_user=dev",
				"hostrun_console=hvc0",
				"hostrun_stty_con=rows 50 cols 160",
				"hostrun_chdir=/home/dev",
			},
			expected: &sysinit.Config{
				Hostname: "testbox",
				User:     "dev",
				Console:  "hvc0",
				SttyOpts: "rows 50 cols 160",
				Chdir:    "/home/dev",
			},
		},
		{
			name: "flags",
			environ: []string{
				"hostrun_dhcp=1",
				"hostrun_graphics=true",
				"hostrun_sound=1",
				"hostrun_snapd=1",
				"hostrun_legacy_cgroups=1",
				"hostrun_verbose=1",
			},
			expected: &sysinit.Config{
				Hostname:      "hostrun",
				DHCP:          true,
				Graphics:      true,
				Sound:         true,
				Snapd:         true,
				LegacyCgroups: true,
				Verbose:       true,
			},
		},
		{
			name:    "flag off",
			environ: []string{"hostrun_dhcp=0"},
			expected: &sysinit.Config{
				Hostname: "hostrun",
			},
		},
		{
			name:        "flag not a bool",
			environ:     []string{"hostrun_dhcp=banana"},
			expectedErr: sysinit.ErrConfigInvalid,
		},
		{
			name:    "host modules",
			environ: []string{"hostrun_root_mods=1"},
			expected: &sysinit.Config{
				Hostname:    "hostrun",
				ModulesMode: sysinit.ModulesHost,
			},
		},
		{
			name:    "host modules disabled keeps mask",
			environ: []string{"hostrun_root_mods=0"},
			expected: &sysinit.Config{
				Hostname:    "hostrun",
				ModulesMode: sysinit.ModulesMask,
			},
		},
		{
			name:    "linked modules",
			environ: []string{"hostrun_link_mods=/data/mods"},
			expected: &sysinit.Config{
				Hostname:    "hostrun",
				ModulesMode: sysinit.ModulesLink,
				ModulesDir:  "/data/mods",
			},
		},
		{
			name:        "linked modules relative dir",
			environ:     []string{"hostrun_link_mods=data/mods"},
			expectedErr: sysinit.ErrConfigInvalid,
		},
		{
			name: "conflicting module modes",
			environ: []string{
				"hostrun_root_mods=1",
				"hostrun_link_mods=/data/mods",
			},
			expectedErr: sysinit.ErrConfigInvalid,
		},
		{
			name:    "vsock port",
			environ: []string{"hostrun_vsockexec=1024"},
			expected: &sysinit.Config{
				Hostname:  "hostrun",
				VsockPort: 1024,
			},
		},
		{
			name:        "vsock port invalid",
			environ:     []string{"hostrun_vsockexec=banana"},
			expectedErr: sysinit.ErrConfigInvalid,
		},
		{
			name: "overlays",
			environ: []string{
				"hostrun_rw_overlay0=/var/lib",
				"hostrun_rw_overlay1=/etc/",
			},
			expected: &sysinit.Config{
				Hostname: "hostrun",
				Overlays: []sysinit.Overlay{
					{Name: "hostrun_rw_overlay0", Dir: "/var/lib"},
					{Name: "hostrun_rw_overlay1", Dir: "/etc"},
				},
			},
		},
		{
			name:        "overlay relative dir",
			environ:     []string{"hostrun_rw_overlay0=var/lib"},
			expectedErr: sysinit.ErrConfigInvalid,
		},
		{
			name:    "init mounts",
			environ: []string{"hostrun_initmount0=/mnt/extra"},
			expected: &sysinit.Config{
				Hostname: "hostrun",
				InitMounts: []sysinit.InitMount{
					{Tag: "hostrun.initmount0", Dir: "/mnt/extra"},
				},
			},
		},
		{
			name:    "cmdline dhcp",
			cmdline: "console=ttyS0 hostrun.dhcp quiet",
			expected: &sysinit.Config{
				Hostname: "hostrun",
				DHCP:     true,
			},
		},
		{
			name: "cmdline exec",
			cmdline: "ro hostrun.exec=`" +
				vport.EncodeString("echo hello") + "` quiet",
			expected: &sysinit.Config{
				Hostname: "hostrun",
				Exec:     "echo hello",
			},
		},
		{
			name:        "cmdline exec not quoted",
			cmdline:     "hostrun.exec=" + vport.EncodeString("echo hello"),
			expectedErr: sysinit.ErrConfigInvalid,
		},
		{
			name:        "cmdline exec not decodable",
			cmdline:     "hostrun.exec=`%%%%`",
			expectedErr: sysinit.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := sysinit.NewConfig(tt.environ, tt.cmdline)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
