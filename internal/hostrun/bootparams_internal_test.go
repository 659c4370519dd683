// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hostrun

import (
	"strings"
	"testing"

	"github.com/aibor/hostrun/internal/vport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootParams(t *testing.T) {
	tests := []struct {
		name     string
		spec     Spec
		console  string
		term     string
		expected []string
	}{
		{
			name:    "interactive defaults",
			spec:    Spec{},
			console: "hvc0",
			expected: []string{
				"hostrun_console=hvc0",
			},
		},
		{
			name: "interactive with terminal settings",
			spec: Spec{
				Session: Session{
					SttyOpts: "rows 50 cols 120 iutf8",
				},
			},
			console: "ttyS0",
			term:    "xterm-256color",
			expected: []string{
				"hostrun_console=ttyS0",
				`hostrun_stty_con="rows 50 cols 120 iutf8"`,
				"TERM=xterm-256color",
			},
		},
		{
			name: "scripted",
			spec: Spec{
				Session: Session{
					Command: []string{"uname", "-a"},
				},
			},
			console: "hvc0",
			term:    "xterm",
			expected: []string{
				"hostrun.exec=`" + vport.EncodeString("uname -a") + "`",
			},
		},
		{
			name: "command in graphics mode keeps the console",
			spec: Spec{
				Session: Session{
					Command:  []string{"glxgears"},
					Graphics: true,
				},
			},
			console: "hvc0",
			expected: []string{
				"hostrun_graphics=1",
				"hostrun.exec=`" + vport.EncodeString("glxgears") + "`",
				"hostrun_console=hvc0",
			},
		},
		{
			name: "linked modules",
			spec: Spec{
				Archive: Archive{
					ModulesDir: "/data/mods/6.8.0",
				},
			},
			console: "hvc0",
			expected: []string{
				"hostrun_link_mods=/data/mods/6.8.0",
				"hostrun_console=hvc0",
			},
		},
		{
			name: "host modules win over linked ones",
			spec: Spec{
				Archive: Archive{
					ModulesDir: "/data/mods/6.8.0",
				},
				Session: Session{
					HostModules: true,
				},
			},
			console: "hvc0",
			expected: []string{
				"hostrun_root_mods=1",
				"hostrun_console=hvc0",
			},
		},
		{
			name: "full scripted session",
			spec: Spec{
				Archive: Archive{
					ModulesDir: "/data/mods/6.8.0",
				},
				Session: Session{
					Hostname:      "ktest",
					User:          "dev",
					Chdir:         "/home/dev",
					Command:       []string{"make", "-j", "8"},
					Overlays:      []string{"/etc", "/var"},
					Mounts:        []Mount{{Guest: "/mnt/out", Host: "/srv/out"}},
					Snapd:         true,
					LegacyCgroups: true,
					DHCP:          true,
					VsockCID:      3,
					VsockPort:     2222,
				},
			},
			console: "hvc0",
			expected: []string{
				"hostrun_hostname=ktest",
				"hostrun_user=dev",
				"hostrun_chdir=/home/dev",
				"hostrun_link_mods=/data/mods/6.8.0",
				"hostrun_rw_overlay0=/etc",
				"hostrun_rw_overlay1=/var",
				"hostrun_initmount0=/mnt/out",
				"hostrun_snapd=1",
				"hostrun_legacy_cgroups=1",
				"hostrun_vsockexec=2222",
				"hostrun.dhcp",
				"hostrun.exec=`" + vport.EncodeString("make -j 8") + "`",
			},
		},
		{
			name: "graphics and sound",
			spec: Spec{
				Session: Session{
					Graphics: true,
					Sound:    true,
				},
			},
			console: "hvc0",
			expected: []string{
				"hostrun_graphics=1",
				"hostrun_sound=1",
				"hostrun_console=hvc0",
			},
		},
		{
			name: "verbose boot raises guest logging",
			spec: Spec{
				Qemu: Qemu{
					Verbose: true,
				},
			},
			console: "hvc0",
			expected: []string{
				"hostrun_verbose=1",
				"hostrun_console=hvc0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TERM", tt.term)

			actual := bootParams(&tt.spec, tt.console)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestBootParamsExecPayload(t *testing.T) {
	spec := Spec{
		Session: Session{
			Command: []string{"sh", "-c", "echo 'it works' > /tmp/out"},
		},
	}

	params := bootParams(&spec, "hvc0")
	require.Len(t, params, 1)

	// The payload must survive the kernel's whitespace split and decode
	// back into the exact command line.
	assert.NotContains(t, params[0], " ")

	quoted, found := strings.CutPrefix(params[0], "hostrun.exec=")
	require.True(t, found)

	decoded, err := vport.DecodeString(strings.Trim(quoted, "`"))
	require.NoError(t, err)

	assert.Equal(t, `sh -c 'echo '\''it works'\'' > /tmp/out'`, decoded)
}

func TestShellJoin(t *testing.T) {
	tests := []struct {
		name     string
		command  []string
		expected string
	}{
		{
			name:     "plain words",
			command:  []string{"uname", "-a"},
			expected: "uname -a",
		},
		{
			name:     "whitespace argument",
			command:  []string{"echo", "hello world"},
			expected: "echo 'hello world'",
		},
		{
			name:     "empty argument",
			command:  []string{"grep", "", "file"},
			expected: "grep '' file",
		},
		{
			name:     "single quote",
			command:  []string{"echo", "it's"},
			expected: `echo 'it'\''s'`,
		},
		{
			name:     "shell syntax is neutralized",
			command:  []string{"echo", "$(reboot)", ";", "a|b"},
			expected: `echo '$(reboot)' ';' 'a|b'`,
		},
		{
			name:     "safe punctuation stays bare",
			command:  []string{"/usr/bin/make", "-C", "/src", "V=1", "a,b:c"},
			expected: "/usr/bin/make -C /src V=1 a,b:c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shellJoin(tt.command))
		})
	}
}

func TestKernelQuote(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{
			name:     "plain",
			value:    "/srv/data",
			expected: "/srv/data",
		},
		{
			name:     "spaces",
			value:    "rows 50 cols 120",
			expected: `"rows 50 cols 120"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, kernelQuote(tt.value))
		})
	}
}

func TestInitMountTag(t *testing.T) {
	// The tag must match what the guest derives from the parameter
	// name: underscores become dots.
	assert.Equal(t, "hostrun.initmount0", initMountTag(0))
	assert.Equal(t, "hostrun.initmount12", initMountTag(12))
}
