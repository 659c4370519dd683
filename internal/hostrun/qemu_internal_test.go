// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hostrun

import (
	"testing"

	"github.com/aibor/hostrun/internal/qemu"
	"github.com/aibor/hostrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestShares(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		expected []qemu.Share
	}{
		{
			name:    "read-only root",
			session: Session{},
			expected: []qemu.Share{
				{Tag: "/dev/root", Path: "/", Writable: false},
			},
		},
		{
			name:    "writable root",
			session: Session{RootRW: true},
			expected: []qemu.Share{
				{Tag: "/dev/root", Path: "/", Writable: true},
			},
		},
		{
			name: "extra mounts",
			session: Session{
				Mounts: []Mount{
					{Guest: "/mnt/a", Host: "/srv/a"},
					{Guest: "/mnt/b", Host: "/srv/b"},
				},
			},
			expected: []qemu.Share{
				{Tag: "/dev/root", Path: "/", Writable: false},
				{Tag: "hostrun.initmount0", Path: "/srv/a", Writable: true},
				{Tag: "hostrun.initmount1", Path: "/srv/b", Writable: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, guestShares(&tt.session))
		})
	}
}

func TestDefaultCPU(t *testing.T) {
	assert.Equal(t, "host", defaultCPU(false))
	assert.Equal(t, "max", defaultCPU(true))
}

func TestNewQemuCommand(t *testing.T) {
	tests := []struct {
		name        string
		spec        Spec
		contains    []string
		notContains []string
		errAssert   require.ErrorAssertionFunc
	}{
		{
			name: "unknown binary",
			spec: Spec{
				Qemu: Qemu{
					Executable: "qemu-system-does-not-exist",
					Kernel:     "/boot/vmlinuz",
				},
			},
			errAssert: require.Error,
		},
		{
			name: "interactive",
			spec: Spec{
				Qemu: Qemu{
					Executable: "sh",
					Kernel:     "/boot/vmlinuz",
				},
				Session: Session{
					Hostname: "ktest",
				},
			},
			contains: []string{
				"-kernel /boot/vmlinuz",
				"-cpu ",
				"hostrun_hostname=ktest",
				"hostrun_console=hvc0",
				"path=/,security_model=none,readonly=on",
			},
			notContains: []string{
				"hostrun.exec=",
			},
			errAssert: require.NoError,
		},
		{
			name: "scripted with vsock",
			spec: Spec{
				Qemu: Qemu{
					Executable: "sh",
					Kernel:     "/boot/vmlinuz",
				},
				Session: Session{
					Command:   []string{"true"},
					VsockCID:  3,
					VsockPort: 2222,
				},
			},
			contains: []string{
				"hostrun.exec=",
				"hostrun_vsockexec=2222",
				"vhost-vsock-pci,guest-cid=3",
			},
			notContains: []string{
				"hostrun_console=",
			},
			errAssert: require.NoError,
		},
		{
			name: "vsock device needs the guest service",
			spec: Spec{
				Qemu: Qemu{
					Executable: "sh",
					Kernel:     "/boot/vmlinuz",
				},
				Session: Session{
					VsockCID: 3,
				},
			},
			notContains: []string{
				"vhost-vsock",
			},
			errAssert: require.NoError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var channelDir string
			if tt.spec.Scripted() {
				channelDir = t.TempDir()
			}

			cmd, err := NewQemuCommand(&tt.spec, sys.AMD64, "/tmp/archive",
				channelDir)
			tt.errAssert(t, err)

			if err != nil {
				return
			}

			cmdline := cmd.String()

			for _, part := range tt.contains {
				assert.Contains(t, cmdline, part)
			}

			for _, part := range tt.notContains {
				assert.NotContains(t, cmdline, part)
			}
		})
	}
}
