// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hostrun

import (
	"github.com/aibor/hostrun/internal/qemu"
)

// Spec describes a single [Run].
//
// It is split into the virtual machine parameters, the parameters for
// building the boot archive and the parameters of the guest session.
type Spec struct {
	Qemu    Qemu
	Archive Archive
	Session Session
}

// Qemu specifies the virtual machine the kernel boots in. Zero values
// are filled with defaults for the init binary's architecture.
type Qemu struct {
	Executable    string
	Kernel        string
	Machine       string
	CPU           string
	SMP           uint64
	Memory        uint64
	TransportType qemu.TransportType
	ExtraArgs     []qemu.Argument
	NoKVM         bool
	Verbose       bool
}

// Archive specifies the contents of the boot archive.
type Archive struct {
	// Init is the path to the init program binary the guest runs as
	// PID 1.
	Init string
	// ModulesDir is the module directory of the kernel under test,
	// holding the modules.dep index. Empty means the kernel needs no
	// loadable modules to reach the host root.
	ModulesDir string
	// Modules are module names staged for early loading in addition to
	// the default transport set. Resolved with their dependencies.
	Modules []string
	// Keep prevents removal of the archive file after the run.
	Keep bool
}

// Mount is an additional host directory attached to the guest.
type Mount struct {
	// Guest is the absolute directory the share is mounted at in the
	// guest.
	Guest string
	// Host is the host directory backing the share.
	Host string
}

// Session specifies the guest's boot behavior and the session it
// dispatches once up.
type Session struct {
	Hostname string
	// User the session runs as. Empty means root.
	User string
	// Chdir is the working directory of the session.
	Chdir string
	// Command is the command to run as scripted session, with its
	// standard streams relayed over the control channels. Empty means
	// an interactive shell. With Graphics set, the command runs inside
	// the windowing session instead.
	Command []string
	// SttyOpts are terminal settings applied to the guest console, in
	// stty argument syntax. Interactive sessions only.
	SttyOpts string

	// RootRW exports the host root writable instead of read-only.
	// Guest writes land on the host file system.
	RootRW bool
	// HostModules lets the guest use the host's module tree as is
	// instead of hiding it.
	HostModules bool
	// Overlays are absolute host directories shadowed with a writable
	// overlay in the guest.
	Overlays []string
	// Mounts are additional host directories attached to the guest.
	Mounts []Mount

	DHCP          bool
	Graphics      bool
	Sound         bool
	Snapd         bool
	LegacyCgroups bool

	// VsockCID adds a vsock device with the given guest context ID.
	// Required for the remote shell service.
	VsockCID uint32
	// VsockPort is the port the guest's remote shell service listens
	// on. Zero leaves the service off.
	VsockPort uint32
}

// Scripted reports whether the run is a scripted session with the
// command's standard streams relayed over the control channels. A
// command in graphics mode runs inside the windowing session and needs
// no channels.
func (s *Spec) Scripted() bool {
	return len(s.Session.Command) > 0 && !s.Session.Graphics
}
