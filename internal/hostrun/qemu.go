// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hostrun

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/aibor/hostrun/internal/qemu"
	"github.com/aibor/hostrun/internal/sys"
)

// rootShareTag is the mount tag of the host root share. It matches the
// tag the guest init tries for the 9p root.
const rootShareTag = "/dev/root"

// NewQemuCommand compiles the [qemu.Command] for the given spec, init
// binary architecture, boot archive file and channel directory.
func NewQemuCommand(
	spec *Spec,
	arch sys.Arch,
	archivePath string,
	channelDir string,
) (*qemu.Command, error) {
	cmdSpec := qemu.CommandSpec{
		Executable:    spec.Qemu.Executable,
		Kernel:        spec.Qemu.Kernel,
		Initramfs:     archivePath,
		Machine:       spec.Qemu.Machine,
		CPU:           spec.Qemu.CPU,
		SMP:           spec.Qemu.SMP,
		Memory:        spec.Qemu.Memory,
		TransportType: spec.Qemu.TransportType,
		NoKVM:         spec.Qemu.NoKVM,
		Name:          spec.Session.Hostname,
		Scripted:      spec.Scripted(),
		ChannelDir:    channelDir,
		Shares:        guestShares(&spec.Session),
		Network:       spec.Session.DHCP,
		Graphics:      spec.Session.Graphics,
		Sound:         spec.Session.Sound,
		ExtraArgs:     spec.Qemu.ExtraArgs,
		Verbose:       spec.Qemu.Verbose,
	}

	// The device is useless without the guest service listening on it.
	if spec.Session.VsockPort != 0 {
		cmdSpec.VsockCID = spec.Session.VsockCID
	}

	err := cmdSpec.AddDefaultsFor(arch)
	if err != nil {
		return nil, err
	}

	if cmdSpec.CPU == "" {
		cmdSpec.CPU = defaultCPU(cmdSpec.NoKVM)
	}

	cmdSpec.BootArgs = bootParams(spec,
		cmdSpec.TransportType.ConsoleDeviceName(0))

	path, err := exec.LookPath(cmdSpec.Executable)
	if err != nil {
		return nil, fmt.Errorf("qemu binary: %w", err)
	}

	cmdSpec.Executable = path

	cmd, err := qemu.NewCommand(cmdSpec)
	if err != nil {
		return nil, fmt.Errorf("build command: %w", err)
	}

	slog.Debug("QEMU command", slog.String("command", cmd.String()))

	return cmd, nil
}

// defaultCPU returns the CPU model used if none was requested. KVM
// guests run on the host CPU directly. Emulated guests get the full
// feature set, so the kernel under test finds what it probes for.
func defaultCPU(noKVM bool) string {
	if noKVM {
		return "max"
	}

	return "host"
}

// guestShares compiles the share devices of the run: the host root and
// one share per extra mount.
func guestShares(session *Session) []qemu.Share {
	shares := []qemu.Share{
		{
			Tag:      rootShareTag,
			Path:     "/",
			Writable: session.RootRW,
		},
	}

	for idx, mount := range session.Mounts {
		shares = append(shares, qemu.Share{
			Tag:      initMountTag(idx),
			Path:     mount.Host,
			Writable: true,
		})
	}

	return shares
}
