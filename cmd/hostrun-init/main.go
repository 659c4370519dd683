// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// The init program run as PID 1 in the hostrun guest.
//
// It brings the guest from the initramfs to a live system on the
// host's root file system and dispatches the requested session. It is
// built statically so it works with any host root.
package main

import (
	"log/slog"

	"github.com/aibor/hostrun/sysinit"
)

func main() {
	level := new(slog.LevelVar)
	sysinit.ConfigureLogger(level)

	sysinit.Run(
		sysinit.WithSwitchRoot(),
		sysinit.WithMountPoints(sysinit.EarlyMountPoints()),
		sysinit.WithConfig(level),
		sysinit.WithOverlays(),
		sysinit.WithModuleTree(),
		sysinit.WithDeviceNodes(),
		sysinit.WithMountPoints(sysinit.ScratchMountPoints()),
		sysinit.WithUdev(),
		sysinit.WithCgroups(),
		sysinit.WithIdentity(),
		sysinit.WithInitMounts(),
		sysinit.WithLoopback(),
		sysinit.WithDHCP(),
		sysinit.WithRemoteShell(),
		sysinit.WithSnapd(),
		sysinit.WithSession(),
	)
}
