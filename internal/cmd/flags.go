// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"flag"
	"fmt"
	"io"
	"runtime"

	"github.com/aibor/hostrun/internal/hostrun"
	"github.com/aibor/hostrun/internal/qemu"
	"github.com/aibor/hostrun/internal/sys"
)

const (
	name = "hostrun"

	memDefault = 1024
	memMin     = 128
	memMax     = 65536

	smpMin = 1
	smpMax = 64

	vsockCIDDefault = 3
	vsockCIDMin     = 3
	vsockCIDMax     = 1<<32 - 1

	vsockPortMax = 1<<32 - 1

	usageMessage = `Usage of 'hostrun':
    hostrun [flags...] kernel [command [args...]]

Boot the given kernel in a transient QEMU guest on top of the host's root
file system. Without a command, an interactive shell runs on the guest
console:
	hostrun /path/to/bzImage

With a command, it runs as scripted session with its output and exit status
relayed back to the host:
	hostrun -modDir=/path/to/modules/6.10.0 /path/to/bzImage uname -a

All hostrun flags can also be provided via environment variable HOSTRUN_ARGS:
	HOSTRUN_ARGS="-memory=2048 -debug" hostrun /path/to/bzImage

All hostrun flags can also be provided via file ./.hostrun-args, with one
argument per line.
`
)

type flags struct {
	// Virtual machine.
	QemuBin       string
	KernelPath    string
	Machine       string
	CPUType       string
	NumCPU        uint64
	Memory        uint64
	TransportType qemu.TransportType
	NoKVM         bool
	GuestVerbose  bool

	// Boot archive.
	InitPath    string
	ModulesDir  string
	Modules     []string
	KeepArchive bool

	// Guest session.
	Hostname      string
	User          string
	Chdir         string
	Command       []string
	RootRW        bool
	HostModules   bool
	Overlays      []string
	Mounts        []hostrun.Mount
	DHCP          bool
	Graphics      bool
	Sound         bool
	Snapd         bool
	LegacyCgroups bool
	VsockCID      uint64
	VsockPort     uint64

	Version bool
	Debug   bool
}

// defaultNumCPU is the default of the smp flag: all host CPUs, within the
// flag's bounds.
func defaultNumCPU() uint64 {
	return min(uint64(runtime.NumCPU()), smpMax)
}

func parseArgs(args []string, output io.Writer) (*flags, error) {
	flags := &flags{
		NumCPU:   defaultNumCPU(),
		Memory:   memDefault,
		VsockCID: vsockCIDDefault,
	}

	flagSet := flags.newFlagSet(output)

	// Parses arguments up to the first one that is not prefixed with a "-"
	// or is "--".
	err := flagSet.Parse(args)
	if err != nil {
		return nil, &ParseArgsError{msg: "flag parse", err: err}
	}

	// With the version flag, the caller prints the version and exits.
	// Positional arguments do not matter in this case.
	if flags.Version {
		return flags, nil
	}

	positionalArgs := flagSet.Args()

	// The first positional argument is the kernel to boot.
	if len(positionalArgs) < 1 {
		return nil, fail(flagSet, "no kernel given", nil)
	}

	kernelPath, err := sys.AbsolutePath(positionalArgs[0])
	if err != nil {
		return nil, fail(flagSet, "kernel path", err)
	}

	flags.KernelPath = kernelPath

	// All further positional arguments form the command the guest session
	// runs. They are passed to the guest verbatim.
	flags.Command = positionalArgs[1:]

	return flags, nil
}

// fail fails like flag does. It prints the error first and then usage.
func fail(flagSet *flag.FlagSet, msg string, err error) error {
	parseErr := &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(flagSet.Output(), parseErr.Error())

	flagSet.Usage()

	return parseErr
}

func usage(flagSet *flag.FlagSet) {
	fmt.Fprint(flagSet.Output(), usageMessage)
	fmt.Fprintln(flagSet.Output(), "\nFlags:")
	flagSet.PrintDefaults()
}

//nolint:funlen
func (f *flags) newFlagSet(output io.Writer) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() { usage(flagSet) }

	flagSet.StringVar(
		&f.QemuBin,
		"qemuBin",
		f.QemuBin,
		"QEMU binary to use (default qemu-system-* for the init binary arch)",
	)

	flagSet.StringVar(
		&f.Machine,
		"machine",
		f.Machine,
		"QEMU machine type to use (default depends on the init binary arch)",
	)

	flagSet.StringVar(
		&f.CPUType,
		"cpu",
		f.CPUType,
		"QEMU CPU type to use (default host with KVM, max without)",
	)

	flagSet.Var(
		&LimitedUintValue{Value: &f.NumCPU, Lower: smpMin, Upper: smpMax},
		"smp",
		"number of CPUs for the QEMU VM",
	)

	flagSet.Var(
		&LimitedUintValue{Value: &f.Memory, Lower: memMin, Upper: memMax},
		"memory",
		"memory (in MB) for the QEMU VM",
	)

	flagSet.BoolVar(
		&f.NoKVM,
		"nokvm",
		f.NoKVM,
		"disable hardware support (default enabled if present and the init "+
			"binary matches the host arch)",
	)

	flagSet.TextVar(
		&f.TransportType,
		"transport",
		&f.TransportType,
		"io transport type: isa, pci, mmio (default depends on the init "+
			"binary arch)",
	)

	flagSet.BoolVar(
		&f.GuestVerbose,
		"verbose",
		f.GuestVerbose,
		"enable verbose guest boot output",
	)

	flagSet.Var(
		(*FilePath)(&f.InitPath),
		"init",
		"init program binary to boot (default hostrun-init next to the "+
			"hostrun binary or found in PATH)",
	)

	flagSet.Var(
		(*FilePath)(&f.ModulesDir),
		"modDir",
		"module directory of the kernel under test, holding the "+
			"modules.dep index. Sources the modules staged in the boot "+
			"archive and is linked into the guest's module path.",
	)

	flagSet.Var(
		(*StringList)(&f.Modules),
		"module",
		"name of a module to stage for early loading in addition to the "+
			"default transport set. Flag may be used more than once. "+
			"Empty value clears the list.",
	)

	flagSet.BoolVar(
		&f.KeepArchive,
		"keepArchive",
		f.KeepArchive,
		"do not delete the boot archive once qemu is done. Intended for "+
			"debugging. The path to the file is printed on stderr",
	)

	flagSet.StringVar(
		&f.Hostname,
		"name",
		f.Hostname,
		"hostname of the guest",
	)

	flagSet.StringVar(
		&f.User,
		"user",
		f.User,
		"user the guest session runs as (default root)",
	)

	flagSet.Var(
		(*FilePath)(&f.Chdir),
		"chdir",
		"working directory of the guest session (default current directory)",
	)

	flagSet.BoolVar(
		&f.RootRW,
		"rw",
		f.RootRW,
		"attach the host root writable. Guest writes land on the host "+
			"file system.",
	)

	flagSet.BoolVar(
		&f.HostModules,
		"rootMods",
		f.HostModules,
		"let the guest use the host's module tree as is instead of hiding "+
			"it. Only sound if the kernel under test matches the host kernel.",
	)

	flagSet.Var(
		(*FilePathList)(&f.Overlays),
		"overlay",
		"host directory made writable in the guest with an ephemeral "+
			"overlay. Flag may be used more than once. Empty value clears "+
			"the list.",
	)

	flagSet.Var(
		(*MountList)(&f.Mounts),
		"mount",
		"additional host directory attached to the guest, as guest=host "+
			"pair. Flag may be used more than once. Empty value clears the "+
			"list.",
	)

	flagSet.BoolVar(
		&f.DHCP,
		"dhcp",
		f.DHCP,
		"configure guest network interfaces via DHCP",
	)

	flagSet.BoolVar(
		&f.Graphics,
		"graphics",
		f.Graphics,
		"start a graphical session",
	)

	flagSet.BoolVar(
		&f.Sound,
		"sound",
		f.Sound,
		"enable sound support. Requires -graphics",
	)

	flagSet.BoolVar(
		&f.Snapd,
		"snapd",
		f.Snapd,
		"start the snapd service if present",
	)

	flagSet.BoolVar(
		&f.LegacyCgroups,
		"legacyCgroups",
		f.LegacyCgroups,
		"mount the legacy cgroup v1 hierarchy instead of cgroup2",
	)

	flagSet.Var(
		&LimitedUintValue{
			Value: &f.VsockCID,
			Lower: vsockCIDMin,
			Upper: vsockCIDMax,
		},
		"vsockCid",
		"vsock context ID of the guest. Used with -vsockPort",
	)

	flagSet.Var(
		&LimitedUintValue{Value: &f.VsockPort, Upper: vsockPortMax},
		"vsockPort",
		"vsock port the guest remote shell service listens on. Zero leaves "+
			"the service off.",
	)

	flagSet.BoolVar(
		&f.Debug,
		"debug",
		f.Debug,
		"enable debug output",
	)

	flagSet.BoolVar(
		&f.Version,
		"version",
		f.Version,
		"show version and exit",
	)

	return flagSet
}

// spec assembles the [hostrun.Spec] described by the parsed flags.
func (f *flags) spec() *hostrun.Spec {
	return &hostrun.Spec{
		Qemu: hostrun.Qemu{
			Executable:    f.QemuBin,
			Kernel:        f.KernelPath,
			Machine:       f.Machine,
			CPU:           f.CPUType,
			SMP:           f.NumCPU,
			Memory:        f.Memory,
			TransportType: f.TransportType,
			NoKVM:         f.NoKVM,
			Verbose:       f.GuestVerbose,
		},
		Archive: hostrun.Archive{
			Init:       f.InitPath,
			ModulesDir: f.ModulesDir,
			Modules:    f.Modules,
			Keep:       f.KeepArchive,
		},
		Session: hostrun.Session{
			Hostname:      f.Hostname,
			User:          f.User,
			Chdir:         f.Chdir,
			Command:       f.Command,
			RootRW:        f.RootRW,
			HostModules:   f.HostModules,
			Overlays:      f.Overlays,
			Mounts:        f.Mounts,
			DHCP:          f.DHCP,
			Graphics:      f.Graphics,
			Sound:         f.Sound,
			Snapd:         f.Snapd,
			LegacyCgroups: f.LegacyCgroups,
			VsockCID:      uint32(f.VsockCID),
			VsockPort:     uint32(f.VsockPort),
		},
	}
}
