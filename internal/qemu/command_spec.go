// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aibor/hostrun/internal/sys"
	"github.com/aibor/hostrun/internal/vport"
)

const minAdditionalFileDescriptor = 3

// consoleFileDescriptor is the additional file descriptor the guest's kernel
// console is written to in scripted mode.
const consoleFileDescriptor = minAdditionalFileDescriptor

const (
	machineTypeMicroVM = "microvm"
	machineTypePC      = "pc"
	machineTypeQ35     = "q35"
	machineTypeVirt    = "virt"
)

// minVsockCID is the first context ID available for guests. Lower IDs
// address the hypervisor and the host.
const minVsockCID = 3

// fdChannelRoles are the guest to host channel roles. They are carried on
// file descriptor backed chardevs in this order, starting right after the
// console file descriptor.
var fdChannelRoles = []vport.Role{
	vport.RoleStdout,
	vport.RoleStderr,
	vport.RoleRawStdout,
	vport.RoleRawStderr,
	vport.RoleStatus,
}

// socketChannelRoles are the host to guest out-of-band channel roles. They
// are served on listening unix socket chardevs so external tools can inject
// requests while the session runs.
var socketChannelRoles = []vport.Role{
	vport.RoleExec,
	vport.RoleMount,
}

// Share is a host directory exported to the guest over 9p.
type Share struct {
	// Tag is the mount tag the guest addresses the share with.
	Tag string

	// Path is the host directory to export.
	Path string

	// Writable exports the share writable instead of read-only.
	Writable bool
}

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Path to the qemu-system binary.
	Executable string

	// Path to the kernel to boot. The kernel must have virtio console
	// support compiled in for the pci and mmio transport types.
	Kernel string

	// Path to the boot archive. It is supposed to be built with the
	// initramfs package with an init binary built on the sysinit package.
	Initramfs string

	// QEMU machine type to use. Depends on the QEMU binary used.
	Machine string

	// CPU type to use. Depends on machine type and QEMU binary used.
	CPU string

	// Number of CPUs for the guest.
	SMP uint64

	// Memory for the machine in MB.
	Memory uint64

	// Disable KVM support.
	NoKVM bool

	// Transport type for IO. This depends on machine type and the kernel.
	// TransportTypeISA works for interactive sessions on amd64, but carries
	// neither control channels nor shares. ARM type virt does not support
	// ISA type at all.
	TransportType TransportType

	// Name of the guest, visible in process listings and used as its host
	// name.
	Name string

	// Shares are host directories exported to the guest. The first one
	// usually carries the root file system.
	Shares []Share

	// Scripted wires the control channels for a scripted session. Without
	// it, the caller's terminal is attached to the guest console.
	Scripted bool

	// ChannelDir is the directory the out-of-band channel sockets are
	// created in. Required in scripted mode.
	ChannelDir string

	// Network adds a user mode network device.
	Network bool

	// VsockCID adds a vsock device with the given guest context ID.
	// Zero leaves the device out. CIDs below 3 are reserved.
	VsockCID uint32

	// Graphics attaches a display with input devices instead of running
	// headless.
	Graphics bool

	// Sound adds an audio device to the display. Requires Graphics.
	Sound bool

	// ExtraArgs are extra arguments that are passed to the QEMU command.
	// They must not interfere with the essential arguments set by the
	// command itself or an error will be returned on [Command.Run].
	ExtraArgs []Argument

	// BootArgs are additional kernel command line tokens, usually the guest
	// boot parameters.
	BootArgs []string

	// Increase guest kernel logging.
	Verbose bool
}

// AddDefaultsFor adds architecture specific default values to the given spec
// if the fields are not set yet.
func (s *CommandSpec) AddDefaultsFor(arch sys.Arch) error {
	var (
		executable    string
		machine       string
		transportType TransportType
	)

	switch arch {
	case sys.AMD64:
		executable = "qemu-system-x86_64"
		machine = machineTypeQ35
		transportType = TransportTypePCI
	case sys.ARM64:
		executable = "qemu-system-aarch64"
		machine = machineTypeVirt
		transportType = TransportTypeMMIO
	case sys.RISCV64:
		executable = "qemu-system-riscv64"
		machine = machineTypeVirt
		transportType = TransportTypeMMIO
	default:
		return sys.ErrArchNotSupported
	}

	if s.Executable == "" {
		s.Executable = executable
	}

	if s.Machine == "" {
		s.Machine = machine
	}

	if s.TransportType == "" {
		s.TransportType = transportType
	}

	if !s.NoKVM {
		s.NoKVM = !arch.KVMAvailable()
	}

	return nil
}

// Validate checks for known incompatibilities.
func (s *CommandSpec) Validate() error {
	// The chardev arguments are compiled from the channel role table, so
	// it must be sound before anything else.
	if err := vport.Validate(); err != nil {
		return err
	}

	if !s.TransportType.isKnown() {
		return &ArgumentError{
			"unknown transport type: " + string(s.TransportType),
		}
	}

	if s.TransportType == TransportTypeISA {
		switch {
		case s.Scripted:
			return &ArgumentError{
				"isa transport cannot carry control channels",
			}
		case len(s.Shares) > 0:
			return &ArgumentError{"isa transport cannot carry 9p shares"}
		case s.Network:
			return &ArgumentError{
				"isa transport cannot carry a virtio network device",
			}
		case s.VsockCID != 0:
			return &ArgumentError{
				"isa transport cannot carry a vsock device",
			}
		}
	}

	if s.VsockCID != 0 && s.VsockCID < minVsockCID {
		return &ArgumentError{"vsock guest-cid must be 3 or greater"}
	}

	if s.Scripted {
		if s.Graphics {
			return &ArgumentError{
				"graphics sessions cannot use control channels",
			}
		}

		if s.ChannelDir == "" {
			return &ArgumentError{
				"scripted mode requires a channel directory",
			}
		}
	}

	if s.Sound && !s.Graphics {
		return &ArgumentError{"sound requires graphics"}
	}

	err := s.validateShares()
	if err != nil {
		return err
	}

	switch s.Machine {
	case machineTypeMicroVM:
		if s.TransportType == TransportTypePCI {
			return &ArgumentError{"microvm does not support pci transport"}
		}
	case machineTypeVirt:
		if s.TransportType == TransportTypeISA {
			return &ArgumentError{"virt requires virtio-mmio"}
		}
	case machineTypeQ35, machineTypePC:
		if s.TransportType == TransportTypeMMIO {
			return &ArgumentError{
				s.Machine + " does not work with virtio-mmio",
			}
		}
	}

	return nil
}

func (s *CommandSpec) validateShares() error {
	for _, share := range s.Shares {
		if share.Tag == "" || share.Path == "" {
			return &ArgumentError{"share tag and path must not be empty"}
		}

		// QEMU option values cannot carry these without quoting.
		if strings.ContainsAny(share.Tag, ",=") ||
			strings.ContainsAny(share.Path, ",=") {
			return &ArgumentError{
				"share tag and path must not contain ',' or '=': " +
					share.Tag,
			}
		}
	}

	return nil
}

// arguments compiles the argument list for the QEMU command.
func (s *CommandSpec) arguments() []Argument {
	args := []Argument{
		UniqueArg("kernel", s.Kernel),
		UniqueArg("initrd", s.Initramfs),
	}

	if s.Name != "" {
		args = append(args, UniqueArg("name", s.Name))
	}

	if s.Machine != "" {
		args = append(args, UniqueArg("machine", s.Machine))
	}

	if s.CPU != "" {
		args = append(args, UniqueArg("cpu", s.CPU))
	}

	if s.SMP != 0 {
		args = append(args, UniqueArg("smp", strconv.FormatUint(s.SMP, 10)))
	}

	if s.Memory != 0 {
		args = append(args, UniqueArg("m", strconv.FormatUint(s.Memory, 10)))
	}

	if !s.NoKVM {
		args = append(args, UniqueArg("enable-kvm", ""))
	}

	sharedDevices := map[TransportType]string{
		TransportTypePCI:  "virtio-serial-pci,max_ports=16",
		TransportTypeMMIO: "virtio-serial-device,max_ports=16",
	}
	if value, exists := sharedDevices[s.TransportType]; exists {
		args = append(args, RepeatableArg("device", value))
	}

	args = s.appendShareArgs(args)
	args = s.appendNetworkArgs(args)
	args = s.appendVsockArgs(args)

	if s.Scripted {
		args = s.appendChannelArgs(args)
		args = append(args, UniqueArg("monitor", "none"))
	} else {
		// The caller's terminal is attached to the guest console, with the
		// QEMU monitor multiplexed onto it. Ctrl-A switches between them.
		args = s.appendConsoleArgs(args, consoleArg{
			id:      "hr-console",
			backend: "stdio",
			opts:    []string{"signal=off", "mux=on"},
		})
		args = append(args,
			RepeatableArg("mon", "chardev=hr-console"),
			UniqueArg("echr", "1"),
		)
	}

	if s.Graphics {
		args = s.appendGraphicsArgs(args)
	} else {
		// Disable video output.
		args = append(args, UniqueArg("display", "none"))
	}

	args = append(args,
		// Guest must not reboot.
		UniqueArg("no-reboot"),
		// Disable all default devices.
		UniqueArg("nodefaults"),
		// Do not load any user config files.
		UniqueArg("no-user-config"),
	)

	args = append(args, s.ExtraArgs...)

	kernelCmdline := strings.Join(s.kernelCmdlineArgs(), " ")
	args = append(args, RepeatableArg("append", kernelCmdline))

	return args
}

// appendChannelArgs wires the kernel console and the control channels.
//
// The console and the guest to host channels are file backend chardevs
// writing to file descriptors provided via [exec.Cmd.ExtraFiles]. The
// session input channel is fed from the command's standard input. The
// out-of-band channels are listening sockets external tools may connect to.
func (s *CommandSpec) appendChannelArgs(args []Argument) []Argument {
	args = s.appendConsoleArgs(args, consoleArg{
		id:      "hr-console",
		backend: "file",
		opts:    []string{"path=" + fdPath(consoleFileDescriptor)},
	})

	args = s.appendChannelPortArgs(args, vport.RoleStdin,
		"stdio", "signal=on", "mux=off")

	for idx, role := range fdChannelRoles {
		path := fdPath(channelFileDescriptor(idx))
		args = s.appendChannelPortArgs(args, role, "file", "path="+path)
	}

	for _, role := range socketChannelRoles {
		path := socketPath(s.ChannelDir, role)
		args = s.appendChannelPortArgs(args, role,
			"socket", "path="+path, "server=on", "wait=off")
	}

	return args
}

// appendChannelPortArgs adds a chardev with the role's well-known ID and a
// virtio-serial port with the role's well-known name bound to it. The port
// name determines the guest device path.
func (s *CommandSpec) appendChannelPortArgs(
	args []Argument,
	role vport.Role,
	backend string,
	opts ...string,
) []Argument {
	chardevOpts := make([]string, 0, len(opts)+2)
	chardevOpts = append(chardevOpts, backend, "id="+role.ChardevID())
	chardevOpts = append(chardevOpts, opts...)

	device := fmt.Sprintf("virtserialport,chardev=%s,name=%s",
		role.ChardevID(), role.PortName())

	return append(args,
		RepeatableArg("chardev", strings.Join(chardevOpts, ",")),
		RepeatableArg("device", device),
	)
}

// appendShareArgs exports the shares as 9p devices.
func (s *CommandSpec) appendShareArgs(args []Argument) []Argument {
	device, exists := map[TransportType]string{
		TransportTypePCI:  "virtio-9p-pci",
		TransportTypeMMIO: "virtio-9p-device",
	}[s.TransportType]
	if !exists {
		return args
	}

	for idx, share := range s.Shares {
		id := fmt.Sprintf("hr-fs%d", idx)

		fsdevOpts := []string{
			"local",
			"id=" + id,
			"path=" + share.Path,
			"security_model=none",
		}
		if !share.Writable {
			fsdevOpts = append(fsdevOpts, "readonly=on")
		}
		// Remap device numbers so the host trees merged into the export do
		// not collide on inode numbers.
		fsdevOpts = append(fsdevOpts, "multidevs=remap")

		deviceValue := fmt.Sprintf("%s,fsdev=%s,mount_tag=%s",
			device, id, share.Tag)

		args = append(args,
			RepeatableArg("fsdev", strings.Join(fsdevOpts, ",")),
			RepeatableArg("device", deviceValue),
		)
	}

	return args
}

// appendNetworkArgs adds a user mode virtio network device.
func (s *CommandSpec) appendNetworkArgs(args []Argument) []Argument {
	if !s.Network {
		return args
	}

	device, exists := map[TransportType]string{
		TransportTypePCI:  "virtio-net-pci",
		TransportTypeMMIO: "virtio-net-device",
	}[s.TransportType]
	if !exists {
		return args
	}

	return append(args,
		RepeatableArg("netdev", "user,id=hr-net0"),
		RepeatableArg("device", device+",netdev=hr-net0"),
	)
}

// appendVsockArgs adds a vsock device with the configured guest context ID.
func (s *CommandSpec) appendVsockArgs(args []Argument) []Argument {
	if s.VsockCID == 0 {
		return args
	}

	device, exists := map[TransportType]string{
		TransportTypePCI:  "vhost-vsock-pci",
		TransportTypeMMIO: "vhost-vsock-device",
	}[s.TransportType]
	if !exists {
		return args
	}

	value := fmt.Sprintf("%s,guest-cid=%d", device, s.VsockCID)

	return append(args, RepeatableArg("device", value))
}

// appendGraphicsArgs adds a display with input devices. The display backend
// is left to QEMU's default.
func (s *CommandSpec) appendGraphicsArgs(args []Argument) []Argument {
	gpu := "virtio-gpu-pci"
	if s.TransportType == TransportTypeMMIO {
		gpu = "virtio-gpu-device"
	}

	args = append(args,
		RepeatableArg("device", gpu),
		RepeatableArg("device", "qemu-xhci"),
		RepeatableArg("device", "usb-kbd"),
		RepeatableArg("device", "usb-tablet"),
	)

	if s.Sound {
		args = append(args,
			UniqueArg("audiodev", "pa,id=hr-snd"),
			RepeatableArg("device", "intel-hda"),
			RepeatableArg("device", "hda-duplex,audiodev=hr-snd"),
		)
	}

	return args
}

// kernelCmdlineArgs returns the kernel cmdline arguments.
func (s *CommandSpec) kernelCmdlineArgs() []string {
	cmdline := []string{
		"console=" + s.TransportType.ConsoleDeviceName(0),
		// A guest panic must terminate QEMU instead of hanging the machine.
		"panic=-1",
		"mitigations=off",
		"initcall_blacklist=ahci_pci_driver_init",
	}

	// ACPI is necessary for SMP. With a single CPU, we can disable it to
	// speed up the boot considerably.
	if s.SMP == 1 {
		cmdline = append(cmdline, "acpi=off")
	}

	if s.Verbose {
		cmdline = append(cmdline, "debug")
	} else {
		cmdline = append(cmdline, "quiet")
	}

	return append(cmdline, s.BootArgs...)
}

type consoleArg struct {
	id      string
	backend string
	opts    []string
}

func (s *CommandSpec) appendConsoleArgs(
	args []Argument,
	console consoleArg,
) []Argument {
	var devArg Argument

	switch s.TransportType {
	case TransportTypeISA:
		devArg = RepeatableArg("serial", "chardev:"+console.id)
	case TransportTypePCI, TransportTypeMMIO:
		devArg = RepeatableArg("device", "virtconsole,chardev="+console.id)
	default: // Ignore invalid transport types.
		return args
	}

	chardevOpts := make([]string, 0, len(console.opts))
	chardevOpts = append(chardevOpts, console.backend, "id="+console.id)
	chardevOpts = append(chardevOpts, console.opts...)

	chardevArg := RepeatableArg("chardev", strings.Join(chardevOpts, ","))

	return append(args, chardevArg, devArg)
}

func fdPath(fd int) string {
	return fmt.Sprintf("/dev/fd/%d", fd)
}

// channelFileDescriptor returns the file descriptor of the file backed
// channel with the given index. The console occupies the first additional
// file descriptor, the channels follow.
func channelFileDescriptor(idx int) int {
	return consoleFileDescriptor + 1 + idx
}

func socketPath(dir string, role vport.Role) string {
	return filepath.Join(dir, string(role)+".sock")
}
