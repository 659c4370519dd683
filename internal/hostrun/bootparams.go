// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hostrun

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aibor/hostrun/internal/vport"
)

// bootParamPrefix marks kernel command line parameters addressed to the
// init program. The kernel passes unknown name=value tokens into the
// init environment.
const bootParamPrefix = "hostrun_"

// initMountParam is the boot parameter name of the numbered extra
// mount.
func initMountParam(idx int) string {
	return fmt.Sprintf("initmount%d", idx)
}

// initMountTag is the share tag of the numbered extra mount. The guest
// derives it from the boot parameter name, with dots instead of
// underscores since the kernel does not put dotted names into the
// environment.
func initMountTag(idx int) string {
	return strings.ReplaceAll(bootParamPrefix+initMountParam(idx), "_", ".")
}

// bootParams compiles the kernel command line tokens that carry the
// session configuration into the guest. The console name is the guest
// device the kernel console is on.
func bootParams(spec *Spec, console string) []string {
	session := &spec.Session

	var params []string

	add := func(name, value string) {
		params = append(params, bootParamPrefix+name+"="+kernelQuote(value))
	}
	enable := func(name string) {
		add(name, "1")
	}

	if session.Hostname != "" {
		add("hostname", session.Hostname)
	}

	if session.User != "" {
		add("user", session.User)
	}

	if session.Chdir != "" {
		add("chdir", session.Chdir)
	}

	switch {
	case session.HostModules:
		enable("root_mods")
	case spec.Archive.ModulesDir != "":
		add("link_mods", spec.Archive.ModulesDir)
	}

	for idx, dir := range session.Overlays {
		add(fmt.Sprintf("rw_overlay%d", idx), dir)
	}

	for idx, mount := range session.Mounts {
		add(initMountParam(idx), mount.Guest)
	}

	if session.Graphics {
		enable("graphics")
	}

	if session.Sound {
		enable("sound")
	}

	if session.Snapd {
		enable("snapd")
	}

	if session.LegacyCgroups {
		enable("legacy_cgroups")
	}

	if spec.Qemu.Verbose {
		enable("verbose")
	}

	if session.VsockPort != 0 {
		add("vsockexec", strconv.FormatUint(uint64(session.VsockPort), 10))
	}

	if session.DHCP {
		// Dotted name, so it stays out of the environment.
		params = append(params, "hostrun.dhcp")
	}

	if len(session.Command) > 0 {
		// The encoding keeps shell syntax and whitespace intact across
		// the kernel command line. Backtick quoting marks the payload
		// boundaries.
		payload := vport.EncodeString(shellJoin(session.Command))
		params = append(params, "hostrun.exec=`"+payload+"`")
	}

	if !spec.Scripted() {
		add("console", console)

		if session.SttyOpts != "" {
			add("stty_con", session.SttyOpts)
		}

		if term := os.Getenv("TERM"); term != "" {
			params = append(params, "TERM="+term)
		}
	}

	return params
}

// kernelQuote quotes the value for the kernel command line. The kernel
// strips double quotes around values containing spaces when it builds
// the init environment.
func kernelQuote(value string) string {
	if !strings.ContainsAny(value, " \t") {
		return value
	}

	return `"` + value + `"`
}

// shellJoin renders the command vector as a single POSIX shell command
// line. The guest session runs it with "sh -c".
func shellJoin(command []string) string {
	quoted := make([]string, len(command))
	for idx, arg := range command {
		quoted[idx] = shellQuote(arg)
	}

	return strings.Join(quoted, " ")
}

// shellQuote quotes the argument for a POSIX shell.
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}

	if !strings.ContainsFunc(arg, isShellSpecial) {
		return arg
	}

	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func isShellSpecial(char rune) bool {
	switch {
	case char >= 'a' && char <= 'z',
		char >= 'A' && char <= 'Z',
		char >= '0' && char <= '9':
		return false
	case strings.ContainsRune("@%+=:,./-_", char):
		return false
	default:
		return true
	}
}
