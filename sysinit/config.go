// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aibor/hostrun/internal/vport"
)

// envPrefix marks environment variables carrying boot parameters. The
// kernel passes unknown name=value command line tokens to the init
// program as environment.
const envPrefix = "hostrun_"

// Command line parameters that cannot be passed via environment since
// their names contain dots.
const (
	cmdlineExecParam = "hostrun.exec="
	cmdlineDHCPParam = "hostrun.dhcp"
)

const defaultHostname = "hostrun"

// ModulesMode selects how the guest's kernel module directory relates
// to the host's.
type ModulesMode int

const (
	// ModulesMask hides the host's module tree behind an empty
	// read-only file system. The default, since the guest usually runs
	// a different kernel than the host.
	ModulesMask ModulesMode = iota
	// ModulesHost uses the host's module tree as is.
	ModulesHost
	// ModulesLink mounts a fresh file system on /lib/modules with a
	// single link for the running kernel pointing to a directory
	// provided by the host.
	ModulesLink
)

// String implements [fmt.Stringer].
func (m ModulesMode) String() string {
	switch m {
	case ModulesMask:
		return "mask"
	case ModulesHost:
		return "host"
	case ModulesLink:
		return "link"
	default:
		return "invalid"
	}
}

// Overlay is a host directory that is shadowed with a writable overlay.
type Overlay struct {
	// Name is the boot parameter name the overlay was requested with.
	// Used as name for the directory holding the writable layers.
	Name string
	// Dir is the absolute path to shadow.
	Dir string
}

// InitMount is an additional host share mounted during boot.
type InitMount struct {
	// Tag is the mount tag of the share device.
	Tag string
	// Dir is the absolute path the share is mounted at.
	Dir string
}

// Config holds all parameters the guest was booted with.
type Config struct {
	Hostname string
	// User the session command or shell runs as. Empty means root.
	User string
	// Console device for interactive sessions. Empty means detect.
	Console string
	// SttyOpts are terminal settings for the session console, in stty
	// argument syntax.
	SttyOpts string
	// Chdir is the working directory for the session.
	Chdir string

	ModulesMode ModulesMode
	// ModulesDir is the host-provided module directory for
	// [ModulesLink].
	ModulesDir string

	Overlays   []Overlay
	InitMounts []InitMount

	// Exec is the command line to run as scripted session. Empty means
	// interactive session.
	Exec string

	DHCP          bool
	Graphics      bool
	Sound         bool
	Snapd         bool
	LegacyCgroups bool
	Verbose       bool

	// VsockPort is the port the remote shell service listens on. Zero
	// disables the service.
	VsockPort uint32
}

// LoadConfig reads the boot configuration from the process environment
// and the kernel command line. Requires proc to be mounted.
func LoadConfig() (*Config, error) {
	cmdline, err := os.ReadFile("/proc/cmdline")
	if err != nil {
		return nil, fmt.Errorf("read cmdline: %w", err)
	}

	return NewConfig(os.Environ(), string(cmdline))
}

// NewConfig parses the boot configuration from the given environment
// and kernel command line.
func NewConfig(environ []string, cmdline string) (*Config, error) {
	cfg := &Config{
		Hostname: defaultHostname,
	}

	for _, envVar := range environ {
		key, value, found := strings.Cut(envVar, "=")
		if !found || !strings.HasPrefix(key, envPrefix) {
			continue
		}

		err := cfg.setParam(key, strings.TrimPrefix(key, envPrefix), value)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.parseCmdline(cmdline); err != nil {
		return nil, err
	}

	if cfg.ModulesMode == ModulesLink && !filepath.IsAbs(cfg.ModulesDir) {
		return nil, fmt.Errorf("%w: module link dir must be absolute: %s",
			ErrConfigInvalid, cfg.ModulesDir)
	}

	return cfg, nil
}

//nolint:cyclop
func (c *Config) setParam(key, name, value string) error {
	var err error

	switch name {
	case "hostname":
		c.Hostname = value
	case "user":
		c.User = value
	case "console":
		c.Console = value
	case "stty_con":
		c.SttyOpts = value
	case "chdir":
		c.Chdir = value
	case "root_mods":
		var enabled bool

		enabled, err = parseBoolParam(key, value)
		if err == nil && enabled {
			err = c.setModulesMode(ModulesHost, "")
		}
	case "link_mods":
		err = c.setModulesMode(ModulesLink, value)
	case "dhcp":
		c.DHCP, err = parseBoolParam(key, value)
	case "graphics":
		c.Graphics, err = parseBoolParam(key, value)
	case "sound":
		c.Sound, err = parseBoolParam(key, value)
	case "snapd":
		c.Snapd, err = parseBoolParam(key, value)
	case "legacy_cgroups":
		c.LegacyCgroups, err = parseBoolParam(key, value)
	case "verbose":
		c.Verbose, err = parseBoolParam(key, value)
	case "vsockexec":
		err = c.setVsockPort(value)
	default:
		// Numbered parameters and, for forward compatibility, unknown
		// ones.
		switch {
		case strings.HasPrefix(name, "rw_overlay"):
			err = c.addOverlay(key, value)
		case strings.HasPrefix(name, "initmount"):
			c.InitMounts = append(c.InitMounts, InitMount{
				Tag: strings.ReplaceAll(key, "_", "."),
				Dir: value,
			})
		}
	}

	return err
}

func (c *Config) setModulesMode(mode ModulesMode, dir string) error {
	if c.ModulesMode != ModulesMask {
		return fmt.Errorf("%w: conflicting module modes %s and %s",
			ErrConfigInvalid, c.ModulesMode, mode)
	}

	c.ModulesMode = mode
	c.ModulesDir = dir

	return nil
}

func (c *Config) setVsockPort(value string) error {
	port, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: vsock port: %s", ErrConfigInvalid, value)
	}

	c.VsockPort = uint32(port)

	return nil
}

func (c *Config) addOverlay(key, value string) error {
	if !filepath.IsAbs(value) {
		return fmt.Errorf("%w: overlay dir must be absolute: %s",
			ErrConfigInvalid, value)
	}

	c.Overlays = append(c.Overlays, Overlay{
		Name: key,
		Dir:  filepath.Clean(value),
	})

	return nil
}

func (c *Config) parseCmdline(cmdline string) error {
	for _, param := range strings.Fields(cmdline) {
		switch {
		case param == cmdlineDHCPParam:
			c.DHCP = true
		case strings.HasPrefix(param, cmdlineExecParam):
			quoted := strings.TrimPrefix(param, cmdlineExecParam)

			encoded, ok := unquoteBacktick(quoted)
			if !ok {
				return fmt.Errorf("%w: exec parameter not quoted",
					ErrConfigInvalid)
			}

			decoded, err := vport.DecodeString(encoded)
			if err != nil {
				return fmt.Errorf("%w: exec parameter: %w",
					ErrConfigInvalid, err)
			}

			c.Exec = decoded
		}
	}

	return nil
}

func parseBoolParam(key, value string) (bool, error) {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s: not a bool: %s",
			ErrConfigInvalid, key, value)
	}

	return parsed, nil
}

func unquoteBacktick(str string) (string, bool) {
	if len(str) < 2 || str[0] != '`' || str[len(str)-1] != '`' {
		return "", false
	}

	return str[1 : len(str)-1], true
}

// WithConfig returns a [Func] that loads the boot configuration into
// the state. Raises the log level to debug if verbose boot was
// requested.
func WithConfig(level *slog.LevelVar) Func {
	return func(state *State) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}

		if cfg.Verbose && level != nil {
			level.Set(slog.LevelDebug)
		}

		slog.Debug("Loaded configuration",
			"hostname", cfg.Hostname,
			"user", cfg.User,
			"modules", cfg.ModulesMode,
			"overlays", len(cfg.Overlays),
			"initmounts", len(cfg.InitMounts),
			"scripted", cfg.Exec != "",
		)

		state.Config = cfg

		return nil
	}
}
