// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	kmsgPath = "/dev/kmsg"

	// logTag identifies the init program's records in the kernel log
	// buffer, like the syslog tag of a daemon.
	logTag = "hostrun-init"
)

// Kernel log priorities as defined in syslog(2). Written records use
// the kernel facility, matching what in-kernel messages look like.
const (
	priErr     = 3
	priWarning = 4
	priInfo    = 6
	priDebug   = 7
)

// ConfigureLogger sets up the default [slog.Logger] for the init
// program.
//
// Records go to the kernel log buffer via /dev/kmsg, so they interleave
// correctly with kernel messages on the serial console and obey the
// kernel's console log level. If /dev/kmsg is not usable, for example
// before the device file system is set up, records fall back to
// stderr in the same format.
func ConfigureLogger(level slog.Leveler) {
	var output io.Writer = os.Stderr

	if file, err := os.OpenFile(kmsgPath, os.O_WRONLY, 0); err == nil {
		output = file
	}

	slog.SetDefault(slog.New(NewKmsgHandler(output, level)))
}

// KmsgHandler is a [slog.Handler] that writes records in the /dev/kmsg
// input format: a decimal priority in angle brackets, a fixed tag, the
// message and all attributes as key=value pairs.
//
// Each record is emitted with a single write, as the kernel treats
// each write as one log line.
type KmsgHandler struct {
	output io.Writer
	level  slog.Leveler
	attrs  string
	groups string
}

// NewKmsgHandler creates a new [KmsgHandler] writing to output.
// Records below the given level are discarded.
func NewKmsgHandler(output io.Writer, level slog.Leveler) *KmsgHandler {
	return &KmsgHandler{
		output: output,
		level:  level,
	}
}

// Enabled implements [slog.Handler].
func (h *KmsgHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements [slog.Handler].
func (h *KmsgHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder

	sb.WriteString("<")
	sb.WriteString(strconv.Itoa(priorityFor(record.Level)))
	sb.WriteString(">")
	sb.WriteString(logTag)
	sb.WriteString(": ")
	sb.WriteString(record.Message)
	sb.WriteString(h.attrs)

	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&sb, h.groups, attr)
		return true
	})

	sb.WriteString("\n")

	_, err := io.WriteString(h.output, sb.String())

	return err //nolint:wrapcheck
}

// WithAttrs implements [slog.Handler].
func (h *KmsgHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder

	for _, attr := range attrs {
		writeAttr(&sb, h.groups, attr)
	}

	newHandler := *h
	newHandler.attrs += sb.String()

	return &newHandler
}

// WithGroup implements [slog.Handler].
func (h *KmsgHandler) WithGroup(name string) slog.Handler {
	newHandler := *h
	newHandler.groups += name + "."

	return &newHandler
}

func priorityFor(level slog.Level) int {
	switch {
	case level >= slog.LevelError:
		return priErr
	case level >= slog.LevelWarn:
		return priWarning
	case level >= slog.LevelInfo:
		return priInfo
	default:
		return priDebug
	}
}

func writeAttr(sb *strings.Builder, groups string, attr slog.Attr) {
	value := attr.Value.Resolve()

	if value.Kind() == slog.KindGroup {
		for _, groupAttr := range value.Group() {
			writeAttr(sb, groups+attr.Key+".", groupAttr)
		}

		return
	}

	if attr.Equal(slog.Attr{}) {
		return
	}

	sb.WriteString(" ")
	sb.WriteString(groups)
	sb.WriteString(attr.Key)
	sb.WriteString("=")

	str := value.String()
	if strings.ContainsAny(str, " \t\"") {
		str = strconv.Quote(str)
	}

	sb.WriteString(str)
}
