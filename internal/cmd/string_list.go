// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"strings"
)

// StringList is a repeatable plain string list flag value. Values may be
// comma separated. An empty value resets the list.
type StringList []string

func (l *StringList) String() string {
	return strings.Join(*l, ",")
}

func (l *StringList) Set(s string) error {
	if s == "" {
		*l = nil
		return nil
	}

	for _, e := range strings.Split(s, ",") {
		if e != "" {
			*l = append(*l, e)
		}
	}

	return nil
}
