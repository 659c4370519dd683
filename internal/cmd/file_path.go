// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"strings"

	"github.com/aibor/hostrun/internal/sys"
)

// FilePath is a single file path flag value. The path is made absolute when
// set.
type FilePath string

func (f *FilePath) String() string {
	return string(*f)
}

func (f *FilePath) Set(s string) error {
	path, err := sys.AbsolutePath(s)

	*f = FilePath(path)

	return err //nolint:wrapcheck
}

// FilePathList is a repeatable file path list flag value. Values may be
// comma separated. Paths are made absolute when set. An empty value resets
// the list, so entries accumulated from the environment or the config file
// can be dropped.
type FilePathList []string

func (f *FilePathList) String() string {
	return strings.Join(*f, ",")
}

func (f *FilePathList) Set(s string) error {
	if s == "" {
		*f = nil
		return nil
	}

	for _, e := range strings.Split(s, ",") {
		path, err := sys.AbsolutePath(e)
		if err != nil {
			return err //nolint:wrapcheck
		}

		*f = append(*f, path)
	}

	return nil
}
