// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"io"
	"io/fs"
)

// MockCall records a single call into a [MockWriter].
type MockCall struct {
	Op           string
	Path         string
	Target       string
	Body         []byte
	Mode         fs.FileMode
	Major, Minor uint64
}

// MockWriter implements [Writer] recording all calls for inspection in
// tests. All calls return Err.
type MockWriter struct {
	Calls []MockCall
	Err   error
}

func (m *MockWriter) WriteRegular(path string, source io.Reader, mode fs.FileMode) error {
	body, err := io.ReadAll(source)
	if err != nil {
		return err
	}

	m.Calls = append(m.Calls, MockCall{
		Op:   "regular",
		Path: path,
		Body: body,
		Mode: mode,
	})

	return m.Err
}

func (m *MockWriter) WriteDirectory(path string, mode fs.FileMode) error {
	m.Calls = append(m.Calls, MockCall{
		Op:   "directory",
		Path: path,
		Mode: mode,
	})

	return m.Err
}

func (m *MockWriter) WriteLink(path, target string) error {
	m.Calls = append(m.Calls, MockCall{
		Op:     "link",
		Path:   path,
		Target: target,
	})

	return m.Err
}

func (m *MockWriter) WriteCharDev(
	path string,
	mode fs.FileMode,
	major, minor uint64,
) error {
	m.Calls = append(m.Calls, MockCall{
		Op:    "chardev",
		Path:  path,
		Mode:  mode,
		Major: major,
		Minor: minor,
	})

	return m.Err
}

func (m *MockWriter) WriteBlockDev(
	path string,
	mode fs.FileMode,
	major, minor uint64,
) error {
	m.Calls = append(m.Calls, MockCall{
		Op:    "blockdev",
		Path:  path,
		Mode:  mode,
		Major: major,
		Minor: minor,
	})

	return m.Err
}
