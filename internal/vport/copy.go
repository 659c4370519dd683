// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vport

import (
	"encoding/base64"
	"fmt"
	"io"
)

// CopyFunc defines a function that reads the data from the given reader into
// the given writer.
//
// It may copy the data as is, like [io.Copy], or mutate or filter it as needed.
type CopyFunc func(dst io.Writer, src io.Reader) (int64, error)

var _ CopyFunc = io.Copy

// EncodeString encodes the given string for transmission on a text based
// transport, like the kernel command line.
func EncodeString(str string) string {
	return base64.StdEncoding.EncodeToString([]byte(str))
}

// DecodeString decodes a string encoded with [EncodeString].
func DecodeString(str string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	return string(data), nil
}
