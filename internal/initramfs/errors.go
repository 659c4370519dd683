// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveConflict is returned if an entry cannot be added to or
	// encoded into the archive without clashing with an existing entry or
	// violating a format limit.
	ErrArchiveConflict = errors.New("archive conflict")

	// ErrArchiveClosed is returned on writes into an archive that has been
	// terminated with its trailer already.
	ErrArchiveClosed = errors.New("archive closed")

	// ErrTreeNodeExists is returned if a tree node exists that was not
	// expected.
	ErrTreeNodeExists = errors.New("tree node exists")

	// ErrTreeNodeNotExists is returned if a tree node that is looked up does
	// not exist.
	ErrTreeNodeNotExists = errors.New("tree node does not exist")

	// ErrTreeNodeNotDir is returned if a tree node exists but is not a
	// directory.
	ErrTreeNodeNotDir = errors.New("tree node is not a directory")

	// ErrTreeNodeTypeUnknown is returned if the type of a tree node is
	// unknown.
	ErrTreeNodeTypeUnknown = errors.New("unknown tree node type")
)

// ConflictError describes why an entry cannot live in the archive. It wraps
// [ErrArchiveConflict].
type ConflictError struct {
	Path   string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Path, ErrArchiveConflict, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrArchiveConflict
}
