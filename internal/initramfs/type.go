// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

// TreeNodeType defines the type of a [TreeNode].
type TreeNodeType int

const (
	// TreeNodeTypeRegular is a regular file copied from a source file system
	// into the archive.
	TreeNodeTypeRegular TreeNodeType = iota

	// TreeNodeTypeInline is a regular file with its content stored in the
	// node itself.
	TreeNodeTypeInline

	// TreeNodeTypeDirectory is a directory.
	TreeNodeTypeDirectory

	// TreeNodeTypeLink is a symbolic link.
	TreeNodeTypeLink

	// TreeNodeTypeCharDev is a character device node.
	TreeNodeTypeCharDev

	// TreeNodeTypeBlockDev is a block device node.
	TreeNodeTypeBlockDev
)

// String returns the name of the type.
func (t TreeNodeType) String() string {
	switch t {
	case TreeNodeTypeRegular:
		return "regular"
	case TreeNodeTypeInline:
		return "inline"
	case TreeNodeTypeDirectory:
		return "directory"
	case TreeNodeTypeLink:
		return "link"
	case TreeNodeTypeCharDev:
		return "chardev"
	case TreeNodeTypeBlockDev:
		return "blockdev"
	default:
		return "invalid"
	}
}
