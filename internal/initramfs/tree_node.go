// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"bytes"
	"fmt"
	"io/fs"
	"iter"
	"maps"
	"path/filepath"
	"slices"
)

// TreeNode is a single file tree node.
type TreeNode struct {
	// Type of this node.
	Type TreeNodeType

	// Mode is the permission part of the node's file mode.
	Mode fs.FileMode

	// RelatedPath is the source path for regular files and the target path
	// for links.
	RelatedPath string

	// Body is the content of an inline file.
	Body []byte

	// Major and Minor are the device numbers of a device node.
	Major, Minor uint64

	children map[string]*TreeNode
}

// String returns a string representation of the TreeNode.
func (e *TreeNode) String() string {
	switch e.Type {
	case TreeNodeTypeRegular:
		return "regular file (" + e.RelatedPath + ")"
	case TreeNodeTypeInline:
		return fmt.Sprintf("inline file (%d bytes)", len(e.Body))
	case TreeNodeTypeDirectory:
		return fmt.Sprintf("directory (% s)", slices.Sorted(maps.Keys(e.children)))
	case TreeNodeTypeLink:
		return "link (" + e.RelatedPath + ")"
	case TreeNodeTypeCharDev:
		return fmt.Sprintf("chardev (%d, %d)", e.Major, e.Minor)
	case TreeNodeTypeBlockDev:
		return fmt.Sprintf("blockdev (%d, %d)", e.Major, e.Minor)
	default:
		return "invalid type"
	}
}

// IsDir returns true if the [TreeNode] is a directory.
func (e *TreeNode) IsDir() bool {
	return e.Type == TreeNodeTypeDirectory
}

// IsLink returns true if the [TreeNode] is a link.
func (e *TreeNode) IsLink() bool {
	return e.Type == TreeNodeTypeLink
}

// IsRegular returns true if the [TreeNode] is a regular file.
func (e *TreeNode) IsRegular() bool {
	return e.Type == TreeNodeTypeRegular
}

// Equal returns true if the node describes the identical entry as other.
// Directory children are not considered.
func (e *TreeNode) Equal(other *TreeNode) bool {
	return e.Type == other.Type &&
		e.Mode == other.Mode &&
		e.RelatedPath == other.RelatedPath &&
		bytes.Equal(e.Body, other.Body) &&
		e.Major == other.Major &&
		e.Minor == other.Minor
}

// AddRegular adds a new regular file [TreeNode] child with the given source
// path.
func (e *TreeNode) AddRegular(name, path string, mode fs.FileMode) (*TreeNode, error) {
	node := &TreeNode{
		Type:        TreeNodeTypeRegular,
		Mode:        mode,
		RelatedPath: path,
	}

	return e.AddNode(name, node)
}

// AddInline adds a new inline file [TreeNode] child with the given content.
func (e *TreeNode) AddInline(name string, body []byte, mode fs.FileMode) (*TreeNode, error) {
	node := &TreeNode{
		Type: TreeNodeTypeInline,
		Mode: mode,
		Body: body,
	}

	return e.AddNode(name, node)
}

// AddDirectory adds a new directory [TreeNode] child.
func (e *TreeNode) AddDirectory(name string, mode fs.FileMode) (*TreeNode, error) {
	node := &TreeNode{
		Type: TreeNodeTypeDirectory,
		Mode: mode,
	}

	return e.AddNode(name, node)
}

// AddLink adds a new link [TreeNode] child.
func (e *TreeNode) AddLink(name, target string) (*TreeNode, error) {
	node := &TreeNode{
		Type:        TreeNodeTypeLink,
		RelatedPath: target,
	}

	return e.AddNode(name, node)
}

// AddCharDev adds a new character device [TreeNode] child.
func (e *TreeNode) AddCharDev(
	name string,
	mode fs.FileMode,
	major, minor uint64,
) (*TreeNode, error) {
	node := &TreeNode{
		Type:  TreeNodeTypeCharDev,
		Mode:  mode,
		Major: major,
		Minor: minor,
	}

	return e.AddNode(name, node)
}

// AddBlockDev adds a new block device [TreeNode] child.
func (e *TreeNode) AddBlockDev(
	name string,
	mode fs.FileMode,
	major, minor uint64,
) (*TreeNode, error) {
	node := &TreeNode{
		Type:  TreeNodeTypeBlockDev,
		Mode:  mode,
		Major: major,
		Minor: minor,
	}

	return e.AddNode(name, node)
}

// AddNode adds an arbitrary [TreeNode] as child. The caller is responsible
// for using only valid [TreeNodeType]s and according fields.
//
// If a node with the name exists already, the existing node is returned
// along with [ErrTreeNodeExists].
func (e *TreeNode) AddNode(name string, node *TreeNode) (*TreeNode, error) {
	if !e.IsDir() {
		return nil, ErrTreeNodeNotDir
	}

	if ee, exists := e.children[name]; exists {
		return ee, ErrTreeNodeExists
	}

	if e.children == nil {
		e.children = make(map[string]*TreeNode)
	}

	e.children[name] = node

	return node, nil
}

// GetNode gets the [TreeNode] for the given name. Returns
// [ErrTreeNodeNotExists] if it doesn't exist.
func (e *TreeNode) GetNode(name string) (*TreeNode, error) {
	if !e.IsDir() {
		return nil, ErrTreeNodeNotDir
	}

	node, exists := e.children[name]
	if !exists {
		return nil, ErrTreeNodeNotExists
	}

	return node, nil
}

// WriteTo writes the [TreeNode] into the given [Writer] with the given path.
//
// If the [TreeNode] is a regular file, it is read from the given source
// [fs.FS].
func (e *TreeNode) WriteTo(writer Writer, path string, sourceFS fs.FS) error {
	switch e.Type {
	case TreeNodeTypeRegular:
		source, err := sourceFS.Open(sourceFSPath(e.RelatedPath))
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer source.Close()

		//nolint:wrapcheck
		return writer.WriteRegular(path, source, e.Mode)
	case TreeNodeTypeInline:
		//nolint:wrapcheck
		return writer.WriteRegular(path, bytes.NewReader(e.Body), e.Mode)
	case TreeNodeTypeDirectory:
		//nolint:wrapcheck
		return writer.WriteDirectory(path, e.Mode)
	case TreeNodeTypeLink:
		//nolint:wrapcheck
		return writer.WriteLink(path, e.RelatedPath)
	case TreeNodeTypeCharDev:
		//nolint:wrapcheck
		return writer.WriteCharDev(path, e.Mode, e.Major, e.Minor)
	case TreeNodeTypeBlockDev:
		//nolint:wrapcheck
		return writer.WriteBlockDev(path, e.Mode, e.Major, e.Minor)
	default:
		return fmt.Errorf("%w: %d", ErrTreeNodeTypeUnknown, e.Type)
	}
}

// sourceFSPath translates an absolute host path into a path valid for
// [fs.FS].
func sourceFSPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)[1:]
	}

	return filepath.Clean(path)
}

// prefixedPaths creates an iterator over all children in lexical order.
func (e *TreeNode) prefixedPaths(base string) iter.Seq2[string, *TreeNode] {
	return func(yield func(path string, node *TreeNode) bool) {
		for _, name := range slices.Sorted(maps.Keys(e.children)) {
			path := filepath.Join(base, name)
			if !yield(path, e.children[name]) {
				return
			}
		}
	}
}
