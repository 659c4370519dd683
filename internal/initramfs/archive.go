// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Archive collects the entries of a boot archive.
//
// Entries are added with the Add methods. Missing parent directories are
// synthesized. Adding the identical entry again is a no-op. Adding a
// different entry at an existing path fails with [ErrArchiveConflict].
//
// Create a new instance with [New]. Serialize with [Archive.WriteInto].
type Archive struct {
	fileTree Tree
}

// New creates a new empty [Archive].
func New() *Archive {
	archive := &Archive{}
	archive.fileTree.GetRoot()

	return archive
}

// AddRegular adds a regular file at path, with content read on
// serialization from sourcePath in the source file system.
func (a *Archive) AddRegular(path, sourcePath string, mode fs.FileMode) error {
	return a.add(path, &TreeNode{
		Type:        TreeNodeTypeRegular,
		Mode:        mode,
		RelatedPath: sourcePath,
	})
}

// AddInline adds a regular file at path with the given content.
func (a *Archive) AddInline(path string, body []byte, mode fs.FileMode) error {
	return a.add(path, &TreeNode{
		Type: TreeNodeTypeInline,
		Mode: mode,
		Body: body,
	})
}

// AddDirectory adds a directory at path.
func (a *Archive) AddDirectory(path string, mode fs.FileMode) error {
	return a.add(path, &TreeNode{
		Type: TreeNodeTypeDirectory,
		Mode: mode,
	})
}

// AddLink adds a symbolic link at path pointing to target.
func (a *Archive) AddLink(path, target string) error {
	return a.add(path, &TreeNode{
		Type:        TreeNodeTypeLink,
		RelatedPath: target,
	})
}

// AddCharDev adds a character device node at path.
func (a *Archive) AddCharDev(
	path string,
	mode fs.FileMode,
	major, minor uint64,
) error {
	return a.add(path, &TreeNode{
		Type:  TreeNodeTypeCharDev,
		Mode:  mode,
		Major: major,
		Minor: minor,
	})
}

// AddBlockDev adds a block device node at path.
func (a *Archive) AddBlockDev(
	path string,
	mode fs.FileMode,
	major, minor uint64,
) error {
	return a.add(path, &TreeNode{
		Type:  TreeNodeTypeBlockDev,
		Mode:  mode,
		Major: major,
		Minor: minor,
	})
}

func (a *Archive) add(path string, node *TreeNode) error {
	cleaned := filepath.Clean(path)

	if isRoot(cleaned) {
		if node.IsDir() {
			return nil
		}

		return &ConflictError{
			Path:   cleaned,
			Reason: "root must be a directory",
		}
	}

	dir, name := filepath.Split(cleaned)

	dirNode, err := a.fileTree.Mkdir(dir)
	if err != nil {
		if errors.Is(err, ErrTreeNodeNotDir) {
			return &ConflictError{
				Path:   dir,
				Reason: "parent is not a directory",
			}
		}

		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	existing, err := dirNode.AddNode(name, node)
	if errors.Is(err, ErrTreeNodeExists) {
		if existing.Equal(node) {
			return nil
		}

		return &ConflictError{
			Path:   cleaned,
			Reason: fmt.Sprintf("%s exists, cannot add %s", existing, node),
		}
	}

	if err != nil {
		return fmt.Errorf("add %s: %w", cleaned, err)
	}

	return nil
}

// WriteInto serializes the [Archive] as CPIO stream into the given writer.
// Regular file contents are read from sourceFS.
func (a *Archive) WriteInto(writer io.Writer, sourceFS fs.FS) error {
	w := NewCPIOWriter(writer)

	if err := a.writeTo(w, sourceFS); err != nil {
		return err
	}

	return w.Close()
}

// WriteToTempFile serializes the [Archive] into a new file in the given
// directory and returns its path. If tmpDir is the empty string the default
// temporary directory is used. The caller is responsible for removing the
// file once it is not needed anymore.
func (a *Archive) WriteToTempFile(tmpDir string, sourceFS fs.FS) (string, error) {
	file, err := os.CreateTemp(tmpDir, "initramfs")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer file.Close()

	if err := a.WriteInto(file, sourceFS); err != nil {
		_ = os.Remove(file.Name())

		return "", fmt.Errorf("write archive: %w", err)
	}

	return file.Name(), nil
}

// writeTo writes all collected entries into the given writer. The root
// entry is implicit and skipped.
func (a *Archive) writeTo(writer Writer, sourceFS fs.FS) error {
	for path, node := range a.fileTree.All() {
		if isRoot(path) {
			continue
		}

		if err := node.WriteTo(writer, path, sourceFS); err != nil {
			return err
		}
	}

	return nil
}
