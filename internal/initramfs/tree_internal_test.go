// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeIsRoot(t *testing.T) {
	for _, p := range []string{"", ".", "/", "//"} {
		assert.True(t, isRoot(p), p)
	}

	for _, p := range []string{"-", "_", "\\", "a", "/dir", "/d/"} {
		assert.False(t, isRoot(p), p)
	}
}

func TestTreeGetRoot(t *testing.T) {
	tree := Tree{}
	r := tree.GetRoot()
	assert.NotNil(t, tree.root)
	assert.Equal(t, TreeNodeTypeDirectory, tree.root.Type)
	assert.Equal(t, tree.root, r)
}

func TestTreeGetNode(t *testing.T) {
	leafNode := TreeNode{
		Type:        TreeNodeTypeRegular,
		RelatedPath: "yo",
	}
	dirNode := TreeNode{
		Type: TreeNodeTypeDirectory,
		children: map[string]*TreeNode{
			"leaf": &leafNode,
		},
	}
	tree := Tree{
		root: &TreeNode{
			Type: TreeNodeTypeDirectory,
			children: map[string]*TreeNode{
				"dir": &dirNode,
			},
		},
	}

	r, err := tree.GetNode("")
	require.NoError(t, err)
	assert.Equal(t, tree.root, r)

	l, err := tree.GetNode(filepath.Join("dir", "leaf"))
	require.NoError(t, err)
	assert.Equal(t, &leafNode, l)

	d, err := tree.GetNode("/dir")
	require.NoError(t, err)
	assert.Equal(t, &dirNode, d)

	_, err = tree.GetNode("/missing")
	require.ErrorIs(t, err, ErrTreeNodeNotExists)
}

func TestTreeMkdir(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		tree := Tree{}
		e, err := tree.Mkdir("dir")
		require.NoError(t, err)
		assert.Equal(t, e, tree.GetRoot().children["dir"])
		assert.Equal(t, TreeNodeTypeDirectory, e.Type)
		assert.EqualValues(t, defaultDirMode, e.Mode)
	})

	t.Run("multi", func(t *testing.T) {
		tree := Tree{}
		e, err := tree.Mkdir("sub/dir")
		require.NoError(t, err)
		assert.Equal(t, TreeNodeTypeDirectory, e.Type)
		assert.Empty(t, e.children)
		s, err := tree.GetNode("sub")
		require.NoError(t, err)
		assert.Equal(t, s, tree.GetRoot().children["sub"])
		assert.Equal(t, TreeNodeTypeDirectory, s.Type)
		assert.Equal(t, e, s.children["dir"])
	})

	t.Run("exists", func(t *testing.T) {
		tree := Tree{}
		_, err := tree.Mkdir("dir")
		require.NoError(t, err)
		_, err = tree.Mkdir("dir")
		assert.NoError(t, err)
	})

	t.Run("fails if non-dir exists", func(t *testing.T) {
		tree := Tree{}
		err := tree.Ln("target", "dir")
		require.NoError(t, err)
		_, err = tree.Mkdir("dir")
		assert.Error(t, err)
	})

	t.Run("fails if parent is not dir", func(t *testing.T) {
		tree := Tree{}
		err := tree.Ln("target", "dir")
		require.NoError(t, err)
		_, err = tree.Mkdir("dir/sub")
		assert.Error(t, err)
	})
}

func TestTreeLn(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		tree := Tree{}
		err := tree.Ln("target", "link")
		require.NoError(t, err)
		e, err := tree.GetNode("link")
		require.NoError(t, err)
		assert.Equal(t, TreeNodeTypeLink, e.Type)
		assert.Equal(t, "target", e.RelatedPath)
	})

	t.Run("same link exists", func(t *testing.T) {
		tree := Tree{}
		err := tree.Ln("target", "link")
		require.NoError(t, err)
		err = tree.Ln("target", "link")
		assert.NoError(t, err)
	})

	t.Run("fails if non-link exists", func(t *testing.T) {
		tree := Tree{}
		_, err := tree.Mkdir("link")
		require.NoError(t, err)
		err = tree.Ln("target", "link")
		assert.ErrorIs(t, err, ErrTreeNodeExists)
	})
}

func TestTreeAll(t *testing.T) {
	tree := Tree{}

	_, err := tree.Mkdir("/var/lib")
	require.NoError(t, err)
	_, err = tree.Mkdir("/bin")
	require.NoError(t, err)
	err = tree.Ln("bin", "/sbin")
	require.NoError(t, err)
	_, err = tree.GetRoot().AddInline("init", []byte{5}, 0o755)
	require.NoError(t, err)

	var paths []string
	for path := range tree.All() {
		paths = append(paths, path)
	}

	// Stable order: lexical within each directory, parents first.
	expected := []string{"/", "/bin", "/init", "/sbin", "/var", "/var/lib"}
	assert.Equal(t, expected, paths)

	// Iteration order does not change between runs.
	for range 5 {
		var again []string
		for path := range tree.All() {
			again = append(again, path)
		}

		require.Equal(t, paths, again)
	}
}
