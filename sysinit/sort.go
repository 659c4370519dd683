// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"cmp"
	"iter"
	"slices"
)

// sortedMap iterates over the given map in the natural order of its
// keys. Mount tables and symlink tables are maps, so deterministic
// iteration keeps boot output and behavior stable across runs.
func sortedMap[K cmp.Ordered, V any](m map[K]V) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		keys := make([]K, 0, len(m))
		for key := range m {
			keys = append(keys, key)
		}

		slices.Sort(keys)

		for _, key := range keys {
			if !yield(key, m[key]) {
				return
			}
		}
	}
}
