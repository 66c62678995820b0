// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides the aggregate hash tree used to commit a block to
// its transactions.
//
// Leaves are sorted by hash in descending byte order and, when odd, the last
// leaf is duplicated. The tree is then reduced through a FIFO queue: the two
// nodes at the front are removed and their parent is appended to the back
// until one node remains. This is not a level by level reduction, so trees
// with five or more leaves have a different root than a classic merkle tree.
package merkle

import (
	"bytes"
	"sort"

	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Hash() signature.Hash
}

// Root returns the aggregate hash for the values. An empty set of values
// produces the zero hash.
func Root[T Hashable](values []T) signature.Hash {
	if len(values) == 0 {
		return signature.ZeroHash
	}

	return reduce(leafs(values))
}

// =============================================================================

// leafs returns the sorted leaf hashes with the last one duplicated when the
// count is odd.
func leafs[T Hashable](values []T) []signature.Hash {
	hashes := make([]signature.Hash, 0, len(values)+1)
	for _, value := range values {
		hashes = append(hashes, value.Hash())
	}

	sort.SliceStable(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) > 0
	})

	if len(hashes)%2 == 1 {
		hashes = append(hashes, hashes[len(hashes)-1])
	}

	return hashes
}

// reduce pairs hashes from the front of the queue and appends each parent to
// the back until a single root remains.
func reduce(hashes []signature.Hash) signature.Hash {
	queue := make([]signature.Hash, len(hashes))
	copy(queue, hashes)

	for len(queue) > 1 {
		a, b := queue[0], queue[1]
		queue = append(queue[2:], signature.ConcatHash(a, b))
	}

	return queue[0]
}
