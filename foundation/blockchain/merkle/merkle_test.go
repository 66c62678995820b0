// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"testing"

	"github.com/ardanlabs/pandanite/foundation/blockchain/merkle"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses the sha256 hashing algorithm for the merkle tree.
type Data struct {
	x string
}

// Hash hashes the value using sha256.
func (d Data) Hash() signature.Hash {
	return signature.SHA256([]byte(d.x))
}

func toData(values ...string) []Data {
	data := make([]Data, len(values))
	for i, v := range values {
		data[i] = Data{x: v}
	}
	return data
}

var table = []struct {
	name string
	data []Data
	root string
}{
	{
		name: "single leaf",
		data: toData("a"),
		root: "251a262291b87cb3c93a6ed71865da1f2c090c3d0196661a8f4a705b65836f71",
	},
	{
		name: "two leafs",
		data: toData("a", "b"),
		root: "e5a01fee14e0ed5c48714f22180f25ad8365b53f9779f79dc4a3d7e93963f94a",
	},
	{
		name: "three leafs",
		data: toData("a", "b", "c"),
		root: "d31a37ef6ac14a2db1470c4316beb5592e6afd4465022339adafda76a18ffabe",
	},
	{
		name: "five leafs",
		data: toData("a", "b", "c", "d", "e"),
		root: "773419f2a98a42ca62a7a206a47158bb2a5cf40f41841b48d1da93cf31e45abd",
	},
	{
		name: "six leafs",
		data: toData("a", "b", "c", "d", "e", "f"),
		root: "76382e65fb22bbdc6f9f73c767c2c13649604fabfe2d549e9c0cc6749ffdbed6",
	},
}

// =============================================================================

func Test_MerkleRoot(t *testing.T) {
	t.Log("Given the need to compute the aggregate hash.")
	{
		for testID, tst := range table {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				root := merkle.Root(tst.data)
				if root.String() != tst.root {
					t.Logf("\t\tTest %d:\tgot: %s", testID, root)
					t.Logf("\t\tTest %d:\texp: %s", testID, tst.root)
					t.Fatalf("\t%s\tTest %d:\tShould get back the expected root.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the expected root.", success, testID)

				reversed := make([]Data, len(tst.data))
				for i, d := range tst.data {
					reversed[len(tst.data)-1-i] = d
				}
				if merkle.Root(reversed) != root {
					t.Fatalf("\t%s\tTest %d:\tShould not depend on the input order.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould not depend on the input order.", success, testID)
			}
		}

		t.Logf("\tTest %d:\tWhen handling a single leaf.", len(table))
		{
			h := Data{x: "a"}.Hash()
			if merkle.Root(toData("a")) != signature.ConcatHash(h, h) {
				t.Fatalf("\t%s\tTest %d:\tShould pair the leaf with its duplicate.", failed, len(table))
			}
			t.Logf("\t%s\tTest %d:\tShould pair the leaf with its duplicate.", success, len(table))
		}
	}
}

func Test_Empty(t *testing.T) {
	t.Log("Given the need to handle no content.")
	{
		t.Logf("\tTest 0:\tWhen building from no values.")
		{
			if !merkle.Root([]Data{}).IsZero() {
				t.Fatalf("\t%s\tTest 0:\tShould get back the zero hash as the root.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the zero hash as the root.", success)
		}
	}
}
