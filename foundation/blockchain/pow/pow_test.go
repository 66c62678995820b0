package pow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardanlabs/pandanite/foundation/blockchain/pow"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_LeadingZeroBits(t *testing.T) {
	type table struct {
		name string
		hash signature.Hash
		n    uint32
		exp  bool
	}

	var zero signature.Hash

	var topBit signature.Hash
	topBit[0] = 0x80

	var nibble signature.Hash
	nibble[0] = 0x0f

	var secondByte signature.Hash
	secondByte[1] = 0x01

	tt := []table{
		{name: "zero bits", hash: topBit, n: 0, exp: true},
		{name: "top bit set", hash: topBit, n: 1, exp: false},
		{name: "four zero bits", hash: nibble, n: 4, exp: true},
		{name: "five bits", hash: nibble, n: 5, exp: false},
		{name: "fifteen bits", hash: secondByte, n: 15, exp: true},
		{name: "sixteen bits", hash: secondByte, n: 16, exp: false},
		{name: "all zero 249", hash: zero, n: 249, exp: true},
		{name: "all zero 250", hash: zero, n: 250, exp: false},
		{name: "all zero 256", hash: zero, n: 256, exp: false},
	}

	t.Log("Given the need to count leading zero bits.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen checking %s.", testID, tst.name)
			{
				got := pow.LeadingZeroBits(tst.hash, tst.n)
				if got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould get %t for %d bits, got %t.", failed, testID, tst.exp, tst.n, got)
				}
				t.Logf("\t%s\tTest %d:\tShould get %t for %d bits.", success, testID, tst.exp, tst.n)
			}
		}
	}
}

func Test_Mine(t *testing.T) {
	t.Log("Given the need to mine nonces.")
	{
		target := signature.SHA256([]byte("target"))

		for difficulty := uint32(6); difficulty <= 16; difficulty++ {
			testID := int(difficulty - 6)
			t.Logf("\tTest %d:\tWhen mining at difficulty %d.", testID, difficulty)
			{
				nonce, err := pow.Mine(context.Background(), target, difficulty, nil)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine a nonce: %s", failed, testID, err)
				}

				if !pow.Verify(target, nonce, difficulty) {
					t.Fatalf("\t%s\tTest %d:\tShould verify the mined nonce.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould verify the mined nonce.", success, testID)
			}
		}
	}
}

func Test_MineCancel(t *testing.T) {
	t.Log("Given the need to stop mining.")
	{
		t.Logf("\tTest 0:\tWhen the context is already cancelled.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			target := signature.SHA256([]byte("target"))
			_, err := pow.Mine(ctx, target, 200, nil)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 0:\tShould get back a cancelled error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get back a cancelled error.", success)
		}
	}
}
