package executor_test

import (
	"crypto/ed25519"
	"math"
	"math/big"
	"testing"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/executor"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const fee = 500000

type user struct {
	pk   ed25519.PrivateKey
	addr database.Address
}

func newUser(t *testing.T) user {
	pub, pk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	return user{pk: pk, addr: database.PublicKeyToAddress(pub)}
}

func (u user) send(t *testing.T, to user, amount uint64, txFee uint64, ts uint64) database.Transaction {
	tx := database.NewTransaction(u.pk.Public().(ed25519.PublicKey), to.addr, amount, txFee, ts)
	signed, err := tx.Sign(u.pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	return signed
}

func block(id uint64, trans ...database.Transaction) database.Block {
	return database.NewBlock(id, 1700000000+id, 16, signature.ZeroHash, trans)
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to seed balances from the genesis block.")
	{
		miner, alice, bob := newUser(t), newUser(t), newUser(t)

		t.Logf("\tTest 0:\tWhen executing block 1 with an unfunded transfer.")
		{
			alloc := alice.send(t, bob, 1000, 0, 1)
			alloc.Signature[0] ^= 0xff

			b := block(1, database.NewFeeTransaction(miner.addr, fee, 1), alloc)
			delta, status := executor.Execute(database.Balances{}, b, fee, nil)
			if status != executor.Success {
				t.Fatalf("\t%s\tTest 0:\tShould execute the genesis block, got %s.", failed, status)
			}
			t.Logf("\t%s\tTest 0:\tShould execute the genesis block without signatures or senders.", success)

			if delta[miner.addr] != fee || delta[bob.addr] != 1000 {
				t.Fatalf("\t%s\tTest 0:\tShould credit only the recipients: %v", failed, delta)
			}
			if _, exists := delta[alice.addr]; exists {
				t.Fatalf("\t%s\tTest 0:\tShould not debit the sender.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould credit only the recipients.", success)
		}
	}
}

func Test_Execute(t *testing.T) {
	t.Log("Given the need to execute a block.")
	{
		miner, alice, bob := newUser(t), newUser(t), newUser(t)
		snapshot := database.Balances{alice.addr: 100, miner.addr: 7}

		t.Logf("\tTest 0:\tWhen executing a valid transfer.")
		{
			tx := alice.send(t, bob, 40, 5, 10)
			b := block(2, database.NewFeeTransaction(miner.addr, fee, 10), tx)

			delta, status := executor.Execute(snapshot, b, fee, nil)
			if status != executor.Success {
				t.Fatalf("\t%s\tTest 0:\tShould execute the block, got %s.", failed, status)
			}
			t.Logf("\t%s\tTest 0:\tShould execute the block.", success)

			if delta[alice.addr] != 55 || delta[bob.addr] != 40 || delta[miner.addr] != 7+fee+5 {
				t.Fatalf("\t%s\tTest 0:\tShould move the balances: %v", failed, delta)
			}
			t.Logf("\t%s\tTest 0:\tShould move the balances.", success)

			if snapshot[alice.addr] != 100 {
				t.Fatalf("\t%s\tTest 0:\tShould not modify the snapshot.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not modify the snapshot.", success)

			after := snapshot.Copy()
			after.Merge(delta)
			exp := new(big.Int).Add(snapshot.Total(), big.NewInt(fee))
			if after.Total().Cmp(exp) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould conserve value plus the mining fee, got %s exp %s.", failed, after.Total(), exp)
			}
			t.Logf("\t%s\tTest 0:\tShould conserve value plus the mining fee.", success)

			rev := executor.Deltas(b)
			for addr, balance := range after {
				if got := rev[addr].Revert(balance); got != snapshot[addr] {
					t.Fatalf("\t%s\tTest 0:\tShould revert %s to %d, got %d.", failed, addr, snapshot[addr], got)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould revert the block effects.", success)
		}

		t.Logf("\tTest 1:\tWhen a transfer is funded earlier in the same block.")
		{
			first := alice.send(t, bob, 30, 0, 11)
			second := bob.send(t, alice, 10, 1, 12)
			b := block(2, database.NewFeeTransaction(miner.addr, fee, 11), first, second)

			delta, status := executor.Execute(snapshot, b, fee, nil)
			if status != executor.Success {
				t.Fatalf("\t%s\tTest 1:\tShould execute the block, got %s.", failed, status)
			}

			if delta[alice.addr] != 80 || delta[bob.addr] != 19 {
				t.Fatalf("\t%s\tTest 1:\tShould apply transactions in order: %v", failed, delta)
			}
			t.Logf("\t%s\tTest 1:\tShould apply transactions in order.", success)
		}
	}
}

func Test_Rejections(t *testing.T) {
	miner, alice, bob := newUser(t), newUser(t), newUser(t)
	snapshot := database.Balances{alice.addr: 100}
	feeTx := database.NewFeeTransaction(miner.addr, fee, 20)

	transfer := alice.send(t, bob, 10, 1, 20)

	badSig := transfer
	badSig.Signature = append([]byte(nil), transfer.Signature...)
	badSig.Signature[5] ^= 0x01

	huge := database.Balances{alice.addr: math.MaxUint64, bob.addr: math.MaxUint64}

	type table struct {
		name      string
		snapshot  database.Balances
		block     database.Block
		committed map[signature.Hash]bool
		status    executor.Status
	}

	tt := []table{
		{
			name:     "second fee",
			snapshot: snapshot,
			block:    block(2, feeTx, database.NewFeeTransaction(alice.addr, fee, 21)),
			status:   executor.ExtraMiningFee,
		},
		{
			name:     "no fee",
			snapshot: snapshot,
			block:    block(2, transfer),
			status:   executor.NoMiningFee,
		},
		{
			name:     "wrong fee",
			snapshot: snapshot,
			block:    block(2, database.NewFeeTransaction(miner.addr, fee+1, 20), transfer),
			status:   executor.IncorrectMiningFee,
		},
		{
			name:     "repeated in block",
			snapshot: snapshot,
			block:    block(2, feeTx, transfer, transfer),
			status:   executor.ExpiredTransaction,
		},
		{
			name:      "already committed",
			snapshot:  snapshot,
			block:     block(2, feeTx, transfer),
			committed: map[signature.Hash]bool{transfer.Hash(): true},
			status:    executor.ExpiredTransaction,
		},
		{
			name:     "bad signature",
			snapshot: snapshot,
			block:    block(2, feeTx, badSig),
			status:   executor.InvalidSignature,
		},
		{
			name:     "unknown sender",
			snapshot: snapshot,
			block:    block(2, feeTx, bob.send(t, alice, 1, 0, 22)),
			status:   executor.SenderDoesNotExist,
		},
		{
			name:     "unknown sender moving nothing",
			snapshot: snapshot,
			block:    block(2, feeTx, bob.send(t, alice, 0, 0, 26)),
			status:   executor.SenderDoesNotExist,
		},
		{
			name:     "overdraft",
			snapshot: snapshot,
			block:    block(2, feeTx, alice.send(t, bob, 100, 1, 23)),
			status:   executor.BalanceTooLow,
		},
		{
			name:     "amount plus fee overflow",
			snapshot: huge,
			block:    block(2, feeTx, alice.send(t, bob, math.MaxUint64, 1, 24)),
			status:   executor.BalanceTooLow,
		},
		{
			name:     "recipient overflow",
			snapshot: huge,
			block:    block(2, feeTx, alice.send(t, bob, 1, 0, 25)),
			status:   executor.BalanceTooLow,
		},
	}

	t.Log("Given the need to reject invalid blocks.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen executing a block with %s.", testID, tst.name)
			{
				delta, status := executor.Execute(tst.snapshot, tst.block, fee, tst.committed)
				if status != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould get back %s, got %s.", failed, testID, tst.status, status)
				}
				t.Logf("\t%s\tTest %d:\tShould get back %s.", success, testID, tst.status)

				if delta != nil {
					t.Fatalf("\t%s\tTest %d:\tShould not return any balances.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould not return any balances.", success, testID)
			}
		}
	}
}

func Test_Status(t *testing.T) {
	t.Log("Given the need to name statuses.")
	{
		t.Logf("\tTest 0:\tWhen converting statuses to strings.")
		{
			for s := executor.Success; s <= executor.BalanceTooLow; s++ {
				got, err := executor.ParseStatus(s.String())
				if err != nil || got != s {
					t.Fatalf("\t%s\tTest 0:\tShould round trip %s: %v", failed, s, err)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould round trip every status.", success)

			if executor.Success.Err() != nil {
				t.Fatalf("\t%s\tTest 0:\tShould not produce an error for success.", failed)
			}
			if executor.InvalidNonce.Err().Error() != "block rejected: INVALID_NONCE" {
				t.Fatalf("\t%s\tTest 0:\tShould produce an error for a rejection.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould produce errors only for rejections.", success)
		}
	}
}
