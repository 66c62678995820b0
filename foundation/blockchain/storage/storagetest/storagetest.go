// Package storagetest provides the tests every storage implementation must
// pass.
package storagetest

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Run executes the storage contract tests against the store returned by
// the constructor. The constructor is called once per test.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("empty", func(t *testing.T) { empty(t, newStore(t)) })
	t.Run("blocks", func(t *testing.T) { blocks(t, newStore(t)) })
	t.Run("wallets", func(t *testing.T) { wallets(t, newStore(t)) })
	t.Run("rollback", func(t *testing.T) { rollback(t, newStore(t)) })
	t.Run("duplicates", func(t *testing.T) { duplicates(t, newStore(t)) })
}

// =============================================================================

var (
	addrA = database.Address{1}
	addrB = database.Address{2}
)

func chain(n int) []database.Block {
	var blocks []database.Block

	lastHash := signature.ZeroHash
	for i := 1; i <= n; i++ {
		fee := database.NewFeeTransaction(addrA, uint64(i), uint64(1700000000+i))
		block := database.NewBlock(uint64(i), uint64(1700000000+i), 16, lastHash, []database.Transaction{fee})
		blocks = append(blocks, block)
		lastHash = block.Hash()
	}

	return blocks
}

func empty(t *testing.T, store storage.Storage) {
	defer store.Close()

	t.Log("Given the need to read an empty store.")
	{
		t.Logf("\tTest 0:\tWhen nothing has been written.")
		{
			n, err := store.NumBlocks()
			if err != nil || n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have no blocks, got %d: %v", failed, n, err)
			}
			t.Logf("\t%s\tTest 0:\tShould have no blocks.", success)

			hash, err := store.LastHash()
			if err != nil || !hash.IsZero() {
				t.Fatalf("\t%s\tTest 0:\tShould have the zero hash as tip, got %s: %v", failed, hash, err)
			}
			t.Logf("\t%s\tTest 0:\tShould have the zero hash as tip.", success)

			work, err := store.TotalWork()
			if err != nil || work.Sign() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have no work, got %s: %v", failed, work, err)
			}
			t.Logf("\t%s\tTest 0:\tShould have no work.", success)

			if _, err := store.GetBlock(1); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould not find block 1, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not find block 1.", success)

			err = store.Update(func(w storage.Writer) error {
				_, err := w.PopBlock()
				return err
			})
			if !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould not be able to pop, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not be able to pop.", success)
		}
	}
}

func blocks(t *testing.T, store storage.Storage) {
	defer store.Close()

	blocks := chain(3)

	t.Log("Given the need to store blocks.")
	{
		t.Logf("\tTest 0:\tWhen adding three blocks.")
		{
			err := store.Update(func(w storage.Writer) error {
				for _, block := range blocks {
					if err := w.AddBlock(block); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the blocks: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to add the blocks.", success)

			n, _ := store.NumBlocks()
			hash, _ := store.LastHash()
			if n != 3 || hash != blocks[2].Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould have block 3 as tip, got %d %s.", failed, n, hash)
			}
			t.Logf("\t%s\tTest 0:\tShould have block 3 as tip.", success)

			var count int
			iter := storage.ForEach(store)
			for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to iterate: %s", failed, err)
				}
				if !block.Equal(blocks[count]) {
					t.Fatalf("\t%s\tTest 0:\tShould read back block %d.", failed, count+1)
				}
				count++
			}
			if count != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould iterate three blocks, got %d.", failed, count)
			}
			t.Logf("\t%s\tTest 0:\tShould read back every block in order.", success)

			id, found, err := store.FindBlockForTransaction(blocks[1].Trans[0].Hash())
			if err != nil || !found || id != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould index the transactions, got %d %v: %v", failed, id, found, err)
			}
			t.Logf("\t%s\tTest 0:\tShould index the transactions.", success)
		}

		t.Logf("\tTest 1:\tWhen adding a block out of order.")
		{
			dup := blocks[1]
			err := store.Update(func(w storage.Writer) error {
				return w.AddBlock(dup)
			})
			if err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject the block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the block.", success)
		}

		t.Logf("\tTest 2:\tWhen popping the tip.")
		{
			var popped database.Block
			err := store.Update(func(w storage.Writer) error {
				var err error
				popped, err = w.PopBlock()
				return err
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to pop: %s", failed, err)
			}
			if !popped.Equal(blocks[2]) {
				t.Fatalf("\t%s\tTest 2:\tShould return the removed block.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould return the removed block.", success)

			n, _ := store.NumBlocks()
			hash, _ := store.LastHash()
			if n != 2 || hash != blocks[1].Hash() {
				t.Fatalf("\t%s\tTest 2:\tShould have block 2 as tip, got %d %s.", failed, n, hash)
			}
			t.Logf("\t%s\tTest 2:\tShould have block 2 as tip.", success)

			if _, found, _ := store.FindBlockForTransaction(blocks[2].Trans[0].Hash()); found {
				t.Fatalf("\t%s\tTest 2:\tShould remove the transaction index.", failed)
			}
			if _, err := store.GetBlock(3); !errors.Is(err, storage.ErrNotFound) {
				t.Fatalf("\t%s\tTest 2:\tShould not find block 3, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould remove the block and its index.", success)
		}
	}
}

func wallets(t *testing.T, store storage.Storage) {
	defer store.Close()

	txA := signature.SHA256([]byte("a"))
	txB := signature.SHA256([]byte("b"))

	t.Log("Given the need to store wallets.")
	{
		t.Logf("\tTest 0:\tWhen writing balances and metadata.")
		{
			err := store.Update(func(w storage.Writer) error {
				if err := w.UpdateWallet(addrA, 500); err != nil {
					return err
				}
				if err := w.AddWalletTransaction(addrA, txA); err != nil {
					return err
				}
				if err := w.AddWalletTransaction(addrA, txB); err != nil {
					return err
				}
				if err := w.SetDifficulty(21); err != nil {
					return err
				}
				return w.SetTotalWork(big.NewInt(1 << 40))
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to write: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to write.", success)

			bals, err := store.Wallets([]database.Address{addrA, addrB})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to read the wallets: %s", failed, err)
			}
			if len(bals) != 1 || bals[addrA] != 500 {
				t.Fatalf("\t%s\tTest 0:\tShould only return existing wallets: %v", failed, bals)
			}
			t.Logf("\t%s\tTest 0:\tShould only return existing wallets.", success)

			ids, _ := store.WalletTransactions(addrA)
			if len(ids) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould record two wallet transactions, got %d.", failed, len(ids))
			}
			t.Logf("\t%s\tTest 0:\tShould record the wallet transactions.", success)

			difficulty, _ := store.Difficulty()
			work, _ := store.TotalWork()
			if difficulty != 21 || work.Cmp(big.NewInt(1<<40)) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould store the metadata, got %d %s.", failed, difficulty, work)
			}
			t.Logf("\t%s\tTest 0:\tShould store the metadata.", success)
		}

		t.Logf("\tTest 1:\tWhen removing the wallet.")
		{
			err := store.Update(func(w storage.Writer) error {
				if err := w.RemoveWalletTransaction(addrA, txA); err != nil {
					return err
				}
				if err := w.RemoveWalletTransaction(addrA, txB); err != nil {
					return err
				}
				return w.RemoveWallet(addrA)
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to remove: %s", failed, err)
			}

			bals, _ := store.Wallets([]database.Address{addrA})
			ids, _ := store.WalletTransactions(addrA)
			if len(bals) != 0 || len(ids) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould remove the wallet and its transactions: %v %v", failed, bals, ids)
			}
			t.Logf("\t%s\tTest 1:\tShould remove the wallet and its transactions.", success)
		}
	}
}

func rollback(t *testing.T, store storage.Storage) {
	defer store.Close()

	blocks := chain(2)
	errAbort := errors.New("abort")

	t.Log("Given the need for atomic sessions.")
	{
		t.Logf("\tTest 0:\tWhen a session fails after writing.")
		{
			err := store.Update(func(w storage.Writer) error {
				return w.AddBlock(blocks[0])
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add block 1: %s", failed, err)
			}

			err = store.Update(func(w storage.Writer) error {
				if err := w.AddBlock(blocks[1]); err != nil {
					return err
				}
				if err := w.UpdateWallet(addrB, 99); err != nil {
					return err
				}
				if err := w.SetDifficulty(30); err != nil {
					return err
				}

				// Writes are visible inside the session.
				if n, _ := w.NumBlocks(); n != 2 {
					t.Errorf("\t%s\tTest 0:\tShould see its own writes, got %d blocks.", failed, n)
				}

				return errAbort
			})
			if !errors.Is(err, errAbort) {
				t.Fatalf("\t%s\tTest 0:\tShould return the session error, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould return the session error.", success)

			n, _ := store.NumBlocks()
			hash, _ := store.LastHash()
			bals, _ := store.Wallets([]database.Address{addrB})
			difficulty, _ := store.Difficulty()
			if n != 1 || hash != blocks[0].Hash() || len(bals) != 0 || difficulty != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould discard every write, got %d %s %v %d.", failed, n, hash, bals, difficulty)
			}
			t.Logf("\t%s\tTest 0:\tShould discard every write.", success)

			if _, found, _ := store.FindBlockForTransaction(blocks[1].Trans[0].Hash()); found {
				t.Fatalf("\t%s\tTest 0:\tShould discard the transaction index.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould discard the transaction index.", success)
		}
	}
}

func duplicates(t *testing.T, store storage.Storage) {
	defer store.Close()

	// Blocks 2 and 3 carry the same fee transaction, so both share one id.
	fee := database.NewFeeTransaction(addrA, 7, 1700000002)
	first := database.NewBlock(1, 1700000001, 16, signature.ZeroHash, []database.Transaction{database.NewFeeTransaction(addrA, 1, 1700000001)})
	second := database.NewBlock(2, 1700000002, 16, first.Hash(), []database.Transaction{fee})
	third := database.NewBlock(3, 1700000002, 16, second.Hash(), []database.Transaction{fee})
	txID := fee.Hash()

	t.Log("Given the need to index the same transaction in two blocks.")
	{
		t.Logf("\tTest 0:\tWhen adding both blocks.")
		{
			err := store.Update(func(w storage.Writer) error {
				for _, block := range []database.Block{first, second, third} {
					if err := w.AddBlock(block); err != nil {
						return err
					}
					for _, tx := range block.Trans {
						if err := w.AddWalletTransaction(tx.To, tx.Hash()); err != nil {
							return err
						}
					}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add the blocks: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to add the blocks.", success)

			id, found, err := store.FindBlockForTransaction(txID)
			if err != nil || !found || id != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould index the transaction to block 2, got %d %v: %v", failed, id, found, err)
			}
			t.Logf("\t%s\tTest 0:\tShould index the transaction to block 2.", success)

			ids, _ := store.WalletTransactions(addrA)
			if len(ids) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould record each wallet transaction once, got %d.", failed, len(ids))
			}
			t.Logf("\t%s\tTest 0:\tShould record each wallet transaction once.", success)
		}

		t.Logf("\tTest 1:\tWhen popping block 3.")
		{
			err := store.Update(func(w storage.Writer) error {
				_, err := w.PopBlock()
				return err
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to pop: %s", failed, err)
			}

			id, found, err := store.FindBlockForTransaction(txID)
			if err != nil || !found || id != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould keep the transaction indexed to block 2, got %d %v: %v", failed, id, found, err)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the transaction indexed to block 2.", success)
		}

		t.Logf("\tTest 2:\tWhen popping block 2.")
		{
			err := store.Update(func(w storage.Writer) error {
				_, err := w.PopBlock()
				return err
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to pop: %s", failed, err)
			}

			if _, found, _ := store.FindBlockForTransaction(txID); found {
				t.Fatalf("\t%s\tTest 2:\tShould remove the transaction index.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould remove the transaction index.", success)
		}
	}
}
