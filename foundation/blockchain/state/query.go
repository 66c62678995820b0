package state

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
)

// Height returns the number of blocks in the chain.
func (s *State) Height() (uint64, error) {
	return s.storage.NumBlocks()
}

// Difficulty returns the difficulty the next block must carry.
func (s *State) Difficulty() (uint32, error) {
	return s.currentDifficulty(s.storage)
}

// LastHash returns the hash of the tip.
func (s *State) LastHash() (signature.Hash, error) {
	return s.storage.LastHash()
}

// TotalWork returns the accumulated work of the chain.
func (s *State) TotalWork() (*big.Int, error) {
	return s.storage.TotalWork()
}

// Supply returns the number of coins in circulation.
func (s *State) Supply() (float64, error) {
	height, err := s.storage.NumBlocks()
	if err != nil {
		return 0, err
	}

	return SupplyAt(height), nil
}

// Block returns the block with the specified id.
func (s *State) Block(id uint64) (database.Block, error) {
	return s.storage.GetBlock(id)
}

// LatestBlock returns the tip of the chain.
func (s *State) LatestBlock() (database.Block, error) {
	height, err := s.storage.NumBlocks()
	if err != nil {
		return database.Block{}, err
	}

	return s.storage.GetBlock(height)
}

// Balance returns the balance of the address. Addresses that never received
// anything return storage.ErrNotFound.
func (s *State) Balance(addr database.Address) (uint64, error) {
	bals, err := s.storage.Wallets([]database.Address{addr})
	if err != nil {
		return 0, err
	}

	balance, exists := bals[addr]
	if !exists {
		return 0, fmt.Errorf("wallet %s: %w", addr, storage.ErrNotFound)
	}

	return balance, nil
}

// Balances returns the balances of the addresses that exist.
func (s *State) Balances(addrs []database.Address) (database.Balances, error) {
	return s.storage.Wallets(addrs)
}

// WalletTransactions returns the committed transactions sent to or from the
// address.
func (s *State) WalletTransactions(addr database.Address) ([]database.Transaction, error) {
	ids, err := s.storage.WalletTransactions(addr)
	if err != nil {
		return nil, err
	}

	trans := make([]database.Transaction, 0, len(ids))
	for _, id := range ids {
		tx, _, err := s.FindTransaction(id)
		if err != nil {
			return nil, err
		}
		trans = append(trans, tx)
	}

	return trans, nil
}

// FindTransaction returns the committed transaction with the specified
// identity hash along with the id of the block that holds it.
func (s *State) FindTransaction(txID signature.Hash) (database.Transaction, uint64, error) {
	blockID, found, err := s.storage.FindBlockForTransaction(txID)
	if err != nil {
		return database.Transaction{}, 0, err
	}
	if !found {
		return database.Transaction{}, 0, fmt.Errorf("tx %s: %w", txID, storage.ErrNotFound)
	}

	block, err := s.storage.GetBlock(blockID)
	if err != nil {
		return database.Transaction{}, 0, err
	}

	for _, tx := range block.Trans {
		if tx.Hash() == txID {
			return tx, blockID, nil
		}
	}

	return database.Transaction{}, 0, fmt.Errorf("tx %s: block %d: %w", txID, blockID, storage.ErrNotFound)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// Mempool returns a copy of the pending transactions.
func (s *State) Mempool() []database.Transaction {
	return s.mempool.Copy()
}
