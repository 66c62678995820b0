// Package storage defines the contract the chain manager uses to persist the
// blockchain. Implementations live in the sub packages.
package storage

import (
	"errors"
	"math/big"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// ErrNotFound is returned when a requested value does not exist.
var ErrNotFound = errors.New("not found")

// Reader represents the behavior required to read the persisted chain.
type Reader interface {

	// NumBlocks returns the number of blocks in the chain.
	NumBlocks() (uint64, error)

	// GetBlock returns the block with the specified id. Ids outside of the
	// range [1, NumBlocks] return ErrNotFound.
	GetBlock(id uint64) (database.Block, error)

	// LastHash returns the hash of the tip, the zero hash when empty.
	LastHash() (signature.Hash, error)

	// Difficulty returns the persisted difficulty, zero when never set.
	Difficulty() (uint32, error)

	// TotalWork returns the accumulated chain work.
	TotalWork() (*big.Int, error)

	// Wallets returns the balances of the addresses that exist. Addresses
	// that don't exist are left out of the result.
	Wallets(addrs []database.Address) (database.Balances, error)

	// FindBlockForTransaction returns the id of the block that holds the
	// transaction with the specified identity hash.
	FindBlockForTransaction(txID signature.Hash) (uint64, bool, error)

	// WalletTransactions returns the identity hashes of the transactions
	// that sent to or from the address.
	WalletTransactions(addr database.Address) ([]signature.Hash, error)
}

// Writer represents the behavior required to change the persisted chain.
// Writes are only visible once the session they belong to commits.
type Writer interface {
	Reader

	SetDifficulty(difficulty uint32) error
	SetTotalWork(work *big.Int) error
	UpdateWallet(addr database.Address, balance uint64) error
	RemoveWallet(addr database.Address) error
	AddWalletTransaction(addr database.Address, txID signature.Hash) error
	RemoveWalletTransaction(addr database.Address, txID signature.Hash) error

	// AddBlock stores the block as the new tip and indexes its
	// transactions. The block id must be NumBlocks()+1. A transaction
	// already indexed keeps the block it was first indexed to.
	AddBlock(block database.Block) error

	// PopBlock removes the tip along with the index entries that point at
	// it and returns the removed block.
	PopBlock() (database.Block, error)
}

// Storage represents the behavior required to be implemented by any package
// providing support for persisting the blockchain.
type Storage interface {
	Reader

	// Update runs the function inside an atomic session. If the function
	// returns an error none of its writes are applied.
	Update(fn func(w Writer) error) error

	Close() error
}

// =============================================================================

// Iterator walks through the blocks of the chain starting with block 1.
type Iterator struct {
	reader  Reader
	current uint64
	eoc     bool
}

// ForEach returns an iterator to walk through all the blocks.
func ForEach(r Reader) *Iterator {
	return &Iterator{reader: r, current: 1}
}

// Next retrieves the next block. Once the end of the chain is reached Done
// reports true and ErrNotFound is returned.
func (it *Iterator) Next() (database.Block, error) {
	if it.eoc {
		return database.Block{}, ErrNotFound
	}

	block, err := it.reader.GetBlock(it.current)
	if err != nil {
		it.eoc = true
		return database.Block{}, err
	}

	it.current++

	return block, nil
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.eoc
}
