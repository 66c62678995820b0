// Package memory implements the ability to persist the blockchain in memory.
// Sessions work on a copy of the data which replaces the current data only
// when the session succeeds.
package memory

import (
	"bytes"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"sync"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
)

// Memory represents the in memory implementation of storage.Storage.
type Memory struct {
	mu   sync.RWMutex
	data *data
}

// New constructs an empty Memory value for use.
func New() *Memory {
	return &Memory{data: newData()}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Update runs the function against a copy of the data. The copy replaces the
// data only if the function succeeds.
func (m *Memory) Update(fn func(w storage.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := m.data.clone()
	if err := fn(cp); err != nil {
		return err
	}

	m.data = cp

	return nil
}

// NumBlocks returns the number of blocks in the chain.
func (m *Memory) NumBlocks() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.NumBlocks()
}

// GetBlock returns the block with the specified id.
func (m *Memory) GetBlock(id uint64) (database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.GetBlock(id)
}

// LastHash returns the hash of the tip.
func (m *Memory) LastHash() (signature.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.LastHash()
}

// Difficulty returns the persisted difficulty.
func (m *Memory) Difficulty() (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.Difficulty()
}

// TotalWork returns the accumulated chain work.
func (m *Memory) TotalWork() (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.TotalWork()
}

// Wallets returns the balances of the addresses that exist.
func (m *Memory) Wallets(addrs []database.Address) (database.Balances, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.Wallets(addrs)
}

// FindBlockForTransaction returns the id of the block holding the transaction.
func (m *Memory) FindBlockForTransaction(txID signature.Hash) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.FindBlockForTransaction(txID)
}

// WalletTransactions returns the transactions recorded for the address.
func (m *Memory) WalletTransactions(addr database.Address) ([]signature.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data.WalletTransactions(addr)
}

// =============================================================================

// data holds the chain state and implements storage.Writer. It performs no
// locking of its own.
type data struct {
	blocks     []database.Block
	txIndex    map[signature.Hash]uint64
	wallets    database.Balances
	walletTxs  map[database.Address]map[signature.Hash]bool
	difficulty uint32
	totalWork  *big.Int
}

func newData() *data {
	return &data{
		txIndex:   make(map[signature.Hash]uint64),
		wallets:   make(database.Balances),
		walletTxs: make(map[database.Address]map[signature.Hash]bool),
		totalWork: new(big.Int),
	}
}

// clone copies the containers. Blocks are values that are never modified
// once stored so they are shared.
func (d *data) clone() *data {
	walletTxs := make(map[database.Address]map[signature.Hash]bool, len(d.walletTxs))
	for addr, ids := range d.walletTxs {
		walletTxs[addr] = maps.Clone(ids)
	}

	return &data{
		blocks:     slices.Clone(d.blocks),
		txIndex:    maps.Clone(d.txIndex),
		wallets:    d.wallets.Copy(),
		walletTxs:  walletTxs,
		difficulty: d.difficulty,
		totalWork:  new(big.Int).Set(d.totalWork),
	}
}

func (d *data) NumBlocks() (uint64, error) {
	return uint64(len(d.blocks)), nil
}

func (d *data) GetBlock(id uint64) (database.Block, error) {
	if id == 0 || id > uint64(len(d.blocks)) {
		return database.Block{}, fmt.Errorf("block %d: %w", id, storage.ErrNotFound)
	}

	return d.blocks[id-1], nil
}

func (d *data) LastHash() (signature.Hash, error) {
	if len(d.blocks) == 0 {
		return signature.ZeroHash, nil
	}

	return d.blocks[len(d.blocks)-1].Hash(), nil
}

func (d *data) Difficulty() (uint32, error) {
	return d.difficulty, nil
}

func (d *data) TotalWork() (*big.Int, error) {
	return new(big.Int).Set(d.totalWork), nil
}

func (d *data) Wallets(addrs []database.Address) (database.Balances, error) {
	bals := make(database.Balances, len(addrs))
	for _, addr := range addrs {
		if balance, exists := d.wallets[addr]; exists {
			bals[addr] = balance
		}
	}

	return bals, nil
}

func (d *data) FindBlockForTransaction(txID signature.Hash) (uint64, bool, error) {
	id, exists := d.txIndex[txID]
	return id, exists, nil
}

// WalletTransactions returns the ids ordered by their bytes, the same order
// the persistent stores keep them in.
func (d *data) WalletTransactions(addr database.Address) ([]signature.Hash, error) {
	ids := slices.Collect(maps.Keys(d.walletTxs[addr]))
	slices.SortFunc(ids, func(a, b signature.Hash) int {
		return bytes.Compare(a[:], b[:])
	})

	return ids, nil
}

func (d *data) SetDifficulty(difficulty uint32) error {
	d.difficulty = difficulty
	return nil
}

func (d *data) SetTotalWork(work *big.Int) error {
	d.totalWork = new(big.Int).Set(work)
	return nil
}

func (d *data) UpdateWallet(addr database.Address, balance uint64) error {
	d.wallets[addr] = balance
	return nil
}

func (d *data) RemoveWallet(addr database.Address) error {
	delete(d.wallets, addr)
	return nil
}

func (d *data) AddWalletTransaction(addr database.Address, txID signature.Hash) error {
	ids, exists := d.walletTxs[addr]
	if !exists {
		ids = make(map[signature.Hash]bool)
		d.walletTxs[addr] = ids
	}
	ids[txID] = true

	return nil
}

func (d *data) RemoveWalletTransaction(addr database.Address, txID signature.Hash) error {
	ids := d.walletTxs[addr]

	delete(ids, txID)
	if len(ids) == 0 {
		delete(d.walletTxs, addr)
	}

	return nil
}

func (d *data) AddBlock(block database.Block) error {
	if exp := uint64(len(d.blocks)) + 1; block.Header.ID != exp {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Header.ID, exp)
	}

	// A transaction identical to one in an earlier block stays indexed to
	// the earlier block.
	d.blocks = append(d.blocks, block)
	for _, tx := range block.Trans {
		if _, exists := d.txIndex[tx.Hash()]; !exists {
			d.txIndex[tx.Hash()] = block.Header.ID
		}
	}

	return nil
}

func (d *data) PopBlock() (database.Block, error) {
	if len(d.blocks) == 0 {
		return database.Block{}, fmt.Errorf("pop block: %w", storage.ErrNotFound)
	}

	block := d.blocks[len(d.blocks)-1]
	d.blocks = d.blocks[:len(d.blocks)-1]

	for _, tx := range block.Trans {
		if d.txIndex[tx.Hash()] == block.Header.ID {
			delete(d.txIndex, tx.Hash())
		}
	}

	return block, nil
}
