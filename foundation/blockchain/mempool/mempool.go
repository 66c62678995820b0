// Package mempool maintains the pending transactions a miner selects from
// when building the next block.
package mempool

import (
	"errors"
	"sync"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// ErrFeeTransaction is returned when a fee transaction is added to the pool.
var ErrFeeTransaction = errors.New("fee transactions can't be pooled")

// Mempool represents a cache of transactions keyed by their identity hash.
type Mempool struct {
	pool     map[signature.Hash]database.Transaction
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() *Mempool {
	mp, _ := NewWithStrategy(selector.StrategyFee)
	return mp
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[signature.Hash]database.Transaction),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool. Fee transactions are
// never pooled since they only exist inside a block.
func (mp *Mempool) Upsert(tx database.Transaction) (int, error) {
	if tx.IsFee() {
		return 0, ErrFeeTransaction
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[tx.Hash()] = tx

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Transaction) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.Hash())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[signature.Hash]database.Transaction)
}

// Copy returns a list of the current transactions in the pool.
func (mp *Mempool) Copy() []database.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Transaction, 0, len(mp.pool))
	for _, tx := range mp.pool {
		cpy = append(cpy, tx)
	}

	return cpy
}

// PickBest uses the configured select strategy to return the next set of
// transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.Transaction {

	// Group the transactions by sender.
	m := make(map[database.Address][]database.Transaction)
	mp.mu.RLock()
	{
		for _, tx := range mp.pool {
			sender, err := tx.Sender()
			if err != nil {
				continue
			}
			m[sender] = append(m[sender], tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}
