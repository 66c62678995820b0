package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/executor"
	"github.com/ardanlabs/pandanite/foundation/blockchain/pow"
)

// Set of errors returned when submitting transactions.
var (
	ErrInvalidSignature = errors.New("transaction signature is invalid")
	ErrFeeTransaction   = errors.New("fee transactions can't be submitted")
)

// =============================================================================

// MineNewBlock attempts to create a new block with a proper nonce that can
// become the next block in the chain. The search can be cancelled through
// the context.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: prepare block")

	tip, err := s.LatestBlock()
	if err != nil {
		return database.Block{}, err
	}

	difficulty, err := s.currentDifficulty(s.storage)
	if err != nil {
		return database.Block{}, err
	}

	id := tip.Header.ID + 1

	timestamp := max(s.networkTime(), tip.Header.Timestamp)

	trans, err := s.pickTransactions(id)
	if err != nil {
		return database.Block{}, err
	}

	fee := database.NewFeeTransaction(s.minerAddress, MiningFee(id), timestamp)
	block := database.NewBlock(id, timestamp, difficulty, tip.Hash(), append([]database.Transaction{fee}, trans...))

	s.evHandler("state: MineNewBlock: MINING: perform POW: block[%d]: trans[%d]: difficulty[%d]", id, len(block.Trans), difficulty)

	// Attempt to solve the POW puzzle. This can be cancelled.
	nonce, err := pow.Mine(ctx, block.Hash(), difficulty, pow.EventHandler(s.evHandler))
	if err != nil {
		return database.Block{}, err
	}
	block.Header.Nonce = nonce

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	status, err := s.commit(block)
	if err != nil {
		return database.Block{}, err
	}
	if err := status.Err(); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// SubmitTransaction places a signed transaction in the mempool so it can be
// mined into a future block.
func (s *State) SubmitTransaction(tx database.Transaction) error {
	if tx.IsFee() {
		return ErrFeeTransaction
	}

	if !tx.SignatureValid() {
		return ErrInvalidSignature
	}

	n, err := s.mempool.Upsert(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: mempool[%d]", tx.Hash(), n)

	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// pickTransactions selects the best pending transactions that can execute on
// top of the tip. Transactions that are already committed are dropped from
// the mempool, the others that can't execute are left for a later block.
func (s *State) pickTransactions(id uint64) ([]database.Transaction, error) {
	candidates := s.mempool.PickBest(s.params.MaxTransactionsPerBlock - 1)
	if len(candidates) == 0 {
		return nil, nil
	}

	var addrs []database.Address
	for _, tx := range candidates {
		addrs = append(addrs, parties(tx)...)
	}
	addrs = append(addrs, s.minerAddress)

	working, err := s.storage.Wallets(addrs)
	if err != nil {
		return nil, fmt.Errorf("reading wallets: %w", err)
	}

	var trans []database.Transaction
	for _, tx := range candidates {
		_, found, err := s.storage.FindBlockForTransaction(tx.Hash())
		if err != nil {
			return nil, err
		}
		if found {
			s.mempool.Delete(tx)
			continue
		}

		// Run the transaction on its own against the balances so far. The
		// zero fee transaction keeps the executor from crediting a reward.
		trial := database.Block{
			Header: database.BlockHeader{ID: id},
			Trans:  []database.Transaction{database.NewFeeTransaction(s.minerAddress, 0, 0), tx},
		}

		delta, status := executor.Execute(working, trial, 0, nil)
		if status != executor.Success {
			s.evHandler("state: pickTransactions: tx[%s]: skipped: %s", tx.Hash(), status)
			continue
		}

		working.Merge(delta)
		trans = append(trans, tx)
	}

	return trans, nil
}
