package state

import (
	"fmt"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/executor"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
)

// genesisID is the id of the first block in the chain.
const genesisID = 1

// AddBlock takes a block received from outside this node, validates it and
// if that passes, writes the block to storage. Any mining in progress is
// cancelled since it is working on a stale tip. A non-success status is a
// consensus rejection. The error is only set when storage fails.
func (s *State) AddBlock(block database.Block) (executor.Status, error) {
	s.evHandler("state: AddBlock: started: block[%s]", block)
	defer s.evHandler("state: AddBlock: completed")

	s.Worker.SignalCancelMining()
	defer s.Worker.SignalStartMining()

	return s.commit(block)
}

// PopBlock removes the tip of the chain and reverses its effects on the
// balances, the transaction index and the difficulty.
func (s *State) PopBlock() error {
	s.evHandler("state: PopBlock: started")
	defer s.evHandler("state: PopBlock: completed")

	s.Worker.SignalCancelMining()
	defer s.Worker.SignalStartMining()

	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := s.storage.NumBlocks()
	if err != nil {
		return err
	}

	switch height {
	case 0:
		return ErrNothingToPop
	case genesisID:
		return ErrCannotPopGenesis
	}

	var popped database.Block
	err = s.storage.Update(func(w storage.Writer) error {
		var err error
		if popped, err = w.PopBlock(); err != nil {
			return err
		}

		if err := s.revertBalances(w, popped); err != nil {
			return err
		}

		work, err := w.TotalWork()
		if err != nil {
			return err
		}
		if err := w.SetTotalWork(signature.RemoveWork(work, popped.Header.Difficulty)); err != nil {
			return err
		}

		// The difficulty only changes at the end of an epoch so the new tip
		// carries the difficulty that was in effect, unless it closed one.
		tip, err := w.GetBlock(height - 1)
		if err != nil {
			return err
		}
		if err := w.SetDifficulty(tip.Header.Difficulty); err != nil {
			return err
		}

		return s.updateDifficulty(w)
	})
	if err != nil {
		return fmt.Errorf("popping block %d: %w", height, err)
	}

	// Give the transactions another chance to be mined.
	for _, tx := range popped.Trans {
		if !tx.IsFee() {
			s.mempool.Upsert(tx)
		}
	}

	s.evHandler("state: PopBlock: removed block[%s]", popped)

	return nil
}

// =============================================================================

// commit validates the block against the tip and stores it when it passes.
// The checks run in a fixed order and the first failure is returned.
func (s *State) commit(block database.Block) (executor.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := block.Header.ID

	if len(block.Trans) > s.params.MaxTransactionsPerBlock {
		return executor.InvalidTransactionCount, nil
	}

	height, err := s.storage.NumBlocks()
	if err != nil {
		return executor.Success, err
	}

	if id != height+1 {
		return executor.InvalidBlockID, nil
	}

	difficulty, err := s.currentDifficulty(s.storage)
	if err != nil {
		return executor.Success, err
	}

	if block.Header.Difficulty != difficulty {
		if !s.params.difficultyAllowed(id, block.Header.Difficulty) {
			return executor.InvalidDifficulty, nil
		}
		s.evHandler("state: commit: skipping difficulty verification on known invalid difficulty: block[%d]: difficulty[%d]", id, block.Header.Difficulty)
	}

	if !block.VerifyNonce() {
		return executor.InvalidNonce, nil
	}

	lastHash, err := s.storage.LastHash()
	if err != nil {
		return executor.Success, err
	}

	if block.Header.LastBlockHash != lastHash {
		return executor.InvalidLastBlockHash, nil
	}

	if id != genesisID {
		if block.Header.Timestamp > s.networkTime()+s.params.MaxFutureDrift {
			return executor.BlockTimestampInFuture, nil
		}

		tooOld, err := s.timestampTooOld(height, block.Header.Timestamp)
		if err != nil {
			return executor.Success, err
		}
		if tooOld {
			return executor.BlockTimestampTooOld, nil
		}
	}

	if block.Header.MerkleRoot != block.ComputeMerkleRoot() {
		return executor.InvalidMerkleRoot, nil
	}

	snapshot, committed, err := s.prefetch(block)
	if err != nil {
		return executor.Success, err
	}

	delta, status := executor.Execute(snapshot, block, MiningFee(id), committed)
	if status != executor.Success {
		s.evHandler("state: commit: block[%s]: rejected: %s", block, status)
		return status, nil
	}

	err = s.storage.Update(func(w storage.Writer) error {
		if err := w.AddBlock(block); err != nil {
			return err
		}

		for addr, balance := range delta {
			if err := w.UpdateWallet(addr, balance); err != nil {
				return err
			}
		}

		for _, tx := range block.Trans {
			for _, addr := range parties(tx) {
				if err := w.AddWalletTransaction(addr, tx.Hash()); err != nil {
					return err
				}
			}
		}

		work, err := w.TotalWork()
		if err != nil {
			return err
		}
		if err := w.SetTotalWork(signature.AddWork(work, block.Header.Difficulty)); err != nil {
			return err
		}

		if height == 0 {
			if err := w.SetDifficulty(difficulty); err != nil {
				return err
			}
		}

		return s.updateDifficulty(w)
	})
	if err != nil {
		return executor.Success, fmt.Errorf("storing block %d: %w", id, err)
	}

	for _, tx := range block.Trans {
		s.mempool.Delete(tx)
	}

	s.evHandler("state: commit: added block[%s]: difficulty[%d]: trans[%d]", block, block.Header.Difficulty, len(block.Trans))

	return executor.Success, nil
}

// prefetch reads the balances of every address the block touches and the
// transactions of the block that storage already holds.
func (s *State) prefetch(block database.Block) (database.Balances, map[signature.Hash]bool, error) {
	seen := make(map[database.Address]bool)
	var addrs []database.Address

	committed := make(map[signature.Hash]bool)

	for _, tx := range block.Trans {
		for _, addr := range parties(tx) {
			if !seen[addr] {
				seen[addr] = true
				addrs = append(addrs, addr)
			}
		}

		if tx.IsFee() {
			continue
		}

		id := tx.Hash()
		_, found, err := s.storage.FindBlockForTransaction(id)
		if err != nil {
			return nil, nil, fmt.Errorf("finding tx %s: %w", id, err)
		}
		if found {
			committed[id] = true
		}
	}

	snapshot, err := s.storage.Wallets(addrs)
	if err != nil {
		return nil, nil, fmt.Errorf("reading wallets: %w", err)
	}

	return snapshot, committed, nil
}

// revertBalances applies the inverse of the block effects. Wallets that end
// up empty with no transactions left are removed. It must run after the
// block is popped so transaction ids still held by an earlier block are
// left in place.
func (s *State) revertBalances(w storage.Writer, block database.Block) error {
	for _, tx := range block.Trans {
		txID := tx.Hash()

		_, indexed, err := w.FindBlockForTransaction(txID)
		if err != nil {
			return err
		}
		if indexed {
			continue
		}

		for _, addr := range parties(tx) {
			if err := w.RemoveWalletTransaction(addr, txID); err != nil {
				return err
			}
		}
	}

	deltas := executor.Deltas(block)

	addrs := make([]database.Address, 0, len(deltas))
	for addr := range deltas {
		addrs = append(addrs, addr)
	}

	bals, err := w.Wallets(addrs)
	if err != nil {
		return err
	}

	for addr, delta := range deltas {
		balance := delta.Revert(bals[addr])

		if balance == 0 {
			ids, err := w.WalletTransactions(addr)
			if err != nil {
				return err
			}

			if len(ids) == 0 {
				if err := w.RemoveWallet(addr); err != nil {
					return err
				}
				continue
			}
		}

		if err := w.UpdateWallet(addr, balance); err != nil {
			return err
		}
	}

	return nil
}

// parties returns the addresses the transaction is recorded under.
func parties(tx database.Transaction) []database.Address {
	sender, err := tx.Sender()
	if err != nil || sender == tx.To {
		return []database.Address{tx.To}
	}

	return []database.Address{tx.To, sender}
}
