// Package executor applies the transactions of a block to a snapshot of the
// ledger. It is a pure function of its inputs: it performs no I/O and never
// modifies the snapshot it is given.
package executor

import (
	"math/bits"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// genesisID is the id of the block that seeds the initial balances.
const genesisID = 1

// Execute validates the transactions of the block against the snapshot and
// returns the balances that changed. The snapshot must hold the balance of
// every address the block touches that exists in the ledger. The committed
// set holds the identity hashes of the block transactions that already
// belong to a committed block. On any status other than Success the returned
// balances are nil.
func Execute(snapshot database.Balances, block database.Block, miningFee uint64, committed map[signature.Hash]bool) (database.Balances, Status) {

	// Find the mining fee transaction and reject transactions that are
	// repeated within the block or that have been committed before.
	var miner database.Address
	var minerFound bool
	var minerAmount uint64

	seen := make(map[signature.Hash]bool, len(block.Trans))
	for _, tx := range block.Trans {
		id := tx.Hash()

		switch {
		case tx.IsFee():
			if minerFound {
				return nil, ExtraMiningFee
			}
			miner = tx.To
			minerAmount = tx.Amount
			minerFound = true

		case seen[id] || committed[id]:
			return nil, ExpiredTransaction
		}

		seen[id] = true
	}

	if !minerFound {
		return nil, NoMiningFee
	}

	if minerAmount != miningFee {
		return nil, IncorrectMiningFee
	}

	// Apply the effects of each transaction in order against a working copy
	// of the snapshot.
	working := snapshot.Copy()

	for _, tx := range block.Trans {
		if block.Header.ID == genesisID {
			if !credit(working, tx.To, tx.Amount) {
				return nil, BalanceTooLow
			}
			continue
		}

		if tx.IsFee() {
			if !credit(working, tx.To, tx.Amount) {
				return nil, BalanceTooLow
			}
			continue
		}

		if !tx.SignatureValid() {
			return nil, InvalidSignature
		}

		// Fee transactions were handled above so the sender always exists.
		sender, _ := tx.Sender()

		available, exists := working[sender]
		if !exists {
			return nil, SenderDoesNotExist
		}

		total, carry := bits.Add64(tx.Amount, tx.Fee, 0)
		if carry != 0 || available < total {
			return nil, BalanceTooLow
		}
		working[sender] = available - total

		if !credit(working, tx.To, tx.Amount) {
			return nil, BalanceTooLow
		}

		if !credit(working, miner, tx.Fee) {
			return nil, BalanceTooLow
		}
	}

	return changed(snapshot, working), Success
}

// Deltas returns the signed balance changes a block made when it was
// executed. It is used to reverse the effects of the block.
func Deltas(block database.Block) map[database.Address]Delta {
	deltas := make(map[database.Address]Delta)

	miner, _ := block.Miner()

	for _, tx := range block.Trans {
		deltas[tx.To] = deltas[tx.To].add(tx.Amount)

		if block.Header.ID == genesisID || tx.IsFee() {
			continue
		}

		sender, _ := tx.Sender()
		deltas[sender] = deltas[sender].sub(tx.Amount).sub(tx.Fee)
		deltas[miner] = deltas[miner].add(tx.Fee)
	}

	return deltas
}

// =============================================================================

// Delta represents a balance change split into the amount credited and the
// amount debited so it can be applied without signed overflow.
type Delta struct {
	Credit uint64
	Debit  uint64
}

func (d Delta) add(v uint64) Delta {
	d.Credit += v
	return d
}

func (d Delta) sub(v uint64) Delta {
	d.Debit += v
	return d
}

// Revert returns the balance before the delta was applied.
func (d Delta) Revert(balance uint64) uint64 {
	return balance - d.Credit + d.Debit
}

// =============================================================================

// credit adds the amount to the address, creating the entry if needed. It
// reports false when the balance would overflow.
func credit(working database.Balances, addr database.Address, amount uint64) bool {
	sum, carry := bits.Add64(working[addr], amount, 0)
	if carry != 0 {
		return false
	}

	working[addr] = sum
	return true
}

// changed returns the entries of the working set that are new or different
// from the snapshot.
func changed(snapshot database.Balances, working database.Balances) database.Balances {
	delta := make(database.Balances)

	for addr, balance := range working {
		if before, exists := snapshot[addr]; !exists || before != balance {
			delta[addr] = balance
		}
	}

	return delta
}
