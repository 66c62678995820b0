// Package genesis maintains access to the genesis file.
package genesis

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/executor"
	"github.com/ardanlabs/pandanite/foundation/blockchain/pow"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/state"
	"github.com/ardanlabs/pandanite/foundation/validate"
)

// Grant represents coins assigned to a wallet when the chain starts.
type Grant struct {
	To     string `json:"to" validate:"required,hexadecimal,len=50"`
	Amount uint64 `json:"amount" validate:"gt=0"`
}

// Allocation represents the document a genesis block is built from.
type Allocation struct {
	Timestamp   uint64  `json:"timestamp" validate:"gt=0"`
	Miner       string  `json:"miner" validate:"required,hexadecimal,len=50"`
	Allocations []Grant `json:"allocations" validate:"dive"`
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (database.Block, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return database.Block{}, err
	}

	var block database.Block
	if err := json.Unmarshal(content, &block); err != nil {
		return database.Block{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	return block, nil
}

// Save writes the genesis block to the specified file.
func Save(path string, block database.Block) error {
	data, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadAllocation opens and validates an allocation document.
func LoadAllocation(path string) (Allocation, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Allocation{}, err
	}

	var alloc Allocation
	if err := json.Unmarshal(content, &alloc); err != nil {
		return Allocation{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := validate.Check(alloc); err != nil {
		return Allocation{}, err
	}

	return alloc, nil
}

// =============================================================================

// Build constructs and mines the genesis block for the allocation. Every
// grant is a transaction signed by the founder key, the miner receives the
// mining fee of the first block.
func Build(ctx context.Context, alloc Allocation, founder ed25519.PrivateKey, params state.Params) (database.Block, error) {
	if err := validate.Check(alloc); err != nil {
		return database.Block{}, err
	}

	if len(alloc.Allocations)+1 > params.MaxTransactionsPerBlock {
		return database.Block{}, fmt.Errorf("too many allocations, got %d, max %d", len(alloc.Allocations), params.MaxTransactionsPerBlock-1)
	}

	miner, err := database.ToAddress(alloc.Miner)
	if err != nil {
		return database.Block{}, fmt.Errorf("miner: %w", err)
	}

	pub, ok := founder.Public().(ed25519.PublicKey)
	if !ok {
		return database.Block{}, errors.New("founder key is not an ed25519 key")
	}

	trans := []database.Transaction{
		database.NewFeeTransaction(miner, state.MiningFee(1), alloc.Timestamp),
	}

	for i, grant := range alloc.Allocations {
		to, err := database.ToAddress(grant.To)
		if err != nil {
			return database.Block{}, fmt.Errorf("allocation %d: %w", i, err)
		}

		// The timestamp makes grants to the same wallet unique.
		tx, err := database.NewTransaction(pub, to, grant.Amount, 0, alloc.Timestamp+uint64(i)).Sign(founder)
		if err != nil {
			return database.Block{}, fmt.Errorf("allocation %d: %w", i, err)
		}
		trans = append(trans, tx)
	}

	block := database.NewBlock(1, alloc.Timestamp, params.MinDifficulty, signature.ZeroHash, trans)

	if _, status := executor.Execute(database.Balances{}, block, state.MiningFee(1), nil); status != executor.Success {
		return database.Block{}, status.Err()
	}

	nonce, err := pow.Mine(ctx, block.Hash(), block.Header.Difficulty, nil)
	if err != nil {
		return database.Block{}, err
	}
	block.Header.Nonce = nonce

	return block, nil
}
