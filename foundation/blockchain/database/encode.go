package database

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// The compact binary form of blocks and transactions is RLP. It is what the
// storage backends persist.

// transactionRLP is the field order transactions are encoded in.
type transactionRLP struct {
	To         [25]byte
	Amount     uint64
	Fee        uint64
	Timestamp  uint64
	SigningKey []byte
	Signature  []byte
}

// blockRLP is the field order blocks are encoded in.
type blockRLP struct {
	ID            uint64
	Timestamp     uint64
	Difficulty    uint32
	Nonce         [32]byte
	MerkleRoot    [32]byte
	LastBlockHash [32]byte
	Trans         []transactionRLP
}

// EncodeTransaction returns the compact binary form of the transaction.
func EncodeTransaction(tx Transaction) ([]byte, error) {
	return rlp.EncodeToBytes(toTransactionRLP(tx))
}

// DecodeTransaction parses the compact binary form of a transaction.
func DecodeTransaction(data []byte) (Transaction, error) {
	var tr transactionRLP
	if err := rlp.DecodeBytes(data, &tr); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}

	return fromTransactionRLP(tr)
}

// EncodeBlock returns the compact binary form of the block.
func EncodeBlock(b Block) ([]byte, error) {
	br := blockRLP{
		ID:            b.Header.ID,
		Timestamp:     b.Header.Timestamp,
		Difficulty:    b.Header.Difficulty,
		Nonce:         b.Header.Nonce,
		MerkleRoot:    b.Header.MerkleRoot,
		LastBlockHash: b.Header.LastBlockHash,
		Trans:         make([]transactionRLP, len(b.Trans)),
	}

	for i, tx := range b.Trans {
		br.Trans[i] = toTransactionRLP(tx)
	}

	return rlp.EncodeToBytes(br)
}

// DecodeBlock parses the compact binary form of a block.
func DecodeBlock(data []byte) (Block, error) {
	var br blockRLP
	if err := rlp.DecodeBytes(data, &br); err != nil {
		return Block{}, fmt.Errorf("decode block: %w", err)
	}

	b := Block{
		Header: BlockHeader{
			ID:            br.ID,
			Timestamp:     br.Timestamp,
			Difficulty:    br.Difficulty,
			Nonce:         br.Nonce,
			MerkleRoot:    br.MerkleRoot,
			LastBlockHash: br.LastBlockHash,
		},
		Trans: make([]Transaction, len(br.Trans)),
	}

	for i, tr := range br.Trans {
		tx, err := fromTransactionRLP(tr)
		if err != nil {
			return Block{}, fmt.Errorf("decode block: tx[%d]: %w", i, err)
		}
		b.Trans[i] = tx
	}

	return b, nil
}

// =============================================================================

func toTransactionRLP(tx Transaction) transactionRLP {
	return transactionRLP{
		To:         tx.To,
		Amount:     tx.Amount,
		Fee:        tx.Fee,
		Timestamp:  tx.Timestamp,
		SigningKey: tx.SigningKey,
		Signature:  tx.Signature,
	}
}

func fromTransactionRLP(tr transactionRLP) (Transaction, error) {
	tx := Transaction{
		To:        tr.To,
		Amount:    tr.Amount,
		Fee:       tr.Fee,
		Timestamp: tr.Timestamp,
	}

	// Empty byte strings decode as empty slices. The fee transaction is
	// identified by a nil signing key so they are normalized here.
	if len(tr.SigningKey) > 0 {
		if len(tr.SigningKey) != ed25519.PublicKeySize {
			return Transaction{}, fmt.Errorf("invalid signing key length %d", len(tr.SigningKey))
		}
		tx.SigningKey = ed25519.PublicKey(tr.SigningKey)
	}

	if len(tr.Signature) > 0 {
		tx.Signature = tr.Signature
	}

	return tx, nil
}
