package database

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ardanlabs/pandanite/foundation/blockchain/merkle"
	"github.com/ardanlabs/pandanite/foundation/blockchain/pow"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	ID            uint64         // Position of the block in the chain, genesis is 1.
	Timestamp     uint64         // Seconds since the epoch the block was mined.
	Difficulty    uint32         // Number of leading zero bits needed to solve the puzzle.
	Nonce         signature.Hash // Value identified to solve the puzzle.
	MerkleRoot    signature.Hash // Aggregate hash of the transactions in this block.
	LastBlockHash signature.Hash // Hash of the previous block, zero for genesis.
}

// Block represents a group of transactions batched together. The order of
// the transactions is the order they are executed in.
type Block struct {
	Header BlockHeader
	Trans  []Transaction
}

// NewBlock constructs a block with the merkle root computed from the
// transactions. The nonce is left unset.
func NewBlock(id uint64, timestamp uint64, difficulty uint32, lastBlockHash signature.Hash, trans []Transaction) Block {
	b := Block{
		Header: BlockHeader{
			ID:            id,
			Timestamp:     timestamp,
			Difficulty:    difficulty,
			LastBlockHash: lastBlockHash,
		},
		Trans: append([]Transaction(nil), trans...),
	}
	b.Header.MerkleRoot = b.ComputeMerkleRoot()

	return b
}

// Hash returns the hash of the block header. Transactions are committed
// through the merkle root and the block id is not part of the hash.
func (b Block) Hash() signature.Hash {
	var buf [2*signature.HashLength + 4 + 8]byte

	copy(buf[0:32], b.Header.MerkleRoot[:])
	copy(buf[32:64], b.Header.LastBlockHash[:])
	binary.BigEndian.PutUint32(buf[64:68], b.Header.Difficulty)
	binary.BigEndian.PutUint64(buf[68:76], b.Header.Timestamp)

	return signature.SHA256(buf[:])
}

// VerifyNonce checks the nonce solves the puzzle for the block hash at the
// block difficulty.
func (b Block) VerifyNonce() bool {
	return pow.Verify(b.Hash(), b.Header.Nonce, b.Header.Difficulty)
}

// ComputeMerkleRoot returns the aggregate hash of the block transactions.
func (b Block) ComputeMerkleRoot() signature.Hash {
	return merkle.Root(b.Trans)
}

// AddTransaction appends the transaction to the block. The merkle root is
// not updated.
func (b *Block) AddTransaction(tx Transaction) {
	b.Trans = append(b.Trans, tx)
}

// Miner returns the recipient of the first mining fee transaction.
func (b Block) Miner() (Address, bool) {
	for _, tx := range b.Trans {
		if tx.IsFee() {
			return tx.To, true
		}
	}

	return ZeroAddress, false
}

// Equal performs a structural comparison of two blocks.
func (b Block) Equal(other Block) bool {
	if b.Header != other.Header || len(b.Trans) != len(other.Trans) {
		return false
	}

	for i := range b.Trans {
		if !b.Trans[i].Equals(other.Trans[i]) {
			return false
		}
	}

	return true
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%d:%s", b.Header.ID, b.Hash())
}

// =============================================================================

// blockJSON is the external representation of a block.
type blockJSON struct {
	ID            uint64         `json:"id"`
	Timestamp     string         `json:"timestamp"`
	Difficulty    uint32         `json:"difficulty"`
	Nonce         signature.Hash `json:"nonce"`
	MerkleRoot    signature.Hash `json:"merkleRoot"`
	LastBlockHash signature.Hash `json:"lastBlockHash"`
	Trans         []Transaction  `json:"transactions"`
}

// MarshalJSON implements the json.Marshaler interface.
func (b Block) MarshalJSON() ([]byte, error) {
	trans := b.Trans
	if trans == nil {
		trans = []Transaction{}
	}

	return json.Marshal(blockJSON{
		ID:            b.Header.ID,
		Timestamp:     strconv.FormatUint(b.Header.Timestamp, 10),
		Difficulty:    b.Header.Difficulty,
		Nonce:         b.Header.Nonce,
		MerkleRoot:    b.Header.MerkleRoot,
		LastBlockHash: b.Header.LastBlockHash,
		Trans:         trans,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *Block) UnmarshalJSON(data []byte) error {
	var bj blockJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return err
	}

	timestamp, err := strconv.ParseUint(bj.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", bj.Timestamp, err)
	}

	*b = Block{
		Header: BlockHeader{
			ID:            bj.ID,
			Timestamp:     timestamp,
			Difficulty:    bj.Difficulty,
			Nonce:         bj.Nonce,
			MerkleRoot:    bj.MerkleRoot,
			LastBlockHash: bj.LastBlockHash,
		},
		Trans: bj.Trans,
	}

	return nil
}
