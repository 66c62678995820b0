// Package bolt implements the ability to persist the blockchain in a bbolt
// database file. Every session runs inside a single bbolt read-write
// transaction.
package bolt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
var (
	bucketBlocks    = []byte("blocks")     // id (big-endian) -> rlp block
	bucketTxs       = []byte("txs")        // tx identity hash -> block id
	bucketWallets   = []byte("wallets")    // address -> balance
	bucketWalletTxs = []byte("wallet_txs") // address ++ tx identity hash -> nothing
	bucketMeta      = []byte("meta")       // chain metadata

	metaKeyHeight     = []byte("height")
	metaKeyTip        = []byte("tip")
	metaKeyDifficulty = []byte("difficulty")
	metaKeyWork       = []byte("work")
)

// Bolt represents the bbolt implementation of storage.Storage.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the chain database at the specified path.
func New(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlocks, bucketTxs, bucketWallets, bucketWalletTxs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to create buckets: %w (additionally failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Update runs the function inside a read-write transaction. If the function
// returns an error the transaction is rolled back.
func (b *Bolt) Update(fn func(w storage.Writer) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(&session{tx: tx})
	})
}

// NumBlocks returns the number of blocks in the chain.
func (b *Bolt) NumBlocks() (uint64, error) {
	return view(b, (*session).NumBlocks)
}

// GetBlock returns the block with the specified id.
func (b *Bolt) GetBlock(id uint64) (database.Block, error) {
	return view(b, func(s *session) (database.Block, error) { return s.GetBlock(id) })
}

// LastHash returns the hash of the tip.
func (b *Bolt) LastHash() (signature.Hash, error) {
	return view(b, (*session).LastHash)
}

// Difficulty returns the persisted difficulty.
func (b *Bolt) Difficulty() (uint32, error) {
	return view(b, (*session).Difficulty)
}

// TotalWork returns the accumulated chain work.
func (b *Bolt) TotalWork() (*big.Int, error) {
	return view(b, (*session).TotalWork)
}

// Wallets returns the balances of the addresses that exist.
func (b *Bolt) Wallets(addrs []database.Address) (database.Balances, error) {
	return view(b, func(s *session) (database.Balances, error) { return s.Wallets(addrs) })
}

// FindBlockForTransaction returns the id of the block holding the transaction.
func (b *Bolt) FindBlockForTransaction(txID signature.Hash) (uint64, bool, error) {
	var id uint64
	var found bool

	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		id, found, err = (&session{tx: tx}).FindBlockForTransaction(txID)
		return err
	})

	return id, found, err
}

// WalletTransactions returns the transactions recorded for the address.
func (b *Bolt) WalletTransactions(addr database.Address) ([]signature.Hash, error) {
	return view(b, func(s *session) ([]signature.Hash, error) { return s.WalletTransactions(addr) })
}

// view runs the read function inside a read-only transaction.
func view[T any](b *Bolt, fn func(s *session) (T, error)) (T, error) {
	var result T

	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		result, err = fn(&session{tx: tx})
		return err
	})

	return result, err
}

// =============================================================================

// session implements storage.Writer on top of a bbolt transaction.
type session struct {
	tx *bolt.Tx
}

func (s *session) NumBlocks() (uint64, error) {
	data := s.tx.Bucket(bucketMeta).Get(metaKeyHeight)
	if data == nil {
		return 0, nil
	}

	if len(data) != 8 {
		return 0, fmt.Errorf("invalid height length: got %d", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

func (s *session) GetBlock(id uint64) (database.Block, error) {
	data := s.tx.Bucket(bucketBlocks).Get(idKey(id))
	if data == nil {
		return database.Block{}, fmt.Errorf("block %d: %w", id, storage.ErrNotFound)
	}

	return database.DecodeBlock(bytes.Clone(data))
}

func (s *session) LastHash() (signature.Hash, error) {
	var hash signature.Hash

	data := s.tx.Bucket(bucketMeta).Get(metaKeyTip)
	if data == nil {
		return hash, nil
	}

	if len(data) != signature.HashLength {
		return hash, fmt.Errorf("invalid tip hash length: got %d", len(data))
	}

	copy(hash[:], data)
	return hash, nil
}

func (s *session) Difficulty() (uint32, error) {
	data := s.tx.Bucket(bucketMeta).Get(metaKeyDifficulty)
	if data == nil {
		return 0, nil
	}

	if len(data) != 4 {
		return 0, fmt.Errorf("invalid difficulty length: got %d", len(data))
	}

	return binary.BigEndian.Uint32(data), nil
}

func (s *session) TotalWork() (*big.Int, error) {
	return new(big.Int).SetBytes(s.tx.Bucket(bucketMeta).Get(metaKeyWork)), nil
}

func (s *session) Wallets(addrs []database.Address) (database.Balances, error) {
	wallets := s.tx.Bucket(bucketWallets)

	bals := make(database.Balances, len(addrs))
	for _, addr := range addrs {
		data := wallets.Get(addr[:])
		if data == nil {
			continue
		}

		if len(data) != 8 {
			return nil, fmt.Errorf("wallet %s: invalid balance length: got %d", addr, len(data))
		}

		bals[addr] = binary.BigEndian.Uint64(data)
	}

	return bals, nil
}

func (s *session) FindBlockForTransaction(txID signature.Hash) (uint64, bool, error) {
	data := s.tx.Bucket(bucketTxs).Get(txID[:])
	if data == nil {
		return 0, false, nil
	}

	if len(data) != 8 {
		return 0, false, fmt.Errorf("tx %s: invalid block id length: got %d", txID, len(data))
	}

	return binary.BigEndian.Uint64(data), true, nil
}

func (s *session) WalletTransactions(addr database.Address) ([]signature.Hash, error) {
	var ids []signature.Hash

	c := s.tx.Bucket(bucketWalletTxs).Cursor()
	for k, _ := c.Seek(addr[:]); k != nil && bytes.HasPrefix(k, addr[:]); k, _ = c.Next() {
		var id signature.Hash
		copy(id[:], k[len(addr):])
		ids = append(ids, id)
	}

	return ids, nil
}

func (s *session) SetDifficulty(difficulty uint32) error {
	return s.tx.Bucket(bucketMeta).Put(metaKeyDifficulty, binary.BigEndian.AppendUint32(nil, difficulty))
}

func (s *session) SetTotalWork(work *big.Int) error {
	if work.Sign() < 0 {
		return fmt.Errorf("negative total work %s", work)
	}

	return s.tx.Bucket(bucketMeta).Put(metaKeyWork, work.Bytes())
}

func (s *session) UpdateWallet(addr database.Address, balance uint64) error {
	return s.tx.Bucket(bucketWallets).Put(addr[:], binary.BigEndian.AppendUint64(nil, balance))
}

func (s *session) RemoveWallet(addr database.Address) error {
	return s.tx.Bucket(bucketWallets).Delete(addr[:])
}

func (s *session) AddWalletTransaction(addr database.Address, txID signature.Hash) error {
	return s.tx.Bucket(bucketWalletTxs).Put(walletTxKey(addr, txID), []byte{})
}

func (s *session) RemoveWalletTransaction(addr database.Address, txID signature.Hash) error {
	return s.tx.Bucket(bucketWalletTxs).Delete(walletTxKey(addr, txID))
}

func (s *session) AddBlock(block database.Block) error {
	height, err := s.NumBlocks()
	if err != nil {
		return err
	}

	if block.Header.ID != height+1 {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Header.ID, height+1)
	}

	data, err := database.EncodeBlock(block)
	if err != nil {
		return err
	}

	key := idKey(block.Header.ID)

	if err := s.tx.Bucket(bucketBlocks).Put(key, data); err != nil {
		return err
	}

	// A transaction identical to one in an earlier block stays indexed to
	// the earlier block.
	txs := s.tx.Bucket(bucketTxs)
	for _, tx := range block.Trans {
		id := tx.Hash()
		if txs.Get(id[:]) != nil {
			continue
		}
		if err := txs.Put(id[:], key); err != nil {
			return err
		}
	}

	hash := block.Hash()

	meta := s.tx.Bucket(bucketMeta)
	if err := meta.Put(metaKeyHeight, key); err != nil {
		return err
	}

	return meta.Put(metaKeyTip, hash[:])
}

func (s *session) PopBlock() (database.Block, error) {
	height, err := s.NumBlocks()
	if err != nil {
		return database.Block{}, err
	}

	if height == 0 {
		return database.Block{}, fmt.Errorf("pop block: %w", storage.ErrNotFound)
	}

	block, err := s.GetBlock(height)
	if err != nil {
		return database.Block{}, err
	}

	if err := s.tx.Bucket(bucketBlocks).Delete(idKey(height)); err != nil {
		return database.Block{}, err
	}

	txs := s.tx.Bucket(bucketTxs)
	for _, tx := range block.Trans {
		id := tx.Hash()
		if !bytes.Equal(txs.Get(id[:]), idKey(height)) {
			continue
		}
		if err := txs.Delete(id[:]); err != nil {
			return database.Block{}, err
		}
	}

	meta := s.tx.Bucket(bucketMeta)
	if err := meta.Put(metaKeyHeight, idKey(height-1)); err != nil {
		return database.Block{}, err
	}

	// The predecessor of the removed block is the new tip.
	if height == 1 {
		return block, meta.Delete(metaKeyTip)
	}

	return block, meta.Put(metaKeyTip, block.Header.LastBlockHash[:])
}

// =============================================================================

// idKey returns the big-endian key for a block id so keys sort by id.
func idKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

func walletTxKey(addr database.Address, txID signature.Hash) []byte {
	key := make([]byte, 0, len(addr)+len(txID))
	key = append(key, addr[:]...)
	return append(key, txID[:]...)
}
