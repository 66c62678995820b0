// Package badger implements the ability to persist the blockchain in a
// badger key value store. Keys are separated into namespaces by a prefix.
package badger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Key prefixes.
var (
	prefixBlock    = []byte("block:")    // id (big-endian) -> rlp block
	prefixTx       = []byte("tx:")       // tx identity hash -> block id
	prefixWallet   = []byte("wallet:")   // address -> balance
	prefixWalletTx = []byte("wallettx:") // address ++ tx identity hash -> nothing

	keyHeight     = []byte("meta:height")
	keyTip        = []byte("meta:tip")
	keyDifficulty = []byte("meta:difficulty")
	keyWork       = []byte("meta:work")
)

// Badger represents the badger implementation of storage.Storage.
type Badger struct {
	db *badger.DB
}

// New opens or creates the store inside the specified directory. An empty
// directory keeps the store in memory.
func New(dir string, log *zap.SugaredLogger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(logger{log})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Badger{db: db}, nil
}

// Close releases the store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Update runs the function inside a read-write transaction. If the function
// returns an error the transaction is discarded.
func (b *Badger) Update(fn func(w storage.Writer) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(&session{txn: txn})
	})
}

// NumBlocks returns the number of blocks in the chain.
func (b *Badger) NumBlocks() (uint64, error) {
	return view(b, (*session).NumBlocks)
}

// GetBlock returns the block with the specified id.
func (b *Badger) GetBlock(id uint64) (database.Block, error) {
	return view(b, func(s *session) (database.Block, error) { return s.GetBlock(id) })
}

// LastHash returns the hash of the tip.
func (b *Badger) LastHash() (signature.Hash, error) {
	return view(b, (*session).LastHash)
}

// Difficulty returns the persisted difficulty.
func (b *Badger) Difficulty() (uint32, error) {
	return view(b, (*session).Difficulty)
}

// TotalWork returns the accumulated chain work.
func (b *Badger) TotalWork() (*big.Int, error) {
	return view(b, (*session).TotalWork)
}

// Wallets returns the balances of the addresses that exist.
func (b *Badger) Wallets(addrs []database.Address) (database.Balances, error) {
	return view(b, func(s *session) (database.Balances, error) { return s.Wallets(addrs) })
}

// FindBlockForTransaction returns the id of the block holding the transaction.
func (b *Badger) FindBlockForTransaction(txID signature.Hash) (uint64, bool, error) {
	var id uint64
	var found bool

	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		id, found, err = (&session{txn: txn}).FindBlockForTransaction(txID)
		return err
	})

	return id, found, err
}

// WalletTransactions returns the transactions recorded for the address.
func (b *Badger) WalletTransactions(addr database.Address) ([]signature.Hash, error) {
	return view(b, func(s *session) ([]signature.Hash, error) { return s.WalletTransactions(addr) })
}

func view[T any](b *Badger, fn func(s *session) (T, error)) (T, error) {
	var result T

	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		result, err = fn(&session{txn: txn})
		return err
	})

	return result, err
}

// =============================================================================

// session implements storage.Writer on top of a badger transaction.
type session struct {
	txn *badger.Txn
}

// get returns a copy of the value, nil when the key doesn't exist.
func (s *session) get(key []byte) ([]byte, error) {
	item, err := s.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return item.ValueCopy(nil)
}

func (s *session) getUint(key []byte, size int) (uint64, bool, error) {
	data, err := s.get(key)
	if err != nil || data == nil {
		return 0, false, err
	}

	if len(data) != size {
		return 0, false, fmt.Errorf("key %q: invalid value length: got %d", key, len(data))
	}

	if size == 4 {
		return uint64(binary.BigEndian.Uint32(data)), true, nil
	}

	return binary.BigEndian.Uint64(data), true, nil
}

func (s *session) NumBlocks() (uint64, error) {
	height, _, err := s.getUint(keyHeight, 8)
	return height, err
}

func (s *session) GetBlock(id uint64) (database.Block, error) {
	data, err := s.get(key(prefixBlock, idKey(id)))
	if err != nil {
		return database.Block{}, err
	}

	if data == nil {
		return database.Block{}, fmt.Errorf("block %d: %w", id, storage.ErrNotFound)
	}

	return database.DecodeBlock(data)
}

func (s *session) LastHash() (signature.Hash, error) {
	var hash signature.Hash

	data, err := s.get(keyTip)
	if err != nil || data == nil {
		return hash, err
	}

	if len(data) != signature.HashLength {
		return hash, fmt.Errorf("invalid tip hash length: got %d", len(data))
	}

	copy(hash[:], data)
	return hash, nil
}

func (s *session) Difficulty() (uint32, error) {
	difficulty, _, err := s.getUint(keyDifficulty, 4)
	return uint32(difficulty), err
}

func (s *session) TotalWork() (*big.Int, error) {
	data, err := s.get(keyWork)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(data), nil
}

func (s *session) Wallets(addrs []database.Address) (database.Balances, error) {
	bals := make(database.Balances, len(addrs))

	for _, addr := range addrs {
		balance, exists, err := s.getUint(key(prefixWallet, addr[:]), 8)
		if err != nil {
			return nil, err
		}

		if exists {
			bals[addr] = balance
		}
	}

	return bals, nil
}

func (s *session) FindBlockForTransaction(txID signature.Hash) (uint64, bool, error) {
	return s.getUint(key(prefixTx, txID[:]), 8)
}

func (s *session) WalletTransactions(addr database.Address) ([]signature.Hash, error) {
	var ids []signature.Hash

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	iter := s.txn.NewIterator(opts)
	defer iter.Close()

	prefix := key(prefixWalletTx, addr[:])
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		var id signature.Hash
		copy(id[:], iter.Item().Key()[len(prefix):])
		ids = append(ids, id)
	}

	return ids, nil
}

func (s *session) SetDifficulty(difficulty uint32) error {
	return s.txn.Set(keyDifficulty, binary.BigEndian.AppendUint32(nil, difficulty))
}

func (s *session) SetTotalWork(work *big.Int) error {
	if work.Sign() < 0 {
		return fmt.Errorf("negative total work %s", work)
	}

	return s.txn.Set(keyWork, work.Bytes())
}

func (s *session) UpdateWallet(addr database.Address, balance uint64) error {
	return s.txn.Set(key(prefixWallet, addr[:]), binary.BigEndian.AppendUint64(nil, balance))
}

func (s *session) RemoveWallet(addr database.Address) error {
	return s.txn.Delete(key(prefixWallet, addr[:]))
}

func (s *session) AddWalletTransaction(addr database.Address, txID signature.Hash) error {
	return s.txn.Set(key(prefixWalletTx, addr[:], txID[:]), []byte{})
}

func (s *session) RemoveWalletTransaction(addr database.Address, txID signature.Hash) error {
	return s.txn.Delete(key(prefixWalletTx, addr[:], txID[:]))
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

	id := idKey(block.Header.ID)

	if err := s.txn.Set(key(prefixBlock, id), data); err != nil {
		return err
	}

	// A transaction identical to one in an earlier block stays indexed to
	// the earlier block.
	for _, tx := range block.Trans {
		txID := tx.Hash()

		_, exists, err := s.FindBlockForTransaction(txID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		if err := s.txn.Set(key(prefixTx, txID[:]), id); err != nil {
			return err
		}
	}

	hash := block.Hash()

	if err := s.txn.Set(keyHeight, id); err != nil {
		return err
	}

	return s.txn.Set(keyTip, hash[:])
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

	if err := s.txn.Delete(key(prefixBlock, idKey(height))); err != nil {
		return database.Block{}, err
	}

	for _, tx := range block.Trans {
		txID := tx.Hash()

		blockID, exists, err := s.FindBlockForTransaction(txID)
		if err != nil {
			return database.Block{}, err
		}
		if !exists || blockID != height {
			continue
		}

		if err := s.txn.Delete(key(prefixTx, txID[:])); err != nil {
			return database.Block{}, err
		}
	}

	if err := s.txn.Set(keyHeight, idKey(height-1)); err != nil {
		return database.Block{}, err
	}

	if height == 1 {
		return block, s.txn.Delete(keyTip)
	}

	return block, s.txn.Set(keyTip, block.Header.LastBlockHash[:])
}

// =============================================================================

func idKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

func key(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// =============================================================================

// logger adapts the zap logger to the badger logger.
type logger struct {
	log *zap.SugaredLogger
}

func (l logger) Errorf(format string, args ...any) {
	l.log.Errorf(format, args...)
}

func (l logger) Warningf(format string, args ...any) {
	l.log.Warnf(format, args...)
}

func (l logger) Infof(format string, args ...any) {
	l.log.Debugf(format, args...)
}

func (l logger) Debugf(format string, args ...any) {
	l.log.Debugf(format, args...)
}
