// Package backend constructs a storage implementation by name.
package backend

import (
	"fmt"

	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage/badger"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/pandanite/foundation/blockchain/storage/memory"
	"go.uber.org/zap"
)

// Set of storage implementations that can be opened.
const (
	Bolt   = "bolt"
	Badger = "badger"
	Memory = "memory"
)

// Open constructs the named storage implementation at the path. The memory
// implementation ignores the path.
func Open(kind string, path string, log *zap.SugaredLogger) (storage.Storage, error) {
	switch kind {
	case Bolt:
		db, err := bolt.New(path)
		if err != nil {
			return nil, err
		}
		return db, nil

	case Badger:
		db, err := badger.New(path, log)
		if err != nil {
			return nil, err
		}
		return db, nil

	case Memory:
		return memory.New(), nil
	}

	return nil, fmt.Errorf("unknown storage %q", kind)
}
