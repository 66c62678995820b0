// Package nameservice reads a folder of key files and creates a name
// service lookup for the wallets they hold.
package nameservice

import (
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/wallet"
)

// keyExtension is the extension of the key files the names are taken from.
const keyExtension = ".json"

// NameService maintains a map of wallets for name lookup.
type NameService struct {
	wallets map[database.Address]string
}

// New constructs a name service with the wallets of the key files found
// under the root folder. The file name without extension is the name.
func New(root string) (*NameService, error) {
	ns := NameService{
		wallets: make(map[database.Address]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != keyExtension {
			return nil
		}

		user, err := wallet.Load(fileName)
		if err != nil {
			return err
		}

		ns.wallets[user.Address()] = strings.TrimSuffix(filepath.Base(fileName), keyExtension)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified wallet, or the address itself
// when the wallet has no name.
func (ns *NameService) Lookup(addr database.Address) string {
	name, exists := ns.wallets[addr]
	if !exists {
		return addr.String()
	}
	return name
}

// Copy returns a copy of the map of wallets and names.
func (ns *NameService) Copy() map[database.Address]string {
	return maps.Clone(ns.wallets)
}
