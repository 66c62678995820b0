// Package wallet manages the key pair of a wallet and builds the
// transactions it sends.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// User represents the owner of a key pair.
type User struct {
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

// New generates a user with a fresh key pair.
func New() (User, error) {
	pub, pk, err := signature.GenerateKey()
	if err != nil {
		return User{}, err
	}

	return User{publicKey: pub, privateKey: pk}, nil
}

// FromPrivateKey constructs the user owning the private key.
func FromPrivateKey(pk ed25519.PrivateKey) User {
	return User{
		publicKey:  pk.Public().(ed25519.PublicKey),
		privateKey: pk,
	}
}

// Address returns the wallet address of the user.
func (u User) Address() database.Address {
	return database.PublicKeyToAddress(u.publicKey)
}

// PublicKey returns the public key of the user.
func (u User) PublicKey() ed25519.PublicKey {
	return u.publicKey
}

// PrivateKey returns the private key of the user.
func (u User) PrivateKey() ed25519.PrivateKey {
	return u.privateKey
}

// Send constructs a signed transaction moving the amount to the address.
func (u User) Send(to database.Address, amount uint64, fee uint64, timestamp uint64) (database.Transaction, error) {
	return database.NewTransaction(u.publicKey, to, amount, fee, timestamp).Sign(u.privateKey)
}

// Mine constructs the mining fee transaction paying the user.
func (u User) Mine(amount uint64, timestamp uint64) database.Transaction {
	return database.NewFeeTransaction(u.Address(), amount, timestamp)
}

// =============================================================================

// keyFile is the document a key pair is stored in.
type keyFile struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
	Wallet     string `json:"wallet"`
}

// Save writes the key pair to the specified file. The file is only readable
// by its owner.
func (u User) Save(path string) error {
	data, err := json.MarshalIndent(keyFile{
		PublicKey:  signature.PublicKeyString(u.publicKey),
		PrivateKey: signature.PrivateKeyString(u.privateKey),
		Wallet:     u.Address().String(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Load reads the key pair stored in the specified file. The keys and the
// wallet address in the file must agree.
func Load(path string) (User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return User{}, err
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return User{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	pk, err := signature.ToPrivateKey(kf.PrivateKey)
	if err != nil {
		return User{}, err
	}
	u := FromPrivateKey(pk)

	if kf.PublicKey != signature.PublicKeyString(u.publicKey) {
		return User{}, fmt.Errorf("%s: public key does not match private key", path)
	}

	if kf.Wallet != u.Address().String() {
		return User{}, fmt.Errorf("%s: wallet %s does not match key", path, kf.Wallet)
	}

	return u, nil
}
