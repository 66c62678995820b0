package database

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// Account represents the balance stored in the database for an individual
// wallet address.
type Account struct {
	Address Address `json:"address"`
	Balance uint64  `json:"balance"`
}

// =============================================================================

// Address represents a wallet address that is derived from the public key used
// to sign transactions. The fixed size value is used directly as a map key.
type Address [signature.AddressLength]byte

// ZeroAddress represents an address that has not been set.
var ZeroAddress Address

// ToAddress converts a hex-encoded string to an address and validates the
// hex-encoded string is formatted correctly.
func ToAddress(s string) (Address, error) {
	var a Address

	if len(s) != 2*signature.AddressLength {
		return a, fmt.Errorf("invalid address length, got %d, exp %d", len(s), 2*signature.AddressLength)
	}

	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("invalid address format: %w", err)
	}

	return a, nil
}

// PublicKeyToAddress converts the public key to an address value.
func PublicKeyToAddress(pk ed25519.PublicKey) Address {
	return Address(signature.WalletAddress(pk))
}

// String returns the address as 50 lowercase hex characters.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements the encoding.TextMarshaler interface.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (a *Address) UnmarshalText(data []byte) error {
	addr, err := ToAddress(string(data))
	if err != nil {
		return err
	}

	*a = addr
	return nil
}

// =============================================================================

// ByAddress provides sorting support by the address value.
type ByAddress []Account

// Len returns the number of accounts in the list.
func (ba ByAddress) Len() int {
	return len(ba)
}

// Less helps to sort the list by address in ascending order.
func (ba ByAddress) Less(i, j int) bool {
	return bytes.Compare(ba[i].Address[:], ba[j].Address[:]) < 0
}

// Swap moves accounts in the order of the address value.
func (ba ByAddress) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
