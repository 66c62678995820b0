// Package signature provides helper functions for handling the blockchain
// hashing, key and signature needs.
package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/ripemd160"
)

// HashLength is the number of bytes in a SHA-256 digest.
const HashLength = 32

// AddressLength is the number of bytes in a wallet address.
const AddressLength = 25

// Hash represents a SHA-256 digest. The zero value represents a hash that
// has not been set.
type Hash [HashLength]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash Hash

// SHA256 returns the digest of the concatenation of all the specified data.
func SHA256(data ...[]byte) Hash {
	if len(data) == 1 {
		return sha256.Sum256(data[0])
	}

	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}

	var hash Hash
	copy(hash[:], h.Sum(nil))

	return hash
}

// ConcatHash returns the digest of a followed by b.
func ConcatHash(a, b Hash) Hash {
	var buf [2 * HashLength]byte
	copy(buf[:HashLength], a[:])
	copy(buf[HashLength:], b[:])

	return sha256.Sum256(buf[:])
}

// ToHash converts a hex-encoded string into a hash.
func ToHash(s string) (Hash, error) {
	var hash Hash

	if len(s) != 2*HashLength {
		return hash, fmt.Errorf("invalid hash length, got %d, exp %d", len(s), 2*HashLength)
	}

	if _, err := hex.Decode(hash[:], []byte(s)); err != nil {
		return hash, fmt.Errorf("invalid hash: %w", err)
	}

	return hash, nil
}

// String returns the hash as lowercase hex with no prefix.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(data []byte) error {
	hash, err := ToHash(string(data))
	if err != nil {
		return err
	}

	*h = hash
	return nil
}

// =============================================================================

// WalletAddress derives the 25 byte wallet address for the public key. The
// first 20 bytes hold ripemd160(sha256(key)) and the last 4 bytes hold a
// checksum taken from sha256(sha256(ripemd160(sha256(key)))).
func WalletAddress(publicKey ed25519.PublicKey) [AddressLength]byte {
	hash := SHA256(publicKey)

	r := ripemd160.New()
	r.Write(hash[:])
	hash2 := r.Sum(nil)

	hash3 := SHA256(hash2)
	hash4 := SHA256(hash3[:])

	// Byte 0 is the version marker but it is overwritten by the ripemd
	// digest. Existing addresses on the network carry this layout.
	var address [AddressLength]byte
	address[0] = 0
	copy(address[0:20], hash2[:20])
	copy(address[21:25], hash4[:4])

	return address
}

// =============================================================================

// ErrInvalidKey is returned when a hex-encoded key can't be decoded.
var ErrInvalidKey = errors.New("invalid key")

// GenerateKey creates a new ed25519 key pair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign uses the specified private key to sign the content hash.
func Sign(content Hash, privateKey ed25519.PrivateKey) []byte {
	return ed25519.Sign(privateKey, content[:])
}

// Verify checks the signature was produced by the public key over the
// content hash.
func Verify(content Hash, sig []byte, publicKey ed25519.PublicKey) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(publicKey, content[:], sig)
}

// PublicKeyString returns the public key as 64 hex characters.
func PublicKeyString(publicKey ed25519.PublicKey) string {
	return hex.EncodeToString(publicKey)
}

// ToPublicKey converts a 64 character hex string into a public key.
func ToPublicKey(s string) (ed25519.PublicKey, error) {
	if len(s) != 2*ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key length %d", ErrInvalidKey, len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	return ed25519.PublicKey(b), nil
}

// PrivateKeyString returns the private key (seed followed by public key) as
// 128 hex characters.
func PrivateKeyString(privateKey ed25519.PrivateKey) string {
	return hex.EncodeToString(privateKey)
}

// ToPrivateKey converts a 128 character hex string into a private key. The
// embedded public key must match the one derived from the seed.
func ToPrivateKey(s string) (ed25519.PrivateKey, error) {
	if len(s) != 2*ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key length %d", ErrInvalidKey, len(s))
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	pk := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !pk.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(b[ed25519.SeedSize:])) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKey)
	}

	return pk, nil
}

// SignatureString returns the signature as 128 hex characters.
func SignatureString(sig []byte) string {
	return hex.EncodeToString(sig)
}

// ToSignature converts a hex string into signature bytes.
func ToSignature(s string) ([]byte, error) {
	sig, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("invalid signature length, got %d, exp %d", len(sig), ed25519.SignatureSize)
	}

	return sig, nil
}
