package database

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
)

// Set of programming errors for operations that make no sense for the
// transaction in hand. These are not consensus failures.
var (
	ErrNoSender           = errors.New("fee transaction has no sender")
	ErrUnsigned           = errors.New("transaction is not signed")
	ErrSigningKeyMismatch = errors.New("private key does not match the signing key")
)

// =============================================================================

// Transaction is the transfer of value between two wallets. A transaction
// without a signing key is the mining fee transaction of a block and has no
// sender. The sender of every other transaction is derived from the signing
// key and is never stored.
type Transaction struct {
	To         Address           // Wallet receiving the amount.
	Amount     uint64            // Value transferred in base units.
	Fee        uint64            // Value paid to the miner of the block.
	Timestamp  uint64            // Seconds since the epoch assigned by the sender.
	SigningKey ed25519.PublicKey // Key of the sender, nil for the mining fee.
	Signature  []byte            // Signature over the content hash.
}

// NewTransaction constructs an unsigned transaction from the owner of the
// public key.
func NewTransaction(from ed25519.PublicKey, to Address, amount uint64, fee uint64, timestamp uint64) Transaction {
	return Transaction{
		To:         to,
		Amount:     amount,
		Fee:        fee,
		Timestamp:  timestamp,
		SigningKey: from,
	}
}

// NewFeeTransaction constructs the mining fee transaction that pays the
// miner of a block.
func NewFeeTransaction(to Address, amount uint64, timestamp uint64) Transaction {
	return Transaction{
		To:        to,
		Amount:    amount,
		Timestamp: timestamp,
	}
}

// IsFee reports whether this is the mining fee transaction of a block.
func (tx Transaction) IsFee() bool {
	return tx.SigningKey == nil
}

// Sender returns the address derived from the signing key.
func (tx Transaction) Sender() (Address, error) {
	if tx.IsFee() {
		return ZeroAddress, ErrNoSender
	}

	return PublicKeyToAddress(tx.SigningKey), nil
}

// ContentHash returns the hash that is signed. It covers the recipient, the
// sender for non fee transactions, the fee, the amount and the timestamp.
func (tx Transaction) ContentHash() signature.Hash {
	buf := make([]byte, 0, 2*len(Address{})+24)
	buf = append(buf, tx.To[:]...)

	if !tx.IsFee() {
		from := PublicKeyToAddress(tx.SigningKey)
		buf = append(buf, from[:]...)
	}

	buf = binary.BigEndian.AppendUint64(buf, tx.Fee)
	buf = binary.BigEndian.AppendUint64(buf, tx.Amount)
	buf = binary.BigEndian.AppendUint64(buf, tx.Timestamp)

	return signature.SHA256(buf)
}

// Hash returns the identity of the transaction. For a signed transaction this
// covers the content hash and the signature. It implements the merkle
// Hashable interface.
func (tx Transaction) Hash() signature.Hash {
	content := tx.ContentHash()

	if tx.IsFee() || len(tx.Signature) == 0 {
		return signature.SHA256(content[:])
	}

	return signature.SHA256(content[:], tx.Signature)
}

// Sign uses the specified private key to sign the transaction and returns
// the signed copy.
func (tx Transaction) Sign(privateKey ed25519.PrivateKey) (Transaction, error) {
	if tx.IsFee() {
		return Transaction{}, ErrNoSender
	}

	pub, ok := privateKey.Public().(ed25519.PublicKey)
	if !ok || !pub.Equal(tx.SigningKey) {
		return Transaction{}, ErrSigningKeyMismatch
	}

	tx.Signature = signature.Sign(tx.ContentHash(), privateKey)

	return tx, nil
}

// SignatureValid verifies the signature covers the content hash and was
// produced by the signing key. The mining fee transaction carries no
// signature and is always valid.
func (tx Transaction) SignatureValid() bool {
	if tx.IsFee() {
		return true
	}

	if len(tx.Signature) == 0 {
		return false
	}

	return signature.Verify(tx.ContentHash(), tx.Signature, tx.SigningKey)
}

// SignatureString returns the signature as a hex string.
func (tx Transaction) SignatureString() (string, error) {
	if len(tx.Signature) == 0 {
		return "", ErrUnsigned
	}

	return signature.SignatureString(tx.Signature), nil
}

// Equals implements the merkle Hashable interface for providing a structural
// equality check between two transactions.
func (tx Transaction) Equals(other Transaction) bool {
	return tx.To == other.To &&
		tx.Amount == other.Amount &&
		tx.Fee == other.Fee &&
		tx.Timestamp == other.Timestamp &&
		bytes.Equal(tx.SigningKey, other.SigningKey) &&
		bytes.Equal(tx.Signature, other.Signature)
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	if tx.IsFee() {
		return fmt.Sprintf("fee:%s:%d", tx.To, tx.Amount)
	}

	from, _ := tx.Sender()
	return fmt.Sprintf("%s:%s:%d:%d", from, tx.To, tx.Amount, tx.Fee)
}

// =============================================================================

// transactionJSON is the external representation of a transaction.
type transactionJSON struct {
	To         Address `json:"to"`
	Amount     uint64  `json:"amount"`
	Timestamp  string  `json:"timestamp"`
	Fee        uint64  `json:"fee"`
	TxID       string  `json:"txid"`
	From       string  `json:"from"`
	SigningKey string  `json:"signingKey,omitempty"`
	Signature  string  `json:"signature,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface. The txid field carries
// the content hash and the from field carries the derived sender.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	tj := transactionJSON{
		To:        tx.To,
		Amount:    tx.Amount,
		Timestamp: strconv.FormatUint(tx.Timestamp, 10),
		Fee:       tx.Fee,
		TxID:      tx.ContentHash().String(),
	}

	if !tx.IsFee() {
		from, err := tx.Sender()
		if err != nil {
			return nil, err
		}

		sig, err := tx.SignatureString()
		if err != nil {
			return nil, err
		}

		tj.From = from.String()
		tj.SigningKey = signature.PublicKeyString(tx.SigningKey)
		tj.Signature = sig
	}

	return json.Marshal(tj)
}

// UnmarshalJSON implements the json.Unmarshaler interface. A non fee
// transaction must be signed and its from field must match the address
// derived from the signing key.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var tj transactionJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}

	timestamp, err := strconv.ParseUint(tj.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", tj.Timestamp, err)
	}

	t := Transaction{
		To:        tj.To,
		Amount:    tj.Amount,
		Fee:       tj.Fee,
		Timestamp: timestamp,
	}

	if tj.From != "" {
		from, err := ToAddress(tj.From)
		if err != nil {
			return fmt.Errorf("from: %w", err)
		}

		if t.SigningKey, err = signature.ToPublicKey(tj.SigningKey); err != nil {
			return fmt.Errorf("signingKey: %w", err)
		}

		if t.Signature, err = signature.ToSignature(tj.Signature); err != nil {
			return fmt.Errorf("signature: %w", err)
		}

		if derived := PublicKeyToAddress(t.SigningKey); derived != from {
			return fmt.Errorf("from address %s does not match signing key address %s", from, derived)
		}
	}

	if tj.TxID != "" && tj.TxID != t.ContentHash().String() {
		return fmt.Errorf("txid %s does not match transaction content", tj.TxID)
	}

	*tx = t
	return nil
}
