package executor

import "fmt"

// Status represents the outcome of validating and executing a block. Every
// value other than Success is a consensus rejection of the block.
type Status int

// Set of statuses a block can be rejected with.
const (
	Success Status = iota
	InvalidTransactionCount
	InvalidBlockID
	InvalidDifficulty
	InvalidNonce
	InvalidLastBlockHash
	BlockTimestampInFuture
	BlockTimestampTooOld
	InvalidMerkleRoot
	ExtraMiningFee
	NoMiningFee
	IncorrectMiningFee
	ExpiredTransaction
	InvalidSignature
	SenderDoesNotExist
	BalanceTooLow
)

var statusNames = map[Status]string{
	Success:                 "SUCCESS",
	InvalidTransactionCount: "INVALID_TRANSACTION_COUNT",
	InvalidBlockID:          "INVALID_BLOCK_ID",
	InvalidDifficulty:       "INVALID_DIFFICULTY",
	InvalidNonce:            "INVALID_NONCE",
	InvalidLastBlockHash:    "INVALID_LASTBLOCK_HASH",
	BlockTimestampInFuture:  "BLOCK_TIMESTAMP_IN_FUTURE",
	BlockTimestampTooOld:    "BLOCK_TIMESTAMP_TOO_OLD",
	InvalidMerkleRoot:       "INVALID_MERKLE_ROOT",
	ExtraMiningFee:          "EXTRA_MINING_FEE",
	NoMiningFee:             "NO_MINING_FEE",
	IncorrectMiningFee:      "INCORRECT_MINING_FEE",
	ExpiredTransaction:      "EXPIRED_TRANSACTION",
	InvalidSignature:        "INVALID_SIGNATURE",
	SenderDoesNotExist:      "SENDER_DOES_NOT_EXIST",
	BalanceTooLow:           "BALANCE_TOO_LOW",
}

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	if name, exists := statusNames[s]; exists {
		return name
	}

	return fmt.Sprintf("STATUS(%d)", int(s))
}

// ParseStatus converts the name of a status back into its value.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}

	return 0, fmt.Errorf("unknown status %q", name)
}

// Err converts a rejection into an error. Success returns nil.
func (s Status) Err() error {
	if s == Success {
		return nil
	}

	return &StatusError{Status: s}
}

// =============================================================================

// StatusError is used to pass a block rejection through an error return.
type StatusError struct {
	Status Status
}

// Error implements the error interface.
func (se *StatusError) Error() string {
	return "block rejected: " + se.Status.String()
}
