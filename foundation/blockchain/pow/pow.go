// Package pow implements the proof of work predicate and the search for a
// nonce that solves it.
package pow

import (
	"context"
	"crypto/rand"
	mrand "math/rand/v2"

	"github.com/ardanlabs/pandanite/foundation/blockchain/signature"
	"github.com/minio/sha256-simd"
)

// reportInterval is the number of attempts between progress events.
const reportInterval = 1_000_000

// EventHandler defines a function that is called with progress information
// while a nonce is being searched for.
type EventHandler func(v string, args ...any)

// =============================================================================

// LeadingZeroBits reports whether the first n bits of the hash, most
// significant bit first, are all zero. Once the scan reaches the final byte
// of the hash with more bits still required, the check fails. No difficulty
// of 250 or more can be satisfied.
func LeadingZeroBits(hash signature.Hash, n uint32) bool {
	for i := uint32(0); i < n; i++ {
		byteIndex := i / 8
		bitIndex := i % 8

		if hash[byteIndex]&(1<<(7-bitIndex)) != 0 {
			return false
		}

		if byteIndex == signature.HashLength-1 && i < n-1 {
			return false
		}
	}

	return true
}

// Verify checks the nonce solves the puzzle for the target hash at the
// specified difficulty.
func Verify(target signature.Hash, nonce signature.Hash, difficulty uint32) bool {
	return LeadingZeroBits(signature.ConcatHash(target, nonce), difficulty)
}

// Mine samples random nonces until one solves the puzzle for the target at
// the specified difficulty. The search checks the context between attempts
// and returns the context error once it is cancelled.
func Mine(ctx context.Context, target signature.Hash, difficulty uint32, ev EventHandler) (signature.Hash, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("pow: Mine: MINING: started: target[%s]: difficulty[%d]", target, difficulty)
	defer ev("pow: Mine: MINING: completed")

	// Seed a fast stream generator from the operating system so two miners
	// never walk the same nonce sequence.
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return signature.ZeroHash, err
	}
	rng := mrand.NewChaCha8(seed)

	// The target occupies the front of the buffer for every attempt.
	var buf [2 * signature.HashLength]byte
	copy(buf[:signature.HashLength], target[:])

	var attempts uint64
	for {
		attempts++
		if attempts%reportInterval == 0 {
			ev("pow: Mine: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			ev("pow: Mine: MINING: CANCELLED: attempts[%d]", attempts)
			return signature.ZeroHash, ctx.Err()
		}

		var nonce signature.Hash
		rng.Read(nonce[:])
		copy(buf[signature.HashLength:], nonce[:])

		if !LeadingZeroBits(sha256.Sum256(buf[:]), difficulty) {
			continue
		}

		ev("pow: Mine: MINING: SOLVED: nonce[%s]: attempts[%d]", nonce, attempts)

		return nonce, nil
	}
}
