package signature

import "math/big"

// AddWork returns the total chain work after a block solved at the
// specified challenge size is added. The input value is not modified.
func AddWork(total *big.Int, challenge uint32) *big.Int {
	work := new(big.Int).Lsh(big.NewInt(1), uint(challenge))
	if total == nil {
		return work
	}

	return work.Add(total, work)
}

// RemoveWork reverses AddWork for a block being removed from the chain.
func RemoveWork(total *big.Int, challenge uint32) *big.Int {
	work := new(big.Int).Lsh(big.NewInt(1), uint(challenge))
	if total == nil {
		return work.Neg(work)
	}

	return work.Sub(total, work)
}
