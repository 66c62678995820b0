package state

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/ardanlabs/pandanite/foundation/blockchain/storage"
)

// ComputeDifficulty returns the difficulty that moves the block time closest
// to the expected time. Every step changes the difficulty by one bit, which
// halves or doubles the work, for as long as that gets closer to the target.
func ComputeDifficulty(current uint32, elapsed int64, expected int64, p Params) uint32 {
	e := big.NewInt(elapsed)
	x := big.NewInt(expected)

	// distance returns |op(elapsed, k) - expected|.
	distance := func(op func(z, a, b *big.Int) *big.Int, k *big.Int) *big.Int {
		v := op(new(big.Int), e, k)
		v.Sub(v, x)
		return v.Abs(v)
	}

	difficulty := current
	k := big.NewInt(2)
	lastK := big.NewInt(1)

	// Blocks are too slow, the work needs to be cut.
	if elapsed > expected {
		for difficulty > p.MinDifficulty {
			if distance((*big.Int).Div, k).Cmp(distance((*big.Int).Div, lastK)) > 0 {
				break
			}
			difficulty--
			lastK.Set(k)
			k.Lsh(k, 1)
		}
		return difficulty
	}

	// Blocks are too fast, the work needs to grow.
	for difficulty < p.MaxDifficulty {
		if distance((*big.Int).Mul, k).Cmp(distance((*big.Int).Mul, lastK)) > 0 {
			break
		}
		difficulty++
		lastK.Set(k)
		k.Lsh(k, 1)
	}

	return difficulty
}

// updateDifficulty retargets the difficulty once the chain reaches the end of
// an epoch. It must be called inside the session that changed the height.
func (s *State) updateDifficulty(w storage.Writer) error {
	height, err := w.NumBlocks()
	if err != nil {
		return err
	}

	lookback := s.params.Lookback
	if height <= 2*lookback || height%lookback != 0 {
		return nil
	}

	first, err := w.GetBlock(height - lookback)
	if err != nil {
		return err
	}

	last, err := w.GetBlock(height)
	if err != nil {
		return err
	}

	elapsed := int64(last.Header.Timestamp) - int64(first.Header.Timestamp)
	expected := int64(lookback * s.params.DesiredBlockTime)

	difficulty := ComputeDifficulty(last.Header.Difficulty, elapsed, expected, s.params)

	if start := s.params.PufferfishStart; start > 0 && height >= start && height < start+2*lookback {
		s.evHandler("state: updateDifficulty: pufferfish reset: height[%d]", height)
		difficulty = s.params.MinDifficulty
	}

	s.evHandler("state: updateDifficulty: height[%d]: elapsed[%d]: expected[%d]: difficulty[%d]", height, elapsed, expected, difficulty)

	return w.SetDifficulty(difficulty)
}

// currentDifficulty returns the difficulty the next block must carry.
func (s *State) currentDifficulty(r storage.Reader) (uint32, error) {
	difficulty, err := r.Difficulty()
	if err != nil {
		return 0, err
	}

	if difficulty == 0 {
		return s.params.MinDifficulty, nil
	}

	return difficulty, nil
}

// timestampTooOld reports if the timestamp is older than the median of the
// last blocks in the chain.
func (s *State) timestampTooOld(height uint64, timestamp uint64) (bool, error) {
	window := uint64(s.params.MedianWindow)
	if height <= window {
		return false, nil
	}

	times := make([]uint64, 0, window)
	for i := range window {
		block, err := s.storage.GetBlock(height - i)
		if err != nil {
			return false, fmt.Errorf("reading block %d: %w", height-i, err)
		}
		times = append(times, block.Header.Timestamp)
	}
	slices.Sort(times)

	// An even window averages the middle two. Comparing against the sum
	// keeps the half unit.
	mid := len(times) / 2
	if len(times)%2 == 0 {
		return 2*timestamp < times[mid]+times[mid-1], nil
	}

	return timestamp < times[mid], nil
}
