package state

// DecimalScaleFactor is the number of base units in one coin.
const DecimalScaleFactor = 10_000

// Emission schedule.
const (
	halvingInterval = 666666
	feeBlockOffset  = 125180 + 7750 + 18000
	initialReward   = 50.0
	supplyOffset    = 6647477.8490
)

// PDN converts an amount of coins into base units.
func PDN(amount float64) uint64 {
	return uint64(amount * DecimalScaleFactor)
}

// MiningFee returns the amount a miner is paid for the block with the
// specified id. The reward drops by a third every interval.
func MiningFee(id uint64) uint64 {
	logical := id + feeBlockOffset

	amount := initialReward
	for logical >= halvingInterval {
		amount *= 2.0 / 3.0
		logical -= halvingInterval
	}

	return PDN(amount)
}

// SupplyAt returns the number of coins in circulation once the chain holds
// the specified number of blocks.
func SupplyAt(numBlocks uint64) float64 {
	var supply float64

	amount := initialReward
	for numBlocks >= halvingInterval {
		supply += halvingInterval * amount
		amount *= 2.0 / 3.0
		numBlocks -= halvingInterval
	}
	supply += float64(numBlocks) * amount

	return supply + supplyOffset
}
