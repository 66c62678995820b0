// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFee    = "fee"
	StrategySender = "sender"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee:    feeSelect,
	StrategySender: senderSelect,
}

// Func defines a function that takes a mempool of transactions grouped by
// sender and selects howMany of them in an order based on the functions
// strategy. Receiving -1 for howMany must return all the transactions in the
// strategies ordering.
type Func func(transactions map[database.Address][]database.Transaction, howMany int) []database.Transaction

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byTimestamp provides sorting support by the transaction timestamp value.
type byTimestamp []database.Transaction

// Len returns the number of transactions in the list.
func (bt byTimestamp) Len() int {
	return len(bt)
}

// Less helps to sort the list by timestamp in ascending order to keep the
// transactions of a sender in the order they were created.
func (bt byTimestamp) Less(i, j int) bool {
	return bt[i].Timestamp < bt[j].Timestamp
}

// Swap moves transactions in the order of the timestamp value.
func (bt byTimestamp) Swap(i, j int) {
	bt[i], bt[j] = bt[j], bt[i]
}

// =============================================================================

// byFee provides sorting support by the transaction fee value. Ties are
// broken by the oldest timestamp.
type byFee []database.Transaction

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in descending order to pick the
// transactions that provide the best reward.
func (bf byFee) Less(i, j int) bool {
	if bf[i].Fee != bf[j].Fee {
		return bf[i].Fee > bf[j].Fee
	}
	return bf[i].Timestamp < bf[j].Timestamp
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
