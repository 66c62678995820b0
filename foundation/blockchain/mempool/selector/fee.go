package selector

import (
	"sort"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
)

// feeSelect returns the transactions with the best fee, oldest first when
// the fees are equal.
var feeSelect = func(m map[database.Address][]database.Transaction, howMany int) []database.Transaction {
	var all []database.Transaction
	for _, txs := range m {
		all = append(all, txs...)
	}

	sort.Stable(byFee(all))

	if howMany >= 0 && len(all) > howMany {
		all = all[:howMany]
	}

	return all
}
