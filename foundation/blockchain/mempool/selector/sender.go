package selector

import (
	"sort"

	"github.com/ardanlabs/pandanite/foundation/blockchain/database"
)

// senderSelect returns transactions with the best fee while giving every
// sender a turn and keeping each sender's transactions in timestamp order.
var senderSelect = func(m map[database.Address][]database.Transaction, howMany int) []database.Transaction {
	if howMany < 0 {
		howMany = 0
		for _, txs := range m {
			howMany += len(txs)
		}
	}

	// Sort the transactions per sender by timestamp.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byTimestamp(m[key]))
		}
	}

	// Pick the first transaction in the slice for each sender. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]database.Transaction
	for {
		var row []database.Transaction
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	// Sort each row by fee so the output doesn't depend on map order. Then
	// keep pulling transactions from each row until the amount is fulfilled
	// or there are no more transactions.
	final := []database.Transaction{}
	for _, row := range rows {
		sort.Sort(byFee(row))

		need := howMany - len(final)
		if len(row) >= need {
			final = append(final, row[:need]...)
			break
		}
		final = append(final, row...)
	}

	return final
}
