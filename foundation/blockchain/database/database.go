// Package database provides the data model of the blockchain: wallet
// addresses, transactions, blocks and the balances derived from them, along
// with their JSON and compact binary encodings.
package database

import (
	"math/big"
	"sort"
)

// Balances maps wallet addresses to their balance in base units.
type Balances map[Address]uint64

// Copy makes a copy of the balances.
func (b Balances) Copy() Balances {
	cp := make(Balances, len(b))
	for addr, balance := range b {
		cp[addr] = balance
	}

	return cp
}

// Merge applies the entries of the delta on top of the balances.
func (b Balances) Merge(delta Balances) {
	for addr, balance := range delta {
		b[addr] = balance
	}
}

// Total returns the sum of all balances.
func (b Balances) Total() *big.Int {
	total := new(big.Int)

	var v big.Int
	for _, balance := range b {
		total.Add(total, v.SetUint64(balance))
	}

	return total
}

// Accounts returns the balances as a list of accounts sorted by address.
func (b Balances) Accounts() []Account {
	accounts := make([]Account, 0, len(b))
	for addr, balance := range b {
		accounts = append(accounts, Account{Address: addr, Balance: balance})
	}
	sort.Sort(ByAddress(accounts))

	return accounts
}
