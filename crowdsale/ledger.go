package crowdsale

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// Account is the per-address ledger row. The direct sub-ledger
// (InvestedWei, Tokens, BonusTokens) records contributions paid through
// the settlement substrate; the external sub-ledger (ExternalTokens,
// ExternalBonusTokens) records purchases reported by the operator for
// value received off-substrate (fiat, another chain).
//
// Invariants: every field stays non-negative, and InvestedWei always
// equals the wei that produced the still-outstanding Tokens — refunds
// decrement both in lockstep.
type Account struct {
	InvestedWei         *big.Int
	Tokens              *big.Int
	BonusTokens         *big.Int
	ExternalTokens      *big.Int
	ExternalBonusTokens *big.Int
}

func newAccount() *Account {
	return &Account{
		InvestedWei:         new(big.Int),
		Tokens:              new(big.Int),
		BonusTokens:         new(big.Int),
		ExternalTokens:      new(big.Int),
		ExternalBonusTokens: new(big.Int),
	}
}

// Total returns the sum of all four token fields.
func (a *Account) Total() *big.Int {
	sum := new(big.Int).Add(a.Tokens, a.BonusTokens)
	sum.Add(sum, a.ExternalTokens)
	return sum.Add(sum, a.ExternalBonusTokens)
}

// TotalNormal returns direct plus external non-bonus tokens.
func (a *Account) TotalNormal() *big.Int {
	return new(big.Int).Add(a.Tokens, a.ExternalTokens)
}

// TotalBonus returns direct plus external bonus tokens.
func (a *Account) TotalBonus() *big.Int {
	return new(big.Int).Add(a.BonusTokens, a.ExternalBonusTokens)
}

// Ledger is the keyed store of all accounts. Rows are created lazily on
// first purchase and zeroed, never deleted, so the audit history of an
// address survives refunds.
type Ledger struct {
	accounts map[common.Address]*Account
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[common.Address]*Account)}
}

// Account returns the row for addr, creating a zeroed one if absent.
func (l *Ledger) Account(addr common.Address) *Account {
	acc, ok := l.accounts[addr]
	if !ok {
		acc = newAccount()
		l.accounts[addr] = acc
	}
	return acc
}

// Lookup returns the row for addr without creating one. The second
// result reports whether the row exists.
func (l *Ledger) Lookup(addr common.Address) (*Account, bool) {
	acc, ok := l.accounts[addr]
	return acc, ok
}

// Addresses returns all addresses with a ledger row, sorted for
// deterministic iteration.
func (l *Ledger) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(l.accounts))
	for addr := range l.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Hex() < addrs[j].Hex()
	})
	return addrs
}

// TotalAllocated sums every token field over every account. This is the
// reconciliation primitive the supply counter is checked against.
func (l *Ledger) TotalAllocated() *big.Int {
	sum := new(big.Int)
	for _, acc := range l.accounts {
		sum.Add(sum, acc.Total())
	}
	return sum
}
