package substrate

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FakeGenesisTime is the default clock value of a fresh FakeSubstrate.
// A fixed reference point keeps test scenarios reproducible.
var FakeGenesisTime = time.Unix(1608600000, 0).UTC()

// Errors surfaced by the fake. Real adapters map their substrate's
// failures onto the same shapes.
var (
	ErrInsufficientFunds     = errors.New("insufficient wei balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
)

// FakeSubstrate is an in-memory settlement substrate with a manual
// clock. It models wei balances, per-token balances and the allowance
// the token owner grants the engine, which is exactly the surface the
// crowdsale engine consumes.
//
// It is not safe for concurrent use; the engine serializes all calls
// behind its own lock.
type FakeSubstrate struct {
	engine common.Address // the account the adapter is bound to

	now time.Time

	weiBalances map[common.Address]*big.Int

	// token -> holder -> balance
	tokenBalances map[common.Address]map[common.Address]*big.Int

	// token -> (owner of the sale supply, allowance to the engine)
	tokenOwners map[common.Address]common.Address
	allowances  map[common.Address]*big.Int
}

// NewFake returns a FakeSubstrate bound to the given engine account,
// with the clock at FakeGenesisTime and pre-funded wei balances.
func NewFake(engine common.Address, balances map[common.Address]*big.Int) *FakeSubstrate {
	f := &FakeSubstrate{
		engine:        engine,
		now:           FakeGenesisTime,
		weiBalances:   make(map[common.Address]*big.Int),
		tokenBalances: make(map[common.Address]map[common.Address]*big.Int),
		tokenOwners:   make(map[common.Address]common.Address),
		allowances:    make(map[common.Address]*big.Int),
	}
	for addr, bal := range balances {
		f.weiBalances[addr] = new(big.Int).Set(bal)
	}
	return f
}

// SetTime moves the manual clock to an absolute point.
func (f *FakeSubstrate) SetTime(t time.Time) {
	f.now = t
}

// Advance moves the manual clock forward by d.
func (f *FakeSubstrate) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Approve grants the engine an allowance of amount token units owned by
// owner, crediting owner's token balance if needed. This mirrors the
// token-contract approve call the sale owner performs before a sale.
func (f *FakeSubstrate) Approve(token, owner common.Address, amount *big.Int) {
	f.tokenOwners[token] = owner
	f.allowances[token] = new(big.Int).Set(amount)
	balances := f.tokenBalances[token]
	if balances == nil {
		balances = make(map[common.Address]*big.Int)
		f.tokenBalances[token] = balances
	}
	bal := balances[owner]
	if bal == nil || bal.Cmp(amount) < 0 {
		balances[owner] = new(big.Int).Set(amount)
	}
}

// TokenBalanceOf returns a copy of holder's balance of the given token.
func (f *FakeSubstrate) TokenBalanceOf(token, holder common.Address) *big.Int {
	if balances, ok := f.tokenBalances[token]; ok {
		if bal, ok := balances[holder]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// Allowance returns a copy of the engine's remaining allowance for the
// given token.
func (f *FakeSubstrate) Allowance(token common.Address) *big.Int {
	if allowance, ok := f.allowances[token]; ok {
		return new(big.Int).Set(allowance)
	}
	return new(big.Int)
}

// WeiBalanceOf returns a copy of addr's wei balance.
func (f *FakeSubstrate) WeiBalanceOf(addr common.Address) *big.Int {
	if bal, ok := f.weiBalances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

func (f *FakeSubstrate) moveWei(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative wei transfer %s", amount)
	}
	bal := f.weiBalances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s",
			ErrInsufficientFunds, from.Hex(), f.WeiBalanceOf(from), amount)
	}
	bal.Sub(bal, amount)
	dst := f.weiBalances[to]
	if dst == nil {
		dst = new(big.Int)
		f.weiBalances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

// TransferIn implements Substrate.
func (f *FakeSubstrate) TransferIn(from common.Address, amountWei *big.Int) error {
	return f.moveWei(from, f.engine, amountWei)
}

// TransferOut implements Substrate.
func (f *FakeSubstrate) TransferOut(to common.Address, amountWei *big.Int) error {
	return f.moveWei(f.engine, to, amountWei)
}

// TransferToken implements Substrate: spends the engine's allowance to
// move tokens from the sale owner to the recipient.
func (f *FakeSubstrate) TransferToken(token, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative token transfer %s", amount)
	}
	allowance := f.allowances[token]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s", ErrInsufficientAllowance, token.Hex())
	}
	owner := f.tokenOwners[token]
	balances := f.tokenBalances[token]
	ownerBal := balances[owner]
	if ownerBal == nil || ownerBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: owner balance below allowance", ErrInsufficientAllowance)
	}
	allowance.Sub(allowance, amount)
	ownerBal.Sub(ownerBal, amount)
	dst := balances[to]
	if dst == nil {
		dst = new(big.Int)
		balances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

// BurnAllowance implements Substrate: releases unsold allowance back to
// the owner without moving balances.
func (f *FakeSubstrate) BurnAllowance(token common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative allowance burn %s", amount)
	}
	allowance := f.allowances[token]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: burn %s exceeds allowance", ErrInsufficientAllowance, amount)
	}
	allowance.Sub(allowance, amount)
	return nil
}

// AllowanceOf implements Substrate.
func (f *FakeSubstrate) AllowanceOf(token common.Address) (*big.Int, error) {
	if allowance, ok := f.allowances[token]; ok {
		return new(big.Int).Set(allowance), nil
	}
	return new(big.Int), nil
}

// BalanceOf implements Substrate.
func (f *FakeSubstrate) BalanceOf(token, holder common.Address) (*big.Int, error) {
	if balances, ok := f.tokenBalances[token]; ok {
		if bal, ok := balances[holder]; ok {
			return new(big.Int).Set(bal), nil
		}
	}
	return new(big.Int), nil
}

// FundBalance implements Substrate.
func (f *FakeSubstrate) FundBalance() (*big.Int, error) {
	return f.WeiBalanceOf(f.engine), nil
}

// CurrentTime implements Substrate.
func (f *FakeSubstrate) CurrentTime() time.Time {
	return f.now
}
