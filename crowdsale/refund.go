package crowdsale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Refund logic: compensating transactions that exactly undo prior
// allocations. Every refund decrements the ledger row and the supply
// counters in lockstep and, for direct contributions, returns the wei
// through the substrate. All paths are fail-atomic: the substrate
// transfer happens before any ledger mutation.

// Refund returns an address's entire outstanding direct contribution
// and zeroes the direct sub-ledger. A zeroed account is a no-op.
func (e *Engine) Refund(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Active, Paused, Ended); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	return e.refundDirectLocked(addr)
}

// refundDirectLocked is the shared full-refund path used by Refund,
// RemoveWhitelist and RevokeKYC.
func (e *Engine) refundDirectLocked(addr common.Address) error {
	acc, ok := e.ledger.Lookup(addr)
	if !ok {
		return nil
	}
	removed := new(big.Int).Add(acc.Tokens, acc.BonusTokens)
	if acc.InvestedWei.Sign() == 0 && removed.Sign() == 0 {
		return nil
	}
	if e.distributed[addr] || e.bonusDistributed[addr] {
		return fmt.Errorf("%w: %s already received a distribution", ErrInvalidState, addr.Hex())
	}

	if acc.InvestedWei.Sign() > 0 {
		if err := e.sub.TransferOut(addr, acc.InvestedWei); err != nil {
			return err
		}
	}

	e.log.WithFields(logrus.Fields{
		"addr":   addr.Hex(),
		"wei":    acc.InvestedWei.String(),
		"tokens": acc.Tokens.String(),
		"bonus":  acc.BonusTokens.String(),
	}).Info("direct contribution refunded")

	acc.InvestedWei.SetInt64(0)
	acc.Tokens.SetInt64(0)
	acc.BonusTokens.SetInt64(0)
	e.supply.Release(removed)
	return nil
}

// RefundPartial is the operator-initiated correction: it returns
// weiAmount to the address and removes the given token and bonus-token
// amounts from its direct sub-ledger. Every argument must be at most
// the currently recorded amount, and the address must not have
// received a distribution yet.
func (e *Engine) RefundPartial(addr common.Address, weiAmount, tokens, bonusTokens *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Active, Paused, Ended); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if weiAmount == nil || weiAmount.Sign() < 0 ||
		tokens == nil || tokens.Sign() < 0 ||
		bonusTokens == nil || bonusTokens.Sign() < 0 {
		return fmt.Errorf("%w: negative refund amounts", ErrInvalidParameter)
	}
	if e.distributed[addr] || e.bonusDistributed[addr] {
		return fmt.Errorf("%w: %s already received a distribution", ErrInvalidState, addr.Hex())
	}
	acc, ok := e.ledger.Lookup(addr)
	if !ok {
		acc = newAccount()
	}
	if weiAmount.Cmp(acc.InvestedWei) > 0 {
		return fmt.Errorf("%w: wei %s > invested %s", ErrRefundExceedsRecorded, weiAmount, acc.InvestedWei)
	}
	if tokens.Cmp(acc.Tokens) > 0 {
		return fmt.Errorf("%w: tokens %s > recorded %s", ErrRefundExceedsRecorded, tokens, acc.Tokens)
	}
	if bonusTokens.Cmp(acc.BonusTokens) > 0 {
		return fmt.Errorf("%w: bonus %s > recorded %s", ErrRefundExceedsRecorded, bonusTokens, acc.BonusTokens)
	}

	if weiAmount.Sign() > 0 {
		if err := e.sub.TransferOut(addr, weiAmount); err != nil {
			return err
		}
	}

	acc.InvestedWei.Sub(acc.InvestedWei, weiAmount)
	acc.Tokens.Sub(acc.Tokens, tokens)
	acc.BonusTokens.Sub(acc.BonusTokens, bonusTokens)
	e.supply.Release(new(big.Int).Add(tokens, bonusTokens))

	e.log.WithFields(logrus.Fields{
		"addr":   addr.Hex(),
		"wei":    weiAmount.String(),
		"tokens": tokens.String(),
		"bonus":  bonusTokens.String(),
	}).Info("partial refund applied")
	return nil
}

// RefundExternalPurchase reverses part of an address's external
// sub-ledger. No funds move; settlement of the external channel
// happened off-system.
func (e *Engine) RefundExternalPurchase(addr common.Address, tokens, bonusTokens *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Active, Paused, Ended); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if tokens == nil || tokens.Sign() < 0 || bonusTokens == nil || bonusTokens.Sign() < 0 {
		return fmt.Errorf("%w: negative refund amounts", ErrInvalidParameter)
	}
	if e.distributed[addr] || e.bonusDistributed[addr] {
		return fmt.Errorf("%w: %s already received a distribution", ErrInvalidState, addr.Hex())
	}
	acc, ok := e.ledger.Lookup(addr)
	if !ok {
		acc = newAccount()
	}
	if tokens.Cmp(acc.ExternalTokens) > 0 {
		return fmt.Errorf("%w: tokens %s > recorded %s", ErrRefundExceedsRecorded, tokens, acc.ExternalTokens)
	}
	if bonusTokens.Cmp(acc.ExternalBonusTokens) > 0 {
		return fmt.Errorf("%w: bonus %s > recorded %s", ErrRefundExceedsRecorded, bonusTokens, acc.ExternalBonusTokens)
	}

	acc.ExternalTokens.Sub(acc.ExternalTokens, tokens)
	acc.ExternalBonusTokens.Sub(acc.ExternalBonusTokens, bonusTokens)
	e.supply.ReleaseReserved(new(big.Int).Add(tokens, bonusTokens))

	e.log.WithFields(logrus.Fields{
		"addr":   addr.Hex(),
		"tokens": tokens.String(),
		"bonus":  bonusTokens.String(),
	}).Info("external purchase refunded")
	return nil
}

// RefundAllExternalPurchase zeroes an address's entire external
// sub-ledger.
func (e *Engine) RefundAllExternalPurchase(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Active, Paused, Ended); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if e.distributed[addr] || e.bonusDistributed[addr] {
		return fmt.Errorf("%w: %s already received a distribution", ErrInvalidState, addr.Hex())
	}
	e.refundAllExternalLocked(addr)
	return nil
}

func (e *Engine) refundAllExternalLocked(addr common.Address) {
	acc, ok := e.ledger.Lookup(addr)
	if !ok {
		return
	}
	removed := new(big.Int).Add(acc.ExternalTokens, acc.ExternalBonusTokens)
	if removed.Sign() == 0 {
		return
	}
	acc.ExternalTokens.SetInt64(0)
	acc.ExternalBonusTokens.SetInt64(0)
	e.supply.ReleaseReserved(removed)

	e.log.WithFields(logrus.Fields{
		"addr":    addr.Hex(),
		"removed": removed.String(),
	}).Info("all external purchases refunded")
}
