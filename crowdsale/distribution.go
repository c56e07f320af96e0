package crowdsale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// End-of-sale settlement: token and bonus-token distribution, burning
// the unsold allowance and forwarding the collected funds. Everything
// here operates only after the sale has Ended.

// ClaimTokens delivers an address's normal tokens (direct plus
// external) through the substrate and zeroes the claimed fields.
// Claiming with nothing outstanding is a no-op with zero transfer, so
// a double claim can never double-pay.
func (e *Engine) ClaimTokens(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distributeTokensLocked(addr)
}

// DistributeTokens is the operator-push variant of ClaimTokens; the
// checks and effects are identical.
func (e *Engine) DistributeTokens(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distributeTokensLocked(addr)
}

func (e *Engine) distributeTokensLocked(addr common.Address) error {
	if err := e.requireState(Ended, Completed); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if e.cfg.RequireKYC && !e.whitelist.KYCApproved(addr) {
		return fmt.Errorf("%w: %s lacks KYC approval", ErrAdmissionDenied, addr.Hex())
	}

	acc, ok := e.ledger.Lookup(addr)
	if !ok {
		return nil
	}
	amount := new(big.Int).Add(acc.Tokens, acc.ExternalTokens)
	if amount.Sign() == 0 {
		e.log.WithField("addr", addr.Hex()).Debug("nothing to claim")
		return nil
	}

	if err := e.sub.TransferToken(e.cfg.Token, addr, amount); err != nil {
		return err
	}

	acc.Tokens.SetInt64(0)
	acc.ExternalTokens.SetInt64(0)
	e.distributed[addr] = true
	e.claimedTokens.Add(e.claimedTokens, amount)

	e.log.WithFields(logrus.Fields{
		"addr":   addr.Hex(),
		"tokens": amount.String(),
	}).Info("tokens distributed")
	return nil
}

// ClaimBonusTokens delivers an address's bonus tokens once the vesting
// window after sale end has elapsed.
func (e *Engine) ClaimBonusTokens(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distributeBonusLocked(addr)
}

// DistributeBonusTokens is the operator-push variant of
// ClaimBonusTokens.
func (e *Engine) DistributeBonusTokens(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distributeBonusLocked(addr)
}

func (e *Engine) distributeBonusLocked(addr common.Address) error {
	if err := e.requireState(Ended, Completed); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if e.cfg.RequireKYC && !e.whitelist.KYCApproved(addr) {
		return fmt.Errorf("%w: %s lacks KYC approval", ErrAdmissionDenied, addr.Hex())
	}
	now := e.sub.CurrentTime()
	unlockAt := e.endedAt.Add(e.cfg.VestingPeriod)
	if now.Before(unlockAt) {
		return fmt.Errorf("%w: bonus unlocks at %s", ErrVestingNotReached, unlockAt.UTC())
	}

	acc, ok := e.ledger.Lookup(addr)
	if !ok {
		return nil
	}
	amount := new(big.Int).Add(acc.BonusTokens, acc.ExternalBonusTokens)
	if amount.Sign() == 0 {
		e.log.WithField("addr", addr.Hex()).Debug("no bonus to claim")
		return nil
	}

	if err := e.sub.TransferToken(e.cfg.Token, addr, amount); err != nil {
		return err
	}

	acc.BonusTokens.SetInt64(0)
	acc.ExternalBonusTokens.SetInt64(0)
	e.bonusDistributed[addr] = true
	e.claimedTokens.Add(e.claimedTokens, amount)

	e.log.WithFields(logrus.Fields{
		"addr":   addr.Hex(),
		"tokens": amount.String(),
	}).Info("bonus tokens distributed")
	return nil
}

// BurnExtraTokens releases the part of the substrate allowance that no
// outstanding allocation backs. After it runs, the allowance equals
// exactly the allocated-but-unclaimed tokens, so once every claim is
// served the allowance reaches the zero Complete requires.
func (e *Engine) BurnExtraTokens() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Ended); err != nil {
		return err
	}
	allowance, err := e.sub.AllowanceOf(e.cfg.Token)
	if err != nil {
		return err
	}
	unclaimed := new(big.Int).Sub(e.supply.TotalAllocated(), e.claimedTokens)
	excess := new(big.Int).Sub(allowance, unclaimed)
	if excess.Sign() <= 0 {
		return nil
	}
	if err := e.sub.BurnAllowance(e.cfg.Token, excess); err != nil {
		return err
	}
	e.log.WithField("burned", excess.String()).Info("unsold allowance burned")
	return nil
}

// PartialForwardFunds transfers part of the collected funds to the
// beneficiary wallet. The cumulative forwarded amount can never exceed
// the contributions of KYC-covered addresses, and the transfer fails if
// the engine's fund balance cannot cover it.
func (e *Engine) PartialForwardFunds(amountWei *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Ended, Completed); err != nil {
		return err
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive forward amount", ErrInvalidParameter)
	}
	return e.forwardLocked(amountWei)
}

// forwardLocked transfers amountWei (or, when nil, everything still
// forwardable) to the wallet.
func (e *Engine) forwardLocked(amountWei *big.Int) error {
	forwardable := new(big.Int).Sub(e.coveredInvestedLocked(), e.forwardedWei)
	if amountWei == nil {
		balance, err := e.sub.FundBalance()
		if err != nil {
			return err
		}
		amountWei = forwardable
		if balance.Cmp(amountWei) < 0 {
			amountWei = balance
		}
		if amountWei.Sign() <= 0 {
			return nil
		}
	} else if amountWei.Cmp(forwardable) > 0 {
		return fmt.Errorf("%w: forward %s exceeds forwardable %s",
			ErrInvalidParameter, amountWei, forwardable)
	}

	if err := e.sub.TransferOut(e.cfg.Wallet, amountWei); err != nil {
		return err
	}
	e.forwardedWei.Add(e.forwardedWei, amountWei)

	e.log.WithFields(logrus.Fields{
		"wallet": e.cfg.Wallet.Hex(),
		"wei":    amountWei.String(),
	}).Info("funds forwarded")
	return nil
}

// coveredInvestedLocked sums the direct contributions eligible for
// forwarding: all of them when no KYC gate is in force, otherwise only
// those of KYC-approved addresses.
func (e *Engine) coveredInvestedLocked() *big.Int {
	sum := new(big.Int)
	for _, addr := range e.ledger.Addresses() {
		if e.cfg.RequireKYC && !e.whitelist.KYCApproved(addr) {
			continue
		}
		acc, _ := e.ledger.Lookup(addr)
		sum.Add(sum, acc.InvestedWei)
	}
	return sum
}
