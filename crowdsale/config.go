// Package crowdsale implements a token-sale ledger and disbursement
// engine: it tracks contributions made in wei and in an external
// operator-reported channel, converts them into token allocations with
// a time-decaying bonus schedule, enforces the sale lifecycle, and
// settles distribution and refunds after the sale ends.
//
// The package provides:
//   - SaleConfig: the sale parameters as a value (rates, bounds, tiers)
//   - Engine: the serialized state machine owning the ledger
//   - BonusSchedule: the elapsed-time bonus step function
//   - Whitelist: per-address admission caps and KYC flags
//   - Ledger / SupplyTracker: per-address and aggregate accounting
//
// All value movement goes through a substrate.Substrate adapter; the
// engine itself never touches keys, signatures or wire formats.
package crowdsale

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/ViolaAI/viola-crowdsale/inter"
)

// SaleConfig describes one crowdsale. It is validated once by
// Initialize and immutable afterwards except through the explicitly
// state-gated setters (SetRate, SetTierRate, SetTierBoundary).
//
// Note: when implementing Copy(), every *big.Int field must be
// deep-copied to avoid shared state between config values.
type SaleConfig struct {
	// StartTime is when purchases may begin. Start refuses to run
	// before it.
	StartTime inter.Timestamp

	// EndTime is the optional fixed close of the sale. Zero means the
	// sale has no fixed end and terminates only by sell-out or a manual
	// End.
	EndTime inter.Timestamp

	// Rate is the number of token units issued per wei contributed.
	Rate *big.Int

	// MinWeiToPurchase / MaxWeiToPurchase bound a single direct
	// contribution. Nil or zero disables the respective bound.
	MinWeiToPurchase *big.Int
	MaxWeiToPurchase *big.Int

	// LeftoverBuffer is the remaining-supply threshold at or below
	// which the sale auto-terminates after a purchase.
	LeftoverBuffer *big.Int

	// Bonus is the time-decaying bonus schedule.
	Bonus BonusSchedule

	// VestingPeriod is the mandatory delay after sale end before bonus
	// tokens become claimable.
	VestingPeriod time.Duration

	// RequireKYC gates claims and fund forwarding on per-address KYC
	// approval when true.
	RequireKYC bool

	// Wallet receives forwarded funds; Token is the token contract the
	// substrate transfers and burns on the engine's behalf.
	Wallet common.Address
	Token  common.Address
}

// DefaultSaleConfig returns the production sale profile: a 20 day sale
// with the standard 30/15/8 descending bonus tiers, a 180 day bonus
// vesting window and KYC-gated distribution.
func DefaultSaleConfig(start time.Time, wallet, token common.Address) SaleConfig {
	startTs := inter.FromTime(start)
	return SaleConfig{
		StartTime:        startTs,
		EndTime:          startTs.Add(20 * 24 * time.Hour),
		Rate:             big.NewInt(1000),                  // 1000 token units per wei
		MinWeiToPurchase: big.NewInt(params.GWei),           // dust filter
		MaxWeiToPurchase: new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether)),
		LeftoverBuffer:   big.NewInt(0),
		Bonus: BonusSchedule{
			Tiers: []BonusTier{
				{EndDay: 2, RatePercent: 30},
				{EndDay: 10, RatePercent: 15},
			},
			FinalRate: 8,
		},
		VestingPeriod: 180 * 24 * time.Hour,
		RequireKYC:    true,
		Wallet:        wallet,
		Token:         token,
	}
}

// FakeSaleConfig returns an accelerated profile for testing and
// development: no contribution bounds, a short vesting window and no
// KYC gate, so scenarios run without operator ceremony.
func FakeSaleConfig(start time.Time, wallet, token common.Address) SaleConfig {
	cfg := DefaultSaleConfig(start, wallet, token)
	cfg.MinWeiToPurchase = nil
	cfg.MaxWeiToPurchase = nil
	cfg.VestingPeriod = time.Hour
	cfg.RequireKYC = false
	return cfg
}

// Validate checks the structural invariants of the config:
// positive rate, non-zero wallet/token/start, end after start when set,
// min not above max when both set, ascending bonus boundaries.
func (c SaleConfig) Validate() error {
	if c.Rate == nil || c.Rate.Sign() <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidParameter)
	}
	if c.StartTime.IsZero() {
		return fmt.Errorf("%w: start time not set", ErrInvalidParameter)
	}
	if !c.EndTime.IsZero() && c.EndTime <= c.StartTime {
		return fmt.Errorf("%w: end time not after start time", ErrInvalidParameter)
	}
	if c.MinWeiToPurchase != nil && c.MinWeiToPurchase.Sign() < 0 {
		return fmt.Errorf("%w: negative min purchase", ErrInvalidParameter)
	}
	if c.MaxWeiToPurchase != nil && c.MaxWeiToPurchase.Sign() < 0 {
		return fmt.Errorf("%w: negative max purchase", ErrInvalidParameter)
	}
	if c.MinWeiToPurchase != nil && c.MaxWeiToPurchase != nil &&
		c.MinWeiToPurchase.Sign() > 0 && c.MaxWeiToPurchase.Sign() > 0 &&
		c.MinWeiToPurchase.Cmp(c.MaxWeiToPurchase) > 0 {
		return fmt.Errorf("%w: min purchase above max purchase", ErrInvalidParameter)
	}
	if c.LeftoverBuffer != nil && c.LeftoverBuffer.Sign() < 0 {
		return fmt.Errorf("%w: negative leftover buffer", ErrInvalidParameter)
	}
	if c.VestingPeriod < 0 {
		return fmt.Errorf("%w: negative vesting period", ErrInvalidParameter)
	}
	if c.Wallet == (common.Address{}) {
		return fmt.Errorf("%w: zero wallet address", ErrInvalidParameter)
	}
	if c.Token == (common.Address{}) {
		return fmt.Errorf("%w: zero token address", ErrInvalidParameter)
	}
	return c.Bonus.validate()
}

// Copy creates a deep copy of the config. Necessary because SaleConfig
// contains *big.Int fields and a tier slice that would otherwise be
// shared by a plain struct copy.
func (c SaleConfig) Copy() SaleConfig {
	cp := c
	cp.Rate = copyBig(c.Rate)
	cp.MinWeiToPurchase = copyBig(c.MinWeiToPurchase)
	cp.MaxWeiToPurchase = copyBig(c.MaxWeiToPurchase)
	cp.LeftoverBuffer = copyBig(c.LeftoverBuffer)
	cp.Bonus = c.Bonus.copySchedule()
	return cp
}

// String returns a JSON representation for logging and config dumps.
func (c SaleConfig) String() string {
	b, _ := json.Marshal(&c)
	return string(b)
}

// leftoverBuffer returns the configured buffer, treating nil as zero.
func (c SaleConfig) leftoverBuffer() *big.Int {
	if c.LeftoverBuffer == nil {
		return new(big.Int)
	}
	return c.LeftoverBuffer
}

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}
