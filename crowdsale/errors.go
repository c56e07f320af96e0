package crowdsale

import (
	"errors"
)

// Error taxonomy of the crowdsale engine. Every public operation either
// fully commits or returns exactly one of these sentinels (usually
// wrapped with fmt.Errorf("%w: ...") for context) having mutated
// nothing. Callers match with errors.Is.
//
// There are no process-fatal errors: a rejected operation leaves the
// engine fully operational for the next call.
var (
	// ErrInvalidState is returned when an operation is not legal in the
	// current lifecycle state (e.g. purchasing while Paused, claiming
	// before Ended).
	ErrInvalidState = errors.New("operation not allowed in current crowdsale state")

	// ErrAdmissionDenied is returned when a purchase fails the
	// whitelist/cap admission check: the buyer has no cap, the purchase
	// would exceed the cap, or the amount falls outside the configured
	// global min/max bounds.
	ErrAdmissionDenied = errors.New("purchase denied by admission control")

	// ErrSupplyExceeded is returned when an allocation would push the
	// running total past the sellable supply.
	ErrSupplyExceeded = errors.New("allocation exceeds sellable token supply")

	// ErrDuplicatePurchase is returned when an externally reported
	// purchase carries a (buyer, purchaseID) pair that was already
	// applied.
	ErrDuplicatePurchase = errors.New("external purchase already recorded")

	// ErrRefundExceedsRecorded is returned when a refund asks for more
	// wei or tokens than the ledger currently records for the address.
	ErrRefundExceedsRecorded = errors.New("refund exceeds recorded amounts")

	// ErrVestingNotReached is returned when bonus tokens are claimed
	// before the vesting window after sale end has elapsed.
	ErrVestingNotReached = errors.New("bonus vesting period not reached")

	// ErrAllowanceOutstanding is returned by Complete while the
	// settlement substrate still holds unreleased token allowance for
	// the engine. BurnExtraTokens and the remaining claims must bring
	// the allowance to exactly zero first.
	ErrAllowanceOutstanding = errors.New("token allowance still outstanding")

	// ErrInvalidParameter is returned for malformed inputs: zero
	// address, zero cap, non-positive rate, min above max.
	ErrInvalidParameter = errors.New("invalid parameter")
)
