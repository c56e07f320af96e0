package crowdsale

import (
	"math/big"
)

// SupplyTracker keeps the aggregate token counters: how much of the
// sellable supply has been allocated, how much of that was reserved
// through the external (presale/fiat) channel, and the leftover buffer
// below which the sale auto-terminates.
//
// The tracker enforces nothing by itself; the engine checks CanAllocate
// before mutating and keeps the ledger and the tracker in lockstep so
// that Σ ledger token fields == TotalAllocated at all times.
type SupplyTracker struct {
	totalAllocated  *big.Int
	reservedPresale *big.Int
	sellableSupply  *big.Int
	leftoverBuffer  *big.Int
}

// NewSupplyTracker returns a tracker with the given auto-end buffer.
// The sellable supply is zero until SetSellable samples the substrate
// allowance at sale start.
func NewSupplyTracker(leftoverBuffer *big.Int) *SupplyTracker {
	if leftoverBuffer == nil {
		leftoverBuffer = new(big.Int)
	}
	return &SupplyTracker{
		totalAllocated:  new(big.Int),
		reservedPresale: new(big.Int),
		sellableSupply:  new(big.Int),
		leftoverBuffer:  new(big.Int).Set(leftoverBuffer),
	}
}

// SetSellable records the sellable supply derived from the substrate's
// token allowance to the engine.
func (s *SupplyTracker) SetSellable(amount *big.Int) {
	s.sellableSupply = new(big.Int).Set(amount)
}

// CanAllocate reports whether allocating amount more tokens keeps the
// running total within the sellable supply.
func (s *SupplyTracker) CanAllocate(amount *big.Int) bool {
	next := new(big.Int).Add(s.totalAllocated, amount)
	return next.Cmp(s.sellableSupply) <= 0
}

// Allocate adds amount to the running total. The caller must have
// checked CanAllocate first.
func (s *SupplyTracker) Allocate(amount *big.Int) {
	s.totalAllocated.Add(s.totalAllocated, amount)
}

// AllocateReserved adds amount to both the running total and the
// external-channel reservation counter.
func (s *SupplyTracker) AllocateReserved(amount *big.Int) {
	s.Allocate(amount)
	s.reservedPresale.Add(s.reservedPresale, amount)
}

// Release undoes a prior allocation (refund path).
func (s *SupplyTracker) Release(amount *big.Int) {
	s.totalAllocated.Sub(s.totalAllocated, amount)
}

// ReleaseReserved undoes a prior external-channel allocation.
func (s *SupplyTracker) ReleaseReserved(amount *big.Int) {
	s.Release(amount)
	s.reservedPresale.Sub(s.reservedPresale, amount)
}

// TokensLeft returns sellable supply minus the running total.
func (s *SupplyTracker) TokensLeft() *big.Int {
	return new(big.Int).Sub(s.sellableSupply, s.totalAllocated)
}

// TotalAllocated returns a copy of the running total.
func (s *SupplyTracker) TotalAllocated() *big.Int {
	return new(big.Int).Set(s.totalAllocated)
}

// ReservedPresale returns a copy of the external-channel reservation.
func (s *SupplyTracker) ReservedPresale() *big.Int {
	return new(big.Int).Set(s.reservedPresale)
}

// SellableSupply returns a copy of the sampled sellable supply.
func (s *SupplyTracker) SellableSupply() *big.Int {
	return new(big.Int).Set(s.sellableSupply)
}

// SoldOut reports whether remaining supply has fallen to the leftover
// buffer (or to exactly zero), the auto-termination condition.
func (s *SupplyTracker) SoldOut() bool {
	left := s.TokensLeft()
	return left.Sign() == 0 || left.Cmp(s.leftoverBuffer) <= 0
}

// LeftoverBuffer returns a copy of the configured buffer.
func (s *SupplyTracker) LeftoverBuffer() *big.Int {
	return new(big.Int).Set(s.leftoverBuffer)
}
