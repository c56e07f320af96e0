package crowdsale

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// WhitelistEntry holds the admission data for one address: the maximum
// lifetime contribution in wei and the KYC approval flag supplied by
// the external KYC authority. A cap of zero means not admitted.
type WhitelistEntry struct {
	Cap         *big.Int
	KYCApproved bool
}

// Whitelist is the admission-control table. Entries are created lazily
// and zeroed rather than deleted, preserving audit history.
type Whitelist struct {
	entries map[common.Address]*WhitelistEntry
}

// NewWhitelist returns an empty admission table.
func NewWhitelist() *Whitelist {
	return &Whitelist{entries: make(map[common.Address]*WhitelistEntry)}
}

// entry returns the row for addr, creating a zeroed one if absent.
func (w *Whitelist) entry(addr common.Address) *WhitelistEntry {
	e, ok := w.entries[addr]
	if !ok {
		e = &WhitelistEntry{Cap: new(big.Int)}
		w.entries[addr] = e
	}
	return e
}

// SetCap admits an address with the given lifetime cap in wei.
// The cap must be strictly positive and the address non-zero;
// overwriting an existing cap is allowed.
func (w *Whitelist) SetCap(addr common.Address, capWei *big.Int) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if capWei == nil || capWei.Sign() <= 0 {
		return fmt.Errorf("%w: whitelist cap must be positive", ErrInvalidParameter)
	}
	w.entry(addr).Cap = new(big.Int).Set(capWei)
	return nil
}

// ClearCap resets an address's cap to zero, revoking admission.
// The caller (the engine) is responsible for the accompanying refund.
func (w *Whitelist) ClearCap(addr common.Address) {
	w.entry(addr).Cap = new(big.Int)
}

// CapOf returns the current cap for addr (zero if never admitted).
func (w *Whitelist) CapOf(addr common.Address) *big.Int {
	if e, ok := w.entries[addr]; ok {
		return new(big.Int).Set(e.Cap)
	}
	return new(big.Int)
}

// SetKYC records the KYC approval flag supplied by the external
// authority.
func (w *Whitelist) SetKYC(addr common.Address, approved bool) {
	w.entry(addr).KYCApproved = approved
}

// KYCApproved reports whether addr holds a current KYC approval.
func (w *Whitelist) KYCApproved(addr common.Address) bool {
	e, ok := w.entries[addr]
	return ok && e.KYCApproved
}

// Admit runs the full admission check for a direct contribution:
// the address must hold a positive cap, the cumulative contribution
// must stay within it, and the single amount must respect the global
// min/max bounds when configured. Any violation denies the whole
// purchase.
func (w *Whitelist) Admit(addr common.Address, invested, amount, minWei, maxWei *big.Int) error {
	e, ok := w.entries[addr]
	if !ok || e.Cap.Sign() <= 0 {
		return fmt.Errorf("%w: %s not whitelisted", ErrAdmissionDenied, addr.Hex())
	}
	if minWei != nil && minWei.Sign() > 0 && amount.Cmp(minWei) < 0 {
		return fmt.Errorf("%w: amount below minimum purchase", ErrAdmissionDenied)
	}
	if maxWei != nil && maxWei.Sign() > 0 && amount.Cmp(maxWei) > 0 {
		return fmt.Errorf("%w: amount above maximum purchase", ErrAdmissionDenied)
	}
	total := new(big.Int).Add(invested, amount)
	if total.Cmp(e.Cap) > 0 {
		return fmt.Errorf("%w: cap exceeded for %s", ErrAdmissionDenied, addr.Hex())
	}
	return nil
}

// Addresses returns every address with a whitelist row, sorted, for
// deterministic iteration (snapshots, fund forwarding).
func (w *Whitelist) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(w.entries))
	for addr := range w.entries {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Hex() < addrs[j].Hex()
	})
	return addrs
}
