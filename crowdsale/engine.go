package crowdsale

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ViolaAI/viola-crowdsale/substrate"
)

// purchaseKey identifies one externally reported purchase. Replays of
// the same key are rejected, which is the idempotency guard for the
// fiat channel.
type purchaseKey struct {
	addr common.Address
	id   string
}

// Engine is the crowdsale state machine and ledger. Every public
// operation runs as one serialized transaction behind a single writer
// lock: all invariant checks happen before any mutation, so a failed
// operation leaves no trace. Time is sampled exactly once per
// operation from the substrate clock.
type Engine struct {
	mu sync.Mutex

	cfg   SaleConfig
	state State

	sub substrate.Substrate
	log *logrus.Entry

	ledger    *Ledger
	whitelist *Whitelist
	supply    *SupplyTracker

	// external-channel idempotency guard, keyed (buyer, purchaseID)
	purchases map[purchaseKey]struct{}

	// addresses whose normal / bonus allocations were already
	// distributed; partial refunds are rejected for them
	distributed      map[common.Address]bool
	bonusDistributed map[common.Address]bool

	claimedTokens *big.Int // tokens already delivered via the substrate
	forwardedWei  *big.Int // funds already forwarded to the wallet

	endedAt time.Time // when the sale entered Ended; anchors vesting

	observer Observer
}

// New returns an engine in the Deployed state, bound to the given
// substrate adapter. Initialize must be called with a valid SaleConfig
// before anything else.
func New(sub substrate.Substrate, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		state:            Deployed,
		sub:              sub,
		log:              logger.WithField("module", "crowdsale"),
		ledger:           NewLedger(),
		whitelist:        NewWhitelist(),
		supply:           NewSupplyTracker(nil),
		purchases:        make(map[purchaseKey]struct{}),
		distributed:      make(map[common.Address]bool),
		bonusDistributed: make(map[common.Address]bool),
		claimedTokens:    new(big.Int),
		forwardedWei:     new(big.Int),
	}
}

// SetObserver attaches the event observer. Pass nil to detach.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// setState performs a guarded transition and fires the observer.
func (e *Engine) setState(to State) error {
	if !transitionAllowed(e.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, e.state, to)
	}
	from := e.state
	e.state = to
	e.log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).
		Info("crowdsale state changed")
	e.notifyStateChange(from, to)
	return nil
}

// requireState fails with ErrInvalidState unless the current state is
// one of the allowed ones.
func (e *Engine) requireState(allowed ...State) error {
	for _, s := range allowed {
		if e.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, e.state)
}

// Initialize validates and installs the sale configuration, moving the
// engine from Deployed to PendingStart. It can succeed only once.
func (e *Engine) Initialize(cfg SaleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Deployed); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg.Copy()
	e.supply = NewSupplyTracker(cfg.leftoverBuffer())
	e.log.WithField("config", e.cfg.String()).Info("crowdsale initialized")
	return e.setState(PendingStart)
}

// Start opens the sale. It refuses to run before the configured start
// time and samples the substrate's token allowance into the sellable
// supply.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(PendingStart); err != nil {
		return err
	}
	now := e.sub.CurrentTime()
	if now.Before(e.cfg.StartTime.Time()) {
		return fmt.Errorf("%w: start time %s not reached", ErrInvalidState, e.cfg.StartTime.Time())
	}
	allowance, err := e.sub.AllowanceOf(e.cfg.Token)
	if err != nil {
		return err
	}
	e.supply.SetSellable(allowance)
	e.log.WithField("sellable", allowance.String()).Info("crowdsale started")
	return e.setState(Active)
}

// Pause suspends purchases.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(Active); err != nil {
		return err
	}
	return e.setState(Paused)
}

// Unpause resumes a paused sale.
func (e *Engine) Unpause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(Paused); err != nil {
		return err
	}
	return e.setState(Active)
}

// End terminates the sale manually. The sale also ends automatically
// inside purchase processing once remaining supply falls to the
// leftover buffer.
func (e *Engine) End() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(Active); err != nil {
		return err
	}
	e.endedAt = e.sub.CurrentTime()
	return e.setState(Ended)
}

// Complete closes the books. It requires the substrate's outstanding
// token allowance to be exactly zero (BurnExtraTokens plus the claims
// must have released everything) and forwards the remaining
// KYC-covered funds to the wallet.
func (e *Engine) Complete() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Ended); err != nil {
		return err
	}
	allowance, err := e.sub.AllowanceOf(e.cfg.Token)
	if err != nil {
		return err
	}
	if allowance.Sign() != 0 {
		return fmt.Errorf("%w: %s token units", ErrAllowanceOutstanding, allowance)
	}
	if err := e.forwardLocked(nil); err != nil {
		return err
	}
	return e.setState(Completed)
}

// PurchaseDirect records a contribution arriving through the
// substrate's value-transfer channel. It prices the contribution with
// the current bonus rate, checks admission and supply, pulls the funds
// in and updates the ledger, possibly auto-terminating the sale.
func (e *Engine) PurchaseDirect(buyer common.Address, amountWei *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Active); err != nil {
		return err
	}
	now := e.sub.CurrentTime()
	if !e.cfg.EndTime.IsZero() && now.After(e.cfg.EndTime.Time()) {
		return fmt.Errorf("%w: sale past its end time", ErrInvalidState)
	}
	if buyer == (common.Address{}) {
		return fmt.Errorf("%w: zero buyer address", ErrInvalidParameter)
	}
	if amountWei == nil || amountWei.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive contribution", ErrInvalidParameter)
	}

	invested := new(big.Int)
	if acc, ok := e.ledger.Lookup(buyer); ok {
		invested.Set(acc.InvestedWei)
	}
	if err := e.whitelist.Admit(buyer, invested, amountWei,
		e.cfg.MinWeiToPurchase, e.cfg.MaxWeiToPurchase); err != nil {
		return err
	}

	tokens := new(big.Int).Mul(amountWei, e.cfg.Rate)
	bonusRate := e.bonusRateLocked(now)
	bonus := new(big.Int).Mul(tokens, new(big.Int).SetUint64(uint64(bonusRate)))
	bonus.Div(bonus, big.NewInt(100))

	total := new(big.Int).Add(tokens, bonus)
	if !e.supply.CanAllocate(total) {
		return fmt.Errorf("%w: %s tokens requested, %s left",
			ErrSupplyExceeded, total, e.supply.TokensLeft())
	}

	// Last fallible step before mutation: pull the funds in.
	if err := e.sub.TransferIn(buyer, amountWei); err != nil {
		return err
	}

	acc := e.ledger.Account(buyer)
	acc.InvestedWei.Add(acc.InvestedWei, amountWei)
	acc.Tokens.Add(acc.Tokens, tokens)
	acc.BonusTokens.Add(acc.BonusTokens, bonus)
	e.supply.Allocate(total)

	e.log.WithFields(logrus.Fields{
		"buyer":     buyer.Hex(),
		"wei":       amountWei.String(),
		"tokens":    tokens.String(),
		"bonus":     bonus.String(),
		"bonusRate": bonusRate,
	}).Info("token purchase")
	e.notifyPurchase(buyer, amountWei, tokens, bonus)

	e.autoEndLocked(now)
	return nil
}

// PurchaseExternal records an operator-reported purchase settled
// outside the substrate (fiat, another chain). No funds move; the
// (buyer, purchaseID) pair guards against replays.
func (e *Engine) PurchaseExternal(buyer common.Address, tokens, bonusTokens *big.Int, purchaseID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(Active); err != nil {
		return err
	}
	now := e.sub.CurrentTime()
	if !e.cfg.EndTime.IsZero() && now.After(e.cfg.EndTime.Time()) {
		return fmt.Errorf("%w: sale past its end time", ErrInvalidState)
	}
	if buyer == (common.Address{}) {
		return fmt.Errorf("%w: zero buyer address", ErrInvalidParameter)
	}
	if purchaseID == "" {
		return fmt.Errorf("%w: empty purchase id", ErrInvalidParameter)
	}
	if tokens == nil || tokens.Sign() < 0 || bonusTokens == nil || bonusTokens.Sign() < 0 {
		return fmt.Errorf("%w: negative token amounts", ErrInvalidParameter)
	}
	total := new(big.Int).Add(tokens, bonusTokens)
	if total.Sign() == 0 {
		return fmt.Errorf("%w: empty external purchase", ErrInvalidParameter)
	}
	key := purchaseKey{addr: buyer, id: purchaseID}
	if _, seen := e.purchases[key]; seen {
		return fmt.Errorf("%w: id %q for %s", ErrDuplicatePurchase, purchaseID, buyer.Hex())
	}
	if !e.supply.CanAllocate(total) {
		return fmt.Errorf("%w: %s tokens requested, %s left",
			ErrSupplyExceeded, total, e.supply.TokensLeft())
	}

	acc := e.ledger.Account(buyer)
	acc.ExternalTokens.Add(acc.ExternalTokens, tokens)
	acc.ExternalBonusTokens.Add(acc.ExternalBonusTokens, bonusTokens)
	e.supply.AllocateReserved(total)
	e.purchases[key] = struct{}{}

	e.log.WithFields(logrus.Fields{
		"buyer":      buyer.Hex(),
		"tokens":     tokens.String(),
		"bonus":      bonusTokens.String(),
		"purchaseID": purchaseID,
	}).Info("external token purchase")
	e.notifyPurchase(buyer, new(big.Int), tokens, bonusTokens)

	e.autoEndLocked(now)
	return nil
}

// autoEndLocked transitions to Ended when remaining supply has fallen
// to the leftover buffer. Runs synchronously inside the purchase that
// crossed the threshold, after the allocation was recorded.
func (e *Engine) autoEndLocked(now time.Time) {
	if e.state != Active || !e.supply.SoldOut() {
		return
	}
	e.endedAt = now
	e.log.WithField("tokensLeft", e.supply.TokensLeft().String()).
		Info("sellable supply exhausted, ending sale")
	// The edge Active -> Ended always exists; ignore the error.
	_ = e.setState(Ended)
}

// bonusRateLocked returns the bonus percentage in effect at now.
func (e *Engine) bonusRateLocked(now time.Time) uint32 {
	if e.state == Ended || e.state == Completed {
		return 0
	}
	if !e.cfg.EndTime.IsZero() && now.After(e.cfg.EndTime.Time()) {
		return 0
	}
	return e.cfg.Bonus.RateAt(now.Sub(e.cfg.StartTime.Time()))
}

// SetWhitelist admits an address with the given cap. Gated to states
// where admission still matters.
func (e *Engine) SetWhitelist(addr common.Address, capWei *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(PendingStart, Active, Paused); err != nil {
		return err
	}
	if err := e.whitelist.SetCap(addr, capWei); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{"addr": addr.Hex(), "cap": capWei.String()}).
		Info("whitelist cap set")
	return nil
}

// RemoveWhitelist revokes an address's admission and fully refunds its
// outstanding direct contribution. Externally reported purchases are
// untouched; RefundAllExternalPurchase reverses those separately.
func (e *Engine) RemoveWhitelist(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(PendingStart, Active, Paused); err != nil {
		return err
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if err := e.refundDirectLocked(addr); err != nil {
		return err
	}
	e.whitelist.ClearCap(addr)
	e.log.WithField("addr", addr.Hex()).Info("whitelist cap removed")
	return nil
}

// ApproveKYC records an approval supplied by the external KYC
// authority.
func (e *Engine) ApproveKYC(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Completed {
		return fmt.Errorf("%w: %s", ErrInvalidState, e.state)
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	e.whitelist.SetKYC(addr, true)
	e.log.WithField("addr", addr.Hex()).Info("kyc approved")
	return nil
}

// RevokeKYC withdraws an address's KYC approval and zeroes everything
// it could still claim, so no future claim succeeds. The direct
// contribution is refunded in wei when the fund balance still covers
// it; otherwise the claimables are stripped and the contribution stays
// recorded for off-system settlement.
func (e *Engine) RevokeKYC(addr common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Completed {
		return fmt.Errorf("%w: %s", ErrInvalidState, e.state)
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidParameter)
	}
	if !e.distributed[addr] && !e.bonusDistributed[addr] {
		if err := e.refundDirectLocked(addr); err != nil {
			// The collected wei may already have been forwarded to the
			// wallet. Revocation still has to disarm every future
			// claim, so strip the claimables and keep the contribution
			// recorded for off-system settlement.
			e.log.WithFields(logrus.Fields{
				"addr": addr.Hex(),
				"err":  err.Error(),
			}).Warn("revocation refund not coverable, stripping claimables")
			e.zeroClaimableLocked(addr)
		} else {
			e.refundAllExternalLocked(addr)
		}
	} else {
		// A distribution already happened, so the wei stays collected;
		// strip whatever the address could still claim.
		e.zeroClaimableLocked(addr)
	}
	e.whitelist.SetKYC(addr, false)
	e.log.WithField("addr", addr.Hex()).Info("kyc revoked")
	return nil
}

// zeroClaimableLocked removes every unclaimed token allocation of an
// address from the ledger and the supply counters without moving funds.
func (e *Engine) zeroClaimableLocked(addr common.Address) {
	acc, ok := e.ledger.Lookup(addr)
	if !ok {
		return
	}
	direct := new(big.Int).Add(acc.Tokens, acc.BonusTokens)
	external := new(big.Int).Add(acc.ExternalTokens, acc.ExternalBonusTokens)
	if direct.Sign() == 0 && external.Sign() == 0 {
		return
	}
	acc.Tokens.SetInt64(0)
	acc.BonusTokens.SetInt64(0)
	acc.ExternalTokens.SetInt64(0)
	acc.ExternalBonusTokens.SetInt64(0)
	e.supply.Release(direct)
	e.supply.ReleaseReserved(external)
}

// SetRate changes the exchange rate. Only legal while the sale is not
// accepting purchases (before start or while paused).
func (e *Engine) SetRate(rate *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(PendingStart, Paused); err != nil {
		return err
	}
	if rate == nil || rate.Sign() <= 0 {
		return fmt.Errorf("%w: rate must be positive", ErrInvalidParameter)
	}
	e.cfg.Rate = new(big.Int).Set(rate)
	e.log.WithField("rate", rate.String()).Info("exchange rate changed")
	return nil
}

// SetTierRate changes the bonus percentage of one tier. Zero is legal
// and disables the bonus for that tier.
func (e *Engine) SetTierRate(tier int, ratePercent uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(PendingStart, Active, Paused); err != nil {
		return err
	}
	if tier < 0 || tier >= len(e.cfg.Bonus.Tiers) {
		return fmt.Errorf("%w: bonus tier %d out of range", ErrInvalidParameter, tier)
	}
	e.cfg.Bonus.Tiers[tier].RatePercent = ratePercent
	e.log.WithFields(logrus.Fields{"tier": tier, "rate": ratePercent}).
		Info("bonus tier rate changed")
	return nil
}

// SetFinalTierRate changes the bonus percentage applied after the last
// day boundary.
func (e *Engine) SetFinalTierRate(ratePercent uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(PendingStart, Active, Paused); err != nil {
		return err
	}
	e.cfg.Bonus.FinalRate = ratePercent
	e.log.WithField("rate", ratePercent).Info("final bonus rate changed")
	return nil
}

// SetTierBoundary moves a tier's closing day boundary, keeping the
// schedule strictly ascending.
func (e *Engine) SetTierBoundary(tier int, endDay uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(PendingStart, Active, Paused); err != nil {
		return err
	}
	if tier < 0 || tier >= len(e.cfg.Bonus.Tiers) {
		return fmt.Errorf("%w: bonus tier %d out of range", ErrInvalidParameter, tier)
	}
	next := e.cfg.Bonus.copySchedule()
	next.Tiers[tier].EndDay = endDay
	if err := next.validate(); err != nil {
		return err
	}
	e.cfg.Bonus = next
	e.log.WithFields(logrus.Fields{"tier": tier, "endDay": endDay}).
		Info("bonus tier boundary changed")
	return nil
}

// Status returns the current lifecycle state.
func (e *Engine) Status() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// GetTokensLeft returns the unallocated sellable supply.
func (e *Engine) GetTokensLeft() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.supply.TokensLeft()
}

// GetAddressCap returns the whitelist cap of an address.
func (e *Engine) GetAddressCap(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.whitelist.CapOf(addr)
}

// GetAddressAmtInvested returns the wei an address has contributed
// directly and not yet had refunded.
func (e *Engine) GetAddressAmtInvested(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if acc, ok := e.ledger.Lookup(addr); ok {
		return new(big.Int).Set(acc.InvestedWei)
	}
	return new(big.Int)
}

// GetTotalTokensByAddress returns the sum of all four token fields for
// an address.
func (e *Engine) GetTotalTokensByAddress(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if acc, ok := e.ledger.Lookup(addr); ok {
		return acc.Total()
	}
	return new(big.Int)
}

// GetTotalNormalTokensByAddress returns direct plus external non-bonus
// tokens for an address.
func (e *Engine) GetTotalNormalTokensByAddress(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if acc, ok := e.ledger.Lookup(addr); ok {
		return acc.TotalNormal()
	}
	return new(big.Int)
}

// GetTotalBonusTokensByAddress returns direct plus external bonus
// tokens for an address.
func (e *Engine) GetTotalBonusTokensByAddress(addr common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if acc, ok := e.ledger.Lookup(addr); ok {
		return acc.TotalBonus()
	}
	return new(big.Int)
}

// GetTimeBasedBonusRate returns the bonus percentage a purchase would
// receive right now.
func (e *Engine) GetTimeBasedBonusRate() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bonusRateLocked(e.sub.CurrentTime())
}

// TotalTokensAllocated returns the aggregate allocation counter.
func (e *Engine) TotalTokensAllocated() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.supply.TotalAllocated()
}

// Config returns a deep copy of the current sale configuration.
func (e *Engine) Config() SaleConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Copy()
}
