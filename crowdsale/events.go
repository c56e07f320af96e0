package crowdsale

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Observer receives notifications after an operation has committed, in
// the order the engine processed them. Front-ends subscribe to it for
// purchase and lifecycle events.
//
// Callbacks run while the engine lock is held: an observer must not
// call back into the engine and should hand work off quickly.
type Observer interface {
	// OnStateChange fires on every lifecycle transition, including
	// automatic sell-out termination.
	OnStateChange(from, to State)

	// OnTokenPurchase fires after a committed purchase. weiAmount is
	// zero for externally reported purchases.
	OnTokenPurchase(buyer common.Address, weiAmount, tokens, bonusTokens *big.Int)
}

func (e *Engine) notifyStateChange(from, to State) {
	if e.observer != nil {
		e.observer.OnStateChange(from, to)
	}
}

func (e *Engine) notifyPurchase(buyer common.Address, wei, tokens, bonus *big.Int) {
	if e.observer != nil {
		e.observer.OnTokenPurchase(buyer, new(big.Int).Set(wei),
			new(big.Int).Set(tokens), new(big.Int).Set(bonus))
	}
}
