// Package substrate defines the settlement-substrate collaborator the
// crowdsale engine calls into for all value movement: wei transfers,
// token delivery out of the sale allowance, allowance burning, balance
// queries and the ambient clock.
//
// The engine treats the substrate as opaque: any error from an adapter
// call fails the whole engine operation with no partial mutation. A
// production adapter would bridge to a real chain; FakeSubstrate is the
// in-memory implementation used by tests, development networks and the
// CLI demo.
package substrate

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Substrate is the synchronous adapter interface. Implementations are
// constructed bound to the engine's own account, so transfer calls
// don't carry the engine identity.
type Substrate interface {
	// TransferIn moves amountWei from the contributor into the
	// engine's fund balance. Called by the engine as the final step of
	// a direct purchase.
	TransferIn(from common.Address, amountWei *big.Int) error

	// TransferOut moves amountWei from the engine's fund balance to
	// the recipient (refunds, fund forwarding).
	TransferOut(to common.Address, amountWei *big.Int) error

	// TransferToken delivers amount token units to the recipient out
	// of the allowance the token owner granted the engine.
	TransferToken(token, to common.Address, amount *big.Int) error

	// BurnAllowance releases amount of the engine's unsold token
	// allowance back to the owner.
	BurnAllowance(token common.Address, amount *big.Int) error

	// AllowanceOf returns the token allowance currently granted to the
	// engine.
	AllowanceOf(token common.Address) (*big.Int, error)

	// BalanceOf returns holder's balance of the given token.
	BalanceOf(token, holder common.Address) (*big.Int, error)

	// FundBalance returns the engine's collected wei balance.
	FundBalance() (*big.Int, error)

	// CurrentTime is the ambient clock. The engine samples it exactly
	// once per operation.
	CurrentTime() time.Time
}
