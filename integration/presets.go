package integration

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/ViolaAI/viola-crowdsale/crowdsale"
)

// Package integration provides configuration presets and assembly
// helpers for building a runnable crowdsale engine. Presets bundle a
// sale configuration with the substrate wiring (engine account, token
// supply, pre-funded accounts) into named profiles so operators and
// tests can spin up an engine without tweaking dozens of flags.
//
// Usage:
//	preset := integration.FakeSalePreset(time.Now())
//	asm, err := integration.AssembleFake(preset, logger)

// SalePreset captures everything needed to assemble one engine.
type SalePreset struct {
	Name   string               // human-readable identifier (e.g. "main", "fake")
	Sale   crowdsale.SaleConfig // the validated sale parameters
	Engine common.Address       // the engine's fund account on the substrate

	// Fakenet-only provisioning: the token supply approved to the
	// engine and the pre-funded wei balances.
	Supply *big.Int
	Funded map[common.Address]*big.Int
}

// Well-known fakenet accounts. Production presets always override
// wallet and token.
var (
	FakeWallet = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	FakeToken  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	FakeEngine = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	FakeBuyer  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	FakeOwner  = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

// MainSalePreset returns the production profile: the standard sale
// configuration against real wallet/token addresses supplied by the
// operator.
func MainSalePreset(start time.Time, wallet, token, engine common.Address) SalePreset {
	return SalePreset{
		Name:   "main",
		Sale:   crowdsale.DefaultSaleConfig(start, wallet, token),
		Engine: engine,
	}
}

// FakeSalePreset returns the development profile: accelerated sale
// parameters, a canned token supply and a pre-funded buyer, all on the
// in-memory substrate.
func FakeSalePreset(start time.Time) SalePreset {
	return SalePreset{
		Name:   "fake",
		Sale:   crowdsale.FakeSaleConfig(start, FakeWallet, FakeToken),
		Engine: FakeEngine,
		Supply: new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether)),
		Funded: map[common.Address]*big.Int{
			FakeBuyer: new(big.Int).Mul(big.NewInt(1000), big.NewInt(params.Ether)),
		},
	}
}
