package test

import (
	"math/big"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ViolaAI/viola-crowdsale/crowdsale"
	"github.com/ViolaAI/viola-crowdsale/integration"
	"github.com/ViolaAI/viola-crowdsale/substrate"
)

// Package-level scenario tests: drive a preset-assembled engine through
// a full sale the way an operator would, checking the externally
// observable outcome at each stage. The unit-level edge cases live next
// to their packages; this file covers the assembled whole.

func assembleFake(t *testing.T) *integration.Assembly {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	preset := integration.FakeSalePreset(substrate.FakeGenesisTime)
	asm, err := integration.AssembleFake(preset, logger)
	if err != nil {
		t.Fatalf("AssembleFake failed: %v", err)
	}
	return asm
}

// TestFullSaleLifecycle walks the happy path end to end: start, direct
// and external purchases, manual end, burn, claims after vesting and
// completion with the funds forwarded to the wallet.
func TestFullSaleLifecycle(t *testing.T) {
	asm := assembleFake(t)
	e, fake := asm.Engine, asm.Fake

	if got := e.Status(); got != crowdsale.PendingStart {
		t.Fatalf("Status = %s, want PendingStart", got)
	}

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	buyerCap := new(big.Int).Mul(big.NewInt(10), oneEther)
	if err := e.SetWhitelist(integration.FakeBuyer, buyerCap); err != nil {
		t.Fatalf("SetWhitelist failed: %v", err)
	}

	// 1 ether at rate 1000 with the 30% day-0 bonus
	if err := e.PurchaseDirect(integration.FakeBuyer, oneEther); err != nil {
		t.Fatalf("PurchaseDirect failed: %v", err)
	}
	wantTokens := new(big.Int).Mul(big.NewInt(1000), oneEther)
	if got := e.GetTotalNormalTokensByAddress(integration.FakeBuyer); got.Cmp(wantTokens) != 0 {
		t.Fatalf("normal tokens = %s, want %s", got, wantTokens)
	}
	wantBonus := new(big.Int).Mul(big.NewInt(300), oneEther)
	if got := e.GetTotalBonusTokensByAddress(integration.FakeBuyer); got.Cmp(wantBonus) != 0 {
		t.Fatalf("bonus tokens = %s, want %s", got, wantBonus)
	}

	// an operator-recorded external contribution on top
	if err := e.PurchaseExternal(integration.FakeBuyer, big.NewInt(5000), big.NewInt(500), "wire-001"); err != nil {
		t.Fatalf("PurchaseExternal failed: %v", err)
	}

	if err := e.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if err := e.BurnExtraTokens(); err != nil {
		t.Fatalf("BurnExtraTokens failed: %v", err)
	}

	if err := e.ClaimTokens(integration.FakeBuyer); err != nil {
		t.Fatalf("ClaimTokens failed: %v", err)
	}
	wantDelivered := new(big.Int).Add(wantTokens, big.NewInt(5000))
	if got := fake.TokenBalanceOf(integration.FakeToken, integration.FakeBuyer); got.Cmp(wantDelivered) != 0 {
		t.Fatalf("delivered tokens = %s, want %s", got, wantDelivered)
	}

	// bonus vests one hour after end on the fake profile
	if err := e.ClaimBonusTokens(integration.FakeBuyer); err == nil {
		t.Fatal("ClaimBonusTokens succeeded before vesting")
	}
	fake.Advance(time.Hour)
	if err := e.ClaimBonusTokens(integration.FakeBuyer); err != nil {
		t.Fatalf("ClaimBonusTokens failed: %v", err)
	}

	if err := e.Complete(); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got := e.Status(); got != crowdsale.Completed {
		t.Fatalf("Status = %s, want Completed", got)
	}

	// the buyer's ether ended up at the wallet
	if got := fake.WeiBalanceOf(integration.FakeWallet); got.Cmp(oneEther) != 0 {
		t.Fatalf("wallet balance = %s, want %s", got, oneEther)
	}
}

// TestSnapshotMigration assembles two engines from the same preset and
// moves the sale state between them through a snapshot, the way an
// operator migrates a deployment.
func TestSnapshotMigration(t *testing.T) {
	src := assembleFake(t)
	e := src.Engine

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if err := e.SetWhitelist(integration.FakeBuyer, oneEther); err != nil {
		t.Fatalf("SetWhitelist failed: %v", err)
	}
	if err := e.PurchaseDirect(integration.FakeBuyer, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("PurchaseDirect failed: %v", err)
	}

	data, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	dst := assembleFake(t)
	if err := dst.Engine.RestoreSnapshot(data); err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}

	if got, want := dst.Engine.Status(), e.Status(); got != want {
		t.Fatalf("restored Status = %s, want %s", got, want)
	}
	got := dst.Engine.GetAddressAmtInvested(integration.FakeBuyer)
	if got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("restored invested = %s, want 1000000", got)
	}
}

// TestRefundScenario exercises the operator-facing correction flow on an
// assembled engine.
func TestRefundScenario(t *testing.T) {
	asm := assembleFake(t)
	e, fake := asm.Engine, asm.Fake

	if err := e.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if err := e.SetWhitelist(integration.FakeBuyer, oneEther); err != nil {
		t.Fatalf("SetWhitelist failed: %v", err)
	}

	before := fake.WeiBalanceOf(integration.FakeBuyer)
	if err := e.PurchaseDirect(integration.FakeBuyer, oneEther); err != nil {
		t.Fatalf("PurchaseDirect failed: %v", err)
	}
	if err := e.Refund(integration.FakeBuyer); err != nil {
		t.Fatalf("Refund failed: %v", err)
	}

	if got := fake.WeiBalanceOf(integration.FakeBuyer); got.Cmp(before) != 0 {
		t.Fatalf("buyer balance = %s, want %s restored", got, before)
	}
	if got := e.TotalTokensAllocated(); got.Sign() != 0 {
		t.Fatalf("allocated = %s, want 0 after full refund", got)
	}
}
