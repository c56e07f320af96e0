package integration

import (
	"github.com/sirupsen/logrus"

	"github.com/ViolaAI/viola-crowdsale/crowdsale"
	"github.com/ViolaAI/viola-crowdsale/substrate"
)

// Assembly is a fully wired engine plus the substrate it runs against.
// Fake is non-nil only for fakenet assemblies, giving tests and the
// demo launcher access to the manual clock and balance helpers.
type Assembly struct {
	Engine *crowdsale.Engine
	Fake   *substrate.FakeSubstrate
}

// AssembleFake builds an initialized engine on the in-memory substrate:
// it funds the preset accounts, approves the token supply to the engine
// and runs Initialize with the preset's sale configuration. The engine
// comes back in PendingStart, ready for Start once the clock reaches
// the sale's start time.
func AssembleFake(preset SalePreset, logger *logrus.Logger) (*Assembly, error) {
	fake := substrate.NewFake(preset.Engine, preset.Funded)
	if preset.Supply != nil {
		fake.Approve(preset.Sale.Token, FakeOwner, preset.Supply)
	}
	if start := preset.Sale.StartTime.Time(); fake.CurrentTime().Before(start) {
		fake.SetTime(start)
	}

	engine := crowdsale.New(fake, logger)
	if err := engine.Initialize(preset.Sale); err != nil {
		return nil, err
	}
	return &Assembly{Engine: engine, Fake: fake}, nil
}
