package launcher

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/evalphobia/logrus_sentry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/ViolaAI/viola-crowdsale/flags"
	"github.com/ViolaAI/viola-crowdsale/integration"
)

var app = flags.NewApp()

func init() {
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.SaleFlags()...)
	app.Flags = append(app.Flags, flags.BonusFlags()...)
	app.Flags = append(app.Flags, flags.OperatorFlags()...)
	app.Action = run
}

// Launch parses the command line and runs the crowdsale engine.
func Launch(args []string) error {
	return app.Run(args)
}

func run(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	logger, err := makeLogger(cfg.Logging)
	if err != nil {
		return err
	}

	if !cfg.FakeNet {
		// A production adapter bridges the engine to a live substrate;
		// only the in-memory fakenet ships with this repository.
		return errors.New("no production substrate adapter configured, re-run with --fakenet")
	}

	preset := integration.FakeSalePreset(cfg.Sale.StartTime.Time())
	preset.Sale = cfg.Sale
	preset.Engine = cfg.Engine

	asm, err := integration.AssembleFake(preset, logger)
	if err != nil {
		return err
	}
	return runFakeDemo(asm, logger)
}

// runFakeDemo walks a fakenet engine through a small scripted sale so
// operators can inspect the full lifecycle and the log output.
func runFakeDemo(asm *integration.Assembly, logger *logrus.Logger) error {
	engine, fake := asm.Engine, asm.Fake

	if err := engine.Start(); err != nil {
		return err
	}

	buyer := integration.FakeBuyer
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	if err := engine.SetWhitelist(buyer, new(big.Int).Mul(big.NewInt(10), oneEther)); err != nil {
		return err
	}
	if err := engine.PurchaseDirect(buyer, oneEther); err != nil {
		return err
	}
	if err := engine.PurchaseExternal(buyer, big.NewInt(500), big.NewInt(50), uuid.NewString()); err != nil {
		return err
	}

	fmt.Fprintf(app.Writer, "status:      %s\n", engine.Status())
	fmt.Fprintf(app.Writer, "tokens left: %s\n", engine.GetTokensLeft())
	fmt.Fprintf(app.Writer, "invested:    %s wei by %s\n",
		engine.GetAddressAmtInvested(buyer), buyer.Hex())
	fmt.Fprintf(app.Writer, "allocated:   %s tokens (%s bonus)\n",
		engine.GetTotalNormalTokensByAddress(buyer), engine.GetTotalBonusTokensByAddress(buyer))
	fmt.Fprintf(app.Writer, "bonus rate:  %d%%\n", engine.GetTimeBasedBonusRate())
	fmt.Fprintf(app.Writer, "clock:       %s\n", fake.CurrentTime())

	snap, err := engine.Snapshot()
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Writer, "snapshot:    %d bytes\n", len(snap))
	return nil
}

// makeLogger builds the logrus logger from the logging config,
// attaching the Sentry hook when a DSN is configured.
func makeLogger(cfg LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	levels := []logrus.Level{
		logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel,
		logrus.InfoLevel, logrus.DebugLevel, logrus.TraceLevel,
	}
	idx := cfg.Verbosity
	if idx < 0 {
		idx = 0
	}
	if idx >= len(levels) {
		idx = len(levels) - 1
	}
	logger.SetLevel(levels[idx])

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{ForceColors: cfg.Color})
	}

	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		logger.Hooks.Add(hook)
	}
	return logger, nil
}
