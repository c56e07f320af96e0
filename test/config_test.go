package test

import (
	"math/big"
	"testing"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/ViolaAI/viola-crowdsale/cmd/viola/launcher"
	"github.com/ViolaAI/viola-crowdsale/flags"
)

// helper to run MakeAllConfigs with a synthetic CLI context.

func runConfigFromArgs(t *testing.T, args []string) launcher.Config {
	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true

	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.SaleFlags()...)
	app.Flags = append(app.Flags, flags.BonusFlags()...)
	app.Flags = append(app.Flags, flags.OperatorFlags()...)

	var got launcher.Config
	app.Action = func(c *cli.Context) error {
		var err error
		got, err = launcher.MakeAllConfigs(c)
		return err
	}

	// keep the datadir side effect inside the test sandbox
	args = append([]string{"--datadir", t.TempDir()}, args...)

	if err := app.Run(append([]string{"viola"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return got
}

// TestMakeAllConfigs_flagOverrides verifies that every command-line flag
// declared by the launcher overrides the corresponding field in the
// aggregated Config struct. Each sub-test feeds custom CLI arguments
// into a synthetic app, invokes launcher.MakeAllConfigs, and checks the
// bits of the resulting struct that should have changed.
func TestMakeAllConfigs_flagOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want func(t *testing.T, cfg launcher.Config)
	}{
		{
			name: "sale timing and rate",
			args: []string{"--sale.start", "1700000000", "--sale.end", "1701000000", "--sale.rate", "250"},
			want: func(t *testing.T, cfg launcher.Config) {
				if got := cfg.Sale.StartTime.Unix(); got != 1700000000 {
					t.Fatalf("StartTime = %d, want 1700000000", got)
				}
				if got := cfg.Sale.EndTime.Unix(); got != 1701000000 {
					t.Fatalf("EndTime = %d, want 1701000000", got)
				}
				if cfg.Sale.Rate.Cmp(big.NewInt(250)) != 0 {
					t.Fatalf("Rate = %s, want 250", cfg.Sale.Rate)
				}
			},
		},
		{
			name: "explicit zero end switches to sell-out only",
			args: []string{"--sale.end", "0"},
			want: func(t *testing.T, cfg launcher.Config) {
				if !cfg.Sale.EndTime.IsZero() {
					t.Fatalf("EndTime = %d, want 0", cfg.Sale.EndTime)
				}
			},
		},
		{
			name: "contribution bounds as decimal wei",
			args: []string{"--sale.min", "1000000000", "--sale.max", "5000000000000000000"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Sale.MinWeiToPurchase.Cmp(big.NewInt(1000000000)) != 0 {
					t.Fatalf("MinWeiToPurchase = %s, want 1000000000", cfg.Sale.MinWeiToPurchase)
				}
				want, _ := new(big.Int).SetString("5000000000000000000", 10)
				if cfg.Sale.MaxWeiToPurchase.Cmp(want) != 0 {
					t.Fatalf("MaxWeiToPurchase = %s, want %s", cfg.Sale.MaxWeiToPurchase, want)
				}
			},
		},
		{
			name: "zero bound disables it",
			args: []string{"--sale.max", "0"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Sale.MaxWeiToPurchase != nil {
					t.Fatalf("MaxWeiToPurchase = %s, want nil", cfg.Sale.MaxWeiToPurchase)
				}
			},
		},
		{
			name: "bonus schedule",
			args: []string{"--bonus.tiers", "1:40,5:20,15:10", "--bonus.final", "5"},
			want: func(t *testing.T, cfg launcher.Config) {
				tiers := cfg.Sale.Bonus.Tiers
				if len(tiers) != 3 {
					t.Fatalf("len(Tiers) = %d, want 3", len(tiers))
				}
				if tiers[1].EndDay != 5 || tiers[1].RatePercent != 20 {
					t.Fatalf("Tiers[1] = %+v, want day 5 rate 20", tiers[1])
				}
				if cfg.Sale.Bonus.FinalRate != 5 {
					t.Fatalf("FinalRate = %d, want 5", cfg.Sale.Bonus.FinalRate)
				}
			},
		},
		{
			name: "vesting and kyc",
			args: []string{"--sale.vesting", "720h", "--sale.kyc=false"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Sale.VestingPeriod != 720*time.Hour {
					t.Fatalf("VestingPeriod = %s, want 720h", cfg.Sale.VestingPeriod)
				}
				if cfg.Sale.RequireKYC {
					t.Fatal("RequireKYC = true, want false")
				}
			},
		},
		{
			name: "operator addresses",
			args: []string{
				"--wallet", "0x1111111111111111111111111111111111111111",
				"--token", "0x2222222222222222222222222222222222222222",
				"--engine", "0x3333333333333333333333333333333333333333",
			},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Sale.Wallet.Hex() != "0x1111111111111111111111111111111111111111" {
					t.Fatalf("Wallet = %s", cfg.Sale.Wallet.Hex())
				}
				if cfg.Sale.Token.Hex() != "0x2222222222222222222222222222222222222222" {
					t.Fatalf("Token = %s", cfg.Sale.Token.Hex())
				}
				if cfg.Engine.Hex() != "0x3333333333333333333333333333333333333333" {
					t.Fatalf("Engine = %s", cfg.Engine.Hex())
				}
			},
		},
		{
			name: "logging",
			args: []string{"--log.verbosity", "5", "--log.format", "json"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Logging.Verbosity != 5 {
					t.Fatalf("Verbosity = %d, want 5", cfg.Logging.Verbosity)
				}
				if cfg.Logging.Format != "json" {
					t.Fatalf("Format = %q, want json", cfg.Logging.Format)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := runConfigFromArgs(t, test.args)
			test.want(t, cfg)
		})
	}
}

// TestMakeAllConfigs_rejectsMalformedValues checks that bad big-int and
// bonus-tier strings surface as errors instead of silently defaulting.
func TestMakeAllConfigs_rejectsMalformedValues(t *testing.T) {
	bad := [][]string{
		{"--sale.min", "not-a-number"},
		{"--sale.buffer", "-5"},
		{"--bonus.tiers", "2-30"},
		{"--bonus.tiers", "x:30"},
	}

	for _, args := range bad {
		app := cli.NewApp()
		app.HideHelp = true
		app.HideVersion = true
		app.Flags = append(app.Flags, flags.CommonFlags()...)
		app.Flags = append(app.Flags, flags.SaleFlags()...)
		app.Flags = append(app.Flags, flags.BonusFlags()...)
		app.Flags = append(app.Flags, flags.OperatorFlags()...)

		var gotErr error
		app.Action = func(c *cli.Context) error {
			_, gotErr = launcher.MakeAllConfigs(c)
			return nil
		}
		runArgs := append([]string{"viola", "--datadir", t.TempDir()}, args...)
		if err := app.Run(runArgs); err != nil {
			t.Fatalf("app.Run failed: %v", err)
		}
		if gotErr == nil {
			t.Fatalf("MakeAllConfigs(%v) accepted a malformed value", args)
		}
	}
}
