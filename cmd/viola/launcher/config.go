// This file maps CLI context to the launcher's config struct.

package launcher

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/urfave/cli.v1"

	"github.com/ViolaAI/viola-crowdsale/crowdsale"
	"github.com/ViolaAI/viola-crowdsale/inter"
)

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	DataDir string
	Logging LoggingConfig
	Sale    crowdsale.SaleConfig
	Engine  common.Address // the engine's own fund account
	FakeNet bool
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string
}

// defaultConfig merges the Defaults table with the ambient clock: when
// no start time is given the sale is set up to start immediately.
func defaultConfig() Config {
	d := DefaultConfig()
	start := time.Now()
	return Config{
		DataDir: d.DataDir,
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
		},
		Sale:    crowdsale.FakeSaleConfig(start, d.Wallet, d.Token),
		Engine:  d.Engine,
		FakeNet: true,
	}
}

// MakeAllConfigs merges defaults with CLI flag overrides into a single
// config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if ctx.GlobalIsSet("datadir") {
		cfg.DataDir = expandPath(ctx.GlobalString("datadir"))
	}
	cfg.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	cfg.Logging.Format = ctx.GlobalString("log.format")
	cfg.Logging.Color = ctx.GlobalBool("log.color")
	cfg.Logging.SentryDSN = ctx.GlobalString("log.sentry-dsn")
	cfg.FakeNet = ctx.GlobalBool("fakenet")

	if v := ctx.GlobalInt64("sale.start"); v != 0 {
		cfg.Sale.StartTime = inter.FromUnix(v)
	}
	if ctx.GlobalIsSet("sale.end") {
		// zero switches the sale to sell-out-only termination
		cfg.Sale.EndTime = inter.FromUnix(ctx.GlobalInt64("sale.end"))
	}
	if ctx.GlobalIsSet("sale.rate") {
		cfg.Sale.Rate = new(big.Int).SetUint64(ctx.GlobalUint64("sale.rate"))
	}

	var err error
	if cfg.Sale.MinWeiToPurchase, err = parseWeiFlag(ctx, "sale.min", cfg.Sale.MinWeiToPurchase); err != nil {
		return cfg, err
	}
	if cfg.Sale.MaxWeiToPurchase, err = parseWeiFlag(ctx, "sale.max", cfg.Sale.MaxWeiToPurchase); err != nil {
		return cfg, err
	}
	if cfg.Sale.LeftoverBuffer, err = parseWeiFlag(ctx, "sale.buffer", cfg.Sale.LeftoverBuffer); err != nil {
		return cfg, err
	}

	if ctx.GlobalIsSet("sale.vesting") {
		cfg.Sale.VestingPeriod = ctx.GlobalDuration("sale.vesting")
	}
	if ctx.GlobalIsSet("sale.kyc") {
		cfg.Sale.RequireKYC = ctx.GlobalBoolT("sale.kyc")
	}

	if ctx.GlobalIsSet("bonus.tiers") || ctx.GlobalIsSet("bonus.final") {
		schedule, err := parseBonusSchedule(
			ctx.GlobalString("bonus.tiers"), ctx.GlobalInt("bonus.final"))
		if err != nil {
			return cfg, err
		}
		cfg.Sale.Bonus = schedule
	}

	if v := ctx.GlobalString("wallet"); v != "" {
		cfg.Sale.Wallet = common.HexToAddress(v)
	}
	if v := ctx.GlobalString("token"); v != "" {
		cfg.Sale.Token = common.HexToAddress(v)
	}
	if v := ctx.GlobalString("engine"); v != "" {
		cfg.Engine = common.HexToAddress(v)
	}

	if err := ensureDir(cfg.DataDir); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseWeiFlag reads a big-integer flag given as a decimal string.
// Zero keeps the flag's semantics of "disabled" by returning nil.
func parseWeiFlag(ctx *cli.Context, name string, fallback *big.Int) (*big.Int, error) {
	if !ctx.GlobalIsSet(name) {
		return fallback, nil
	}
	raw := ctx.GlobalString(name)
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid --%s value %q", name, raw)
	}
	if v.Sign() == 0 {
		return nil, nil
	}
	return v, nil
}

// parseBonusSchedule turns "2:30,10:15" plus a final rate into a
// BonusSchedule.
func parseBonusSchedule(tiers string, finalRate int) (crowdsale.BonusSchedule, error) {
	schedule := crowdsale.BonusSchedule{FinalRate: uint32(finalRate)}
	if finalRate < 0 {
		return schedule, fmt.Errorf("negative --bonus.final %d", finalRate)
	}
	for _, pair := range strings.Split(tiers, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return schedule, fmt.Errorf("malformed bonus tier %q, want day:percent", pair)
		}
		day, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return schedule, fmt.Errorf("malformed bonus tier day %q: %v", parts[0], err)
		}
		rate, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return schedule, fmt.Errorf("malformed bonus tier rate %q: %v", parts[1], err)
		}
		schedule.Tiers = append(schedule.Tiers, crowdsale.BonusTier{
			EndDay:      uint32(day),
			RatePercent: uint32(rate),
		})
	}
	return schedule, nil
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(p)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
