package flags

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

// SaleFlags covers the crowdsale configuration: timing, pricing,
// contribution bounds and the bonus schedule.

func SaleFlags() []cli.Flag {
	return []cli.Flag{
		cli.Int64Flag{
			Name:  "sale.start",
			Usage: "Sale start time as Unix seconds (0 = start now)",
		},
		cli.Int64Flag{
			Name:  "sale.end",
			Usage: "Sale end time as Unix seconds (0 = sell-out only)",
		},
		cli.Uint64Flag{
			Name:  "sale.rate",
			Usage: "Token units issued per wei contributed",
			Value: 1000,
		},
		cli.StringFlag{
			Name:  "sale.min",
			Usage: "Minimum single contribution in wei (0 disables)",
			Value: "0",
		},
		cli.StringFlag{
			Name:  "sale.max",
			Usage: "Maximum single contribution in wei (0 disables)",
			Value: "0",
		},
		cli.StringFlag{
			Name:  "sale.buffer",
			Usage: "Leftover-token buffer at or below which the sale auto-ends",
			Value: "0",
		},
		cli.DurationFlag{
			Name:  "sale.vesting",
			Usage: "Bonus vesting delay after sale end",
			Value: 180 * 24 * time.Hour,
		},
		cli.BoolTFlag{
			Name:  "sale.kyc",
			Usage: "Require KYC approval for claims and fund forwarding",
		},
	}
}

// BonusFlags isolates the bonus-tier schedule knobs.
func BonusFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "bonus.tiers",
			Usage: "Bonus tiers as day:percent pairs, e.g. 2:30,10:15",
			Value: "2:30,10:15",
		},
		cli.IntFlag{
			Name:  "bonus.final",
			Usage: "Bonus percent after the last tier boundary",
			Value: 8,
		},
	}
}
