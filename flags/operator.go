package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// OperatorFlags holds the accounts the engine is wired to: the
// beneficiary wallet, the token contract and the engine's own account.

func OperatorFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "wallet",
			Usage: "Beneficiary wallet address receiving forwarded funds",
		},
		cli.StringFlag{
			Name:  "token",
			Usage: "Token contract address the sale distributes",
		},
		cli.StringFlag{
			Name:  "engine",
			Usage: "Engine account address holding collected funds",
		},
	}
}
