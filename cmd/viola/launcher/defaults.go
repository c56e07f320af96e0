package launcher

// Defaults bundles the baseline configuration values the launcher uses
// before flags override them.

import (
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

type Defaults struct {
	DataDir string         // Filesystem root for snapshots and logs; changing it isolates test data.
	Wallet  common.Address // Beneficiary wallet receiving forwarded funds.
	Token   common.Address // Token contract the sale distributes.
	Engine  common.Address // The engine's own fund account on the substrate.
	Logging LoggingDefaults
}

type LoggingDefaults struct {
	Verbosity int    // 0=fatal .. 5=trace, mapped onto logrus levels.
	Format    string // text or json.
	Color     bool
}

// DefaultConfig returns the baseline defaults. The addresses are the
// well-known fakenet accounts; production runs always override them.
func DefaultConfig() Defaults {
	return Defaults{
		DataDir: filepath.Join(guessHomeDir(), ".viola"),
		Wallet:  common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		Token:   common.HexToAddress("0x00000000000000000000000000000000000000b1"),
		Engine:  common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
		},
	}
}

func guessHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
