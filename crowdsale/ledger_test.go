package crowdsale

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_lazyRows(t *testing.T) {
	l := NewLedger()
	addr := common.HexToAddress("0x01")

	_, ok := l.Lookup(addr)
	require.False(t, ok)

	acc := l.Account(addr)
	require.NotNil(t, acc)
	assert.Zero(t, acc.Total().Sign())

	got, ok := l.Lookup(addr)
	require.True(t, ok)
	require.Same(t, acc, got)
}

func TestAccount_sums(t *testing.T) {
	acc := newAccount()
	acc.Tokens.SetInt64(100)
	acc.BonusTokens.SetInt64(30)
	acc.ExternalTokens.SetInt64(500)
	acc.ExternalBonusTokens.SetInt64(50)

	assert.Equal(t, int64(680), acc.Total().Int64())
	assert.Equal(t, int64(600), acc.TotalNormal().Int64())
	assert.Equal(t, int64(80), acc.TotalBonus().Int64())
}

func TestLedger_totalAllocated(t *testing.T) {
	l := NewLedger()
	a := l.Account(common.HexToAddress("0x01"))
	a.Tokens.SetInt64(100)
	b := l.Account(common.HexToAddress("0x02"))
	b.ExternalBonusTokens.SetInt64(25)

	assert.Equal(t, int64(125), l.TotalAllocated().Int64())
}

func TestLedger_addressesSorted(t *testing.T) {
	l := NewLedger()
	l.Account(common.HexToAddress("0xbb"))
	l.Account(common.HexToAddress("0x0a"))
	l.Account(common.HexToAddress("0x05"))

	addrs := l.Addresses()
	require.Len(t, addrs, 3)
	for i := 1; i < len(addrs); i++ {
		require.True(t, addrs[i-1].Hex() < addrs[i].Hex(),
			"addresses out of order: %s before %s", addrs[i-1].Hex(), addrs[i].Hex())
	}
}
