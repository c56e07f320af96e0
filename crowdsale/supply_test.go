package crowdsale

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplyTracker_allocation(t *testing.T) {
	s := NewSupplyTracker(nil)
	s.SetSellable(big.NewInt(100))

	require.True(t, s.CanAllocate(big.NewInt(100)))
	require.False(t, s.CanAllocate(big.NewInt(101)))

	s.Allocate(big.NewInt(60))
	assert.Equal(t, int64(40), s.TokensLeft().Int64())
	require.False(t, s.CanAllocate(big.NewInt(41)))
	require.True(t, s.CanAllocate(big.NewInt(40)))

	s.Release(big.NewInt(60))
	assert.Equal(t, int64(100), s.TokensLeft().Int64())
}

func TestSupplyTracker_reservedChannel(t *testing.T) {
	s := NewSupplyTracker(nil)
	s.SetSellable(big.NewInt(100))

	s.AllocateReserved(big.NewInt(30))
	assert.Equal(t, int64(30), s.TotalAllocated().Int64())
	assert.Equal(t, int64(30), s.ReservedPresale().Int64())

	s.Allocate(big.NewInt(20))
	assert.Equal(t, int64(50), s.TotalAllocated().Int64())
	assert.Equal(t, int64(30), s.ReservedPresale().Int64())

	s.ReleaseReserved(big.NewInt(10))
	assert.Equal(t, int64(40), s.TotalAllocated().Int64())
	assert.Equal(t, int64(20), s.ReservedPresale().Int64())
}

func TestSupplyTracker_soldOut(t *testing.T) {
	tests := []struct {
		name      string
		buffer    int64
		allocated int64
		want      bool
	}{
		{"untouched", 0, 0, false},
		{"partially sold", 0, 50, false},
		{"exact sell-out", 0, 100, true},
		{"above buffer", 30, 69, false},
		{"at buffer", 30, 70, true},
		{"below buffer", 30, 80, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSupplyTracker(big.NewInt(tt.buffer))
			s.SetSellable(big.NewInt(100))
			s.Allocate(big.NewInt(tt.allocated))
			require.Equal(t, tt.want, s.SoldOut())
		})
	}
}

func TestSupplyTracker_returnsCopies(t *testing.T) {
	s := NewSupplyTracker(big.NewInt(5))
	s.SetSellable(big.NewInt(100))
	s.Allocate(big.NewInt(10))

	s.TotalAllocated().SetInt64(999)
	s.TokensLeft().SetInt64(999)
	s.LeftoverBuffer().SetInt64(999)

	assert.Equal(t, int64(10), s.TotalAllocated().Int64())
	assert.Equal(t, int64(90), s.TokensLeft().Int64())
	assert.Equal(t, int64(5), s.LeftoverBuffer().Int64())
}
