package crowdsale

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/sirupsen/logrus"
)

// Engine state snapshot, RLP-encoded for operator backup and restore.
// The snapshot captures the ledger, the whitelist, the supply counters,
// the external purchase records and the lifecycle position; the
// SaleConfig itself is provisioning data and is not part of it — a
// restore target must be initialized with the same configuration first.

// snapshotVersion guards against decoding snapshots from an
// incompatible layout.
const snapshotVersion = 1

type snapshotAccount struct {
	Addr                common.Address
	InvestedWei         *big.Int
	Tokens              *big.Int
	BonusTokens         *big.Int
	ExternalTokens      *big.Int
	ExternalBonusTokens *big.Int
}

type snapshotWhitelist struct {
	Addr        common.Address
	Cap         *big.Int
	KYCApproved bool
}

type snapshotPurchase struct {
	Addr common.Address
	ID   string
}

type snapshot struct {
	Version          uint16
	State            uint8
	EndedAtNanos     uint64
	TotalAllocated   *big.Int
	ReservedPresale  *big.Int
	SellableSupply   *big.Int
	ClaimedTokens    *big.Int
	ForwardedWei     *big.Int
	Accounts         []snapshotAccount
	Whitelist        []snapshotWhitelist
	Purchases        []snapshotPurchase
	Distributed      []common.Address
	BonusDistributed []common.Address
}

// Snapshot serializes the engine's full operational state. Iteration is
// over sorted addresses, so the encoding is deterministic and snapshots
// of identical states are byte-identical.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := snapshot{
		Version:         snapshotVersion,
		State:           uint8(e.state),
		TotalAllocated:  e.supply.TotalAllocated(),
		ReservedPresale: e.supply.ReservedPresale(),
		SellableSupply:  e.supply.SellableSupply(),
		ClaimedTokens:   new(big.Int).Set(e.claimedTokens),
		ForwardedWei:    new(big.Int).Set(e.forwardedWei),
	}
	if !e.endedAt.IsZero() {
		snap.EndedAtNanos = uint64(e.endedAt.UnixNano())
	}

	for _, addr := range e.ledger.Addresses() {
		acc, _ := e.ledger.Lookup(addr)
		snap.Accounts = append(snap.Accounts, snapshotAccount{
			Addr:                addr,
			InvestedWei:         new(big.Int).Set(acc.InvestedWei),
			Tokens:              new(big.Int).Set(acc.Tokens),
			BonusTokens:         new(big.Int).Set(acc.BonusTokens),
			ExternalTokens:      new(big.Int).Set(acc.ExternalTokens),
			ExternalBonusTokens: new(big.Int).Set(acc.ExternalBonusTokens),
		})
		if e.distributed[addr] {
			snap.Distributed = append(snap.Distributed, addr)
		}
		if e.bonusDistributed[addr] {
			snap.BonusDistributed = append(snap.BonusDistributed, addr)
		}
	}
	for _, addr := range e.whitelist.Addresses() {
		entry := e.whitelist.entry(addr)
		snap.Whitelist = append(snap.Whitelist, snapshotWhitelist{
			Addr:        addr,
			Cap:         new(big.Int).Set(entry.Cap),
			KYCApproved: entry.KYCApproved,
		})
	}
	for key := range e.purchases {
		snap.Purchases = append(snap.Purchases, snapshotPurchase{Addr: key.addr, ID: key.id})
	}
	sortPurchases(snap.Purchases)

	return rlp.EncodeToBytes(&snap)
}

// RestoreSnapshot replaces the engine's operational state with the
// decoded snapshot. The engine must already be initialized (the
// snapshot does not carry the SaleConfig), so restore runs from
// PendingStart.
func (e *Engine) RestoreSnapshot(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireState(PendingStart); err != nil {
		return err
	}
	var snap snapshot
	if err := rlp.DecodeBytes(data, &snap); err != nil {
		return fmt.Errorf("%w: undecodable snapshot: %v", ErrInvalidParameter, err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: snapshot version %d, want %d",
			ErrInvalidParameter, snap.Version, snapshotVersion)
	}
	if snap.State > uint8(Completed) {
		return fmt.Errorf("%w: unknown state %d in snapshot", ErrInvalidParameter, snap.State)
	}

	ledger := NewLedger()
	for _, row := range snap.Accounts {
		acc := ledger.Account(row.Addr)
		acc.InvestedWei.Set(row.InvestedWei)
		acc.Tokens.Set(row.Tokens)
		acc.BonusTokens.Set(row.BonusTokens)
		acc.ExternalTokens.Set(row.ExternalTokens)
		acc.ExternalBonusTokens.Set(row.ExternalBonusTokens)
	}
	whitelist := NewWhitelist()
	for _, row := range snap.Whitelist {
		entry := whitelist.entry(row.Addr)
		entry.Cap = new(big.Int).Set(row.Cap)
		entry.KYCApproved = row.KYCApproved
	}
	supply := NewSupplyTracker(e.cfg.leftoverBuffer())
	supply.SetSellable(snap.SellableSupply)
	supply.Allocate(snap.TotalAllocated)
	supply.reservedPresale.Set(snap.ReservedPresale)

	// Cross-check the aggregate counter against the ledger before
	// adopting anything. Claimed tokens stay in the counter after their
	// ledger rows were zeroed.
	outstanding := new(big.Int).Add(ledger.TotalAllocated(), snap.ClaimedTokens)
	if outstanding.Cmp(snap.TotalAllocated) != 0 {
		return fmt.Errorf("%w: snapshot ledger sums to %s, counter says %s",
			ErrInvalidParameter, outstanding, snap.TotalAllocated)
	}

	e.ledger = ledger
	e.whitelist = whitelist
	e.supply = supply
	e.claimedTokens = new(big.Int).Set(snap.ClaimedTokens)
	e.forwardedWei = new(big.Int).Set(snap.ForwardedWei)
	e.purchases = make(map[purchaseKey]struct{}, len(snap.Purchases))
	for _, p := range snap.Purchases {
		e.purchases[purchaseKey{addr: p.Addr, id: p.ID}] = struct{}{}
	}
	e.distributed = make(map[common.Address]bool, len(snap.Distributed))
	for _, addr := range snap.Distributed {
		e.distributed[addr] = true
	}
	e.bonusDistributed = make(map[common.Address]bool, len(snap.BonusDistributed))
	for _, addr := range snap.BonusDistributed {
		e.bonusDistributed[addr] = true
	}
	e.endedAt = time.Time{}
	if snap.EndedAtNanos != 0 {
		e.endedAt = time.Unix(0, int64(snap.EndedAtNanos)).UTC()
	}
	e.state = State(snap.State)

	e.log.WithFields(logrus.Fields{
		"state":    e.state.String(),
		"accounts": len(snap.Accounts),
	}).Info("state restored from snapshot")
	return nil
}

func sortPurchases(ps []snapshotPurchase) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Addr != ps[j].Addr {
			return ps[i].Addr.Hex() < ps[j].Addr.Hex()
		}
		return ps[i].ID < ps[j].ID
	})
}
