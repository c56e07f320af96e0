package crowdsale

import (
	"fmt"
	"time"
)

// secondsPerDay converts tier day-boundaries into elapsed seconds.
const secondsPerDay = 86400

// BonusTier is one step of the descending bonus schedule. The tier's
// rate applies from the end of the previous tier up to and including
// the instant elapsed == EndDay*86400 seconds; the next tier takes over
// strictly after that instant.
type BonusTier struct {
	EndDay      uint32 // day boundary closing this tier (inclusive)
	RatePercent uint32 // bonus percentage awarded on top of the base rate
}

// BonusSchedule is a pure step function of elapsed time since sale
// start. Tiers are ordered by ascending EndDay; FinalRate applies after
// the last boundary until the end of the sale. A rate of zero is legal
// and simply disables the bonus for that span.
//
// The schedule knows nothing about the sale lifecycle: zeroing the rate
// after the sale has ended is the engine's job.
type BonusSchedule struct {
	Tiers     []BonusTier
	FinalRate uint32
}

// RateAt returns the bonus percentage in effect after the given elapsed
// time since sale start. The boundary instant itself still belongs to
// the tier it closes.
func (s BonusSchedule) RateAt(elapsed time.Duration) uint32 {
	sec := int64(elapsed / time.Second)
	if sec < 0 {
		// Unreachable through the engine (purchases are gated by the
		// Active state), but a well-defined answer beats a panic.
		sec = 0
	}
	for _, tier := range s.Tiers {
		if sec <= int64(tier.EndDay)*secondsPerDay {
			return tier.RatePercent
		}
	}
	return s.FinalRate
}

// validate checks structural sanity: day boundaries strictly ascending.
func (s BonusSchedule) validate() error {
	var prev uint32
	for i, tier := range s.Tiers {
		if i > 0 && tier.EndDay <= prev {
			return fmt.Errorf("%w: bonus tier %d boundary day %d not after day %d",
				ErrInvalidParameter, i, tier.EndDay, prev)
		}
		prev = tier.EndDay
	}
	return nil
}

// copySchedule returns a deep copy so configs can be handed out without
// sharing the tier slice.
func (s BonusSchedule) copySchedule() BonusSchedule {
	cp := s
	cp.Tiers = make([]BonusTier, len(s.Tiers))
	copy(cp.Tiers, s.Tiers)
	return cp
}
