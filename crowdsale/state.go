package crowdsale

import (
	"fmt"
)

// State is the lifecycle state of a crowdsale. The numbering matches
// the status enum exposed to observers, so it must not be reordered.
//
// Progression is monotonic except for the Active/Paused pair:
//
//	Deployed -> PendingStart -> Active <-> Paused
//	Active -> Ended -> Completed
//
// Completed is terminal.
type State uint8

const (
	// Deployed: the engine exists but has no validated sale
	// configuration yet. Only Initialize is legal.
	Deployed State = iota

	// PendingStart: configured, waiting for the start time.
	PendingStart

	// Active: purchases are accepted.
	Active

	// Paused: purchases suspended; Unpause returns to Active.
	Paused

	// Ended: the sale is over (manually or by sell-out); distribution,
	// refunds and fund forwarding happen here.
	Ended

	// Completed: all allowance released, funds forwarded. Terminal.
	Completed
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case Deployed:
		return "Deployed"
	case PendingStart:
		return "PendingStart"
	case Active:
		return "Active"
	case Paused:
		return "Paused"
	case Ended:
		return "Ended"
	case Completed:
		return "Completed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// transitionAllowed is the edge table of the lifecycle graph. It only
// answers whether the edge exists; time and supply guards are checked
// by the operation that requests the transition.
func transitionAllowed(from, to State) bool {
	switch from {
	case Deployed:
		return to == PendingStart
	case PendingStart:
		return to == Active
	case Active:
		return to == Paused || to == Ended
	case Paused:
		return to == Active
	case Ended:
		return to == Completed
	}
	return false
}
