package crowdsale

import (
	"testing"
)

// TestTransitionTable enumerates the complete lifecycle graph.
func TestTransitionTable(t *testing.T) {
	all := []State{Deployed, PendingStart, Active, Paused, Ended, Completed}

	allowed := map[[2]State]bool{
		{Deployed, PendingStart}: true,
		{PendingStart, Active}:   true,
		{Active, Paused}:         true,
		{Active, Ended}:          true,
		{Paused, Active}:         true,
		{Ended, Completed}:       true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]State{from, to}]
			if got := transitionAllowed(from, to); got != want {
				t.Errorf("transitionAllowed(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

// TestStateString covers the observer-facing names.
func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Deployed, "Deployed"},
		{PendingStart, "PendingStart"},
		{Active, "Active"},
		{Paused, "Paused"},
		{Ended, "Ended"},
		{Completed, "Completed"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
