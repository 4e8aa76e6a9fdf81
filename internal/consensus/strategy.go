// Package consensus combines per-provider outcomes into a single verdict.
package consensus

import (
	"fmt"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// Mode selects the reduction rule.
type Mode string

const (
	ModeEquality  Mode = "equality"
	ModeThreshold Mode = "threshold"
)

// equalityContactCount is how many default providers an Equality call
// contacts.
const equalityContactCount = 3

// Strategy is the consensus rule for one call.
type Strategy struct {
	Mode Mode `json:"mode"`
	// Total is the number of providers contacted under ModeThreshold;
	// 0 means "derive from Min and availability".
	Total int `json:"total,omitempty"`
	// Min is the agreement quorum under ModeThreshold.
	Min int `json:"min,omitempty"`
}

func Equality() Strategy {
	return Strategy{Mode: ModeEquality}
}

func Threshold(total, min int) Strategy {
	return Strategy{Mode: ModeThreshold, Total: total, Min: min}
}

// Validate checks the strategy invariants against the number of sources
// available for the call.
func (s Strategy) Validate(available int) rpc.CallError {
	switch s.Mode {
	case ModeEquality:
		return nil
	case ModeThreshold:
		if s.Min < 1 {
			return &rpc.InvalidConfigError{Message: "threshold min must be >= 1"}
		}
		if s.Total != 0 {
			if s.Min > s.Total {
				return &rpc.InvalidConfigError{
					Message: fmt.Sprintf("threshold min %d exceeds total %d", s.Min, s.Total),
				}
			}
			if s.Total > available {
				return &rpc.InvalidConfigError{
					Message: fmt.Sprintf("threshold total %d exceeds available providers %d", s.Total, available),
				}
			}
		} else if s.Min > available {
			return &rpc.InvalidConfigError{
				Message: fmt.Sprintf("threshold min %d exceeds available providers %d", s.Min, available),
			}
		}
		return nil
	default:
		return &rpc.InvalidConfigError{Message: fmt.Sprintf("unknown consensus mode: %q", s.Mode)}
	}
}

// ContactCount returns how many default providers the strategy contacts.
// Threshold with an explicit total contacts exactly that many; without one
// it contacts min+1 so a single dissent can still reach quorum. Custom
// source lists bypass this and are contacted in full.
func (s Strategy) ContactCount(available int) int {
	switch s.Mode {
	case ModeThreshold:
		if s.Total != 0 {
			return s.Total
		}
		n := s.Min + 1
		if n > available {
			n = available
		}
		return n
	default:
		if available < equalityContactCount {
			return available
		}
		return equalityContactCount
	}
}

// NeedsAgreement reports whether the strategy requires more than one
// response to agree, given the number of sources contacted. Volatile
// methods use this to reject configurations that cannot converge.
func (s Strategy) NeedsAgreement(contacted int) bool {
	switch s.Mode {
	case ModeThreshold:
		return s.Min > 1
	default:
		return contacted > 1
	}
}
