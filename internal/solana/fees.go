package solana

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fystack/solana-gateway/internal/rpc"
)

const (
	// MaxFeeAccounts caps the pubkey filter list of
	// getRecentPrioritizationFees.
	MaxFeeAccounts = 128

	DefaultMaxSlotRoundingError = 20
	DefaultFeesMaxLength        = 100
	// MaxFeesLength is the upper bound of the maxLength knob; Solana
	// itself returns at most 150 fee entries.
	MaxFeesLength = 150
)

// PrioritizationFee is one per-slot fee sample.
type PrioritizationFee struct {
	Slot              uint64 `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"`
}

// GetRecentPrioritizationFeesParams is the pubkey filter list.
type GetRecentPrioritizationFeesParams struct {
	Pubkeys []string `json:"pubkeys,omitempty"`
}

// GetRecentPrioritizationFeesConfig carries the fee-window coarsening
// knobs.
type GetRecentPrioritizationFeesConfig struct {
	// MaxSlotRoundingError floors the window's max slot; entries above
	// the floored slot are dropped. 0 means DefaultMaxSlotRoundingError.
	MaxSlotRoundingError uint64 `json:"maxSlotRoundingError,omitempty"`
	// MaxLength caps the result at its newest entries, in [1,150].
	// 0 means DefaultFeesMaxLength.
	MaxLength int `json:"maxLength,omitempty"`
}

// GetRecentPrioritizationFees prepares a fee-window call. The raw window
// is coarsened so that the result depends only on slots a super-majority
// of providers has seen: floor the max slot, drop newer entries, sort
// ascending, keep the newest maxLength entries.
func GetRecentPrioritizationFees(
	params GetRecentPrioritizationFeesParams,
	cfg GetRecentPrioritizationFeesConfig,
) (Call[[]PrioritizationFee], rpc.CallError) {
	if len(params.Pubkeys) > MaxFeeAccounts {
		return Call[[]PrioritizationFee]{}, &rpc.ValidationError{
			Message: fmt.Sprintf("at most %d pubkeys, got %d", MaxFeeAccounts, len(params.Pubkeys)),
		}
	}
	for _, pk := range params.Pubkeys {
		if err := ValidatePubkey(pk); err != nil {
			return Call[[]PrioritizationFee]{}, &rpc.ValidationError{Message: err.Error()}
		}
	}
	rounding := cfg.MaxSlotRoundingError
	if rounding == 0 {
		rounding = DefaultMaxSlotRoundingError
	}
	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = DefaultFeesMaxLength
	}
	if maxLength < 1 || maxLength > MaxFeesLength {
		return Call[[]PrioritizationFee]{}, &rpc.ValidationError{
			Message: fmt.Sprintf("maxLength must be in [1,%d], got %d", MaxFeesLength, maxLength),
		}
	}

	var rpcParams []any
	if len(params.Pubkeys) > 0 {
		rpcParams = []any{params.Pubkeys}
	}

	return Call[[]PrioritizationFee]{
		Method:       "getRecentPrioritizationFees",
		Params:       rpcParams,
		ResponseSize: DefaultFeesResponseSize,
		Decode: func(raw json.RawMessage) ([]PrioritizationFee, rpc.CallError) {
			fees, cerr := decodeResult[[]PrioritizationFee](raw)
			if cerr != nil {
				return nil, cerr
			}
			return trimFees(fees, rounding, maxLength), nil
		},
	}, nil
}

// trimFees is the deterministic fee-window coarsening. The output is a
// pure function of the raw window, independent of observation time.
func trimFees(fees []PrioritizationFee, rounding uint64, maxLength int) []PrioritizationFee {
	if len(fees) == 0 {
		return []PrioritizationFee{}
	}

	var maxSlot uint64
	for _, f := range fees {
		if f.Slot > maxSlot {
			maxSlot = f.Slot
		}
	}
	cutoff := maxSlot - maxSlot%rounding

	kept := make([]PrioritizationFee, 0, len(fees))
	for _, f := range fees {
		if f.Slot <= cutoff {
			kept = append(kept, f)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Slot < kept[j].Slot })

	if len(kept) > maxLength {
		kept = kept[len(kept)-maxLength:]
	}
	return kept
}
