package solana

import (
	"encoding/json"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// DefaultSlotRoundingError is the default flooring granularity for
// getSlot. Slots advance roughly every 400ms, faster than outcall
// latency, so raw slots observed by different nodes diverge; flooring
// widens the agreement window.
const DefaultSlotRoundingError = 20

// GetSlotParams mirrors Solana's getSlot parameters. Commitment defaults
// to finalized.
type GetSlotParams struct {
	Commitment     Commitment `json:"commitment,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

// GetSlotConfig carries the getSlot coarsening knob.
type GetSlotConfig struct {
	// RoundingError floors the returned slot to its nearest lower
	// multiple. 0 means DefaultSlotRoundingError.
	RoundingError uint64 `json:"roundingError,omitempty"`
}

// GetSlot prepares a getSlot call whose result is floored to the
// configured rounding granularity.
func GetSlot(params GetSlotParams, cfg GetSlotConfig) (Call[uint64], rpc.CallError) {
	if err := params.Commitment.Validate(); err != nil {
		return Call[uint64]{}, &rpc.ValidationError{Message: err.Error()}
	}
	commitment := params.Commitment
	if commitment == "" {
		commitment = CommitmentFinalized
	}
	rounding := cfg.RoundingError
	if rounding == 0 {
		rounding = DefaultSlotRoundingError
	}

	return Call[uint64]{
		Method: "getSlot",
		Params: []any{commitmentConfig{
			Commitment:     commitment,
			MinContextSlot: params.MinContextSlot,
		}},
		ResponseSize: DefaultSlotResponseSize,
		Decode: func(raw json.RawMessage) (uint64, rpc.CallError) {
			slot, cerr := decodeResult[uint64](raw)
			if cerr != nil {
				return 0, cerr
			}
			return slot - slot%rounding, nil
		},
	}, nil
}
