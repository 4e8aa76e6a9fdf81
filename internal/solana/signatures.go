package solana

import (
	"fmt"

	"github.com/fystack/solana-gateway/internal/rpc"
)

const (
	MaxSignaturesLimit  = 1000
	MaxSignatureStatuses = 256
)

// SignatureInfo is one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature          string  `json:"signature"`
	Slot               uint64  `json:"slot"`
	Err                any     `json:"err"`
	Memo               *string `json:"memo"`
	BlockTime          *int64  `json:"blockTime"`
	ConfirmationStatus *string `json:"confirmationStatus"`
}

// GetSignaturesForAddressParams mirrors Solana's parameters. Before must
// anchor the scan whenever the call runs under a consensus strategy that
// needs agreement: without it the newest confirmed tail drifts between
// nodes and the call cannot converge.
type GetSignaturesForAddressParams struct {
	Pubkey         string     `json:"pubkey"`
	Commitment     Commitment `json:"commitment,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Before         string     `json:"before,omitempty"`
	Until          string     `json:"until,omitempty"`
}

type signaturesForAddressConfig struct {
	Commitment     Commitment `json:"commitment,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Before         string     `json:"before,omitempty"`
	Until          string     `json:"until,omitempty"`
}

// GetSignaturesForAddress prepares a signature-scan call. needsAgreement
// reflects the effective consensus strategy of the surrounding call.
func GetSignaturesForAddress(params GetSignaturesForAddressParams, needsAgreement bool) (Call[[]SignatureInfo], rpc.CallError) {
	if err := ValidatePubkey(params.Pubkey); err != nil {
		return Call[[]SignatureInfo]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if err := params.Commitment.Validate(); err != nil {
		return Call[[]SignatureInfo]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if params.Limit != 0 && (params.Limit < 1 || params.Limit > MaxSignaturesLimit) {
		return Call[[]SignatureInfo]{}, &rpc.ValidationError{
			Message: fmt.Sprintf("limit must be in [1,%d], got %d", MaxSignaturesLimit, params.Limit),
		}
	}
	if params.Before == "" && needsAgreement {
		return Call[[]SignatureInfo]{}, &rpc.ValidationError{
			Message: "getSignaturesForAddress requires 'before' under a consensus strategy; the unanchored signature tail differs between providers",
		}
	}
	if params.Before != "" {
		if err := ValidateSignature(params.Before); err != nil {
			return Call[[]SignatureInfo]{}, &rpc.ValidationError{Message: "before: " + err.Error()}
		}
	}
	if params.Until != "" {
		if err := ValidateSignature(params.Until); err != nil {
			return Call[[]SignatureInfo]{}, &rpc.ValidationError{Message: "until: " + err.Error()}
		}
	}

	return Call[[]SignatureInfo]{
		Method: "getSignaturesForAddress",
		Params: []any{params.Pubkey, signaturesForAddressConfig{
			Commitment:     params.Commitment,
			MinContextSlot: params.MinContextSlot,
			Limit:          params.Limit,
			Before:         params.Before,
			Until:          params.Until,
		}},
		ResponseSize: DefaultSignaturesResponseSize,
		Decode:       decodeResult[[]SignatureInfo],
	}, nil
}

// SignatureStatus is one entry of getSignatureStatuses. The wire carries
// a confirmations count that changes every block; the schema deliberately
// has no field for it, so normalized statuses never disagree on it.
type SignatureStatus struct {
	Slot               uint64  `json:"slot"`
	Err                any     `json:"err"`
	ConfirmationStatus *string `json:"confirmationStatus"`
}

// GetSignatureStatusesParams mirrors Solana's parameters.
type GetSignatureStatusesParams struct {
	Signatures               []string `json:"signatures"`
	SearchTransactionHistory bool     `json:"searchTransactionHistory,omitempty"`
}

type signatureStatusesConfig struct {
	SearchTransactionHistory bool `json:"searchTransactionHistory,omitempty"`
}

// GetSignatureStatuses prepares a status-lookup call. Result slots are
// nil for signatures the provider does not know.
func GetSignatureStatuses(params GetSignatureStatusesParams) (Call[[]*SignatureStatus], rpc.CallError) {
	if len(params.Signatures) == 0 {
		return Call[[]*SignatureStatus]{}, &rpc.ValidationError{Message: "at least one signature required"}
	}
	if len(params.Signatures) > MaxSignatureStatuses {
		return Call[[]*SignatureStatus]{}, &rpc.ValidationError{
			Message: fmt.Sprintf("at most %d signatures, got %d", MaxSignatureStatuses, len(params.Signatures)),
		}
	}
	for _, sig := range params.Signatures {
		if err := ValidateSignature(sig); err != nil {
			return Call[[]*SignatureStatus]{}, &rpc.ValidationError{Message: err.Error()}
		}
	}

	return Call[[]*SignatureStatus]{
		Method: "getSignatureStatuses",
		Params: []any{params.Signatures, signatureStatusesConfig{
			SearchTransactionHistory: params.SearchTransactionHistory,
		}},
		ResponseSize: DefaultStatusesResponseSize,
		Decode:       decodeContextValue[[]*SignatureStatus],
	}, nil
}
