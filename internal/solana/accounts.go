package solana

import (
	"encoding/json"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// AccountInfo is the account state returned by getAccountInfo. A nil
// *AccountInfo means the account does not exist at the queried commitment.
type AccountInfo struct {
	Lamports   uint64      `json:"lamports"`
	Data       EncodedData `json:"data"`
	Owner      string      `json:"owner"`
	Executable bool        `json:"executable"`
	RentEpoch  uint64      `json:"rentEpoch"`
	Space      uint64      `json:"space"`
}

// GetAccountInfoParams mirrors Solana's getAccountInfo parameters.
type GetAccountInfoParams struct {
	Pubkey         string     `json:"pubkey"`
	Commitment     Commitment `json:"commitment,omitempty"`
	Encoding       string     `json:"encoding,omitempty"`
	DataSlice      *DataSlice `json:"dataSlice,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

type getAccountInfoConfig struct {
	Commitment     Commitment `json:"commitment,omitempty"`
	Encoding       string     `json:"encoding,omitempty"`
	DataSlice      *DataSlice `json:"dataSlice,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

// GetAccountInfo prepares a getAccountInfo call. Encoding defaults to
// base64 so account data compares bytewise across providers.
func GetAccountInfo(params GetAccountInfoParams) (Call[*AccountInfo], rpc.CallError) {
	if err := ValidatePubkey(params.Pubkey); err != nil {
		return Call[*AccountInfo]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if err := params.Commitment.Validate(); err != nil {
		return Call[*AccountInfo]{}, &rpc.ValidationError{Message: err.Error()}
	}
	encoding := params.Encoding
	if encoding == "" {
		encoding = "base64"
	}

	return Call[*AccountInfo]{
		Method: "getAccountInfo",
		Params: []any{params.Pubkey, getAccountInfoConfig{
			Commitment:     params.Commitment,
			Encoding:       encoding,
			DataSlice:      params.DataSlice,
			MinContextSlot: params.MinContextSlot,
		}},
		ResponseSize: DefaultAccountInfoResponseSize,
		Decode:       decodeContextValue[*AccountInfo],
	}, nil
}

// GetBalanceParams mirrors Solana's getBalance parameters.
type GetBalanceParams struct {
	Pubkey         string     `json:"pubkey"`
	Commitment     Commitment `json:"commitment,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

type commitmentConfig struct {
	Commitment     Commitment `json:"commitment,omitempty"`
	MinContextSlot *uint64    `json:"minContextSlot,omitempty"`
}

// GetBalance prepares a getBalance call; the result is lamports.
func GetBalance(params GetBalanceParams) (Call[uint64], rpc.CallError) {
	if err := ValidatePubkey(params.Pubkey); err != nil {
		return Call[uint64]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if err := params.Commitment.Validate(); err != nil {
		return Call[uint64]{}, &rpc.ValidationError{Message: err.Error()}
	}

	return Call[uint64]{
		Method: "getBalance",
		Params: []any{params.Pubkey, commitmentConfig{
			Commitment:     params.Commitment,
			MinContextSlot: params.MinContextSlot,
		}},
		ResponseSize: DefaultBalanceResponseSize,
		Decode:       decodeContextValue[uint64],
	}, nil
}

// GetTokenAccountBalanceParams mirrors getTokenAccountBalance parameters.
type GetTokenAccountBalanceParams struct {
	Pubkey     string     `json:"pubkey"`
	Commitment Commitment `json:"commitment,omitempty"`
}

type tokenBalanceConfig struct {
	Commitment Commitment `json:"commitment,omitempty"`
}

// GetTokenAccountBalance prepares a getTokenAccountBalance call. The
// uiAmountString of the result is re-derived from amount and decimals.
func GetTokenAccountBalance(params GetTokenAccountBalanceParams) (Call[TokenAmount], rpc.CallError) {
	if err := ValidatePubkey(params.Pubkey); err != nil {
		return Call[TokenAmount]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if err := params.Commitment.Validate(); err != nil {
		return Call[TokenAmount]{}, &rpc.ValidationError{Message: err.Error()}
	}

	return Call[TokenAmount]{
		Method: "getTokenAccountBalance",
		Params: []any{params.Pubkey, tokenBalanceConfig{Commitment: params.Commitment}},
		ResponseSize: DefaultTokenBalanceResponseSize,
		Decode: func(raw json.RawMessage) (TokenAmount, rpc.CallError) {
			amount, cerr := decodeContextValue[TokenAmount](raw)
			if cerr != nil {
				return TokenAmount{}, cerr
			}
			if cerr := amount.canonicalize(); cerr != nil {
				return TokenAmount{}, cerr
			}
			return amount, nil
		},
	}, nil
}
