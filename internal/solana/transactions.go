package solana

import (
	"encoding/base64"
	"fmt"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// TransactionInfo is the getTransaction result. A nil *TransactionInfo
// means the signature is unknown at the queried commitment.
type TransactionInfo struct {
	Slot        uint64           `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Transaction EncodedData      `json:"transaction"`
	Meta        *TransactionMeta `json:"meta"`
	Version     any              `json:"version,omitempty"`
}

// GetTransactionParams mirrors Solana's getTransaction parameters.
type GetTransactionParams struct {
	Signature                      string     `json:"signature"`
	Commitment                     Commitment `json:"commitment,omitempty"`
	MaxSupportedTransactionVersion *uint8     `json:"maxSupportedTransactionVersion,omitempty"`
}

type getTransactionConfig struct {
	Commitment                     Commitment `json:"commitment,omitempty"`
	Encoding                       string     `json:"encoding"`
	MaxSupportedTransactionVersion uint8      `json:"maxSupportedTransactionVersion"`
}

// GetTransaction prepares a getTransaction call; encoding is base64.
func GetTransaction(params GetTransactionParams) (Call[*TransactionInfo], rpc.CallError) {
	if err := ValidateSignature(params.Signature); err != nil {
		return Call[*TransactionInfo]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if err := params.Commitment.Validate(); err != nil {
		return Call[*TransactionInfo]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if params.Commitment == CommitmentProcessed {
		return Call[*TransactionInfo]{}, &rpc.ValidationError{Message: "getTransaction does not support processed commitment"}
	}
	var maxVersion uint8
	if params.MaxSupportedTransactionVersion != nil {
		maxVersion = *params.MaxSupportedTransactionVersion
	}

	return Call[*TransactionInfo]{
		Method: "getTransaction",
		Params: []any{params.Signature, getTransactionConfig{
			Commitment:                     params.Commitment,
			Encoding:                       "base64",
			MaxSupportedTransactionVersion: maxVersion,
		}},
		ResponseSize: DefaultTransactionResponseSize,
		Decode:       decodeResult[*TransactionInfo],
	}, nil
}

// SendTransactionParams mirrors Solana's sendTransaction parameters.
// Transaction is the base64-encoded signed transaction.
type SendTransactionParams struct {
	Transaction         string     `json:"transaction"`
	SkipPreflight       bool       `json:"skipPreflight,omitempty"`
	PreflightCommitment Commitment `json:"preflightCommitment,omitempty"`
	MaxRetries          *uint      `json:"maxRetries,omitempty"`
	MinContextSlot      *uint64    `json:"minContextSlot,omitempty"`
}

type sendTransactionConfig struct {
	Encoding            string     `json:"encoding"`
	SkipPreflight       bool       `json:"skipPreflight,omitempty"`
	PreflightCommitment Commitment `json:"preflightCommitment,omitempty"`
	MaxRetries          *uint      `json:"maxRetries,omitempty"`
	MinContextSlot      *uint64    `json:"minContextSlot,omitempty"`
}

// SendTransaction prepares a sendTransaction call; the result is the
// transaction signature. Resubmission is Solana's job via maxRetries,
// never the dispatcher's.
func SendTransaction(params SendTransactionParams) (Call[string], rpc.CallError) {
	if params.Transaction == "" {
		return Call[string]{}, &rpc.ValidationError{Message: "transaction payload required"}
	}
	if _, err := base64.StdEncoding.DecodeString(params.Transaction); err != nil {
		return Call[string]{}, &rpc.ValidationError{
			Message: fmt.Sprintf("transaction is not valid base64: %v", err),
		}
	}
	if err := params.PreflightCommitment.Validate(); err != nil {
		return Call[string]{}, &rpc.ValidationError{Message: err.Error()}
	}

	return Call[string]{
		Method: "sendTransaction",
		Params: []any{params.Transaction, sendTransactionConfig{
			Encoding:            "base64",
			SkipPreflight:       params.SkipPreflight,
			PreflightCommitment: params.PreflightCommitment,
			MaxRetries:          params.MaxRetries,
			MinContextSlot:      params.MinContextSlot,
		}},
		ResponseSize: DefaultSendTransactionResponseSize,
		Decode:       decodeResult[string],
	}, nil
}
