package solana

import (
	"fmt"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// TransactionDetails selects how much per-transaction data getBlock
// returns.
type TransactionDetails string

const (
	TransactionDetailsNone       TransactionDetails = "none"
	TransactionDetailsSignatures TransactionDetails = "signatures"
	TransactionDetailsAccounts   TransactionDetails = "accounts"
	TransactionDetailsFull       TransactionDetails = "full"
)

func (d TransactionDetails) validate() error {
	switch d {
	case "", TransactionDetailsNone, TransactionDetailsSignatures,
		TransactionDetailsAccounts, TransactionDetailsFull:
		return nil
	}
	return fmt.Errorf("unknown transactionDetails: %q", d)
}

// Reward is a block reward entry.
type Reward struct {
	Pubkey      string `json:"pubkey"`
	Lamports    int64  `json:"lamports"`
	PostBalance uint64 `json:"postBalance"`
	RewardType  string `json:"rewardType,omitempty"`
	Commission  *uint8 `json:"commission,omitempty"`
}

// TransactionMeta is transaction execution metadata.
type TransactionMeta struct {
	Err                  any      `json:"err"`
	Fee                  uint64   `json:"fee"`
	PreBalances          []uint64 `json:"preBalances"`
	PostBalances         []uint64 `json:"postBalances"`
	LogMessages          []string `json:"logMessages,omitempty"`
	ComputeUnitsConsumed *uint64  `json:"computeUnitsConsumed,omitempty"`
}

// BlockTransaction is one transaction of a block when transactionDetails
// is full: the encoded transaction plus its meta.
type BlockTransaction struct {
	Transaction EncodedData      `json:"transaction"`
	Meta        *TransactionMeta `json:"meta"`
	Version     any              `json:"version,omitempty"`
}

// Block is the getBlock result. A nil *Block means the slot was skipped.
type Block struct {
	Blockhash         string             `json:"blockhash"`
	PreviousBlockhash string             `json:"previousBlockhash"`
	ParentSlot        uint64             `json:"parentSlot"`
	BlockHeight       *uint64            `json:"blockHeight"`
	BlockTime         *int64             `json:"blockTime"`
	Signatures        []string           `json:"signatures,omitempty"`
	Rewards           []Reward           `json:"rewards,omitempty"`
	Transactions      []BlockTransaction `json:"transactions,omitempty"`
}

// GetBlockParams mirrors Solana's getBlock parameters.
type GetBlockParams struct {
	Slot               uint64             `json:"slot"`
	Commitment         Commitment         `json:"commitment,omitempty"`
	TransactionDetails TransactionDetails `json:"transactionDetails,omitempty"`
	Rewards            *bool              `json:"rewards,omitempty"`
	MaxSupportedTransactionVersion *uint8 `json:"maxSupportedTransactionVersion,omitempty"`
}

type getBlockConfig struct {
	Commitment                     Commitment         `json:"commitment,omitempty"`
	Encoding                       string             `json:"encoding"`
	TransactionDetails             TransactionDetails `json:"transactionDetails"`
	Rewards                        bool               `json:"rewards"`
	MaxSupportedTransactionVersion uint8              `json:"maxSupportedTransactionVersion"`
}

// GetBlock prepares a getBlock call. TransactionDetails defaults to none:
// Solana's own default of full routinely exceeds the outcall response
// budget. Rewards default off, encoding is base64 so transactions compare
// bytewise.
func GetBlock(params GetBlockParams) (Call[*Block], rpc.CallError) {
	if err := params.Commitment.Validate(); err != nil {
		return Call[*Block]{}, &rpc.ValidationError{Message: err.Error()}
	}
	if params.Commitment == CommitmentProcessed {
		return Call[*Block]{}, &rpc.ValidationError{Message: "getBlock does not support processed commitment"}
	}
	if err := params.TransactionDetails.validate(); err != nil {
		return Call[*Block]{}, &rpc.ValidationError{Message: err.Error()}
	}
	details := params.TransactionDetails
	if details == "" {
		details = TransactionDetailsNone
	}
	rewards := false
	if params.Rewards != nil {
		rewards = *params.Rewards
	}
	var maxVersion uint8
	if params.MaxSupportedTransactionVersion != nil {
		maxVersion = *params.MaxSupportedTransactionVersion
	}

	return Call[*Block]{
		Method: "getBlock",
		Params: []any{params.Slot, getBlockConfig{
			Commitment:                     params.Commitment,
			Encoding:                       "base64",
			TransactionDetails:             details,
			Rewards:                        rewards,
			MaxSupportedTransactionVersion: maxVersion,
		}},
		ResponseSize: DefaultBlockResponseSize,
		Decode:       decodeResult[*Block],
	}, nil
}
