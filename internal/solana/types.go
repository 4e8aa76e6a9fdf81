// Package solana holds the typed request/response schemas for every
// supported RPC method, the JSON-RPC payload construction, and the
// response normalization. All per-method semantics live here; callers
// above this package are method-agnostic.
package solana

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// Commitment is Solana's finality guarantee level.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func (c Commitment) Validate() error {
	switch c {
	case "", CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return nil
	}
	return fmt.Errorf("unknown commitment: %q", c)
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Set = func() [256]bool {
	var set [256]bool
	for i := 0; i < len(base58Alphabet); i++ {
		set[base58Alphabet[i]] = true
	}
	return set
}()

func validateBase58(s string, min, max int, what string) error {
	if len(s) < min || len(s) > max {
		return fmt.Errorf("%s must be %d-%d base-58 characters, got %d", what, min, max, len(s))
	}
	for i := 0; i < len(s); i++ {
		if !base58Set[s[i]] {
			return fmt.Errorf("%s contains non-base58 character %q", what, s[i])
		}
	}
	return nil
}

// ValidatePubkey checks a base-58 account address (32 bytes, 32-44 chars).
func ValidatePubkey(s string) error {
	return validateBase58(s, 32, 44, "pubkey")
}

// ValidateSignature checks a base-58 transaction signature (64 bytes,
// up to 88 chars).
func ValidateSignature(s string) error {
	return validateBase58(s, 64, 88, "signature")
}

// DataSlice limits the account data window returned by getAccountInfo.
type DataSlice struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

// contextValue is the {context, value} envelope several methods wrap
// their result in. The context slot is volatile across providers and is
// dropped during normalization.
type contextValue[T any] struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value T `json:"value"`
}

func decodeResult[T any](raw json.RawMessage) (T, rpc.CallError) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &rpc.ValidationError{Message: fmt.Sprintf("decode result: %v", err)}
	}
	return out, nil
}

func decodeContextValue[T any](raw json.RawMessage) (T, rpc.CallError) {
	env, cerr := decodeResult[contextValue[T]](raw)
	if cerr != nil {
		var zero T
		return zero, cerr
	}
	return env.Value, nil
}

// EncodedData is Solana's (content, encoding) data tuple. The wire shape
// is either ["<content>", "<encoding>"] or a bare base-58 string; it
// always re-serializes as the two-element form so every node emits the
// same bytes.
type EncodedData struct {
	Content  string
	Encoding string
}

func (d *EncodedData) UnmarshalJSON(b []byte) error {
	var tuple []string
	if err := json.Unmarshal(b, &tuple); err == nil {
		if len(tuple) != 2 {
			return fmt.Errorf("encoded data tuple has %d elements", len(tuple))
		}
		d.Content, d.Encoding = tuple[0], tuple[1]
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("encoded data is neither tuple nor string")
	}
	d.Content, d.Encoding = s, "base58"
	return nil
}

func (d EncodedData) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{d.Content, d.Encoding})
}

// TokenAmount is an SPL token balance. UiAmountString is re-derived from
// Amount and Decimals during normalization: providers disagree on float
// rendering, the quotient of two integers they do not.
type TokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       uint8  `json:"decimals"`
	UiAmountString string `json:"uiAmountString"`
}

func (a *TokenAmount) canonicalize() rpc.CallError {
	amount, err := decimal.NewFromString(a.Amount)
	if err != nil {
		return &rpc.ValidationError{Message: fmt.Sprintf("token amount %q: %v", a.Amount, err)}
	}
	a.UiAmountString = amount.Shift(-int32(a.Decimals)).String()
	return nil
}
