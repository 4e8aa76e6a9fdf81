package solana

import (
	"encoding/json"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// Call is one prepared method invocation: the serialized JSON-RPC params,
// the default response-size budget, and the normalizer for the raw result.
// Constructors validate params and bake every coarsening knob in, so the
// layers above stay method-agnostic.
type Call[T any] struct {
	Method       string
	Params       any
	ResponseSize uint64
	Decode       func(json.RawMessage) (T, rpc.CallError)
}

// Request builds the JSON-RPC request sent to every provider.
func (c Call[T]) Request() *rpc.Request {
	return rpc.NewRequest(c.Method, c.Params)
}

// Default max-response-bytes budgets per method, sized for typical
// responses. Callers override via the per-call response size estimate.
const (
	DefaultAccountInfoResponseSize    = 16_384
	DefaultBalanceResponseSize        = 256
	DefaultBlockResponseSize          = 262_144
	DefaultFeesResponseSize           = 8_192
	DefaultSignaturesResponseSize     = 262_144
	DefaultStatusesResponseSize       = 32_768
	DefaultSlotResponseSize           = 256
	DefaultTokenBalanceResponseSize   = 512
	DefaultTransactionResponseSize    = 65_536
	DefaultSendTransactionResponseSize = 256
	DefaultRawResponseSize            = 1_048_576
)
