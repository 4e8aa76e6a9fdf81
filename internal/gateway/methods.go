package gateway

import (
	"context"
	"encoding/json"

	"github.com/fystack/solana-gateway/internal/consensus"
	"github.com/fystack/solana-gateway/internal/outcall"
	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/internal/rpc"
	"github.com/fystack/solana-gateway/internal/solana"
)

func (g *Gateway) GetAccountInfo(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetAccountInfoParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[*solana.AccountInfo], rpc.CallError) {
	call, cerr := solana.GetAccountInfo(params)
	if cerr != nil {
		return consensus.MultiResult[*solana.AccountInfo]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) GetAccountInfoCyclesCost(
	sources provider.Sources,
	params solana.GetAccountInfoParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetAccountInfo(params)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

func (g *Gateway) GetBalance(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetBalanceParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[uint64], rpc.CallError) {
	call, cerr := solana.GetBalance(params)
	if cerr != nil {
		return consensus.MultiResult[uint64]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) GetBalanceCyclesCost(
	sources provider.Sources,
	params solana.GetBalanceParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetBalance(params)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

func (g *Gateway) GetBlock(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetBlockParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[*solana.Block], rpc.CallError) {
	call, cerr := solana.GetBlock(params)
	if cerr != nil {
		return consensus.MultiResult[*solana.Block]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) GetBlockCyclesCost(
	sources provider.Sources,
	params solana.GetBlockParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetBlock(params)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

func (g *Gateway) GetRecentPrioritizationFees(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetRecentPrioritizationFeesParams,
	cfg GetRecentPrioritizationFeesRpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[[]solana.PrioritizationFee], rpc.CallError) {
	call, cerr := solana.GetRecentPrioritizationFees(params, solana.GetRecentPrioritizationFeesConfig{
		MaxSlotRoundingError: cfg.MaxSlotRoundingError,
		MaxLength:            cfg.MaxLength,
	})
	if cerr != nil {
		return consensus.MultiResult[[]solana.PrioritizationFee]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg.RpcConfig, attachedCycles)
}

func (g *Gateway) GetRecentPrioritizationFeesCyclesCost(
	sources provider.Sources,
	params solana.GetRecentPrioritizationFeesParams,
	cfg GetRecentPrioritizationFeesRpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetRecentPrioritizationFees(params, solana.GetRecentPrioritizationFeesConfig{
		MaxSlotRoundingError: cfg.MaxSlotRoundingError,
		MaxLength:            cfg.MaxLength,
	})
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg.RpcConfig)
}

// getSignaturesCall builds the signature-scan call with the
// before-anchor requirement derived from the effective strategy.
func (g *Gateway) getSignaturesCall(
	sources provider.Sources,
	params solana.GetSignaturesForAddressParams,
	cfg RpcConfig,
) (solana.Call[[]solana.SignatureInfo], rpc.CallError) {
	strategy := cfg.strategy()
	available, cerr := sources.Available()
	if cerr != nil {
		return solana.Call[[]solana.SignatureInfo]{}, cerr
	}
	if cerr := strategy.Validate(available); cerr != nil {
		return solana.Call[[]solana.SignatureInfo]{}, cerr
	}
	contacted := strategy.ContactCount(available)
	if !sources.IsDefault() {
		contacted = available
	}
	return solana.GetSignaturesForAddress(params, strategy.NeedsAgreement(contacted))
}

func (g *Gateway) GetSignaturesForAddress(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetSignaturesForAddressParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[[]solana.SignatureInfo], rpc.CallError) {
	call, cerr := g.getSignaturesCall(sources, params, cfg)
	if cerr != nil {
		return consensus.MultiResult[[]solana.SignatureInfo]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) GetSignaturesForAddressCyclesCost(
	sources provider.Sources,
	params solana.GetSignaturesForAddressParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := g.getSignaturesCall(sources, params, cfg)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

func (g *Gateway) GetSignatureStatuses(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetSignatureStatusesParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[[]*solana.SignatureStatus], rpc.CallError) {
	call, cerr := solana.GetSignatureStatuses(params)
	if cerr != nil {
		return consensus.MultiResult[[]*solana.SignatureStatus]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) GetSignatureStatusesCyclesCost(
	sources provider.Sources,
	params solana.GetSignatureStatusesParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetSignatureStatuses(params)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

func (g *Gateway) GetSlot(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetSlotParams,
	cfg GetSlotRpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[uint64], rpc.CallError) {
	call, cerr := solana.GetSlot(params, solana.GetSlotConfig{RoundingError: cfg.RoundingError})
	if cerr != nil {
		return consensus.MultiResult[uint64]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg.RpcConfig, attachedCycles)
}

func (g *Gateway) GetSlotCyclesCost(
	sources provider.Sources,
	params solana.GetSlotParams,
	cfg GetSlotRpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetSlot(params, solana.GetSlotConfig{RoundingError: cfg.RoundingError})
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg.RpcConfig)
}

func (g *Gateway) GetTokenAccountBalance(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetTokenAccountBalanceParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[solana.TokenAmount], rpc.CallError) {
	call, cerr := solana.GetTokenAccountBalance(params)
	if cerr != nil {
		return consensus.MultiResult[solana.TokenAmount]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) GetTokenAccountBalanceCyclesCost(
	sources provider.Sources,
	params solana.GetTokenAccountBalanceParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetTokenAccountBalance(params)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

func (g *Gateway) GetTransaction(
	ctx context.Context,
	sources provider.Sources,
	params solana.GetTransactionParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[*solana.TransactionInfo], rpc.CallError) {
	call, cerr := solana.GetTransaction(params)
	if cerr != nil {
		return consensus.MultiResult[*solana.TransactionInfo]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) GetTransactionCyclesCost(
	sources provider.Sources,
	params solana.GetTransactionParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.GetTransaction(params)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

func (g *Gateway) SendTransaction(
	ctx context.Context,
	sources provider.Sources,
	params solana.SendTransactionParams,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[string], rpc.CallError) {
	call, cerr := solana.SendTransaction(params)
	if cerr != nil {
		return consensus.MultiResult[string]{}, cerr
	}
	return invoke(ctx, g, call, sources, cfg, attachedCycles)
}

func (g *Gateway) SendTransactionCyclesCost(
	sources provider.Sources,
	params solana.SendTransactionParams,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	call, cerr := solana.SendTransaction(params)
	if cerr != nil {
		return 0, cerr
	}
	return estimateCost(g, call, sources, cfg)
}

// JSONRequest is the raw escape hatch: the payload is forwarded verbatim
// and provider responses are compared as raw text, no schema decode.
func (g *Gateway) JSONRequest(
	ctx context.Context,
	sources provider.Sources,
	payload string,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[string], rpc.CallError) {
	call, cerr := rawCall(payload)
	if cerr != nil {
		return consensus.MultiResult[string]{}, cerr
	}
	plan, cerr := g.plan(sources, cfg)
	if cerr != nil {
		return consensus.MultiResult[string]{}, cerr
	}

	responseSize := call.ResponseSize
	if cfg.ResponseSizeEstimate != nil {
		responseSize = *cfg.ResponseSizeEstimate
	}
	expected := g.estimator.RequestCost(uint64(len(payload)), responseSize, len(plan.sources))
	if cerr := g.estimator.Charge(expected, attachedCycles); cerr != nil {
		return consensus.MultiResult[string]{}, cerr
	}

	outcalls := make([]outcall.Call, len(plan.endpoints))
	for i, ep := range plan.endpoints {
		outcalls[i] = outcall.Call{Endpoint: ep, Body: []byte(payload), MaxResponseBytes: responseSize}
	}
	results := g.dispatcher.FanOut(ctx, outcalls)

	outcomes := make([]consensus.Outcome[string], len(results))
	for i, res := range results {
		if res.Err != nil {
			outcomes[i] = consensus.Outcome[string]{Source: plan.sources[i].ID(), Err: res.Err}
			continue
		}
		outcomes[i] = consensus.Outcome[string]{Source: plan.sources[i].ID(), Value: string(res.Body)}
	}
	reduced := consensus.Reduce(plan.strategy, outcomes)
	g.emitCall("jsonRequest", plan, reduced.Consistent, reduced.Err, expected)
	return reduced, nil
}

func (g *Gateway) JSONRequestCyclesCost(
	sources provider.Sources,
	payload string,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	if _, cerr := rawCall(payload); cerr != nil {
		return 0, cerr
	}
	plan, cerr := g.plan(sources, cfg)
	if cerr != nil {
		return 0, cerr
	}
	responseSize := uint64(solana.DefaultRawResponseSize)
	if cfg.ResponseSizeEstimate != nil {
		responseSize = *cfg.ResponseSizeEstimate
	}
	return g.estimator.RequestCost(uint64(len(payload)), responseSize, len(plan.sources)), nil
}

func rawCall(payload string) (solana.Call[string], rpc.CallError) {
	if payload == "" {
		return solana.Call[string]{}, &rpc.ValidationError{Message: "empty payload"}
	}
	if !json.Valid([]byte(payload)) {
		return solana.Call[string]{}, &rpc.ValidationError{Message: "payload is not valid JSON"}
	}
	return solana.Call[string]{
		Method:       "jsonRequest",
		ResponseSize: solana.DefaultRawResponseSize,
	}, nil
}
