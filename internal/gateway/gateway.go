// Package gateway orchestrates one typed RPC call end to end: source
// selection, cost accounting, parallel fan-out, normalization, and
// consensus reduction.
package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fystack/solana-gateway/internal/consensus"
	"github.com/fystack/solana-gateway/internal/cycles"
	"github.com/fystack/solana-gateway/internal/outcall"
	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/internal/rpc"
	"github.com/fystack/solana-gateway/internal/solana"
	"github.com/fystack/solana-gateway/pkg/events"
	"github.com/fystack/solana-gateway/pkg/logger"
)

// RpcConfig carries the per-call overrides shared by every method.
type RpcConfig struct {
	// ResponseSizeEstimate overrides the method's default max-response
	// budget, in bytes.
	ResponseSizeEstimate *uint64 `json:"responseSizeEstimate,omitempty"`
	// Strategy overrides the default Equality consensus rule.
	Strategy *consensus.Strategy `json:"consensusStrategy,omitempty"`
}

// GetSlotRpcConfig adds the getSlot coarsening knob.
type GetSlotRpcConfig struct {
	RpcConfig
	RoundingError uint64 `json:"roundingError,omitempty"`
}

// GetRecentPrioritizationFeesRpcConfig adds the fee-window knobs.
type GetRecentPrioritizationFeesRpcConfig struct {
	RpcConfig
	MaxSlotRoundingError uint64 `json:"maxSlotRoundingError,omitempty"`
	MaxLength            int    `json:"maxLength,omitempty"`
}

// Dispatcher is the outcall fan-out dependency.
type Dispatcher interface {
	FanOut(ctx context.Context, calls []outcall.Call) []outcall.Result
}

// Gateway is the public surface of the service.
type Gateway struct {
	registry   *provider.Registry
	estimator  *cycles.Estimator
	dispatcher Dispatcher
	emitter    events.Emitter
}

func New(registry *provider.Registry, estimator *cycles.Estimator, dispatcher Dispatcher, emitter events.Emitter) *Gateway {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Gateway{
		registry:   registry,
		estimator:  estimator,
		dispatcher: dispatcher,
		emitter:    emitter,
	}
}

func (cfg RpcConfig) strategy() consensus.Strategy {
	if cfg.Strategy != nil {
		return *cfg.Strategy
	}
	return consensus.Equality()
}

// callPlan is the resolved shape of one call before dispatch.
type callPlan struct {
	strategy  consensus.Strategy
	sources   []provider.Source
	endpoints []provider.Endpoint
}

// plan validates the strategy against the source set, selects the sources
// to contact, and resolves every endpoint. All failures here surface
// before any outcall.
func (g *Gateway) plan(sources provider.Sources, cfg RpcConfig) (callPlan, rpc.CallError) {
	strategy := cfg.strategy()

	available, cerr := sources.Available()
	if cerr != nil {
		return callPlan{}, cerr
	}
	if cerr := strategy.Validate(available); cerr != nil {
		return callPlan{}, cerr
	}

	selected, cerr := sources.Select(strategy.ContactCount(available))
	if cerr != nil {
		return callPlan{}, cerr
	}
	if len(selected) == 0 {
		return callPlan{}, &rpc.InvalidConfigError{Message: "no sources to contact"}
	}

	endpoints := make([]provider.Endpoint, len(selected))
	for i, src := range selected {
		ep, cerr := g.registry.ResolveSource(src)
		if cerr != nil {
			return callPlan{}, cerr
		}
		endpoints[i] = ep
	}
	return callPlan{strategy: strategy, sources: selected, endpoints: endpoints}, nil
}

// invoke runs one typed call: plan, charge, fan out, normalize, reduce.
func invoke[T any](
	ctx context.Context,
	g *Gateway,
	call solana.Call[T],
	sources provider.Sources,
	cfg RpcConfig,
	attachedCycles uint64,
) (consensus.MultiResult[T], rpc.CallError) {
	plan, cerr := g.plan(sources, cfg)
	if cerr != nil {
		return consensus.MultiResult[T]{}, cerr
	}

	body, err := call.Request().Marshal()
	if err != nil {
		return consensus.MultiResult[T]{}, &rpc.ValidationError{Message: err.Error()}
	}

	responseSize := call.ResponseSize
	if cfg.ResponseSizeEstimate != nil {
		responseSize = *cfg.ResponseSizeEstimate
	}
	expected := g.estimator.RequestCost(uint64(len(body)), responseSize, len(plan.sources))
	if cerr := g.estimator.Charge(expected, attachedCycles); cerr != nil {
		return consensus.MultiResult[T]{}, cerr
	}

	outcalls := make([]outcall.Call, len(plan.endpoints))
	for i, ep := range plan.endpoints {
		outcalls[i] = outcall.Call{Endpoint: ep, Body: body, MaxResponseBytes: responseSize}
	}

	start := time.Now()
	results := g.dispatcher.FanOut(ctx, outcalls)

	outcomes := make([]consensus.Outcome[T], len(results))
	for i, res := range results {
		outcomes[i] = normalize(plan.sources[i].ID(), res, call.Decode)
	}
	reduced := consensus.Reduce(plan.strategy, outcomes)

	logger.Debug("call reduced",
		"method", call.Method, "sources", len(plan.sources),
		"consistent", reduced.Consistent, "elapsed", time.Since(start))
	g.emitCall(call.Method, plan, reduced.Consistent, reduced.Err, expected)
	return reduced, nil
}

// estimateCost prices a call without dispatching it.
func estimateCost[T any](
	g *Gateway,
	call solana.Call[T],
	sources provider.Sources,
	cfg RpcConfig,
) (uint64, rpc.CallError) {
	plan, cerr := g.plan(sources, cfg)
	if cerr != nil {
		return 0, cerr
	}
	body, err := call.Request().Marshal()
	if err != nil {
		return 0, &rpc.ValidationError{Message: err.Error()}
	}
	responseSize := call.ResponseSize
	if cfg.ResponseSizeEstimate != nil {
		responseSize = *cfg.ResponseSizeEstimate
	}
	return g.estimator.RequestCost(uint64(len(body)), responseSize, len(plan.sources)), nil
}

// normalize turns one raw outcall result into a typed outcome: envelope
// parse, JSON-RPC error extraction, schema decode with post-processing.
func normalize[T any](
	source string,
	res outcall.Result,
	decode func(json.RawMessage) (T, rpc.CallError),
) consensus.Outcome[T] {
	if res.Err != nil {
		return consensus.Outcome[T]{Source: source, Err: res.Err}
	}

	var envelope rpc.Response
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return consensus.Outcome[T]{Source: source, Err: &rpc.InvalidResponseError{
			Status:       res.Status,
			Body:         string(res.Body),
			ParsingError: err.Error(),
		}}
	}
	if envelope.Error != nil {
		return consensus.Outcome[T]{Source: source, Err: &rpc.JSONRPCError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
		}}
	}
	if envelope.Result == nil {
		return consensus.Outcome[T]{Source: source, Err: &rpc.InvalidResponseError{
			Status:       res.Status,
			Body:         string(res.Body),
			ParsingError: "envelope has neither result nor error",
		}}
	}

	value, cerr := decode(envelope.Result)
	if cerr != nil {
		return consensus.Outcome[T]{Source: source, Err: cerr}
	}
	return consensus.Outcome[T]{Source: source, Value: value}
}

func (g *Gateway) emitCall(method string, plan callPlan, consistent bool, agreedErr rpc.CallError, cyclesCharged uint64) {
	ids := make([]string, len(plan.sources))
	for i, s := range plan.sources {
		ids[i] = s.ID()
	}
	ev := events.CallEvent{
		Method:        method,
		Sources:       ids,
		Consistent:    consistent,
		CyclesCharged: cyclesCharged,
	}
	if agreedErr != nil {
		ev.ErrorKind = errKind(agreedErr)
	}
	g.emitter.EmitCall(ev)
}

// errKind is the variant tag of a call error, for audit events.
func errKind(err rpc.CallError) string {
	key := err.Key()
	if i := strings.IndexByte(key, '|'); i >= 0 {
		return key[:i]
	}
	return key
}
