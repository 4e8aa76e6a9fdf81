package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/solana-gateway/internal/consensus"
	"github.com/fystack/solana-gateway/internal/cycles"
	"github.com/fystack/solana-gateway/internal/keystore"
	"github.com/fystack/solana-gateway/internal/outcall"
	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/internal/rpc"
	"github.com/fystack/solana-gateway/internal/solana"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testSig  = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
)

// rpcServer fakes one provider returning result (or errObj) for every call.
func rpcServer(t *testing.T, result any, errObj map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpc.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if errObj != nil {
			resp["error"] = errObj
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func customSources(urls ...string) provider.Sources {
	srcs := make([]provider.Source, len(urls))
	for i, u := range urls {
		srcs[i] = provider.Source{Custom: &provider.Endpoint{URL: u}}
	}
	return provider.CustomSources(srcs...)
}

func newGateway(mode cycles.Mode) *Gateway {
	registry := provider.NewRegistry(keystore.NewMemoryStore(), nil)
	estimator := cycles.NewEstimator(cycles.DefaultNumSubnetNodes, mode)
	dispatcher := outcall.NewDispatcher(2*time.Second, nil)
	return New(registry, estimator, dispatcher, nil)
}

func TestGetSlot_ThresholdConsensusAcrossDivergentSlots(t *testing.T) {
	// Raw replies 123456, 123460, 123471 floor to 123440, 123460, 123460
	// (123460 is already a multiple of 20): a 2-of-3 majority at 123460.
	a := rpcServer(t, 123_456, nil)
	b := rpcServer(t, 123_460, nil)
	c := rpcServer(t, 123_471, nil)

	g := newGateway(cycles.ModeDemo)
	strategy := consensus.Threshold(3, 2)
	res, cerr := g.GetSlot(context.Background(),
		customSources(a.URL, b.URL, c.URL),
		solana.GetSlotParams{},
		GetSlotRpcConfig{RpcConfig: RpcConfig{Strategy: &strategy}, RoundingError: 20},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent)
	require.Nil(t, res.Err)
	assert.Equal(t, uint64(123_460), res.Value)
}

func TestGetAccountInfo_EqualityInconsistent(t *testing.T) {
	info := map[string]any{
		"lamports": 1000, "data": []any{"", "base64"},
		"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		"executable": false, "rentEpoch": 361, "space": 82,
	}
	a := rpcServer(t, map[string]any{"context": map[string]any{"slot": 1}, "value": info}, nil)
	b := rpcServer(t, map[string]any{"context": map[string]any{"slot": 2}, "value": nil}, nil)
	c := rpcServer(t, map[string]any{"context": map[string]any{"slot": 3}, "value": info}, nil)

	g := newGateway(cycles.ModeDemo)
	res, cerr := g.GetAccountInfo(context.Background(),
		customSources(a.URL, b.URL, c.URL),
		solana.GetAccountInfoParams{Pubkey: usdcMint},
		RpcConfig{},
		0)

	require.Nil(t, cerr)
	require.False(t, res.Consistent)
	require.Len(t, res.Outcomes, 3)
	assert.NotNil(t, res.Outcomes[0].Value)
	assert.Nil(t, res.Outcomes[1].Value)
	assert.NotNil(t, res.Outcomes[2].Value)
	for _, o := range res.Outcomes {
		assert.Nil(t, o.Err)
	}
}

func TestGetBalance_EqualityAllAgree(t *testing.T) {
	value := map[string]any{"context": map[string]any{"slot": 100}, "value": 1_000_000}
	a := rpcServer(t, value, nil)
	b := rpcServer(t, value, nil)
	c := rpcServer(t, value, nil)

	g := newGateway(cycles.ModeDemo)
	res, cerr := g.GetBalance(context.Background(),
		customSources(a.URL, b.URL, c.URL),
		solana.GetBalanceParams{Pubkey: usdcMint},
		RpcConfig{},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent)
	assert.Equal(t, uint64(1_000_000), res.Value)
}

func TestSendTransaction_MajorityOverridesProviderError(t *testing.T) {
	a := rpcServer(t, testSig, nil)
	b := rpcServer(t, testSig, nil)
	c := rpcServer(t, nil, map[string]any{"code": -32002, "message": "Blockhash not found"})

	g := newGateway(cycles.ModeDemo)
	strategy := consensus.Threshold(3, 2)
	res, cerr := g.SendTransaction(context.Background(),
		customSources(a.URL, b.URL, c.URL),
		solana.SendTransactionParams{Transaction: "dHgtYnl0ZXM="},
		RpcConfig{Strategy: &strategy},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent)
	assert.Equal(t, testSig, res.Value)
}

func TestJSONRequest_IdenticalTextIsConsistent(t *testing.T) {
	result := map[string]any{"solana-core": "2.1.9"}
	a := rpcServer(t, result, nil)
	b := rpcServer(t, result, nil)
	c := rpcServer(t, result, nil)

	g := newGateway(cycles.ModeDemo)
	res, cerr := g.JSONRequest(context.Background(),
		customSources(a.URL, b.URL, c.URL),
		`{"jsonrpc":"2.0","id":1,"method":"getVersion"}`,
		RpcConfig{},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent)
	assert.Contains(t, res.Value, "solana-core")
}

func TestJSONRequest_RejectsNonJSONPayload(t *testing.T) {
	g := newGateway(cycles.ModeDemo)
	_, cerr := g.JSONRequest(context.Background(), customSources("http://unused.invalid"), "{not json", RpcConfig{}, 0)
	require.NotNil(t, cerr)
	assert.IsType(t, &rpc.ValidationError{}, cerr)
}

func TestInvoke_TooFewCyclesBeforeDispatch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	g := newGateway(cycles.ModeNormal)
	res, cerr := g.GetBalance(context.Background(),
		customSources(server.URL),
		solana.GetBalanceParams{Pubkey: usdcMint},
		RpcConfig{},
		1) // far below any real cost

	require.NotNil(t, cerr)
	tf, ok := cerr.(*rpc.TooFewCyclesError)
	require.True(t, ok)
	assert.Greater(t, tf.Expected, uint64(1))
	assert.Equal(t, uint64(1), tf.Received)
	assert.Zero(t, hits.Load(), "no outcall may be issued when the budget is short")
	assert.False(t, res.Consistent)
}

func TestInvoke_DemoModeSkipsCharge(t *testing.T) {
	value := map[string]any{"context": map[string]any{"slot": 1}, "value": 42}
	server := rpcServer(t, value, nil)

	g := newGateway(cycles.ModeDemo)
	res, cerr := g.GetBalance(context.Background(),
		customSources(server.URL),
		solana.GetBalanceParams{Pubkey: usdcMint},
		RpcConfig{},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent)
	assert.Equal(t, uint64(42), res.Value)
}

func TestInvoke_TransportErrorFeedsReduction(t *testing.T) {
	value := map[string]any{"context": map[string]any{"slot": 1}, "value": 7}
	a := rpcServer(t, value, nil)
	b := rpcServer(t, value, nil)

	// The third provider is unreachable; with min=2 the call still
	// converges and the dead slot is outvoted.
	g := newGateway(cycles.ModeDemo)
	strategy := consensus.Threshold(3, 2)
	res, cerr := g.GetBalance(context.Background(),
		customSources(a.URL, b.URL, "http://127.0.0.1:1"),
		solana.GetBalanceParams{Pubkey: usdcMint},
		RpcConfig{Strategy: &strategy},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent)
	assert.Equal(t, uint64(7), res.Value)
}

func TestInvoke_MalformedEnvelopeIsInvalidResponse(t *testing.T) {
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	t.Cleanup(garbage.Close)

	g := newGateway(cycles.ModeDemo)
	res, cerr := g.GetBalance(context.Background(),
		customSources(garbage.URL),
		solana.GetBalanceParams{Pubkey: usdcMint},
		RpcConfig{},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent, "a single source is trivially consistent")
	require.NotNil(t, res.Err)
	ir, ok := res.Err.(*rpc.InvalidResponseError)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, ir.Status)
	assert.NotEmpty(t, ir.ParsingError)
}

func TestDefaultSources_ResolvedThroughOverride(t *testing.T) {
	// An override redirecting every resolved URL at a local server is the
	// standard way to exercise Default(cluster) without live providers.
	server := rpcServer(t, 360_040, nil)
	override, err := provider.NewOverride(`^https://.*`, server.URL)
	require.NoError(t, err)

	registry := provider.NewRegistry(keystore.NewMemoryStore(), override)
	g := New(registry,
		cycles.NewEstimator(cycles.DefaultNumSubnetNodes, cycles.ModeDemo),
		outcall.NewDispatcher(2*time.Second, nil),
		nil)

	res, cerr := g.GetSlot(context.Background(),
		provider.DefaultSources(provider.ClusterDevnet),
		solana.GetSlotParams{},
		GetSlotRpcConfig{},
		0)

	require.Nil(t, cerr)
	require.True(t, res.Consistent)
	assert.Equal(t, uint64(360_040), res.Value)
}

func TestGetSignaturesForAddress_BeforeEnforcedByStrategy(t *testing.T) {
	g := newGateway(cycles.ModeDemo)
	strategy := consensus.Threshold(0, 2)

	_, cerr := g.GetSignaturesForAddress(context.Background(),
		provider.DefaultSources(provider.ClusterMainnet),
		solana.GetSignaturesForAddressParams{Pubkey: usdcMint},
		RpcConfig{Strategy: &strategy},
		0)
	require.NotNil(t, cerr)
	assert.IsType(t, &rpc.ValidationError{}, cerr)
}

func TestCyclesCost_MatchesFormulaAndIsPure(t *testing.T) {
	g := newGateway(cycles.ModeNormal)
	estimate := uint64(10_000)
	sources := customSources("http://a.invalid", "http://b.invalid", "http://c.invalid")

	call, cerr := solana.GetAccountInfo(solana.GetAccountInfoParams{Pubkey: usdcMint})
	require.Nil(t, cerr)
	body, err := call.Request().Marshal()
	require.NoError(t, err)

	want := 3 * cycles.OutcallCost(cycles.DefaultNumSubnetNodes, uint64(len(body)), estimate)

	for i := 0; i < 3; i++ {
		got, cerr := g.GetAccountInfoCyclesCost(sources,
			solana.GetAccountInfoParams{Pubkey: usdcMint},
			RpcConfig{ResponseSizeEstimate: &estimate})
		require.Nil(t, cerr)
		assert.Equal(t, want, got)
	}
}

func TestCyclesCost_DefaultClusterUsesContactCount(t *testing.T) {
	g := newGateway(cycles.ModeNormal)

	eq, cerr := g.GetSlotCyclesCost(provider.DefaultSources(provider.ClusterMainnet),
		solana.GetSlotParams{}, GetSlotRpcConfig{})
	require.Nil(t, cerr)

	strategy := consensus.Threshold(4, 3)
	th, cerr := g.GetSlotCyclesCost(provider.DefaultSources(provider.ClusterMainnet),
		solana.GetSlotParams{}, GetSlotRpcConfig{RpcConfig: RpcConfig{Strategy: &strategy}})
	require.Nil(t, cerr)

	// Equality contacts 3 providers, the explicit threshold contacts 4.
	assert.Equal(t, th/4, eq/3)
	assert.Greater(t, th, eq)
}

func TestDefaultSources_UnsupportedCluster(t *testing.T) {
	g := newGateway(cycles.ModeDemo)
	_, cerr := g.GetSlot(context.Background(),
		provider.DefaultSources(provider.ClusterTestnet),
		solana.GetSlotParams{}, GetSlotRpcConfig{}, 0)
	require.NotNil(t, cerr)
	assert.IsType(t, &rpc.UnsupportedClusterError{}, cerr)
}

func TestAdmin_UpdateAPIKeysACL(t *testing.T) {
	keys := keystore.NewMemoryStore()
	admin := NewAdmin(keys, []string{"admin-token"})
	key := "sk-1"

	err := admin.UpdateAPIKeys("wrong-token", []KeyUpdate{{Provider: "helius-mainnet", Key: &key}})
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, admin.UpdateAPIKeys("admin-token", []KeyUpdate{{Provider: "helius-mainnet", Key: &key}}))
	stored, err := keys.Get("helius-mainnet")
	require.NoError(t, err)
	assert.Equal(t, "sk-1", stored)

	require.NoError(t, admin.UpdateAPIKeys("admin-token", []KeyUpdate{{Provider: "helius-mainnet"}}))
	_, err = keys.Get("helius-mainnet")
	assert.ErrorIs(t, err, keystore.ErrKeyNotFound)
}

func TestAdmin_UpdateAPIKeysRejectsUnknownProviderBeforeWrites(t *testing.T) {
	keys := keystore.NewMemoryStore()
	admin := NewAdmin(keys, []string{"t"})
	key := "v"

	err := admin.UpdateAPIKeys("t", []KeyUpdate{
		{Provider: "helius-mainnet", Key: &key},
		{Provider: "not-a-provider", Key: &key},
	})
	require.Error(t, err)
	_, getErr := keys.Get("helius-mainnet")
	assert.ErrorIs(t, getErr, keystore.ErrKeyNotFound, "batch must be rejected atomically")
}

func TestGetProviders_ReturnsCatalogue(t *testing.T) {
	g := newGateway(cycles.ModeDemo)
	infos := g.GetProviders()
	require.NotEmpty(t, infos)

	byID := map[provider.SupportedProvider]provider.Info{}
	for _, info := range infos {
		byID[info.Provider] = info
	}
	helius := byID[provider.HeliusMainnet]
	assert.Equal(t, provider.ClusterMainnet, helius.Cluster)
	require.NotNil(t, helius.Access.Auth)
	assert.Contains(t, helius.Access.Auth.URLPattern, "{API_KEY}")
}
