package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fystack/solana-gateway/internal/consensus"
	"github.com/fystack/solana-gateway/internal/gateway"
	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/internal/rpc"
	"github.com/fystack/solana-gateway/pkg/logger"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type APIErrorResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// callRequest is the envelope of every method endpoint. Params and Config
// are method-specific; Cycles is the attached budget.
type callRequest struct {
	Sources sourcesPayload  `json:"sources"`
	Params  json.RawMessage `json:"params,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
	Cycles  uint64          `json:"cycles,omitempty"`
}

type sourcesPayload struct {
	Cluster string            `json:"cluster,omitempty"`
	Custom  []provider.Source `json:"custom,omitempty"`
}

type HTTPHandler struct {
	version string
	gw      *gateway.Gateway
	admin   *gateway.Admin
}

func NewHTTPHandler(version string, gw *gateway.Gateway, admin *gateway.Admin) *HTTPHandler {
	return &HTTPHandler{version: version, gw: gw, admin: admin}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /api/v1/providers", h.HandleProviders)
	mux.HandleFunc("POST /api/v1/keys", h.HandleUpdateKeys)

	mux.HandleFunc("POST /api/v1/getAccountInfo", handleCall(h.gw.GetAccountInfo))
	mux.HandleFunc("POST /api/v1/getAccountInfo/cost", handleCost(h.gw.GetAccountInfoCyclesCost))
	mux.HandleFunc("POST /api/v1/getBalance", handleCall(h.gw.GetBalance))
	mux.HandleFunc("POST /api/v1/getBalance/cost", handleCost(h.gw.GetBalanceCyclesCost))
	mux.HandleFunc("POST /api/v1/getBlock", handleCall(h.gw.GetBlock))
	mux.HandleFunc("POST /api/v1/getBlock/cost", handleCost(h.gw.GetBlockCyclesCost))
	mux.HandleFunc("POST /api/v1/getRecentPrioritizationFees", handleCall(h.gw.GetRecentPrioritizationFees))
	mux.HandleFunc("POST /api/v1/getRecentPrioritizationFees/cost", handleCost(h.gw.GetRecentPrioritizationFeesCyclesCost))
	mux.HandleFunc("POST /api/v1/getSignaturesForAddress", handleCall(h.gw.GetSignaturesForAddress))
	mux.HandleFunc("POST /api/v1/getSignaturesForAddress/cost", handleCost(h.gw.GetSignaturesForAddressCyclesCost))
	mux.HandleFunc("POST /api/v1/getSignatureStatuses", handleCall(h.gw.GetSignatureStatuses))
	mux.HandleFunc("POST /api/v1/getSignatureStatuses/cost", handleCost(h.gw.GetSignatureStatusesCyclesCost))
	mux.HandleFunc("POST /api/v1/getSlot", handleCall(h.gw.GetSlot))
	mux.HandleFunc("POST /api/v1/getSlot/cost", handleCost(h.gw.GetSlotCyclesCost))
	mux.HandleFunc("POST /api/v1/getTokenAccountBalance", handleCall(h.gw.GetTokenAccountBalance))
	mux.HandleFunc("POST /api/v1/getTokenAccountBalance/cost", handleCost(h.gw.GetTokenAccountBalanceCyclesCost))
	mux.HandleFunc("POST /api/v1/getTransaction", handleCall(h.gw.GetTransaction))
	mux.HandleFunc("POST /api/v1/getTransaction/cost", handleCost(h.gw.GetTransactionCyclesCost))
	mux.HandleFunc("POST /api/v1/sendTransaction", handleCall(h.gw.SendTransaction))
	mux.HandleFunc("POST /api/v1/sendTransaction/cost", handleCost(h.gw.SendTransactionCyclesCost))
	mux.HandleFunc("POST /api/v1/jsonRequest", h.HandleJSONRequest)
	mux.HandleFunc("POST /api/v1/jsonRequest/cost", h.HandleJSONRequestCost)
}

func (h *HTTPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

func (h *HTTPHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.GetProviders())
}

func (h *HTTPHandler) HandleUpdateKeys(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeErrorJSON(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	var updates []gateway.KeyUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.admin.UpdateAPIKeys(token, updates); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			writeErrorJSON(w, http.StatusForbidden, err.Error())
			return
		}
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) HandleJSONRequest(w http.ResponseWriter, r *http.Request) {
	req, sources, ok := parseCallRequest(w, r)
	if !ok {
		return
	}
	var cfg gateway.RpcConfig
	if !decodeOptional(w, req.Config, &cfg) {
		return
	}
	res, cerr := h.gw.JSONRequest(r.Context(), sources, string(req.Params), cfg, req.Cycles)
	if cerr != nil {
		writeCallError(w, cerr)
		return
	}
	writeJSON(w, http.StatusOK, renderMulti(res))
}

func (h *HTTPHandler) HandleJSONRequestCost(w http.ResponseWriter, r *http.Request) {
	req, sources, ok := parseCallRequest(w, r)
	if !ok {
		return
	}
	var cfg gateway.RpcConfig
	if !decodeOptional(w, req.Config, &cfg) {
		return
	}
	cost, cerr := h.gw.JSONRequestCyclesCost(sources, string(req.Params), cfg)
	if cerr != nil {
		writeCallError(w, cerr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"cycles": cost})
}

// handleCall adapts one typed gateway method to the HTTP envelope.
func handleCall[P, C, T any](
	fn func(context.Context, provider.Sources, P, C, uint64) (consensus.MultiResult[T], rpc.CallError),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, sources, ok := parseCallRequest(w, r)
		if !ok {
			return
		}
		var params P
		if !decodeOptional(w, req.Params, &params) {
			return
		}
		var cfg C
		if !decodeOptional(w, req.Config, &cfg) {
			return
		}
		res, cerr := fn(r.Context(), sources, params, cfg, req.Cycles)
		if cerr != nil {
			writeCallError(w, cerr)
			return
		}
		writeJSON(w, http.StatusOK, renderMulti(res))
	}
}

func handleCost[P, C any](
	fn func(provider.Sources, P, C) (uint64, rpc.CallError),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, sources, ok := parseCallRequest(w, r)
		if !ok {
			return
		}
		var params P
		if !decodeOptional(w, req.Params, &params) {
			return
		}
		var cfg C
		if !decodeOptional(w, req.Config, &cfg) {
			return
		}
		cost, cerr := fn(sources, params, cfg)
		if cerr != nil {
			writeCallError(w, cerr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]uint64{"cycles": cost})
	}
}

func parseCallRequest(w http.ResponseWriter, r *http.Request) (callRequest, provider.Sources, bool) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return callRequest{}, provider.Sources{}, false
	}

	switch {
	case req.Sources.Cluster != "" && len(req.Sources.Custom) > 0:
		writeErrorJSON(w, http.StatusBadRequest, "sources: set either cluster or custom, not both")
		return callRequest{}, provider.Sources{}, false
	case req.Sources.Cluster != "":
		cluster, err := provider.ParseCluster(req.Sources.Cluster)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, err.Error())
			return callRequest{}, provider.Sources{}, false
		}
		return req, provider.DefaultSources(cluster), true
	case len(req.Sources.Custom) > 0:
		return req, provider.CustomSources(req.Sources.Custom...), true
	default:
		writeErrorJSON(w, http.StatusBadRequest, "sources required")
		return callRequest{}, provider.Sources{}, false
	}
}

func decodeOptional(w http.ResponseWriter, raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, out); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return false
	}
	return true
}

// renderMulti shapes a MultiResult for the wire, rendering call errors as
// tagged unions.
func renderMulti[T any](res consensus.MultiResult[T]) map[string]any {
	if res.Consistent {
		out := map[string]any{"consistent": true}
		if res.Err != nil {
			out["error"] = errorJSON(res.Err)
		} else {
			out["result"] = res.Value
		}
		return out
	}

	outcomes := make([]map[string]any, len(res.Outcomes))
	for i, o := range res.Outcomes {
		entry := map[string]any{"source": o.Source}
		if o.Err != nil {
			entry["error"] = errorJSON(o.Err)
		} else {
			entry["result"] = o.Value
		}
		outcomes[i] = entry
	}
	return map[string]any{"consistent": false, "outcomes": outcomes}
}

func errorJSON(cerr rpc.CallError) json.RawMessage {
	b, err := rpc.MarshalError(cerr)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"kind": "unknown", "message": cerr.Error()})
	}
	return b
}

func writeCallError(w http.ResponseWriter, cerr rpc.CallError) {
	status := http.StatusBadRequest
	if _, ok := cerr.(*rpc.TooFewCyclesError); ok {
		status = http.StatusPaymentRequired
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(errorJSON(cerr))
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIErrorResponse{
		Status:    "error",
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write response", "err", err)
	}
}
