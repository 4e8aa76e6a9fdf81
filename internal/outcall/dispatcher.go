// Package outcall issues the outbound HTTP requests for one gateway call,
// one per resolved endpoint, in parallel.
package outcall

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/fystack/solana-gateway/internal/provider"
	"github.com/fystack/solana-gateway/internal/rpc"
	"github.com/fystack/solana-gateway/pkg/logger"
)

const DefaultTimeout = 10 * time.Second

// Limiter throttles requests per endpoint URL.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Call is one outbound request.
type Call struct {
	Endpoint         provider.Endpoint
	Body             []byte
	MaxResponseBytes uint64
}

// Result is the raw outcome of one call slot. Err is set when the HTTP
// exchange failed or the response is unusable; otherwise Body holds the
// 2xx response body.
type Result struct {
	Status int
	Body   []byte
	Err    rpc.CallError
}

// Dispatcher performs the fan-out. It never retries: a replayed call must
// observe exactly one upstream response per provider.
type Dispatcher struct {
	httpClient *http.Client
	limiter    Limiter
}

func NewDispatcher(timeout time.Duration, limiter Limiter) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// FanOut launches every call before awaiting any of them and returns the
// results in input order. Completion order never affects the output.
func (d *Dispatcher) FanOut(ctx context.Context, calls []Call) []Result {
	results := make([]Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call Call) {
			defer wg.Done()
			results[i] = d.do(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) do(ctx context.Context, call Call) Result {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, call.Endpoint.URL); err != nil {
			return Result{Err: mapTransportError(err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint.URL, bytes.NewReader(call.Body))
	if err != nil {
		return Result{Err: &rpc.TransportError{Code: rpc.RejectDestinationInvalid, Message: err.Error()}}
	}
	req.Header.Set("Content-Type", "application/json")
	for _, h := range call.Endpoint.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Result{Err: mapTransportError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(call.MaxResponseBytes)+1))
	if err != nil {
		return Result{Err: mapTransportError(err)}
	}
	logger.Debug("outcall completed",
		"url", call.Endpoint.URL, "status", resp.StatusCode, "elapsed", time.Since(start))

	if uint64(len(body)) > call.MaxResponseBytes {
		return Result{Err: &rpc.TransportError{
			Code:    rpc.RejectSysFatal,
			Message: "response body exceeds max response bytes",
		}}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Err: &rpc.InvalidResponseError{Status: resp.StatusCode, Body: string(body)}}
	}
	return Result{Status: resp.StatusCode, Body: body}
}

// mapTransportError classifies a Go transport failure into the rejection
// taxonomy. The mapping must be stable: consensus compares these values.
func mapTransportError(err error) *rpc.TransportError {
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &rpc.TransportError{Code: rpc.RejectSysTransient, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &rpc.TransportError{Code: rpc.RejectCanisterReject, Message: "request canceled"}
	case errors.As(err, &dnsErr):
		return &rpc.TransportError{Code: rpc.RejectDestinationInvalid, Message: "host not found: " + dnsErr.Name}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &rpc.TransportError{Code: rpc.RejectSysTransient, Message: "connection refused"}
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &rpc.TransportError{Code: rpc.RejectSysTransient, Message: "request timed out"}
		}
		return &rpc.TransportError{Code: rpc.RejectUnknown, Message: err.Error()}
	}
}
