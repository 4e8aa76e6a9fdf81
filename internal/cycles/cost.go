// Package cycles prices HTTP outcalls in the subnet's resource unit and
// enforces the attached budget.
package cycles

import (
	"github.com/fystack/solana-gateway/internal/rpc"
)

// Outcall cost function coefficients. The cost is linear in the subnet
// node count, the serialized request size, and the max response size.
const (
	baseFee            = 3_000_000
	perNodeBaseFee     = 60_000
	perRequestByteFee  = 400
	perResponseByteFee = 800
)

// DefaultNumSubnetNodes matches the subnet the service is installed on.
const DefaultNumSubnetNodes = 34

// Mode switches budget enforcement.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeDemo   Mode = "demo"
)

// OutcallCost returns the cycles one outcall costs on an n-node subnet.
func OutcallCost(numNodes int, requestBytes, maxResponseBytes uint64) uint64 {
	n := uint64(numNodes)
	return baseFee + perNodeBaseFee*n + perRequestByteFee*n*requestBytes + perResponseByteFee*n*maxResponseBytes
}

// Estimator prices whole calls a priori for quoting and charging.
type Estimator struct {
	numNodes int
	mode     Mode
}

func NewEstimator(numNodes int, mode Mode) *Estimator {
	if numNodes <= 0 {
		numNodes = DefaultNumSubnetNodes
	}
	if mode == "" {
		mode = ModeNormal
	}
	return &Estimator{numNodes: numNodes, mode: mode}
}

// RequestCost is the total price of fanning one request out to
// providerCount providers.
func (e *Estimator) RequestCost(requestBytes, maxResponseBytes uint64, providerCount int) uint64 {
	return OutcallCost(e.numNodes, requestBytes, maxResponseBytes) * uint64(providerCount)
}

// Charge verifies the attached budget covers the expected cost. Demo mode
// skips enforcement.
func (e *Estimator) Charge(expected, attached uint64) rpc.CallError {
	if e.mode == ModeDemo {
		return nil
	}
	if attached < expected {
		return &rpc.TooFewCyclesError{Expected: expected, Received: attached}
	}
	return nil
}

func (e *Estimator) Mode() Mode { return e.mode }
