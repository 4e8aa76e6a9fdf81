package consensus

import (
	"encoding/json"
	"fmt"

	"github.com/fystack/solana-gateway/internal/rpc"
)

// Outcome is one source's normalized verdict. Exactly one of Value/Err is
// meaningful: Err == nil means Value holds.
type Outcome[T any] struct {
	Source string        `json:"source"`
	Value  T             `json:"value,omitempty"`
	Err    rpc.CallError `json:"error,omitempty"`
}

// MultiResult is the reduced verdict of a call. Consistent carries either
// the agreed value or the agreed error; Inconsistent carries every
// source's verdict.
type MultiResult[T any] struct {
	Consistent bool          `json:"consistent"`
	Value      T             `json:"value,omitempty"`
	Err        rpc.CallError `json:"error,omitempty"`
	Outcomes   []Outcome[T]  `json:"outcomes,omitempty"`
}

func Consistent[T any](value T) MultiResult[T] {
	return MultiResult[T]{Consistent: true, Value: value}
}

func ConsistentErr[T any](err rpc.CallError) MultiResult[T] {
	return MultiResult[T]{Consistent: true, Err: err}
}

func Inconsistent[T any](outcomes []Outcome[T]) MultiResult[T] {
	return MultiResult[T]{Consistent: false, Outcomes: outcomes}
}

// groupKey canonicalizes an outcome for structural comparison. Ok values
// are compared by their canonical JSON encoding (struct fields serialize in
// declaration order, map keys sorted), errors by variant and payload.
func groupKey[T any](o Outcome[T]) (string, error) {
	if o.Err != nil {
		return "err|" + o.Err.Key(), nil
	}
	b, err := json.Marshal(o.Value)
	if err != nil {
		return "", fmt.Errorf("canonicalize value: %w", err)
	}
	return "ok|" + string(b), nil
}

type group[T any] struct {
	size      int
	minSource string
	first     Outcome[T]
}

// Reduce combines outcomes under the strategy. It is order-insensitive:
// grouping is by value, the winner is chosen by (size, smallest source id).
func Reduce[T any](s Strategy, outcomes []Outcome[T]) MultiResult[T] {
	groups := make(map[string]*group[T])
	for _, o := range outcomes {
		key, err := groupKey(o)
		if err != nil {
			o = Outcome[T]{Source: o.Source, Err: &rpc.ValidationError{Message: err.Error()}}
			key = "err|" + o.Err.Key()
		}
		g, ok := groups[key]
		if !ok {
			groups[key] = &group[T]{size: 1, minSource: o.Source, first: o}
			continue
		}
		g.size++
		if o.Source < g.minSource {
			g.minSource = o.Source
		}
	}

	switch s.Mode {
	case ModeThreshold:
		return reduceThreshold(s, outcomes, groups)
	default:
		return reduceEquality(outcomes, groups)
	}
}

func reduceEquality[T any](outcomes []Outcome[T], groups map[string]*group[T]) MultiResult[T] {
	if len(groups) != 1 {
		return Inconsistent(outcomes)
	}
	for _, g := range groups {
		return verdict(g.first)
	}
	return Inconsistent(outcomes) // empty input
}

func reduceThreshold[T any](s Strategy, outcomes []Outcome[T], groups map[string]*group[T]) MultiResult[T] {
	total := s.Total
	if total == 0 {
		total = len(outcomes)
	}
	if len(outcomes) < total {
		return Inconsistent(outcomes)
	}

	var winner *group[T]
	for _, g := range groups {
		if g.size < s.Min {
			continue
		}
		if winner == nil || g.size > winner.size ||
			(g.size == winner.size && g.minSource < winner.minSource) {
			winner = g
		}
	}
	if winner == nil {
		return Inconsistent(outcomes)
	}
	return verdict(winner.first)
}

func verdict[T any](o Outcome[T]) MultiResult[T] {
	if o.Err != nil {
		return ConsistentErr[T](o.Err)
	}
	return Consistent(o.Value)
}
