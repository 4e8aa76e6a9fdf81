package consensus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/solana-gateway/internal/rpc"
)

func ok(source string, v uint64) Outcome[uint64] {
	return Outcome[uint64]{Source: source, Value: v}
}

func fail(source string, err rpc.CallError) Outcome[uint64] {
	return Outcome[uint64]{Source: source, Err: err}
}

func TestReduce_EqualityAllEqual(t *testing.T) {
	r := Reduce(Equality(), []Outcome[uint64]{ok("a", 1_000_000), ok("b", 1_000_000), ok("c", 1_000_000)})
	require.True(t, r.Consistent)
	require.Nil(t, r.Err)
	assert.Equal(t, uint64(1_000_000), r.Value)
}

func TestReduce_EqualityOneDissent(t *testing.T) {
	outcomes := []Outcome[uint64]{ok("a", 5), ok("b", 6), ok("c", 5)}
	r := Reduce(Equality(), outcomes)
	assert.False(t, r.Consistent)
	assert.Equal(t, outcomes, r.Outcomes)
}

func TestReduce_EqualityAllEqualErrors(t *testing.T) {
	e := &rpc.JSONRPCError{Code: -32005, Message: "Node is behind"}
	r := Reduce(Equality(), []Outcome[uint64]{fail("a", e), fail("b", e)})
	require.True(t, r.Consistent)
	require.NotNil(t, r.Err)
	assert.True(t, rpc.Equal(e, r.Err))
}

func TestReduce_ThresholdMajority(t *testing.T) {
	// sendTransaction scenario: two signatures agree, one provider errors.
	e := &rpc.JSONRPCError{Code: -32002, Message: "Blockhash not found"}
	outcomes := []Outcome[string]{
		{Source: "a", Value: "sigX"},
		{Source: "b", Value: "sigX"},
		{Source: "c", Err: e},
	}
	r := Reduce(Threshold(3, 2), outcomes)
	require.True(t, r.Consistent)
	require.Nil(t, r.Err)
	assert.Equal(t, "sigX", r.Value)
}

func TestReduce_ThresholdNoQuorum(t *testing.T) {
	r := Reduce(Threshold(3, 2), []Outcome[uint64]{ok("a", 1), ok("b", 2), ok("c", 3)})
	assert.False(t, r.Consistent)
	assert.Len(t, r.Outcomes, 3)
}

func TestReduce_ThresholdFewerThanTotal(t *testing.T) {
	r := Reduce(Threshold(3, 2), []Outcome[uint64]{ok("a", 1), ok("b", 1)})
	assert.False(t, r.Consistent)
}

func TestReduce_ThresholdMinOneAlwaysConsistent(t *testing.T) {
	r := Reduce(Threshold(0, 1), []Outcome[uint64]{ok("a", 7)})
	require.True(t, r.Consistent)
	assert.Equal(t, uint64(7), r.Value)
}

func TestReduce_TieBreakLargerGroupWins(t *testing.T) {
	outcomes := []Outcome[uint64]{ok("a", 1), ok("b", 2), ok("c", 2), ok("d", 1), ok("e", 2)}
	r := Reduce(Threshold(5, 2), outcomes)
	require.True(t, r.Consistent)
	assert.Equal(t, uint64(2), r.Value)
}

func TestReduce_TieBreakSmallestSourceID(t *testing.T) {
	// Both groups meet min=2 with equal size; the group holding the
	// lexicographically smallest source wins.
	outcomes := []Outcome[uint64]{ok("b", 9), ok("d", 9), ok("a", 4), ok("c", 4)}
	r := Reduce(Threshold(4, 2), outcomes)
	require.True(t, r.Consistent)
	assert.Equal(t, uint64(4), r.Value)
}

func TestReduce_OrderInsensitive(t *testing.T) {
	e := &rpc.TransportError{Code: rpc.RejectSysTransient, Message: "timeout"}
	outcomes := []Outcome[uint64]{ok("a", 10), ok("b", 10), ok("c", 20), fail("d", e), ok("e", 10)}

	want := Reduce(Threshold(5, 3), outcomes)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]Outcome[uint64], len(outcomes))
		copy(shuffled, outcomes)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Reduce(Threshold(5, 3), shuffled)
		assert.Equal(t, want.Consistent, got.Consistent)
		assert.Equal(t, want.Value, got.Value)
		assert.True(t, rpc.Equal(want.Err, got.Err))
	}
}

func TestReduce_ErrorsGroupStructurally(t *testing.T) {
	// Same code+message groups together; a different message does not.
	e1 := &rpc.JSONRPCError{Code: -32002, Message: "Blockhash not found"}
	e2 := &rpc.JSONRPCError{Code: -32002, Message: "Blockhash not found"}
	e3 := &rpc.JSONRPCError{Code: -32002, Message: "blockhash not found"}

	r := Reduce(Threshold(3, 2), []Outcome[uint64]{fail("a", e1), fail("b", e2), fail("c", e3)})
	require.True(t, r.Consistent)
	assert.True(t, rpc.Equal(e1, r.Err))
}

func TestReduce_StructValuesCompareCanonically(t *testing.T) {
	type balance struct {
		Lamports uint64 `json:"lamports"`
	}
	outcomes := []Outcome[balance]{
		{Source: "a", Value: balance{1}},
		{Source: "b", Value: balance{1}},
		{Source: "c", Value: balance{2}},
	}
	r := Reduce(Threshold(3, 2), outcomes)
	require.True(t, r.Consistent)
	assert.Equal(t, balance{1}, r.Value)
}
