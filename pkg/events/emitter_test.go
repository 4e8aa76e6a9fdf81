package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallEvent_WireShape(t *testing.T) {
	ev := CallEvent{
		Method:        "getSlot",
		Sources:       []string{"alchemy-mainnet", "ankr-mainnet"},
		Consistent:    true,
		CyclesCharged: 1_234_567,
		Timestamp:     1700000000,
	}
	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "getSlot", out["method"])
	assert.Equal(t, true, out["consistent"])
	assert.NotContains(t, out, "error_kind", "empty error kind is elided")
}

func TestNoopEmitter(t *testing.T) {
	var e Emitter = NoopEmitter{}
	e.EmitCall(CallEvent{Method: "getSlot"})
	e.Close()
}
